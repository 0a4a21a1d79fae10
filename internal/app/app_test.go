package app

import (
	"context"
	"testing"

	"github.com/nfrund/parley/internal/auth"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/database"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/janitor"
	"github.com/nfrund/parley/internal/realtime"
	"github.com/nfrund/parley/internal/storage"
	"github.com/nfrund/parley/internal/testutils"
	"github.com/nfrund/parley/internal/websocket"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestContainer swaps the database connection for one that is never
// dialled, so everything above the stores can be resolved offline.
func newTestContainer(t *testing.T, cfg config.Provider) *do.RootScope {
	t.Helper()
	root := New(cfg)
	do.OverrideValue(root, database.NewConnection(cfg))
	t.Cleanup(func() { _ = Shutdown(context.Background(), root) })
	return root
}

func TestContainerResolvesServices(t *testing.T) {
	root := newTestContainer(t, testutils.Config(t))

	_, err := do.Invoke[*auth.Service](root)
	require.NoError(t, err)
	_, err = do.Invoke[*auth.ProfileService](root)
	require.NoError(t, err)
	_, err = do.Invoke[*chat.Service](root)
	require.NoError(t, err)
	_, err = do.Invoke[*janitor.Janitor](root)
	require.NoError(t, err)

	hub, err := do.Invoke[*realtime.Hub](root)
	require.NoError(t, err)
	gateway := do.MustInvoke[*websocket.Gateway](root)
	assert.Same(t, do.MustInvoke[*realtime.Hub](root), hub, "services are singletons")
	assert.Empty(t, gateway.ConnIDs())

	store, err := do.Invoke[domain.ObjectStore](root)
	require.NoError(t, err)
	assert.IsType(t, &storage.AferoStore{}, store)
}

func TestContainerRejectsBadConfig(t *testing.T) {
	cfg := testutils.Config(t)
	cfg.JanitorSchedule = "whenever"
	cfg.JWTSecret = ""
	root := newTestContainer(t, cfg)

	_, err := do.Invoke[*janitor.Janitor](root)
	assert.Error(t, err)
	_, err = do.Invoke[*auth.TokenService](root)
	assert.Error(t, err)
}

func TestStartBackground(t *testing.T) {
	root := newTestContainer(t, testutils.Config(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, StartBackground(ctx, root))
}
