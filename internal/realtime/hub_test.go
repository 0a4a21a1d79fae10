package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/nfrund/parley/internal/presence"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHub struct {
	*Hub
	transport *fakeTransport
}

func newTestHub() *testHub {
	tr := newFakeTransport()
	return &testHub{Hub: NewHub(presence.NewRegistry(), tr), transport: tr}
}

func (h *testHub) open(connID string, opts ...SessionOption) *Session {
	h.transport.add(connID)
	return h.Connect(connID, opts...)
}

func (h *testHub) close(connID string) {
	h.transport.remove(connID)
	h.Disconnect(context.Background(), connID)
}

func (h *testHub) setup(t *testing.T, s *Session, userID string) {
	t.Helper()
	require.NoError(t, s.Step(context.Background(), frame(t, EventSetup, map[string]string{"_id": userID})))
}

func onlineUsers(t *testing.T, f sentFrame) []string {
	t.Helper()
	var users []string
	require.NoError(t, json.Unmarshal(f.Data, &users))
	return users
}

func TestHub_SetupIdentifiesConnection(t *testing.T) {
	h := newTestHub()
	s := h.open("connA")
	other := h.open("connX")

	h.setup(t, s, "A")

	assert.Equal(t, StateIdentified, s.State())
	assert.Equal(t, "A", s.UserID())
	connID, ok := h.Registry().Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "connA", connID)
	assert.Equal(t, []string{"connA"}, h.Rooms().Members("A"))

	assert.Equal(t, []string{EventConnected, EventOnlineUsers}, h.transport.events("connA"))
	snap, ok := h.transport.last("connX", EventOnlineUsers)
	require.True(t, ok, "snapshot goes to every connection")
	assert.Equal(t, []string{"A"}, onlineUsers(t, snap))
	assert.Equal(t, StateConnected, other.State())
}

func TestHub_InvalidSetupKeepsState(t *testing.T) {
	h := newTestHub()
	s := h.open("c1")

	err := s.Step(context.Background(), frame(t, EventSetup, map[string]string{}))

	assert.ErrorIs(t, err, ErrInvalidSetup)
	assert.True(t, IsInvalidEvent(err))
	assert.Equal(t, StateConnected, s.State())
	assert.Empty(t, h.Registry().OnlineUserIDs())
	assert.Empty(t, h.transport.events("c1"))
}

func TestHub_SecondSetupWithDifferentUserRejected(t *testing.T) {
	h := newTestHub()
	s := h.open("c1")
	h.setup(t, s, "A")

	err := s.Step(context.Background(), frame(t, EventSetup, map[string]string{"id": "B"}))

	assert.ErrorIs(t, err, ErrAlreadyIdentified)
	assert.Equal(t, "A", s.UserID())
	assert.False(t, h.Registry().IsOnline("B"))
}

func TestHub_AuthenticatedSessionMustMatch(t *testing.T) {
	h := newTestHub()
	s := h.open("c1", WithAuthenticatedUser("A"))

	err := s.Step(context.Background(), frame(t, EventSetup, map[string]string{"id": "B"}))
	assert.ErrorIs(t, err, ErrUserMismatch)
	assert.Equal(t, StateConnected, s.State())

	h.setup(t, s, "A")
	assert.Equal(t, StateIdentified, s.State())
}

func TestHub_JoinRoom(t *testing.T) {
	h := newTestHub()
	s := h.open("c1")

	// join before setup is accepted but does not activate
	require.NoError(t, s.Step(context.Background(), frame(t, EventJoinRoom, "chat:1")))
	assert.Equal(t, StateConnected, s.State())

	h.setup(t, s, "A")
	require.NoError(t, s.Step(context.Background(), frame(t, EventJoinRoom, "chat:2")))
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, []string{"A", "chat:1", "chat:2"}, h.Rooms().RoomsOf("c1"))

	err := s.Step(context.Background(), frame(t, EventJoinRoom, ""))
	assert.ErrorIs(t, err, ErrEmptyRoom)
	assert.Equal(t, StateActive, s.State())
}

func TestHub_UnknownEventIgnored(t *testing.T) {
	h := newTestHub()
	s := h.open("c1")
	h.setup(t, s, "A")

	err := s.Step(context.Background(), frame(t, "typing", nil))

	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Equal(t, StateIdentified, s.State())
}

// A and B are set up; A sends into [A, B].
func TestHub_ScenarioTwoUsersExchangeMessage(t *testing.T) {
	h := newTestHub()
	a := h.open("connA")
	b := h.open("connB")
	h.open("connC")
	h.setup(t, a, "A")
	h.setup(t, b, "B")
	h.transport.reset()

	err := a.Step(context.Background(), frame(t, EventNewMessage, messageData("chat:1", "A", "A", "B")))
	require.NoError(t, err)

	assert.Equal(t, []string{EventMessageEcho}, h.transport.events("connA"))
	assert.Equal(t, []string{EventMessageReceived}, h.transport.events("connB"))
	assert.Empty(t, h.transport.events("connC"))
	assert.Equal(t, StateActive, a.State())

	got, _ := h.transport.last("connB", EventMessageReceived)
	assert.Contains(t, string(got.Data), `"content":"hello"`)
}

// B disconnects, then a message including B is sent.
func TestHub_ScenarioOfflineRecipient(t *testing.T) {
	h := newTestHub()
	a := h.open("connA")
	b := h.open("connB")
	h.setup(t, a, "A")
	h.setup(t, b, "B")

	h.close("connB")
	snap, ok := h.transport.last("connA", EventOnlineUsers)
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, onlineUsers(t, snap))
	h.transport.reset()

	err := a.Step(context.Background(), frame(t, EventNewMessage, messageData("chat:1", "A", "A", "B")))

	require.NoError(t, err)
	assert.Equal(t, []string{EventMessageEcho}, h.transport.events("connA"))
	assert.Empty(t, h.transport.events("connB"))
}

// A reconnects before the old connection's disconnect arrives.
func TestHub_ScenarioStaleDisconnect(t *testing.T) {
	h := newTestHub()
	old := h.open("connA1")
	h.setup(t, old, "A")
	fresh := h.open("connA2")
	h.setup(t, fresh, "A")
	require.Equal(t, []string{"connA2"}, h.Rooms().Members("A"))
	h.transport.reset()

	h.close("connA1")

	connID, ok := h.Registry().Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "connA2", connID)
	assert.Empty(t, h.transport.events("connA2"), "no snapshot when nothing changed")
	assert.Equal(t, []string{"connA2"}, h.Rooms().Members("A"))
}

func TestHub_SnapshotHasDistinctUsers(t *testing.T) {
	h := newTestHub()
	const n = 5
	for i := 0; i < n; i++ {
		s := h.open(fmt.Sprintf("conn%d", i))
		h.setup(t, s, fmt.Sprintf("user%d", i))
	}
	// a second connection for user0 must not duplicate it
	h.setup(t, h.open("conn-extra"), "user0")

	snap, ok := h.transport.last("conn0", EventOnlineUsers)
	require.True(t, ok)
	users := onlineUsers(t, snap)
	assert.Len(t, users, n)
	assert.ElementsMatch(t, []string{"user0", "user1", "user2", "user3", "user4"}, users)
}

func TestHub_DisconnectIsTerminal(t *testing.T) {
	h := newTestHub()
	s := h.open("c1")
	h.setup(t, s, "A")

	h.close("c1")
	h.Disconnect(context.Background(), "c1")

	assert.Equal(t, StateDisconnected, s.State())
	assert.ErrorIs(t, s.Step(context.Background(), frame(t, EventJoinRoom, "x")), ErrSessionClosed)
	assert.Equal(t, 0, h.SessionCount())
	assert.Empty(t, h.Rooms().RoomsOf("c1"))
	assert.False(t, h.Registry().IsOnline("A"))
}

func TestHub_UnidentifiedDisconnectSendsNoSnapshot(t *testing.T) {
	h := newTestHub()
	h.open("c1")
	h.open("c2")

	h.close("c1")

	assert.Empty(t, h.transport.events("c2"))
}

func TestRoomEmitter_ToRoomReachesAllMembers(t *testing.T) {
	tr := newFakeTransport()
	tr.add("c1")
	tr.add("c2")
	rooms := NewRooms()
	require.NoError(t, rooms.Join("c1", "chat:1"))
	require.NoError(t, rooms.Join("c2", "chat:1"))
	em := NewRoomEmitter(rooms, tr, nil)

	require.NoError(t, em.ToRoom(context.Background(), "chat:1", "ping", nil))
	assert.Equal(t, []string{"ping"}, tr.events("c1"))
	assert.Equal(t, []string{"ping"}, tr.events("c2"))

	tr.failOn["c2"] = true
	assert.Error(t, em.ToRoom(context.Background(), "chat:1", "ping", nil))
	assert.Len(t, tr.events("c1"), 2, "one failing member does not stop the others")
}

// A reconnect followed by a peer's message: one push, on the new connection.
func TestHub_ScenarioReconnectThenMessage(t *testing.T) {
	h := newTestHub()
	old := h.open("connA1")
	h.setup(t, old, "A")
	fresh := h.open("connA2")
	h.setup(t, fresh, "A")

	assert.Equal(t, []string{"connA2"}, h.Rooms().Members("A"), "the replaced connection leaves the personal room")
	assert.Empty(t, h.Rooms().RoomsOf("connA1"))

	b := h.open("connB")
	h.setup(t, b, "B")
	h.transport.reset()

	require.NoError(t, b.Step(context.Background(), frame(t, EventNewMessage, messageData("chat:1", "B", "A", "B"))))

	assert.Equal(t, []string{EventMessageReceived}, h.transport.events("connA2"))
	assert.Empty(t, h.transport.events("connA1"), "the replaced connection gets nothing")
	assert.Equal(t, []string{EventMessageEcho}, h.transport.events("connB"))
}

func TestHub_RepeatedSetupKeepsPersonalRoom(t *testing.T) {
	h := newTestHub()
	s := h.open("connA")
	h.setup(t, s, "A")
	h.setup(t, s, "A")

	assert.Equal(t, []string{"connA"}, h.Rooms().Members("A"))
	connID, ok := h.Registry().Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "connA", connID)
}

func TestHub_InvalidMessageCountedOnce(t *testing.T) {
	m := NewMetrics()
	tr := newFakeTransport()
	h := &testHub{Hub: NewHub(presence.NewRegistry(), tr, WithMetrics(m)), transport: tr}
	s := h.open("connA")
	h.setup(t, s, "A")

	before := counterValue(t, m.InvalidEvents.WithLabelValues(EventNewMessage))
	err := s.Step(context.Background(), frame(t, EventNewMessage, map[string]any{"content": "no chat"}))

	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, before+1, counterValue(t, m.InvalidEvents.WithLabelValues(EventNewMessage)))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	return out.GetCounter().GetValue()
}
