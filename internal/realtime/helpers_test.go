package realtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// fakeTransport records every frame per connection.
type fakeTransport struct {
	mu     sync.Mutex
	open   map[string]bool
	frames map[string][]sentFrame
	failOn map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		open:   map[string]bool{},
		frames: map[string][]sentFrame{},
		failOn: map[string]bool{},
	}
}

func (t *fakeTransport) add(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[connID] = true
}

func (t *fakeTransport) remove(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, connID)
}

func (t *fakeTransport) Send(connID string, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open[connID] || t.failOn[connID] {
		return fmt.Errorf("connection %s unavailable", connID)
	}
	var f sentFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return err
	}
	t.frames[connID] = append(t.frames[connID], f)
	return nil
}

func (t *fakeTransport) ConnIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.open))
	for id := range t.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *fakeTransport) events(connID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []string{}
	for _, f := range t.frames[connID] {
		out = append(out, f.Event)
	}
	return out
}

func (t *fakeTransport) last(connID, event string) (sentFrame, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	frames := t.frames[connID]
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == event {
			return frames[i], true
		}
	}
	return sentFrame{}, false
}

func (t *fakeTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = map[string][]sentFrame{}
}

func frame(t *testing.T, event string, data any) Frame {
	t.Helper()
	if data == nil {
		return Frame{Event: event}
	}
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Frame{Event: event, Data: raw}
}

func messageData(chatID, senderID string, users ...string) map[string]any {
	populated := make([]map[string]string, 0, len(users))
	for _, u := range users {
		populated = append(populated, map[string]string{"_id": u})
	}
	return map[string]any{
		"_id":      "message:1",
		"content":  "hello",
		"senderId": map[string]string{"_id": senderID, "name": "sender"},
		"chatId":   map[string]any{"_id": chatID, "users": populated},
	}
}
