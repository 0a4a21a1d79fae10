package presence

import (
	"time"

	"github.com/nfrund/parley/internal/pubsub"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Changed is published every time the online set changes.
type Changed struct {
	UserID      string    `json:"userId"`
	Status      Status    `json:"status"`
	OnlineUsers []string  `json:"onlineUsers"`
	At          time.Time `json:"at"`
}

// TopicChanged carries Changed events.
var TopicChanged = pubsub.NewFrameworkEvent[Changed](
	"presence.changed",
	"Published when a user comes online or goes offline; carries the full online set",
)
