package models

import (
	"time"
)

// PresenceEntry is one (channel, viewer) pair. Entries live in a Redis zset
// scored by last heartbeat; a viewer with a stale heartbeat is pruned by the
// reaper rather than trusted to leave cleanly.
type PresenceEntry struct {
	Channel   string    `json:"channel"`
	ViewerUID string    `json:"viewer_uid"`
	JoinedAt  time.Time `json:"joined_at"`
	LastSeen  time.Time `json:"last_seen"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Alert struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
