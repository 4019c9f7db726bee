package models

import "time"

// Broadcast is a site-wide announcement. Immutable once created; the log
// is retention-capped with the oldest entries evicted first.
type Broadcast struct {
	ID       string    `json:"id"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Sprite   string    `json:"sprite,omitempty"`
	PostedAt time.Time `json:"posted_at"`
}

// RadioMessage is one line of radio chatter. Channel is the frequency the
// message was posted on; empty means the common channel.
type RadioMessage struct {
	ID       string    `json:"id"`
	Author   string    `json:"author"`
	Channel  string    `json:"channel,omitempty"`
	Text     string    `json:"text"`
	PostedAt time.Time `json:"posted_at"`
}
