package models

import (
	"time"
)

const (
	ChannelStatusLive  = "live"
	ChannelStatusEnded = "ended"
)

type Channel struct {
	ID            string     `json:"id"`
	Channel       string     `json:"channel"` // public channel name, shared with the video transport
	SellerUID     string     `json:"seller_uid"`
	Status        string     `json:"status"` // live, ended
	CurrentItemID string     `json:"current_item_id,omitempty"`
	Category      string     `json:"category,omitempty"` // coral, fish, equipment
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	Featured      bool       `json:"featured"`
	ViewerCount   int        `json:"viewer_count"`
	Rating        float64    `json:"rating"`
	ReviewCount   int        `json:"review_count"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// StreamFilter selects channels on the explore surface.
type StreamFilter struct {
	Category string `json:"category"` // empty = all
	SortBy   string `json:"sort_by"`  // viewers, rating, empty
	Featured bool   `json:"featured"`
}

var ChannelCategories = []string{"coral", "fish", "equipment"}

func ValidCategory(c string) bool {
	if c == "" {
		return true
	}
	for _, v := range ChannelCategories {
		if v == c {
			return true
		}
	}
	return false
}
