package models

import "time"

// Profile is the denormalized per-user record stored at users/{uid}. It
// carries the moderation sets and gamification counters alongside the
// editable profile fields.
type Profile struct {
	Name         string   `json:"name"`
	Bio          string   `json:"bio"`
	HomeLocation string   `json:"location"`
	Avatar       string   `json:"avatar,omitempty"`
	Tags         []string `json:"tags"`

	Points     int `json:"points"`
	SpotsAdded int `json:"spotsAdded"`

	HiddenSpots  []string `json:"hiddenSpots"`
	BlockedUsers []string `json:"blockedUsers"`
}

// Report is one append-only moderation report. Reports are written and never
// read back by this service.
type Report struct {
	ContentID  string    `json:"contentId"`
	Kind       string    `json:"type"`
	Reason     string    `json:"reason"`
	ReporterID string    `json:"reporterId"`
	Timestamp  time.Time `json:"timestamp"`
}
