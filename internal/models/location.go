package models

import "time"

// Location is a spot on the campus map with a live crowd status.
type Location struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	CategoryClass CategoryClass  `json:"categoryClass"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	CreatedBy     string         `json:"createdBy"`
	CurrentStatus LocationStatus `json:"currentStatus"`
	LastUpdate    time.Time      `json:"lastUpdate"`
}

// StatusChange is emitted to the notification sink whenever a spot's status
// is updated.
type StatusChange struct {
	SpotID    string         `json:"spot_id"`
	SpotName  string         `json:"spot_name"`
	Status    LocationStatus `json:"status"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	IconHint  string         `json:"icon_hint"`
	Severity  string         `json:"severity"`
	UpdatedBy string         `json:"updated_by"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SpotEvent is the frame pushed over spot websocket subscriptions.
type SpotEvent struct {
	Type  string     `json:"type"`
	Spots []Location `json:"spots"`
}
