package models

import "time"

// Plan is an ad-hoc, time-boxed meetup tied to a location.
//
// HostName and LocationName are snapshots taken at creation time, not live
// references; a later profile rename does not update existing plans.
type Plan struct {
	ID string `json:"id"`

	HostID   string `json:"hostId"`
	HostName string `json:"hostName"`

	LocationID   string `json:"locationId"`
	LocationName string `json:"locationName"`

	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	MaxParticipants int    `json:"maxParticipants"`
	AllowInvites    bool   `json:"allowInvites"`
	Tag             string `json:"tag"`

	Participants []string `json:"participants"`
}

// HasParticipant reports whether the user is in the participant set.
func (p Plan) HasParticipant(userID string) bool {
	for _, id := range p.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// PlanEvent is the frame pushed over plan websocket subscriptions.
type PlanEvent struct {
	Type  string `json:"type"`
	Plans []Plan `json:"plans"`
}
