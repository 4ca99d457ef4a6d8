// Package profile owns the current user's denormalized profile record and
// its gamification counters.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"spot-service/internal/models"
	"spot-service/internal/session"
	"spot-service/internal/store"
)

const (
	collUsers = "users"

	fieldPoints     = "points"
	fieldSpotsAdded = "spotsAdded"
)

// Level thresholds. A new band starts every 200 points.
const (
	levelLegendThreshold = 500
	levelProThreshold    = 200
	levelBandSize        = 200
)

// Store reads and mutates users/{uid} profile documents. Points move only
// through ApplyPointsDelta, so every award path is accounted for.
type Store struct {
	store store.Store
}

// NewStore constructs a profile Store. When a session registry is given,
// the user document is bootstrapped on the first sign-in event so later set
// and counter updates have a document to land on.
func NewStore(s store.Store, sessions *session.Sessions) *Store {
	ps := &Store{store: s}
	if sessions != nil {
		sessions.OnChange(func(userID string, signedIn bool) {
			if signedIn {
				ps.bootstrap(userID)
			}
		})
	}
	return ps
}

// Get returns the user's profile, or an empty profile for a user that has
// never written one.
func (ps *Store) Get(ctx context.Context, userID string) (models.Profile, error) {
	doc, err := ps.store.Get(ctx, collUsers, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Profile{}, nil
	}
	if err != nil {
		return models.Profile{}, err
	}

	var p models.Profile
	if err := doc.DataTo(&p); err != nil {
		return models.Profile{}, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	return p, nil
}

// Save merges the editable profile fields into the user document. Counters
// and moderation sets are untouched.
func (ps *Store) Save(ctx context.Context, userID string, p models.Profile) error {
	fields := map[string]any{
		"name":     p.Name,
		"bio":      p.Bio,
		"location": p.HomeLocation,
		"tags":     p.Tags,
	}
	if p.Avatar != "" {
		fields["avatar"] = p.Avatar
	}
	return ps.store.Set(ctx, collUsers, userID, fields, true)
}

// ApplyPointsDelta atomically adjusts the user's contribution points.
func (ps *Store) ApplyPointsDelta(ctx context.Context, userID string, amount int) error {
	return ps.store.Increment(ctx, collUsers, userID, fieldPoints, amount)
}

// IncrementSpotsAdded bumps the spots-added counter by one.
func (ps *Store) IncrementSpotsAdded(ctx context.Context, userID string) error {
	return ps.store.Increment(ctx, collUsers, userID, fieldSpotsAdded, 1)
}

// Subscribe delivers the user's profile after every remote change; the
// latest remote write always wins over local state.
func (ps *Store) Subscribe(userID string) (<-chan models.Profile, func()) {
	docs, cancel := ps.store.SubscribeDocument(collUsers, userID)
	out := make(chan models.Profile, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for doc := range docs {
			var p models.Profile
			if err := doc.DataTo(&p); err != nil {
				log.Printf("profile subscription decode failed user=%s: %v", userID, err)
				continue
			}
			select {
			case out <- p:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			cancel()
			close(done)
		})
	}
}

// Level maps contribution points to the user-facing rank.
func Level(points int) string {
	if points > levelLegendThreshold {
		return "Campus Legend"
	}
	if points > levelProThreshold {
		return "Pro Spotter"
	}
	return "Rookie"
}

// ProgressToNextLevel returns progress within the current 200-point band,
// in [0, 1).
func ProgressToNextLevel(points int) float64 {
	return float64(points%levelBandSize) / float64(levelBandSize)
}

// ResetCounters zeroes the gamification counters. This is the only path
// that decreases them, reserved for the explicit account-reset flow.
func (ps *Store) ResetCounters(ctx context.Context, userID string) error {
	return ps.store.Set(ctx, collUsers, userID, map[string]any{
		fieldPoints:     0,
		fieldSpotsAdded: 0,
	}, true)
}

// bootstrap makes sure the user document exists; best effort.
func (ps *Store) bootstrap(userID string) {
	if err := ps.store.Set(context.Background(), collUsers, userID, map[string]any{}, true); err != nil {
		log.Printf("profile bootstrap failed user=%s: %v", userID, err)
	}
}
