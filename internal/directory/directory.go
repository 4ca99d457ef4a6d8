package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spot-service/internal/models"
	"spot-service/internal/moderation"
	"spot-service/internal/notify"
	"spot-service/internal/observability"
	"spot-service/internal/profile"
	"spot-service/internal/store"
)

const (
	collSpots = "spots"
	collUsers = "users"

	pointsNewSpot      = 50
	pointsStatusUpdate = 10
)

var (
	ErrSpotNotFound  = errors.New("spot not found")
	ErrInvalidSpot   = errors.New("invalid spot")
	ErrInvalidStatus = errors.New("status not allowed for spot category")
)

// Directory is the shared catalog of spots. Writes are global: any signed-in
// user may add spots and update statuses, and a delete removes the spot for
// everyone.
type Directory struct {
	store    store.Store
	ledger   *moderation.Ledger
	profiles *profile.Store
	notifier notify.Notifier
}

func New(s store.Store, ledger *moderation.Ledger, profiles *profile.Store, notifier notify.Notifier) *Directory {
	return &Directory{store: s, ledger: ledger, profiles: profiles, notifier: notifier}
}

// List returns all spots visible to the viewer: spots the viewer has hidden
// and spots created by users the viewer has blocked are filtered out. An
// empty viewerID returns the unfiltered catalog.
func (d *Directory) List(ctx context.Context, viewerID string) ([]models.Location, error) {
	docs, err := d.store.List(ctx, store.Query{Collection: collSpots})
	if err != nil {
		return nil, err
	}
	return d.visible(ctx, docs, viewerID)
}

func (d *Directory) Get(ctx context.Context, spotID string) (models.Location, error) {
	doc, err := d.store.Get(ctx, collSpots, spotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Location{}, ErrSpotNotFound
		}
		return models.Location{}, err
	}

	var loc models.Location
	if err := doc.DataTo(&loc); err != nil {
		return models.Location{}, err
	}
	loc.ID = doc.ID
	return loc, nil
}

// Add creates a new spot. The category class is resolved once here and
// stored on the document. The creator earns points and a spots-added credit.
func (d *Directory) Add(ctx context.Context, userID string, loc models.Location) (models.Location, error) {
	if strings.TrimSpace(loc.Name) == "" || strings.TrimSpace(loc.Category) == "" {
		return models.Location{}, fmt.Errorf("%w: name and category are required", ErrInvalidSpot)
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return models.Location{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidSpot)
	}

	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	loc.CreatedBy = userID
	loc.CategoryClass = models.ClassifyCategory(loc.Category)
	if loc.CurrentStatus == "" {
		loc.CurrentStatus = loc.CategoryClass.DefaultStatus()
	} else if !loc.CategoryClass.Allows(loc.CurrentStatus) {
		return models.Location{}, ErrInvalidStatus
	}
	loc.LastUpdate = time.Now().UTC()

	data, err := store.DataFrom(loc)
	if err != nil {
		return models.Location{}, err
	}
	if err := d.store.Set(ctx, collSpots, loc.ID, data, false); err != nil {
		return models.Location{}, err
	}

	d.award(ctx, userID, pointsNewSpot, "new_spot")
	if err := d.profiles.IncrementSpotsAdded(ctx, userID); err != nil {
		log.Printf("directory: spots-added credit failed user_id=%s: %v", userID, err)
	}
	return loc, nil
}

// UpdateStatus sets the spot's current status. The status must belong to the
// spot's axis; lastUpdate never moves backwards. The updater earns points and
// a notification is emitted for subscribers.
func (d *Directory) UpdateStatus(ctx context.Context, userID, spotID string, status models.LocationStatus) (models.Location, error) {
	spot, err := d.Get(ctx, spotID)
	if err != nil {
		return models.Location{}, err
	}
	if !status.Valid() || !spot.CategoryClass.Allows(status) {
		return models.Location{}, ErrInvalidStatus
	}

	now := time.Now().UTC()
	if now.Before(spot.LastUpdate) {
		now = spot.LastUpdate
	}

	err = d.store.Update(ctx, collSpots, spotID, map[string]any{
		"currentStatus": status,
		"lastUpdate":    now.Format(time.RFC3339Nano),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Location{}, ErrSpotNotFound
		}
		return models.Location{}, err
	}
	spot.CurrentStatus = status
	spot.LastUpdate = now

	observability.IncStatusUpdate(string(spot.CategoryClass))
	d.award(ctx, userID, pointsStatusUpdate, "status_update")

	d.notifier.Deliver(ctx, models.StatusChange{
		SpotID:    spot.ID,
		SpotName:  spot.Name,
		Status:    status,
		Title:     "Status Update: " + spot.Name,
		Body:      spot.Name + " is now marked as " + strings.ToUpper(status.Title()),
		IconHint:  status.IconName(),
		Severity:  status.Severity(),
		UpdatedBy: userID,
		UpdatedAt: now,
	})
	return spot, nil
}

// Hide removes the spot from the viewer's own feed without touching the
// shared catalog.
func (d *Directory) Hide(ctx context.Context, viewerID, spotID string) error {
	return d.ledger.HideSpot(ctx, viewerID, spotID)
}

func (d *Directory) Unhide(ctx context.Context, viewerID, spotID string) error {
	return d.ledger.UnhideSpot(ctx, viewerID, spotID)
}

// Delete removes the spot from the shared catalog for all users.
func (d *Directory) Delete(ctx context.Context, spotID string) error {
	if err := d.store.Delete(ctx, collSpots, spotID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSpotNotFound
		}
		return err
	}
	return nil
}

// Subscribe streams the viewer's visible spot list: a snapshot right away,
// then a fresh snapshot after every catalog change and after every change to
// the viewer's own hide and block lists.
func (d *Directory) Subscribe(viewerID string) (<-chan []models.Location, func()) {
	spotCh, cancelSpots := d.store.Subscribe(store.Query{Collection: collSpots})

	var userCh <-chan store.Document
	cancelUser := func() {}
	if viewerID != "" {
		userCh, cancelUser = d.store.SubscribeDocument(collUsers, viewerID)
	}

	out := make(chan []models.Location, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)

		var latest []store.Document
		seeded := false
		emit := func() bool {
			locs, err := d.visible(context.Background(), latest, viewerID)
			if err != nil {
				log.Printf("directory subscribe: snapshot failed viewer_id=%s: %v", viewerID, err)
				return true
			}
			select {
			case out <- locs:
				return true
			case <-done:
				return false
			}
		}

		for {
			select {
			case docs, ok := <-spotCh:
				if !ok {
					return
				}
				latest = docs
				seeded = true
				if !emit() {
					return
				}
			case _, ok := <-userCh:
				if !ok {
					userCh = nil
					continue
				}
				if seeded && !emit() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			cancelSpots()
			cancelUser()
			close(done)
		})
	}
}

func (d *Directory) visible(ctx context.Context, docs []store.Document, viewerID string) ([]models.Location, error) {
	hidden := map[string]bool{}
	blocked := map[string]bool{}
	if viewerID != "" {
		hiddenIDs, err := d.ledger.HiddenSpots(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		for _, id := range hiddenIDs {
			hidden[id] = true
		}
		blockedIDs, err := d.ledger.BlockedUsers(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		for _, id := range blockedIDs {
			blocked[id] = true
		}
	}

	locations := make([]models.Location, 0, len(docs))
	for _, doc := range docs {
		var loc models.Location
		if err := doc.DataTo(&loc); err != nil {
			log.Printf("directory: bad spot document id=%s: %v", doc.ID, err)
			continue
		}
		loc.ID = doc.ID
		if hidden[loc.ID] || blocked[loc.CreatedBy] {
			continue
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func (d *Directory) award(ctx context.Context, userID string, points int, reason string) {
	if err := d.profiles.ApplyPointsDelta(ctx, userID, points); err != nil {
		log.Printf("directory: points award failed user_id=%s reason=%s: %v", userID, reason, err)
		return
	}
	observability.AddPointsAwarded(reason, points)
}
