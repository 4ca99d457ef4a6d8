package plans

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"spot-service/internal/models"
	"spot-service/internal/observability"
	"spot-service/internal/profile"
	"spot-service/internal/store"
)

const (
	collPlans         = "plans"
	fieldParticipants = "participants"
	fieldStartTime    = "startTime"
)

var (
	ErrPlanNotFound = errors.New("plan not found")
	ErrInvalidPlan  = errors.New("invalid plan")
	// ErrPlanFull is returned when a join would exceed the participant cap.
	ErrPlanFull = errors.New("plan is full")
)

// Registry manages meetup plans. Join and Leave mutate the participant set
// atomically in the store, so racing joins from different devices cannot
// push a plan past its cap or drop each other's membership changes.
type Registry struct {
	store    store.Store
	profiles *profile.Store
}

func NewRegistry(s store.Store, profiles *profile.Store) *Registry {
	return &Registry{store: s, profiles: profiles}
}

// Create validates and stores a new plan. The host is the sole initial
// participant; HostName and LocationName are stored as creation-time
// snapshots.
func (r *Registry) Create(ctx context.Context, plan models.Plan) (models.Plan, error) {
	if strings.TrimSpace(plan.Title) == "" {
		return models.Plan{}, fmt.Errorf("%w: title is required", ErrInvalidPlan)
	}
	if plan.HostID == "" || plan.LocationID == "" {
		return models.Plan{}, fmt.Errorf("%w: host and location are required", ErrInvalidPlan)
	}
	if !plan.StartTime.Before(plan.EndTime) {
		return models.Plan{}, fmt.Errorf("%w: start time must precede end time", ErrInvalidPlan)
	}
	if plan.MaxParticipants < 2 {
		return models.Plan{}, fmt.Errorf("%w: at least two participants required", ErrInvalidPlan)
	}

	switch {
	case len(plan.Participants) == 0:
		plan.Participants = []string{plan.HostID}
	case len(plan.Participants) != 1 || plan.Participants[0] != plan.HostID:
		return models.Plan{}, fmt.Errorf("%w: participants must start as the host alone", ErrInvalidPlan)
	}

	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}

	data, err := store.DataFrom(plan)
	if err != nil {
		return models.Plan{}, err
	}
	if err := r.store.Set(ctx, collPlans, plan.ID, data, false); err != nil {
		return models.Plan{}, err
	}
	return plan, nil
}

func (r *Registry) Get(ctx context.Context, planID string) (models.Plan, error) {
	doc, err := r.store.Get(ctx, collPlans, planID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Plan{}, ErrPlanNotFound
		}
		return models.Plan{}, err
	}
	return decodePlan(doc)
}

// ListForLocation returns the location's plans ordered by start time.
func (r *Registry) ListForLocation(ctx context.Context, locationID string) ([]models.Plan, error) {
	docs, err := r.store.List(ctx, store.Query{
		Collection: collPlans,
		Where:      map[string]any{"locationId": locationID},
		OrderBy:    fieldStartTime,
	})
	if err != nil {
		return nil, err
	}
	return decodePlans(docs), nil
}

// Join adds the user to the participant set. The capacity check and the add
// happen in one atomic store operation; joining a plan you are already in is
// a no-op.
func (r *Registry) Join(ctx context.Context, planID, userID string) error {
	plan, err := r.Get(ctx, planID)
	if err != nil {
		observability.IncPlanJoin("not_found")
		return err
	}

	err = r.store.AddToSetCapped(ctx, collPlans, planID, fieldParticipants, userID, plan.MaxParticipants)
	switch {
	case errors.Is(err, store.ErrSetFull):
		observability.IncPlanJoin("full")
		return ErrPlanFull
	case errors.Is(err, store.ErrNotFound):
		observability.IncPlanJoin("not_found")
		return ErrPlanNotFound
	case err != nil:
		observability.IncPlanJoin("error")
		return err
	}
	observability.IncPlanJoin("ok")
	return nil
}

// Leave removes the user from the participant set. A departing host hands
// the plan to the earliest remaining participant; when the last participant
// leaves the plan is deleted.
func (r *Registry) Leave(ctx context.Context, planID, userID string) error {
	err := r.store.RemoveFromSet(ctx, collPlans, planID, fieldParticipants, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}

	plan, err := r.Get(ctx, planID)
	if err != nil {
		return err
	}
	if plan.HostID != userID {
		return nil
	}

	if len(plan.Participants) == 0 {
		return r.Delete(ctx, planID)
	}
	return r.promoteHost(ctx, planID, plan.Participants[0])
}

func (r *Registry) Delete(ctx context.Context, planID string) error {
	if err := r.store.Delete(ctx, collPlans, planID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	return nil
}

// Subscribe streams the location's plan list, a snapshot per change.
func (r *Registry) Subscribe(locationID string) (<-chan []models.Plan, func()) {
	docCh, cancel := r.store.Subscribe(store.Query{
		Collection: collPlans,
		Where:      map[string]any{"locationId": locationID},
		OrderBy:    fieldStartTime,
	})

	out := make(chan []models.Plan, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for docs := range docCh {
			select {
			case out <- decodePlans(docs):
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

func (r *Registry) promoteHost(ctx context.Context, planID, newHostID string) error {
	hostName := ""
	if p, err := r.profiles.Get(ctx, newHostID); err == nil {
		hostName = p.Name
	}
	return r.store.Update(ctx, collPlans, planID, map[string]any{
		"hostId":   newHostID,
		"hostName": hostName,
	})
}

func decodePlan(doc store.Document) (models.Plan, error) {
	var plan models.Plan
	if err := doc.DataTo(&plan); err != nil {
		return models.Plan{}, err
	}
	plan.ID = doc.ID
	if plan.Participants == nil {
		plan.Participants = []string{}
	}
	return plan, nil
}

func decodePlans(docs []store.Document) []models.Plan {
	out := make([]models.Plan, 0, len(docs))
	for _, doc := range docs {
		plan, err := decodePlan(doc)
		if err != nil {
			log.Printf("plans: bad plan document id=%s: %v", doc.ID, err)
			continue
		}
		out = append(out, plan)
	}
	return out
}
