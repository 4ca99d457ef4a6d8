package plans

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spot-service/internal/models"
	"spot-service/internal/profile"
	"spot-service/internal/session"
	"spot-service/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *profile.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	profiles := profile.NewStore(s, session.NewSessions())
	return NewRegistry(s, profiles), profiles
}

func validPlan(hostID string) models.Plan {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Plan{
		HostID:          hostID,
		HostName:        "Host " + hostID,
		LocationID:      "loc-1",
		LocationName:    "Main Library",
		Title:           "Study jam",
		StartTime:       now.Add(time.Hour),
		EndTime:         now.Add(2 * time.Hour),
		MaxParticipants: 3,
		AllowInvites:    true,
		Tag:             "study",
	}
}

func TestCreateInitializesParticipants(t *testing.T) {
	reg, _ := newTestRegistry(t)

	plan, err := reg.Create(context.Background(), validPlan("host"))
	require.NoError(t, err)
	require.NotEmpty(t, plan.ID)
	require.Equal(t, []string{"host"}, plan.Participants)

	got, err := reg.Get(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Equal(t, plan.Title, got.Title)
	require.Equal(t, []string{"host"}, got.Participants)
}

func TestCreateValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	p := validPlan("host")
	p.Title = "   "
	_, err := reg.Create(ctx, p)
	require.ErrorIs(t, err, ErrInvalidPlan)

	p = validPlan("host")
	p.EndTime = p.StartTime
	_, err = reg.Create(ctx, p)
	require.ErrorIs(t, err, ErrInvalidPlan)

	p = validPlan("host")
	p.MaxParticipants = 1
	_, err = reg.Create(ctx, p)
	require.ErrorIs(t, err, ErrInvalidPlan)

	p = validPlan("host")
	p.Participants = []string{"someone-else"}
	_, err = reg.Create(ctx, p)
	require.ErrorIs(t, err, ErrInvalidPlan)
}

func TestJoinRespectsCapAndIdempotence(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	plan, err := reg.Create(ctx, validPlan("host"))
	require.NoError(t, err)

	require.NoError(t, reg.Join(ctx, plan.ID, "bob"))
	require.NoError(t, reg.Join(ctx, plan.ID, "bob"))
	require.NoError(t, reg.Join(ctx, plan.ID, "carol"))

	require.ErrorIs(t, reg.Join(ctx, plan.ID, "dave"), ErrPlanFull)

	got, err := reg.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"host", "bob", "carol"}, got.Participants)
}

func TestJoinConcurrentNeverExceedsCap(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	plan, err := reg.Create(ctx, validPlan("host"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6"}
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_ = reg.Join(ctx, plan.ID, userID)
		}(u)
	}
	wg.Wait()

	got, err := reg.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 3)
}

func TestJoinUnknownPlan(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.ErrorIs(t, reg.Join(context.Background(), "missing", "bob"), ErrPlanNotFound)
}

func TestLeaveNonHost(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	plan, err := reg.Create(ctx, validPlan("host"))
	require.NoError(t, err)
	require.NoError(t, reg.Join(ctx, plan.ID, "bob"))

	require.NoError(t, reg.Leave(ctx, plan.ID, "bob"))

	got, err := reg.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Equal(t, "host", got.HostID)
	require.Equal(t, []string{"host"}, got.Participants)
}

func TestHostLeavePromotesEarliestParticipant(t *testing.T) {
	reg, profiles := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, profiles.Save(ctx, "bob", models.Profile{Name: "Bob"}))

	plan, err := reg.Create(ctx, validPlan("host"))
	require.NoError(t, err)
	require.NoError(t, reg.Join(ctx, plan.ID, "bob"))
	require.NoError(t, reg.Join(ctx, plan.ID, "carol"))

	require.NoError(t, reg.Leave(ctx, plan.ID, "host"))

	got, err := reg.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", got.HostID)
	require.Equal(t, "Bob", got.HostName)
	require.Equal(t, []string{"bob", "carol"}, got.Participants)
}

func TestLastParticipantLeavingDeletesPlan(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	plan, err := reg.Create(ctx, validPlan("host"))
	require.NoError(t, err)

	require.NoError(t, reg.Leave(ctx, plan.ID, "host"))

	_, err = reg.Get(ctx, plan.ID)
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestListForLocationOrdersByStartTime(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	later := validPlan("host")
	later.Title = "Later"
	later.StartTime = later.StartTime.Add(3 * time.Hour)
	later.EndTime = later.EndTime.Add(3 * time.Hour)
	_, err := reg.Create(ctx, later)
	require.NoError(t, err)

	earlier := validPlan("host")
	earlier.Title = "Earlier"
	_, err = reg.Create(ctx, earlier)
	require.NoError(t, err)

	other := validPlan("host")
	other.LocationID = "loc-2"
	_, err = reg.Create(ctx, other)
	require.NoError(t, err)

	got, err := reg.ListForLocation(ctx, "loc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Earlier", got[0].Title)
	require.Equal(t, "Later", got[1].Title)
}

func TestSubscribeStreamsLocationPlans(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	ch, cancel := reg.Subscribe("loc-1")
	defer cancel()

	select {
	case snapshot := <-ch:
		require.Empty(t, snapshot)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	plan, err := reg.Create(ctx, validPlan("host"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case snapshot := <-ch:
			return len(snapshot) == 1 && snapshot[0].ID == plan.ID
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestSubscribeCancelReleasesUnreadStream(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	before := runtime.NumGoroutine()
	_, cancel := reg.Subscribe("loc-1")

	// Consumer never reads; cancel must still shut the bridge down.
	for i := 0; i < 3; i++ {
		_, err := reg.Create(ctx, validPlan("host"))
		require.NoError(t, err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}
