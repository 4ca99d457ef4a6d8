package directory

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spot-service/internal/mocks"
	"spot-service/internal/models"
	"spot-service/internal/moderation"
	"spot-service/internal/profile"
	"spot-service/internal/session"
	"spot-service/internal/store"
)

type fakeNotifier struct {
	mu      sync.Mutex
	changes []models.StatusChange
}

func (f *fakeNotifier) Deliver(ctx context.Context, change models.StatusChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, change)
}

func (f *fakeNotifier) delivered() []models.StatusChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.StatusChange, len(f.changes))
	copy(out, f.changes)
	return out
}

func newTestDirectory(t *testing.T) (*Directory, *profile.Store, *fakeNotifier, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	ledger := moderation.NewLedger(s, nil)
	profiles := profile.NewStore(s, session.NewSessions())
	notifier := &fakeNotifier{}
	return New(s, ledger, profiles, notifier), profiles, notifier, s
}

func TestAddAssignsClassAndAwardsPoints(t *testing.T) {
	dir, profiles, _, _ := newTestDirectory(t)
	ctx := context.Background()

	loc, err := dir.Add(ctx, "user-1", models.Location{
		Name:     "North Canteen",
		Category: "Canteen",
		Latitude: 1.5, Longitude: 103.6,
	})
	require.NoError(t, err)
	require.NotEmpty(t, loc.ID)
	require.Equal(t, models.ClassQueue, loc.CategoryClass)
	require.Equal(t, models.StatusNoLine, loc.CurrentStatus)
	require.Equal(t, "user-1", loc.CreatedBy)

	p, err := profiles.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 50, p.Points)
	require.Equal(t, 1, p.SpotsAdded)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	dir, _, _, _ := newTestDirectory(t)
	ctx := context.Background()

	_, err := dir.Add(ctx, "user-1", models.Location{Category: "Library"})
	require.ErrorIs(t, err, ErrInvalidSpot)

	_, err = dir.Add(ctx, "user-1", models.Location{
		Name: "Nowhere", Category: "Library", Latitude: 97,
	})
	require.ErrorIs(t, err, ErrInvalidSpot)

	_, err = dir.Add(ctx, "user-1", models.Location{
		Name: "Quiet Corner", Category: "Library", CurrentStatus: models.StatusLongLine,
	})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusValidatesAxis(t *testing.T) {
	dir, _, _, _ := newTestDirectory(t)
	ctx := context.Background()

	loc, err := dir.Add(ctx, "user-1", models.Location{Name: "Laundry B", Category: "Laundry"})
	require.NoError(t, err)

	_, err = dir.UpdateStatus(ctx, "user-2", loc.ID, models.StatusNoisy)
	require.ErrorIs(t, err, ErrInvalidStatus)

	updated, err := dir.UpdateStatus(ctx, "user-2", loc.ID, models.StatusInUse)
	require.NoError(t, err)
	require.Equal(t, models.StatusInUse, updated.CurrentStatus)
	require.False(t, updated.LastUpdate.Before(loc.LastUpdate))
}

func TestUpdateStatusEmitsNotificationAndPoints(t *testing.T) {
	dir, profiles, notifier, _ := newTestDirectory(t)
	ctx := context.Background()

	loc, err := dir.Add(ctx, "creator", models.Location{Name: "Main Library", Category: "Library"})
	require.NoError(t, err)

	_, err = dir.UpdateStatus(ctx, "updater", loc.ID, models.StatusNoisy)
	require.NoError(t, err)

	changes := notifier.delivered()
	require.Len(t, changes, 1)
	require.Equal(t, loc.ID, changes[0].SpotID)
	require.Equal(t, "Status Update: Main Library", changes[0].Title)
	require.Contains(t, changes[0].Body, "BUSY")
	require.Equal(t, "bad", changes[0].Severity)
	require.Equal(t, "updater", changes[0].UpdatedBy)

	p, err := profiles.Get(ctx, "updater")
	require.NoError(t, err)
	require.Equal(t, 10, p.Points)
}

func TestUpdateStatusUnknownSpot(t *testing.T) {
	dir, _, _, _ := newTestDirectory(t)

	_, err := dir.UpdateStatus(context.Background(), "user-1", "missing", models.StatusQuiet)
	require.ErrorIs(t, err, ErrSpotNotFound)
}

func TestListFiltersHiddenAndBlocked(t *testing.T) {
	dir, _, _, _ := newTestDirectory(t)
	ctx := context.Background()

	kept, err := dir.Add(ctx, "friend", models.Location{Name: "Kept", Category: "Library"})
	require.NoError(t, err)
	hidden, err := dir.Add(ctx, "friend", models.Location{Name: "Hidden", Category: "Library"})
	require.NoError(t, err)
	_, err = dir.Add(ctx, "enemy", models.Location{Name: "Blocked Owner", Category: "Library"})
	require.NoError(t, err)

	require.NoError(t, dir.Hide(ctx, "viewer", hidden.ID))
	require.NoError(t, dir.ledger.BlockUser(ctx, "viewer", "enemy"))

	visible, err := dir.List(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, kept.ID, visible[0].ID)

	all, err := dir.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestDeleteRemovesForEveryone(t *testing.T) {
	dir, _, _, _ := newTestDirectory(t)
	ctx := context.Background()

	loc, err := dir.Add(ctx, "user-1", models.Location{Name: "Ephemeral", Category: "Library"})
	require.NoError(t, err)

	require.NoError(t, dir.Delete(ctx, loc.ID))
	require.ErrorIs(t, dir.Delete(ctx, loc.ID), ErrSpotNotFound)

	_, err = dir.Get(ctx, loc.ID)
	require.ErrorIs(t, err, ErrSpotNotFound)
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	dir, _, _, _ := newTestDirectory(t)
	ctx := context.Background()

	ch, cancel := dir.Subscribe("viewer")
	defer cancel()

	first := recvLocations(t, ch)
	require.Empty(t, first)

	loc, err := dir.Add(ctx, "user-1", models.Location{Name: "New Spot", Category: "Library"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snapshot, ok := tryRecvLocations(ch)
		return ok && len(snapshot) == 1 && snapshot[0].ID == loc.ID
	}, time.Second, 10*time.Millisecond)
}

func TestSubscribeCancelReleasesUnreadStream(t *testing.T) {
	dir, _, _, _ := newTestDirectory(t)
	ctx := context.Background()

	before := runtime.NumGoroutine()
	_, cancel := dir.Subscribe("viewer")

	// Consumer never reads; cancel must still shut the bridge down.
	for i := 0; i < 3; i++ {
		_, err := dir.Add(ctx, "user-1", models.Location{Name: "Spot", Category: "Library"})
		require.NoError(t, err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}

func recvLocations(t *testing.T, ch <-chan []models.Location) []models.Location {
	t.Helper()
	select {
	case snapshot := <-ch:
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func tryRecvLocations(ch <-chan []models.Location) ([]models.Location, bool) {
	select {
	case snapshot, ok := <-ch:
		return snapshot, ok
	default:
		return nil, false
	}
}

func TestListPropagatesStoreErrors(t *testing.T) {
	s := new(mocks.StoreMock)
	ledger := moderation.NewLedger(s, nil)
	profiles := profile.NewStore(s, nil)
	dir := New(s, ledger, profiles, &fakeNotifier{})

	s.On("List", mock.Anything, store.Query{Collection: collSpots}).
		Return(nil, assert.AnError).Once()

	_, err := dir.List(context.Background(), "")
	require.ErrorIs(t, err, assert.AnError)
	s.AssertExpectations(t)
}
