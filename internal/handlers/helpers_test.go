package handlers

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"

	"spot-service/internal/chat"
	"spot-service/internal/directory"
	"spot-service/internal/models"
	"spot-service/internal/moderation"
	"spot-service/internal/plans"
	"spot-service/internal/profile"
	"spot-service/internal/session"
	"spot-service/internal/store"
)

type testEnv struct {
	store     store.Store
	ledger    *moderation.Ledger
	profiles  *profile.Store
	directory *directory.Directory
	registry  *plans.Registry
	channel   *chat.Channel
}

type nopNotifier struct{}

func (nopNotifier) Deliver(ctx context.Context, change models.StatusChange) {}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	ledger := moderation.NewLedger(s, nil)
	profiles := profile.NewStore(s, session.NewSessions())
	dir := directory.New(s, ledger, profiles, nopNotifier{})
	registry := plans.NewRegistry(s, profiles)
	channel := chat.NewChannel(s, ledger)

	return &testEnv{
		store:     s,
		ledger:    ledger,
		profiles:  profiles,
		directory: dir,
		registry:  registry,
		channel:   channel,
	}
}

// asUser simulates the auth middleware for a fixed user.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}
