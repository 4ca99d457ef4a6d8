// Package moderation owns the per-user hide and block sets plus the
// append-only report stream. Hiding and blocking are viewer-scoped filters,
// never global deletes.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spot-service/internal/models"
	"spot-service/internal/store"
	"spot-service/internal/telemetry"
)

const (
	collUsers   = "users"
	collReports = "reports"

	fieldHiddenSpots  = "hiddenSpots"
	fieldBlockedUsers = "blockedUsers"
)

// Ledger reads and mutates moderation state on users/{uid}.
type Ledger struct {
	store store.Store
	audit *telemetry.AuditEmitter
}

// NewLedger constructs a Ledger. The audit emitter may be nil.
func NewLedger(s store.Store, audit *telemetry.AuditEmitter) *Ledger {
	return &Ledger{store: s, audit: audit}
}

// HideSpot adds the spot to the viewer's hidden set. Re-hiding is a no-op.
func (l *Ledger) HideSpot(ctx context.Context, viewerID, spotID string) error {
	if err := l.ensureUserDoc(ctx, viewerID); err != nil {
		return err
	}
	return l.store.AddToSet(ctx, collUsers, viewerID, fieldHiddenSpots, spotID)
}

// UnhideSpot removes the spot from the viewer's hidden set.
func (l *Ledger) UnhideSpot(ctx context.Context, viewerID, spotID string) error {
	err := l.store.RemoveFromSet(ctx, collUsers, viewerID, fieldHiddenSpots, spotID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// BlockUser adds the target to the viewer's block set. Blocking filters
// future reads only; it does not delete the target's existing content.
func (l *Ledger) BlockUser(ctx context.Context, viewerID, targetID string) error {
	if err := l.ensureUserDoc(ctx, viewerID); err != nil {
		return err
	}
	return l.store.AddToSet(ctx, collUsers, viewerID, fieldBlockedUsers, targetID)
}

// IsBlocked reports whether the viewer has blocked the target.
func (l *Ledger) IsBlocked(ctx context.Context, viewerID, targetID string) (bool, error) {
	blocked, err := l.BlockedUsers(ctx, viewerID)
	if err != nil {
		return false, err
	}
	for _, id := range blocked {
		if id == targetID {
			return true, nil
		}
	}
	return false, nil
}

// HiddenSpots returns the viewer's hidden spot ids.
func (l *Ledger) HiddenSpots(ctx context.Context, viewerID string) ([]string, error) {
	return l.stringSet(ctx, viewerID, fieldHiddenSpots)
}

// BlockedUsers returns the viewer's blocked user ids.
func (l *Ledger) BlockedUsers(ctx context.Context, viewerID string) ([]string, error) {
	return l.stringSet(ctx, viewerID, fieldBlockedUsers)
}

// Report appends an immutable report record for the moderation queue. The
// service never reads reports back.
func (l *Ledger) Report(ctx context.Context, reporterID, contentID, kind, reason string) error {
	report := models.Report{
		ContentID:  contentID,
		Kind:       kind,
		Reason:     reason,
		ReporterID: reporterID,
		Timestamp:  time.Now().UTC(),
	}
	data, err := store.DataFrom(report)
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, collReports, uuid.NewString(), data, false); err != nil {
		return fmt.Errorf("append report: %w", err)
	}

	if l.audit != nil {
		l.audit.Emit(ctx, "INFO", fmt.Sprintf("content reported kind=%s content_id=%s", kind, contentID), "", &reporterID)
	}
	return nil
}

func (l *Ledger) ensureUserDoc(ctx context.Context, userID string) error {
	return l.store.Set(ctx, collUsers, userID, map[string]any{}, true)
}

func (l *Ledger) stringSet(ctx context.Context, userID, field string) ([]string, error) {
	doc, err := l.store.Get(ctx, collUsers, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	raw, _ := doc.Data[field].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
