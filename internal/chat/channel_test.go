package chat

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spot-service/internal/imaging"
	"spot-service/internal/moderation"
	"spot-service/internal/store"
)

func newTestChannel(t *testing.T) (*Channel, *moderation.Ledger) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	ledger := moderation.NewLedger(s, nil)
	return NewChannel(s, ledger), ledger
}

func TestSendTextAndHistoryOrder(t *testing.T) {
	ch, _ := newTestChannel(t)
	ctx := context.Background()

	first, err := ch.SendText(ctx, "plan-1", "alice", "Alice", "anyone here yet?")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := ch.SendText(ctx, "plan-1", "bob", "Bob", "on my way")
	require.NoError(t, err)

	history, err := ch.History(ctx, "plan-1", "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, first.ID, history[0].ID)
	require.Equal(t, second.ID, history[1].ID)
	require.False(t, history[1].Timestamp.Before(history[0].Timestamp))
}

func TestSendTextRejectsEmpty(t *testing.T) {
	ch, _ := newTestChannel(t)

	_, err := ch.SendText(context.Background(), "plan-1", "alice", "Alice", "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChannelsAreIsolatedPerPlan(t *testing.T) {
	ch, _ := newTestChannel(t)
	ctx := context.Background()

	_, err := ch.SendText(ctx, "plan-1", "alice", "Alice", "plan one")
	require.NoError(t, err)
	_, err = ch.SendText(ctx, "plan-2", "alice", "Alice", "plan two")
	require.NoError(t, err)

	history, err := ch.History(ctx, "plan-1", "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "plan one", history[0].Text)
}

func TestHistoryFiltersBlockedSenders(t *testing.T) {
	ch, ledger := newTestChannel(t)
	ctx := context.Background()

	_, err := ch.SendText(ctx, "plan-1", "troll", "Troll", "spam")
	require.NoError(t, err)
	_, err = ch.SendText(ctx, "plan-1", "bob", "Bob", "hi")
	require.NoError(t, err)

	require.NoError(t, ledger.BlockUser(ctx, "alice", "troll"))

	history, err := ch.History(ctx, "plan-1", "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "bob", history[0].SenderID)

	// bob has blocked nobody and still sees both
	history, err = ch.History(ctx, "plan-1", "bob")
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestSendImageStoresInlinePayload(t *testing.T) {
	ch, _ := newTestChannel(t)
	ctx := context.Background()

	msg, err := ch.SendImage(ctx, "plan-1", "alice", "Alice", smallPNG(t))
	require.NoError(t, err)
	require.Equal(t, "Sent an image", msg.Text)
	require.NotEmpty(t, msg.ImageData)

	history, err := ch.History(ctx, "plan-1", "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, msg.ImageData, history[0].ImageData)
}

func TestSendImageRejectsGarbage(t *testing.T) {
	ch, _ := newTestChannel(t)

	_, err := ch.SendImage(context.Background(), "plan-1", "alice", "Alice", []byte("not an image"))
	require.Error(t, err)
	require.NotErrorIs(t, err, imaging.ErrImageTooLarge)
}

func TestSubscribeStreamsMessages(t *testing.T) {
	ch, _ := newTestChannel(t)
	ctx := context.Background()

	msgCh, cancel := ch.Subscribe("plan-1", "viewer")
	defer cancel()

	select {
	case snapshot := <-msgCh:
		require.Empty(t, snapshot)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	sent, err := ch.SendText(ctx, "plan-1", "alice", "Alice", "hello")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case snapshot := <-msgCh:
			return len(snapshot) == 1 && snapshot[0].ID == sent.ID
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestSubscribeCancelReleasesUnreadStream(t *testing.T) {
	ch, _ := newTestChannel(t)
	ctx := context.Background()

	before := runtime.NumGoroutine()
	_, cancel := ch.Subscribe("plan-1", "viewer")

	// Consumer never reads; cancel must still shut the bridge down.
	for i := 0; i < 3; i++ {
		_, err := ch.SendText(ctx, "plan-1", "alice", "Alice", "unread")
		require.NoError(t, err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
