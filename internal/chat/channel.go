package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spot-service/internal/imaging"
	"spot-service/internal/models"
	"spot-service/internal/moderation"
	"spot-service/internal/store"
)

const fieldTimestamp = "timestamp"

var ErrEmptyMessage = errors.New("message text is empty")

// Channel is the per-plan chat. Messages are immutable once sent; blocking a
// user filters that user's messages out of the viewer's reads without
// deleting anything.
type Channel struct {
	store  store.Store
	ledger *moderation.Ledger
}

func NewChannel(s store.Store, ledger *moderation.Ledger) *Channel {
	return &Channel{store: s, ledger: ledger}
}

func messagesCollection(planID string) string {
	return fmt.Sprintf("plans/%s/messages", planID)
}

// History returns the plan's messages in ascending timestamp order, with
// messages from senders the viewer has blocked filtered out.
func (c *Channel) History(ctx context.Context, planID, viewerID string) ([]models.ChatMessage, error) {
	docs, err := c.store.List(ctx, store.Query{
		Collection: messagesCollection(planID),
		OrderBy:    fieldTimestamp,
	})
	if err != nil {
		return nil, err
	}

	blocked, err := c.blockedSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return decodeMessages(docs, blocked), nil
}

// SendText appends a text message. SenderName is stored as a send-time
// snapshot.
func (c *Channel) SendText(ctx context.Context, planID, senderID, senderName, text string) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}
	return c.append(ctx, planID, models.ChatMessage{
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
	})
}

// SendImage compresses the image to fit the inline size cap and appends it
// with the fixed fallback text shown by clients that cannot render images.
// Images that cannot be brought under the cap are rejected with
// imaging.ErrImageTooLarge.
func (c *Channel) SendImage(ctx context.Context, planID, senderID, senderName string, raw []byte) (models.ChatMessage, error) {
	payload, err := imaging.Compress(raw, imaging.MaxInlineBytes)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return c.append(ctx, planID, models.ChatMessage{
		SenderID:   senderID,
		SenderName: senderName,
		Text:       "Sent an image",
		ImageData:  payload,
	})
}

// Subscribe streams the plan's message history, a snapshot per change, with
// the viewer's block list applied to each snapshot as it is built.
func (c *Channel) Subscribe(planID, viewerID string) (<-chan []models.ChatMessage, func()) {
	docCh, cancel := c.store.Subscribe(store.Query{
		Collection: messagesCollection(planID),
		OrderBy:    fieldTimestamp,
	})

	out := make(chan []models.ChatMessage, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for docs := range docCh {
			blocked, err := c.blockedSet(context.Background(), viewerID)
			if err != nil {
				log.Printf("chat subscribe: block list fetch failed viewer_id=%s: %v", viewerID, err)
				blocked = map[string]bool{}
			}
			select {
			case out <- decodeMessages(docs, blocked):
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

func (c *Channel) append(ctx context.Context, planID string, msg models.ChatMessage) (models.ChatMessage, error) {
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now().UTC()

	data, err := store.DataFrom(msg)
	if err != nil {
		return models.ChatMessage{}, err
	}
	if err := c.store.Set(ctx, messagesCollection(planID), msg.ID, data, false); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

func (c *Channel) blockedSet(ctx context.Context, viewerID string) (map[string]bool, error) {
	blocked := map[string]bool{}
	if viewerID == "" {
		return blocked, nil
	}
	ids, err := c.ledger.BlockedUsers(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		blocked[id] = true
	}
	return blocked, nil
}

func decodeMessages(docs []store.Document, blocked map[string]bool) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(docs))
	for _, doc := range docs {
		var msg models.ChatMessage
		if err := doc.DataTo(&msg); err != nil {
			log.Printf("chat: bad message document id=%s: %v", doc.ID, err)
			continue
		}
		msg.ID = doc.ID
		if blocked[msg.SenderID] {
			continue
		}
		out = append(out, msg)
	}
	return out
}
