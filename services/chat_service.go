package services

import (
	"context"
	"fmt"
	"strings"

	"livebid/models"

	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"
)

const maxMessageLen = 500

type ChatService struct {
	App    core.App
	pubnub *pubnub.PubNub
}

func NewChatService(app core.App, pn *pubnub.PubNub) *ChatService {
	return &ChatService{App: app, pubnub: pn}
}

// SendMessage persists a chat line and fans it out to the stream channel.
func (s *ChatService) SendMessage(ctx context.Context, channel, uid, name, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty message")
	}
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}

	collection, err := s.App.FindCollectionByNameOrId("messages")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("channel", channel)
	record.Set("uid", uid)
	record.Set("name", name)
	record.Set("text", text)
	if err := s.App.Save(record); err != nil {
		return nil, err
	}

	message := &models.ChatMessage{
		ID:        record.Id,
		Channel:   channel,
		UID:       uid,
		Name:      name,
		Text:      text,
		CreatedAt: record.GetDateTime("created").Time(),
	}

	if s.pubnub != nil {
		s.pubnub.Publish().
			Channel(fmt.Sprintf("stream-%s", channel)).
			Message(map[string]any{
				"type": "chat",
				"id":   message.ID,
				"uid":  uid,
				"name": name,
				"text": text,
			}).
			Execute()
	}

	return message, nil
}

// ListRecent returns the latest messages in chronological order.
func (s *ChatService) ListRecent(ctx context.Context, channel string, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.App.FindRecordsByFilter(
		"messages",
		"channel = {:channel}",
		"-created",
		limit,
		0,
		map[string]any{"channel": channel},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]*models.ChatMessage, len(records))
	for i, record := range records {
		// Query is newest-first; hand back oldest-first for display.
		messages[len(records)-1-i] = &models.ChatMessage{
			ID:        record.Id,
			Channel:   record.GetString("channel"),
			UID:       record.GetString("uid"),
			Name:      record.GetString("name"),
			Text:      record.GetString("text"),
			CreatedAt: record.GetDateTime("created").Time(),
		}
	}
	return messages, nil
}
