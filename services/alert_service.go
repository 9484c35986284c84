package services

import (
	"context"
	"fmt"
	"log"

	"livebid/models"

	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"
)

type AlertService struct {
	App    core.App
	pubnub *pubnub.PubNub
}

func NewAlertService(app core.App, pn *pubnub.PubNub) *AlertService {
	return &AlertService{App: app, pubnub: pn}
}

// Notify persists an alert for the user and pushes it on their channel.
// Alerts are best-effort: a failure is logged, never propagated into the
// transition that produced it.
func (s *AlertService) Notify(ctx context.Context, uid, title, message string) {
	collection, err := s.App.FindCollectionByNameOrId("alerts")
	if err != nil {
		log.Printf("alerts collection: %v", err)
		return
	}

	record := core.NewRecord(collection)
	record.Set("uid", uid)
	record.Set("title", title)
	record.Set("message", message)
	record.Set("read", false)
	if err := s.App.Save(record); err != nil {
		log.Printf("saving alert for %s: %v", uid, err)
		return
	}

	if s.pubnub != nil {
		s.pubnub.Publish().
			Channel(fmt.Sprintf("user-%s", uid)).
			Message(map[string]any{
				"type":    "alert",
				"id":      record.Id,
				"title":   title,
				"message": message,
			}).
			Execute()
	}
}

// ListForUser returns the user's alerts, newest first.
func (s *AlertService) ListForUser(ctx context.Context, uid string, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.App.FindRecordsByFilter(
		"alerts",
		"uid = {:uid}",
		"-created",
		limit,
		0,
		map[string]any{"uid": uid},
	)
	if err != nil {
		return nil, err
	}

	alerts := make([]*models.Alert, 0, len(records))
	for _, record := range records {
		alerts = append(alerts, &models.Alert{
			ID:        record.Id,
			UID:       record.GetString("uid"),
			Title:     record.GetString("title"),
			Message:   record.GetString("message"),
			CreatedAt: record.GetDateTime("created").Time(),
		})
	}
	return alerts, nil
}
