package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/store"
)

// FeedService covers the broadcast board and the radio chat.
type FeedService struct {
	co           *coordinator.Coordinator
	broadcastCap int
	radioCap     int
	log          *slog.Logger
}

// NewFeedService creates the feed service. Caps of zero keep the full
// history.
func NewFeedService(co *coordinator.Coordinator, broadcastCap, radioCap int, log *slog.Logger) *FeedService {
	if log == nil {
		log = slog.Default()
	}
	return &FeedService{co: co, broadcastCap: broadcastCap, radioCap: radioCap, log: log}
}

// PostBroadcast publishes a sitewide announcement. The router restricts
// this to admins.
func (s *FeedService) PostBroadcast(ctx context.Context, author, text, sprite string) (models.Broadcast, error) {
	text, err := cleanText("broadcast", text, maxBroadcastLen)
	if err != nil {
		return models.Broadcast{}, err
	}

	b := models.Broadcast{
		ID:       uuid.NewString(),
		Author:   author,
		Text:     text,
		Sprite:   sprite,
		PostedAt: time.Now().UTC(),
	}
	err = s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		store.AppendBroadcast(st.Store, b, s.broadcastCap)
		return coordinator.Result{
			Dirty: true,
			Events: []events.Event{
				{Kind: events.KindBroadcastNew, Payload: b, Audience: events.Everyone()},
			},
		}, nil
	})
	if err != nil {
		return models.Broadcast{}, err
	}
	s.log.Info("broadcast posted", "author", author, "id", b.ID)
	return b, nil
}

// PostRadio sends a chat line. An empty channel is the common band and
// reaches everyone; a named channel only reaches sessions tuned to it.
func (s *FeedService) PostRadio(ctx context.Context, author, channel, text string) (models.RadioMessage, error) {
	text, err := cleanText("message", text, maxRadioLen)
	if err != nil {
		return models.RadioMessage{}, err
	}
	if channel != "" {
		channel, err = cleanText("channel", channel, maxChannelLen)
		if err != nil {
			return models.RadioMessage{}, err
		}
	}

	m := models.RadioMessage{
		ID:       uuid.NewString(),
		Author:   author,
		Channel:  channel,
		Text:     text,
		PostedAt: time.Now().UTC(),
	}
	audience := events.Everyone()
	if channel != "" {
		audience = events.Channel(channel)
	}
	err = s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		store.AppendRadio(st.Store, m, s.radioCap)
		return coordinator.Result{
			Dirty: true,
			Events: []events.Event{
				{Kind: events.KindRadioMessage, Payload: m, Audience: audience},
			},
		}, nil
	})
	if err != nil {
		return models.RadioMessage{}, err
	}
	return m, nil
}

// ClearRadio wipes the retained chat log. Admin only, applied by the
// router.
func (s *FeedService) ClearRadio(ctx context.Context, actor string) error {
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		store.ClearRadio(st.Store)
		return coordinator.Result{
			Dirty: true,
			Events: []events.Event{
				{Kind: events.KindRadioCleared, Payload: map[string]string{"by": actor}, Audience: events.Everyone()},
			},
		}, nil
	})
	if err == nil {
		s.log.Info("radio log cleared", "by", actor)
	}
	return err
}

// Broadcasts returns the retained announcements, oldest first.
func (s *FeedService) Broadcasts(ctx context.Context) ([]models.Broadcast, error) {
	var out []models.Broadcast
	err := s.co.View(ctx, func(st *coordinator.State) error {
		out = store.Broadcasts(st.Store)
		return nil
	})
	return out, err
}

// Radio returns the retained chat log, oldest first.
func (s *FeedService) Radio(ctx context.Context) ([]models.RadioMessage, error) {
	var out []models.RadioMessage
	err := s.co.View(ctx, func(st *coordinator.State) error {
		out = store.Radio(st.Store)
		return nil
	})
	return out, err
}
