package service

import (
	"context"
	"log/slog"

	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/presence"
)

// SessionService registers live connections with the presence tracker.
// All tracker access goes through the coordinator, which owns it.
type SessionService struct {
	co  *coordinator.Coordinator
	log *slog.Logger
}

// NewSessionService creates the session service.
func NewSessionService(co *coordinator.Coordinator, log *slog.Logger) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	return &SessionService{co: co, log: log}
}

// Open registers a connection and returns its session. The first
// session of an identity announces the identity as online.
func (s *SessionService) Open(ctx context.Context, sessionID, identity string, role models.Role) (*presence.Session, error) {
	var sess *presence.Session
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		var cameOnline bool
		sess, cameOnline = st.Sessions.Open(sessionID, identity, role)
		res := coordinator.Result{}
		if cameOnline {
			res.Events = []events.Event{{
				Kind:     events.KindUserOnline,
				Payload:  map[string]string{"identity": identity},
				Audience: events.Everyone(),
			}}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("session opened", "session", sessionID, "identity", identity)
	return sess, nil
}

// Close unregisters a connection. Closing the identity's last session
// announces the identity as offline.
func (s *SessionService) Close(ctx context.Context, sessionID string) error {
	var identity string
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		id, wentOffline := st.Sessions.Close(sessionID)
		identity = id
		res := coordinator.Result{}
		if wentOffline {
			res.Events = []events.Event{{
				Kind:     events.KindUserOffline,
				Payload:  map[string]string{"identity": id},
				Audience: events.Everyone(),
			}}
		}
		return res, nil
	})
	if err != nil {
		return err
	}
	if identity != "" {
		s.log.Debug("session closed", "session", sessionID, "identity", identity)
	}
	return nil
}

// Tune subscribes a session to a radio channel.
func (s *SessionService) Tune(ctx context.Context, sessionID, channel string) error {
	channel, err := cleanText("channel", channel, maxChannelLen)
	if err != nil {
		return err
	}
	return s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		st.Sessions.Tune(sessionID, channel)
		return coordinator.Result{}, nil
	})
}

// Detune unsubscribes a session from a radio channel.
func (s *SessionService) Detune(ctx context.Context, sessionID, channel string) error {
	return s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		st.Sessions.Detune(sessionID, channel)
		return coordinator.Result{}, nil
	})
}

// Online lists the identities with at least one live session.
func (s *SessionService) Online(ctx context.Context) ([]string, error) {
	var out []string
	err := s.co.View(ctx, func(st *coordinator.State) error {
		out = st.Sessions.Online()
		return nil
	})
	return out, err
}
