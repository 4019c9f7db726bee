package events

import (
	"encoding/json"
	"log/slog"

	"github.com/nullgrid/nullgrid/internal/metrics"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/presence"
)

// Bus resolves an event's audience against the live sessions and writes
// the payload to each matching outbound queue. Delivery is at most once
// per currently connected session; sessions that connect later never see
// the event.
//
// Publish must only be called from the mutation coordinator's goroutine,
// which is what makes publish order match mutation-commit order.
type Bus struct {
	tracker *presence.Tracker
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewBus creates a bus fanning out over the given tracker.
func NewBus(tracker *presence.Tracker, m *metrics.Metrics, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.Default()
	}
	return &Bus{tracker: tracker, metrics: m, log: log}
}

// Publish delivers ev to every session in its audience. A full outbound
// queue cuts that session off (its outbox is closed and its connection
// handler cleans up); the publisher and other receivers never block.
func (b *Bus) Publish(ev Event) {
	payload, err := json.Marshal(envelope{Kind: ev.Kind, Payload: ev.Payload})
	if err != nil {
		// Payloads are our own types; failing to encode one is a bug.
		b.log.Error("dropping unencodable event", "kind", ev.Kind, "err", err)
		return
	}

	for _, s := range b.resolve(ev.Audience) {
		if s.Dead() {
			continue
		}
		select {
		case s.Outbox <- payload:
			b.metrics.EventsPublished.WithLabelValues(string(ev.Kind)).Inc()
		default:
			// Bounded queue overflowed: disconnecting beats unbounded
			// buffering or stalling the mutator.
			b.tracker.MarkDead(s)
			b.metrics.EventsDropped.Inc()
			b.log.Warn("session outbound queue overflow, cutting off",
				"session", s.ID, "identity", s.Identity, "kind", ev.Kind)
		}
	}
}

func (b *Bus) resolve(aud Audience) []*presence.Session {
	switch aud.scope {
	case scopeEveryone:
		return b.tracker.All()
	case scopeAdmins:
		return b.tracker.ByRole(models.RoleAdmin)
	case scopeIdentities:
		return b.tracker.ByIdentities(aud.identities)
	case scopeChannel:
		return b.tracker.ByChannel(aud.channel)
	}
	return nil
}
