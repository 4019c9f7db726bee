package events

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/presence"
)

func drain(t *testing.T, s *presence.Session) []Kind {
	t.Helper()
	var kinds []Kind
	for {
		select {
		case raw, ok := <-s.Outbox:
			if !ok {
				return kinds
			}
			var env struct {
				Kind Kind `json:"kind"`
			}
			require.NoError(t, json.Unmarshal(raw, &env))
			kinds = append(kinds, env.Kind)
		default:
			return kinds
		}
	}
}

func TestBus(t *testing.T) {
	t.Run("AudienceResolution", func(t *testing.T) {
		tr := presence.NewTracker(8)
		bus := NewBus(tr, nil, nil)

		admin, _ := tr.Open("s1", "SYSOP", models.RoleAdmin)
		alpha, _ := tr.Open("s2", "ALPHA9", models.RoleOperator)
		bravo, _ := tr.Open("s3", "BRAVO2", models.RoleOperator)
		tr.Tune("s3", "36.1")

		bus.Publish(Event{Kind: KindBroadcastNew, Audience: Everyone()})
		bus.Publish(Event{Kind: KindTicketCreated, Audience: Admins()})
		bus.Publish(Event{Kind: KindTicketMessage, Audience: To("ALPHA9", "SYSOP")})
		bus.Publish(Event{Kind: KindRadioMessage, Audience: Channel("36.1")})

		assert.Equal(t, []Kind{KindBroadcastNew, KindTicketCreated, KindTicketMessage}, drain(t, admin))
		assert.Equal(t, []Kind{KindBroadcastNew, KindTicketMessage}, drain(t, alpha))
		assert.Equal(t, []Kind{KindBroadcastNew, KindRadioMessage}, drain(t, bravo))
	})

	t.Run("DuplicateIdentitiesDeliverOnce", func(t *testing.T) {
		tr := presence.NewTracker(8)
		bus := NewBus(tr, nil, nil)
		alpha, _ := tr.Open("s1", "ALPHA9", models.RoleOperator)

		bus.Publish(Event{Kind: KindTicketMessage, Audience: To("ALPHA9", "ALPHA9")})
		assert.Len(t, drain(t, alpha), 1)
	})

	t.Run("OrderPreservedPerSession", func(t *testing.T) {
		tr := presence.NewTracker(64)
		bus := NewBus(tr, nil, nil)
		alpha, _ := tr.Open("s1", "ALPHA9", models.RoleOperator)

		var want []Kind
		for i := 0; i < 20; i++ {
			kind := KindRadioMessage
			if i%2 == 0 {
				kind = KindBroadcastNew
			}
			bus.Publish(Event{Kind: kind, Payload: i, Audience: Everyone()})
			want = append(want, kind)
		}
		assert.Equal(t, want, drain(t, alpha))
	})

	t.Run("OverflowCutsOffSlowReceiver", func(t *testing.T) {
		tr := presence.NewTracker(4)
		bus := NewBus(tr, nil, nil)
		slow, _ := tr.Open("s1", "ALPHA9", models.RoleOperator)
		fast, _ := tr.Open("s2", "BRAVO2", models.RoleOperator)

		// Nobody drains the slow session; the fifth publish overflows it.
		for i := 0; i < 6; i++ {
			bus.Publish(Event{Kind: KindRadioMessage, Payload: i, Audience: Everyone()})
		}

		assert.True(t, slow.Dead())
		assert.False(t, fast.Dead())
		assert.Len(t, drain(t, fast), 6, "fast receiver unaffected by slow one")

		// The slow session kept its queued events and then the closed
		// outbox signals its pump to shut down.
		got := drain(t, slow)
		assert.Len(t, got, 4)
		_, open := <-slow.Outbox
		assert.False(t, open)
	})

	t.Run("DeadSessionSkipped", func(t *testing.T) {
		tr := presence.NewTracker(1)
		bus := NewBus(tr, nil, nil)
		s, _ := tr.Open("s1", "ALPHA9", models.RoleOperator)
		tr.MarkDead(s)

		// Publishing to a dead session must not panic on its closed outbox.
		bus.Publish(Event{Kind: KindRadioMessage, Audience: Everyone()})
	})

	t.Run("NoReplayForLateJoiners", func(t *testing.T) {
		tr := presence.NewTracker(8)
		bus := NewBus(tr, nil, nil)

		bus.Publish(Event{Kind: KindBroadcastNew, Payload: "ALERT RED", Audience: Everyone()})

		late, _ := tr.Open("s1", "ALPHA9", models.RoleOperator)
		assert.Empty(t, drain(t, late), "historical events are fetched, not replayed")
	})

	t.Run("ManyReceivers", func(t *testing.T) {
		tr := presence.NewTracker(8)
		bus := NewBus(tr, nil, nil)
		var sessions []*presence.Session
		for i := 0; i < 30; i++ {
			s, _ := tr.Open(fmt.Sprintf("s%d", i), fmt.Sprintf("OP%d", i), models.RoleOperator)
			sessions = append(sessions, s)
		}
		bus.Publish(Event{Kind: KindBroadcastNew, Audience: Everyone()})
		for _, s := range sessions {
			assert.Len(t, drain(t, s), 1)
		}
	})
}
