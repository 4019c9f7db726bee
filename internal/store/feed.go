package store

import (
	"github.com/nullgrid/nullgrid/internal/models"
)

// AppendBroadcast appends an announcement, evicting the oldest entries
// beyond the retention cap.
func AppendBroadcast(s *models.PersistedStore, b models.Broadcast, cap int) {
	s.Broadcasts = append(s.Broadcasts, b)
	if cap > 0 && len(s.Broadcasts) > cap {
		s.Broadcasts = append(s.Broadcasts[:0:0], s.Broadcasts[len(s.Broadcasts)-cap:]...)
	}
}

// AppendRadio appends a radio line, evicting the oldest entries beyond
// the retention cap.
func AppendRadio(s *models.PersistedStore, m models.RadioMessage, cap int) {
	s.Radio = append(s.Radio, m)
	if cap > 0 && len(s.Radio) > cap {
		s.Radio = append(s.Radio[:0:0], s.Radio[len(s.Radio)-cap:]...)
	}
}

// ClearRadio wipes the radio log.
func ClearRadio(s *models.PersistedStore) {
	s.Radio = nil
}

// Broadcasts returns the broadcast log, oldest first.
func Broadcasts(s *models.PersistedStore) []models.Broadcast {
	out := make([]models.Broadcast, len(s.Broadcasts))
	copy(out, s.Broadcasts)
	return out
}

// Radio returns the radio log, oldest first.
func Radio(s *models.PersistedStore) []models.RadioMessage {
	out := make([]models.RadioMessage, len(s.Radio))
	copy(out, s.Radio)
	return out
}
