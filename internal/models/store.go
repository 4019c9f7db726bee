package models

// PersistedStore is the aggregate root for all durable state. It lives in
// memory for the lifetime of the process and is serialized as a single
// unit by the persistence engine. Exactly one goroutine (the mutation
// coordinator) may mutate it; everyone else works with snapshots.
type PersistedStore struct {
	Users      map[string]*UserRecord `json:"users"`
	Tickets    map[string]*Ticket     `json:"tickets"`
	Broadcasts []Broadcast            `json:"broadcasts"`
	Radio      []RadioMessage         `json:"radio"`
}

// NewStore returns an empty store for first boot.
func NewStore() *PersistedStore {
	return &PersistedStore{
		Users:   make(map[string]*UserRecord),
		Tickets: make(map[string]*Ticket),
	}
}

// Clone returns a deep copy. The coordinator hands clones to the
// persistence engine so a slow save never races the live store.
func (s *PersistedStore) Clone() *PersistedStore {
	out := &PersistedStore{
		Users:   make(map[string]*UserRecord, len(s.Users)),
		Tickets: make(map[string]*Ticket, len(s.Tickets)),
	}
	for id, u := range s.Users {
		cu := *u
		out.Users[id] = &cu
	}
	for id, t := range s.Tickets {
		ct := *t
		ct.Messages = make([]TicketMessage, len(t.Messages))
		copy(ct.Messages, t.Messages)
		out.Tickets[id] = &ct
	}
	if s.Broadcasts != nil {
		out.Broadcasts = make([]Broadcast, len(s.Broadcasts))
		copy(out.Broadcasts, s.Broadcasts)
	}
	if s.Radio != nil {
		out.Radio = make([]RadioMessage, len(s.Radio))
		copy(out.Radio, s.Radio)
	}
	return out
}
