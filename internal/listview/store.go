package listview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexedwards/scs/v2"
)

const sessionKeyPrefix = "listview:"

// StateStore keeps the State of each list in the user's session, so the
// details a user expanded survive htmx swaps and page reloads.
type StateStore struct {
	sessions *scs.SessionManager
}

func NewStateStore(sessions *scs.SessionManager) *StateStore {
	return &StateStore{sessions: sessions}
}

// Load returns the stored state of list, or an empty state. A corrupt
// entry is discarded.
func (s *StateStore) Load(ctx context.Context, list string) *State {
	raw := s.sessions.GetString(ctx, sessionKeyPrefix+list)
	if raw == "" {
		return NewState()
	}
	st := NewState()
	if err := json.Unmarshal([]byte(raw), st); err != nil {
		s.sessions.Remove(ctx, sessionKeyPrefix+list)
		return NewState()
	}
	if st.Details == nil {
		st.Details = make(map[string]bool)
	}
	return st
}

// Save stores st after compacting it, so the session only grows with rows
// that are expanded.
func (s *StateStore) Save(ctx context.Context, list string, st *State) error {
	st.Compact()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode %s list state: %w", list, err)
	}
	s.sessions.Put(ctx, sessionKeyPrefix+list, string(raw))
	return nil
}

// Update loads the state of list, applies fn, and saves the result.
func (s *StateStore) Update(ctx context.Context, list string, fn func(*State)) (*State, error) {
	st := s.Load(ctx, list)
	fn(st)
	if err := s.Save(ctx, list, st); err != nil {
		return nil, err
	}
	return st, nil
}
