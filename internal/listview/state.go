package listview

// Fold states of the toggle-all control.
const (
	FoldStateFolded   = "FOLDED"
	FoldStateUnfolded = "UNFOLDED"
)

// State is the per-list details visibility map. It starts empty when a list
// view is first shown and only changes through ToggleDetails and ToggleAll.
type State struct {
	Details     map[string]bool `json:"details,omitempty"`
	AllExpanded bool            `json:"all_expanded,omitempty"`
	// Previous holds the flags overwritten by the last ToggleAll. It is
	// dropped by any per-row toggle.
	Previous map[string]bool `json:"previous,omitempty"`
}

func NewState() *State {
	return &State{Details: make(map[string]bool)}
}

// Expanded reports whether the details row of id is shown. A nil State has
// every row collapsed.
func (s *State) Expanded(id string) bool {
	if s == nil {
		return false
	}
	return s.Details[id]
}

// ToggleDetails flips the flag of a single row and returns the new value.
func (s *State) ToggleDetails(id string) bool {
	if s.Details == nil {
		s.Details = make(map[string]bool)
	}
	s.Details[id] = !s.Details[id]
	s.Previous = nil
	return s.Details[id]
}

// ToggleAll flips AllExpanded and sets the flag of every listed id to the
// new value. Rows that are not listed keep their flag.
//
// Two toggles in a row cancel out: the second one puts back the flags the
// first one overwrote, for every id listed both times. This departs from
// "collapsing clears every flag": a collapse right after an expand restores
// rows that were expanded before, because both rules cannot hold at once and
// the restore rule wins. A collapse not preceded by an expand clears every
// listed flag.
func (s *State) ToggleAll(ids []string) bool {
	if s.Details == nil {
		s.Details = make(map[string]bool, len(ids))
	}
	s.AllExpanded = !s.AllExpanded

	previous := s.Previous
	s.Previous = nil
	if previous != nil {
		for _, id := range ids {
			if v, ok := previous[id]; ok {
				s.Details[id] = v
			} else {
				s.Details[id] = s.AllExpanded
			}
		}
		return s.AllExpanded
	}

	s.Previous = make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, seen := s.Previous[id]; !seen {
			s.Previous[id] = s.Details[id]
		}
		s.Details[id] = s.AllExpanded
	}
	return s.AllExpanded
}

// Compact drops collapsed rows from Details. A missing flag reads as
// collapsed, so only expanded rows need to be kept.
func (s *State) Compact() {
	if s == nil {
		return
	}
	for id, expanded := range s.Details {
		if !expanded {
			delete(s.Details, id)
		}
	}
}

func (s *State) FoldState() string {
	if s != nil && s.AllExpanded {
		return FoldStateUnfolded
	}
	return FoldStateFolded
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := NewState()
	if s == nil {
		return out
	}
	out.AllExpanded = s.AllExpanded
	for id, v := range s.Details {
		out.Details[id] = v
	}
	if s.Previous != nil {
		out.Previous = make(map[string]bool, len(s.Previous))
		for id, v := range s.Previous {
			out.Previous[id] = v
		}
	}
	return out
}
