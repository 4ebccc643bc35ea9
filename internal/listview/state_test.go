package listview

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func stateFrom(details map[string]bool) *State {
	st := NewState()
	for id, v := range details {
		st.Details[id] = v
	}
	return st
}

func TestToggleDetailsProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("toggling one row never changes another", prop.ForAll(
		func(details map[string]bool, others []string, id string) bool {
			st := stateFrom(details)
			before := st.Clone()

			st.ToggleDetails(id)

			if st.Expanded(id) == before.Expanded(id) {
				return false
			}
			for other := range details {
				if other != id && st.Expanded(other) != before.Expanded(other) {
					return false
				}
			}
			for _, other := range others {
				if other != id && st.Expanded(other) != before.Expanded(other) {
					return false
				}
			}
			return true
		},
		gen.MapOf(gen.Identifier(), gen.Bool()),
		gen.SliceOf(gen.Identifier()),
		gen.Identifier(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestToggleAllProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("toggle-all twice restores every listed row", prop.ForAll(
		func(details map[string]bool, ids []string, allExpanded bool) bool {
			st := stateFrom(details)
			st.AllExpanded = allExpanded
			before := st.Clone()

			st.ToggleAll(ids)
			st.ToggleAll(ids)

			if st.AllExpanded != before.AllExpanded {
				return false
			}
			for _, id := range ids {
				if st.Expanded(id) != before.Expanded(id) {
					return false
				}
			}
			return true
		},
		gen.MapOf(gen.Identifier(), gen.Bool()),
		gen.SliceOf(gen.Identifier()),
		gen.Bool(),
	))

	properties.Property("toggle-all sets every listed row to the new value", prop.ForAll(
		func(details map[string]bool, ids []string) bool {
			st := stateFrom(details)
			expanded := st.ToggleAll(ids)
			for _, id := range ids {
				if st.Expanded(id) != expanded {
					return false
				}
			}
			return expanded
		},
		gen.MapOf(gen.Identifier(), gen.Bool()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("rows not listed keep their flag", prop.ForAll(
		func(details map[string]bool, ids []string) bool {
			st := stateFrom(details)
			listed := make(map[string]bool, len(ids))
			for _, id := range ids {
				listed[id] = true
			}
			st.ToggleAll(ids)
			for id, v := range details {
				if !listed[id] && st.Expanded(id) != v {
					return false
				}
			}
			return true
		},
		gen.MapOf(gen.Identifier(), gen.Bool()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestToggleAllThenSingleRow(t *testing.T) {
	st := NewState()
	st.ToggleAll([]string{"a", "b"})
	if !st.Expanded("a") || !st.Expanded("b") {
		t.Fatalf("after toggle-all: %v", st.Details)
	}

	st.ToggleDetails("a")
	if st.Expanded("a") {
		t.Fatal("row a should be collapsed")
	}
	if !st.Expanded("b") {
		t.Fatal("row b should stay expanded")
	}
	if st.FoldState() != FoldStateUnfolded {
		t.Fatalf("FoldState() = %q", st.FoldState())
	}
}

func TestToggleAllAfterRowToggleCollapsesEverything(t *testing.T) {
	st := NewState()
	st.ToggleDetails("a")
	st.ToggleAll([]string{"a", "b"})
	st.ToggleDetails("b")
	st.ToggleAll([]string{"a", "b"})

	if st.Expanded("a") || st.Expanded("b") {
		t.Fatalf("details = %v, want all collapsed", st.Details)
	}
	if st.AllExpanded {
		t.Fatal("AllExpanded should be false")
	}
}

func TestNewRowsStartCollapsed(t *testing.T) {
	st := NewState()
	st.ToggleAll([]string{"a"})
	if st.Expanded("c") {
		t.Fatal("rows added after toggle-all must start collapsed")
	}
}

func TestNilStateIsCollapsed(t *testing.T) {
	var st *State
	if st.Expanded("a") {
		t.Fatal("nil state must report collapsed")
	}
	if st.FoldState() != FoldStateFolded {
		t.Fatalf("FoldState() = %q", st.FoldState())
	}
	if c := st.Clone(); c == nil || len(c.Details) != 0 {
		t.Fatalf("Clone() = %+v", c)
	}
}
