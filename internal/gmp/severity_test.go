package gmp

import "testing"

func score(v float64) *float64 { return &v }

func TestSeverityClass(t *testing.T) {
	cases := []struct {
		score *float64
		want  string
	}{
		{score: score(10), want: SeverityHigh},
		{score: score(7.0), want: SeverityHigh},
		{score: score(6.9), want: SeverityMedium},
		{score: score(4.0), want: SeverityMedium},
		{score: score(0.1), want: SeverityLow},
		{score: score(0), want: SeverityLog},
		{score: score(-1), want: SeverityFalsePositive},
		{score: score(-3), want: SeverityError},
		{score: score(-2), want: SeverityNA},
		{score: nil, want: SeverityNA},
	}
	for _, tc := range cases {
		if got := SeverityClass(tc.score); got != tc.want {
			t.Fatalf("SeverityClass(%v) = %q, want %q", FormatSeverity(tc.score), got, tc.want)
		}
	}
}

func TestGroupSeverityClasses(t *testing.T) {
	got := GroupSeverityClasses([]SeverityBucket{
		{Score: score(9.8), Count: 2},
		{Score: score(7.5), Count: 1},
		{Score: score(5), Count: 4},
		{Count: 3},
	})
	if len(got) != len(SeverityClasses) {
		t.Fatalf("len = %d, want %d", len(got), len(SeverityClasses))
	}
	want := map[string]int{SeverityHigh: 3, SeverityMedium: 4, SeverityNA: 3}
	for _, cc := range got {
		if cc.Count != want[cc.Class] {
			t.Fatalf("%s = %d, want %d", cc.Class, cc.Count, want[cc.Class])
		}
	}
	if got[0].Class != SeverityHigh {
		t.Fatalf("first class = %q, want High", got[0].Class)
	}
}
