package types

import (
	"testing"
	"time"
)

func TestApplyMutation(t *testing.T) {
	subject := &Subject{ID: 1, Name: "math", Version: 3}

	if changed := ApplyMutation(subject, func() bool { return false }); changed {
		t.Fatalf("no-op patch reported a change")
	}
	if subject.Version != 3 {
		t.Fatalf("no-op patch bumped version to %d", subject.Version)
	}

	if changed := ApplyMutation(subject, func() bool {
		subject.Name = "physics"
		return true
	}); !changed {
		t.Fatalf("real patch reported no change")
	}
	if subject.Version != 4 {
		t.Fatalf("version = %d, want 4", subject.Version)
	}
}

func TestVersionGate(t *testing.T) {
	cases := []struct {
		name     string
		incoming uint
		local    uint
		next     bool
		stale    bool
	}{
		{"exact successor", 5, 4, true, false},
		{"duplicate", 4, 4, false, true},
		{"older duplicate", 2, 4, false, true},
		{"gap", 7, 4, false, false},
		{"first version", 1, 0, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextVersionOK(tc.incoming, tc.local); got != tc.next {
				t.Fatalf("NextVersionOK(%d, %d) = %v, want %v", tc.incoming, tc.local, got, tc.next)
			}
			if got := IsStaleVersion(tc.incoming, tc.local); got != tc.stale {
				t.Fatalf("IsStaleVersion(%d, %d) = %v, want %v", tc.incoming, tc.local, got, tc.stale)
			}
		})
	}
}

func TestDeriveLessonStatus(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 10, 12, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before start", start.Add(-time.Minute), LessonStatusScheduled},
		{"at start", start, LessonStatusOngoing},
		{"mid interval", start.Add(time.Hour), LessonStatusOngoing},
		{"at end", end, LessonStatusCompleted},
		{"after end", end.Add(time.Hour), LessonStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveLessonStatus(start, end, tc.now); got != tc.want {
				t.Fatalf("DeriveLessonStatus at %s = %q, want %q", tc.now, got, tc.want)
			}
		})
	}
}
