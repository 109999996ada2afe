package stats

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/wesm/emailsearch/internal/query"
	"github.com/wesm/emailsearch/internal/testutil"
)

func TestAggregate_Empty(t *testing.T) {
	for _, rs := range []query.ResultSet{nil, {}} {
		st := Aggregate(rs)
		if st.Count != 0 || st.UniqueSenders != 0 || st.UniqueRecipients != 0 {
			t.Errorf("Aggregate(%v) = %+v, want zero counts", rs, st)
		}
		if st.HasDateRange() {
			t.Errorf("empty set should have no date range, got %v..%v", st.DateMin, st.DateMax)
		}
		if st.FormatRange() != "" {
			t.Errorf("FormatRange() = %q, want empty", st.FormatRange())
		}
	}
}

func TestAggregate(t *testing.T) {
	results := query.ResultSet{
		testutil.NewResult("1").WithSender("alice@example.com").WithRecipient("bob@example.com").WithDate("2024-03-01").Build(),
		testutil.NewResult("2").WithSender("Alice@example.com").WithRecipient("bob@example.com").WithDate("2023-12-25").Build(),
		testutil.NewResult("3").WithSender("alice@example.com").WithRecipient("carol@example.com").WithDate("2024-07-04T10:15:00").Build(),
		testutil.NewResult("4").WithSender("dave@example.com").WithRecipient("bob@example.com").WithDate("not a date").Build(),
	}

	got := Aggregate(results)
	want := Stats{
		Count:            4,
		UniqueSenders:    3, // case-sensitive: alice and Alice differ
		UniqueRecipients: 2,
		DateMin:          time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC),
		DateMax:          time.Date(2024, 7, 4, 10, 15, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Aggregate mismatch (-want +got):\n%s", diff)
	}
	if r := got.FormatRange(); r != "2023-12-25 to 2024-07-04" {
		t.Errorf("FormatRange() = %q", r)
	}
}

func TestAggregate_NoParseableDates(t *testing.T) {
	results := query.ResultSet{
		testutil.NewResult("1").WithDate("").Build(),
		testutil.NewResult("2").WithDate("yesterday").Build(),
	}
	st := Aggregate(results)
	if st.Count != 2 {
		t.Errorf("Count = %d, want 2", st.Count)
	}
	if st.HasDateRange() {
		t.Error("expected no date range when no date parses")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02T03:04:05+02:00", time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC), true},
		{"2024-01-02T03:04:05.123456", time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC), true},
		{"2024-01-02 03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{" 2024-01-02 ", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"01/02/2024", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
