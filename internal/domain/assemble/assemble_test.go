package assemble

import (
	"reflect"
	"testing"

	"github.com/forPelevin/shortcut/internal/domain/align"
	"github.com/forPelevin/shortcut/internal/types"
)

func clip(title string, score float64, start, end float64) Clip {
	return Clip{
		Quote: types.CandidateQuote{
			Title:         title,
			StartPhrase:   "start words",
			EndPhrase:     "end words",
			ViralityScore: score,
		},
		Segment: align.Segment{Start: start, End: end, StartConfidence: 0.9, EndConfidence: 0.9},
	}
}

func TestBuild_OrdersByScoreDescending(t *testing.T) {
	shorts, err := Build([]Clip{
		clip("low", 40, 10, 40),
		clip("high", 90, 100, 130),
		clip("mid", 70, 200, 230),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := []string{shorts[0].Title, shorts[1].Title, shorts[2].Title}
	want := []string{"high", "mid", "low"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestBuild_StableAndIdempotent(t *testing.T) {
	in := []Clip{
		clip("first", 50, 10, 40),
		clip("second", 50, 100, 130),
		clip("third", 50, 200, 230),
	}
	a, err := Build(in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("assembly is not idempotent:\n%v\n%v", a, b)
	}
	// Equal scores keep input order.
	if a[0].Title != "first" || a[1].Title != "second" || a[2].Title != "third" {
		t.Fatalf("ties broke input order: %v", a)
	}
}

func TestBuild_DerivedFields(t *testing.T) {
	shorts, err := Build([]Clip{clip("s", 80, 65.25, 96.9)})
	if err != nil {
		t.Fatal(err)
	}
	s := shorts[0]
	if s.StartTime != "00:01:05.250" {
		t.Fatalf("unexpected start time %q", s.StartTime)
	}
	if s.EndTime != "00:01:36.900" {
		t.Fatalf("unexpected end time %q", s.EndTime)
	}
	if s.DurationSeconds != 32 {
		t.Fatalf("unexpected duration %d", s.DurationSeconds)
	}
}

func TestBuild_RejectsMalformed(t *testing.T) {
	missingTitle := clip("", 50, 0, 10)
	if _, err := Build([]Clip{missingTitle}); err == nil {
		t.Fatalf("expected error for missing title")
	}

	inverted := clip("ok", 50, 20, 20)
	if _, err := Build([]Clip{inverted}); err == nil {
		t.Fatalf("expected error for non-positive span")
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[float64]string{
		0:       "00:00:00.000",
		90.5:    "00:01:30.500",
		3661:    "01:01:01.000",
		-3:      "00:00:00.000",
		61.74:   "00:01:01.740",
		7325.25: "02:02:05.250",
	}
	for in, want := range tests {
		if got := FormatTimestamp(in); got != want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"01:30", 90, false},
		{"01:15:30", 4530, false},
		{"00:01:01.740", 61.74, false},
		{" 02:00 ", 120, false},
		{"90", 0, true},
		{"a:b:c", 0, true},
		{"1:2:3:4", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseTimestamp(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatParse_RoundTrip(t *testing.T) {
	for _, sec := range []float64{0, 59.999, 60, 3599.5, 3600, 4530.25} {
		s := FormatTimestamp(sec)
		got, err := ParseTimestamp(s)
		if err != nil {
			t.Fatalf("round trip %v via %q: %v", sec, s, err)
		}
		if diff := got - sec; diff > 0.0005 || diff < -0.0005 {
			t.Fatalf("round trip %v via %q = %v", sec, s, got)
		}
	}
}
