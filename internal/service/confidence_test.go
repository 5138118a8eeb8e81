package service

import (
	"math"
	"strings"
	"testing"
)

const epsilon = 1e-9

func TestScoreConfidenceEmpty(t *testing.T) {
	if got := ScoreConfidence(""); got != 0.5 {
		t.Fatalf("expected exactly 0.5, got %v", got)
	}
}

func TestScoreConfidenceFormula(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"plain short", "hello", 0.5 + 5.0/6000*0.4},
		{"list line", "- item", 0.5 + 6.0/6000*0.4 + 0.05},
		{"numbered list", "intro\n1) first", 0.5 + 14.0/6000*0.4 + 0.05},
		{"keyword", "Risk ANALYSIS", 0.5 + 13.0/6000*0.4 + 0.05},
		{"both", "* next", 0.5 + 6.0/6000*0.4 + 0.10},
		{"dash without space", "-item", 0.5 + 5.0/6000*0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreConfidence(tt.text); math.Abs(got-tt.want) > epsilon {
				t.Fatalf("ScoreConfidence(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestScoreConfidenceBoundsAndCap(t *testing.T) {
	long := strings.Repeat("x", 6000)
	if got := ScoreConfidence(long); math.Abs(got-0.9) > epsilon {
		t.Fatalf("expected 0.9 at the length cap, got %v", got)
	}
	if got := ScoreConfidence(strings.Repeat("x", 9000)); math.Abs(got-0.9) > epsilon {
		t.Fatalf("expected constant beyond 6000 chars, got %v", got)
	}
	if got := ScoreConfidence("- analysis\n" + long); got != 0.98 {
		t.Fatalf("expected cap 0.98, got %v", got)
	}
}

func TestScoreConfidenceMonotonic(t *testing.T) {
	prev := 0.0
	for n := 0; n <= 6500; n += 250 {
		got := ScoreConfidence(strings.Repeat("a", n))
		if got < 0.5 || got > 0.98 {
			t.Fatalf("score %v out of bounds at len %d", got, n)
		}
		if got < prev {
			t.Fatalf("score decreased at len %d: %v < %v", n, got, prev)
		}
		prev = got
	}
}

func TestScoreConfidenceCountsRunes(t *testing.T) {
	// "é" is two bytes but one character.
	if got, want := ScoreConfidence(strings.Repeat("é", 10)), 0.5+10.0/6000*0.4; math.Abs(got-want) > epsilon {
		t.Fatalf("expected rune-based length, got %v want %v", got, want)
	}
}
