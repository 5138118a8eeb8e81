package service

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Confidence scoring bounds.
const (
	confidenceBase      = 0.5
	confidenceLengthCap = 6000
	confidenceLengthMax = 0.4
	confidenceBonus     = 0.05
	confidenceCeiling   = 0.98
)

// listLine matches a line starting with "N)", "-" or "*" followed by whitespace.
var listLine = regexp.MustCompile(`(?m)^\s*(\d+\)|-|\*)\s`)

var confidenceKeywords = []string{"analysis", "approach", "steps", "risks", "metrics", "next"}

// ScoreConfidence is a deterministic structural heuristic over completion
// text. The result lies in [0.5, 0.98]; the empty string scores exactly 0.5.
// Length is counted in runes.
func ScoreConfidence(text string) float64 {
	n := utf8.RuneCountInString(text)
	if n > confidenceLengthCap {
		n = confidenceLengthCap
	}
	score := confidenceBase + float64(n)/confidenceLengthCap*confidenceLengthMax

	if listLine.MatchString(text) {
		score += confidenceBonus
	}

	lower := strings.ToLower(text)
	for _, kw := range confidenceKeywords {
		if strings.Contains(lower, kw) {
			score += confidenceBonus
			break
		}
	}

	return math.Min(confidenceCeiling, score)
}
