package tui

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/annotator/internal/annotation"
)

// ClosestLabel returns the id of the labelled entry whose label is nearest to
// query by edit distance. Ties go to the earlier entry.
func ClosestLabel(entries []annotation.Entry, query string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", false
	}
	best, bestDist := "", -1
	for _, e := range entries {
		label := strings.ToLower(e.Payload.Label)
		if label == "" {
			continue
		}
		d := levenshtein.ComputeDistance(q, label)
		if bestDist < 0 || d < bestDist {
			best, bestDist = e.ID, d
		}
	}
	return best, bestDist >= 0
}
