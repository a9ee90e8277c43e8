package ingest

import (
	"sort"
	"strings"

	"github.com/mwantia/alder/pkg/db/models"
)

// NormalizeSides trims, drops blanks, sorts and de-duplicates the side list
// of a repeated variable. Left and right are reported as "Left" and "Right"
// whatever their casing. When a single distinct side remains the opposite
// side is appended: the service omits the redundant tag when both sides
// were acquired.
func NormalizeSides(sides []string) []string {
	seen := make(map[string]bool, len(sides))
	var out []string
	for _, s := range sides {
		s = canonicalSide(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})

	if len(out) == 1 {
		switch strings.ToLower(out[0]) {
		case models.LateralityLeft:
			out = append(out, "Right")
		case models.LateralityRight:
			out = append(out, "Left")
		}
	}
	return out
}

func canonicalSide(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case models.LateralityLeft:
		return "Left"
	case models.LateralityRight:
		return "Right"
	}
	return s
}

// ResolveSideIndex returns the position in the normalized side list that
// matches laterality, or -1.
func ResolveSideIndex(sides []string, laterality string) int {
	for i, s := range NormalizeSides(sides) {
		if strings.EqualFold(s, strings.TrimSpace(laterality)) {
			return i
		}
	}
	return -1
}
