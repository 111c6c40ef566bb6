package content

import (
	"example.com/longform/internal/domain"
	"example.com/longform/internal/duration"
)

// Apply returns the videos that pass f, in input order. It never mutates its
// input and always returns a non-nil slice.
func Apply(videos []domain.Video, f domain.Filter) []domain.Video {
	out := make([]domain.Video, 0, len(videos))
	for _, v := range videos {
		if Passes(v, f) {
			out = append(out, v)
		}
	}
	return out
}

// Passes reads the cached IsShort/IsVertical flags; it does not reclassify.
// Videos without a duration always pass the minimum-duration rule.
func Passes(v domain.Video, f domain.Filter) bool {
	if f.ExcludeShorts && v.IsShort {
		return false
	}
	if f.ExcludeVertical && v.IsVertical {
		return false
	}
	if f.MinDuration > 0 && v.Duration != "" && duration.Parse(v.Duration) < f.MinDuration*60 {
		return false
	}
	return true
}
