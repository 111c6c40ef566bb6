// Package content classifies catalog videos and applies the viewer's
// content filter to video listings.
package content

import (
	"strings"

	"example.com/longform/internal/domain"
	"example.com/longform/internal/duration"
)

// DefaultShortMaxSeconds is the longest duration still treated as short-form.
const DefaultShortMaxSeconds = 60

var shortTags = []string{"#shorts", "#short"}

// Classifier decides short-form status. The zero value uses
// DefaultShortMaxSeconds.
type Classifier struct {
	MaxSeconds int
}

// IsShort is true when the duration is present and at most MaxSeconds, or when
// the title or description carries a #shorts/#short tag.
func (c Classifier) IsShort(v domain.Video) bool {
	max := c.MaxSeconds
	if max <= 0 {
		max = DefaultShortMaxSeconds
	}
	if v.Duration != "" && duration.Parse(v.Duration) <= max {
		return true
	}
	return hasShortTag(v.Title) || hasShortTag(v.Description)
}

// IsVertical reports portrait dimensions; unknown dimensions are not vertical.
func IsVertical(width, height int) bool {
	return width > 0 && height > 0 && width < height
}

func hasShortTag(s string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, tag := range shortTags {
		if strings.Contains(s, tag) {
			return true
		}
	}
	return false
}
