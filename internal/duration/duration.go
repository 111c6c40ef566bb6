// Package duration converts the catalog's compact ISO 8601 durations
// (P#DT#H#M#S) to seconds and renders seconds as clock strings.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
)

var pattern = regexp.MustCompile(`P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?`)

// Parse returns days*86400 + hours*3600 + minutes*60 + seconds. Absent
// components count as zero; input with no recognizable component yields 0.
func Parse(encoded string) int {
	m := pattern.FindStringSubmatch(encoded)
	if m == nil {
		return 0
	}
	return atoi(m[1])*86400 + atoi(m[2])*3600 + atoi(m[3])*60 + atoi(m[4])
}

// Format renders seconds as "H:MM:SS", or "M:SS" when the hour part is zero.
// Negative input is treated as zero.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
