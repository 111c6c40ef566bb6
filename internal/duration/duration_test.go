package duration

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]int{
		"PT1H2M3S": 3723,
		"PT45S":    45,
		"PT10M":    600,
		"PT2H":     7200,
		"PT1H5S":   3605,
		"P0D":      0,
		"P1DT2H":   93600,
		"P2D":      172800,
		"PT":       0,
		"":         0,
		"garbage":  0,
	}
	for in, want := range cases {
		require.Equal(t, want, Parse(in), in)
	}
}

func TestFormat(t *testing.T) {
	require.Equal(t, "1:02:03", Format(3723))
	require.Equal(t, "2:05", Format(125))
	require.Equal(t, "0:00", Format(0))
	require.Equal(t, "10:00:00", Format(36000))
	require.Equal(t, "0:00", Format(-5))
}

func TestFormatParseCanonical(t *testing.T) {
	for _, secs := range []int{0, 59, 60, 61, 3599, 3600, 3723, 86399} {
		h, m, s := secs/3600, (secs%3600)/60, secs%60
		encoded := "PT"
		if h > 0 {
			encoded += strconv.Itoa(h) + "H"
		}
		if m > 0 {
			encoded += strconv.Itoa(m) + "M"
		}
		encoded += strconv.Itoa(s) + "S"
		require.Equal(t, secs, Parse(encoded), encoded)
	}
}
