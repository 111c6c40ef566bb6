package content

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/longform/internal/domain"
)

func TestIsShort(t *testing.T) {
	var c Classifier
	cases := []struct {
		name string
		v    domain.Video
		want bool
	}{
		{"exactly threshold", domain.Video{Duration: "PT1M"}, true},
		{"under threshold", domain.Video{Duration: "PT30S", Title: "long talk"}, true},
		{"just over", domain.Video{Duration: "PT1M1S"}, false},
		{"day-long stream", domain.Video{Duration: "P1DT2H"}, false},
		{"title tag", domain.Video{Duration: "PT10M", Title: "Fun clip #Shorts"}, true},
		{"singular tag", domain.Video{Title: "cat #short"}, true},
		{"description tag", domain.Video{Duration: "PT10M", Description: "watch #SHORTS"}, true},
		{"no signal", domain.Video{Title: "Lecture"}, false},
		{"malformed duration", domain.Video{Duration: "bogus"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, c.IsShort(tc.v))
		})
	}
}

func TestIsShort_ConfiguredThreshold(t *testing.T) {
	c := Classifier{MaxSeconds: 180}
	require.True(t, c.IsShort(domain.Video{Duration: "PT2M59S"}))
	require.False(t, c.IsShort(domain.Video{Duration: "PT3M1S"}))
}

func TestIsVertical(t *testing.T) {
	require.True(t, IsVertical(720, 1280))
	require.False(t, IsVertical(1280, 720))
	require.False(t, IsVertical(0, 1280))
	require.False(t, IsVertical(720, 720))
}

func TestApply(t *testing.T) {
	videos := []domain.Video{
		{ID: "a", Duration: "PT20M"},
		{ID: "b", Duration: "PT40S", IsShort: true},
		{ID: "c", Duration: "PT3M"},
		{ID: "d"},
		{ID: "e", Duration: "PT12M", IsVertical: true},
		{ID: "f", Duration: "PT8M"},
	}

	got := Apply(videos, domain.Filter{ExcludeShorts: true, MinDuration: 5})
	require.Equal(t, []string{"a", "d", "e", "f"}, ids(got))

	got = Apply(videos, domain.Filter{ExcludeVertical: true})
	require.Equal(t, []string{"a", "b", "c", "d", "f"}, ids(got))

	got = Apply(videos, domain.Filter{})
	require.Len(t, got, len(videos))
	require.Equal(t, "b", videos[1].ID)
}

func TestApply_ExcludeShortsIffShort(t *testing.T) {
	for _, v := range []domain.Video{{ID: "s", IsShort: true}, {ID: "l", Duration: "PT1H"}} {
		out := Apply([]domain.Video{v}, domain.Filter{ExcludeShorts: true})
		require.Equal(t, v.IsShort, len(out) == 0)
	}
}

func TestApply_Empty(t *testing.T) {
	out := Apply(nil, domain.DefaultFilter())
	require.NotNil(t, out)
	require.Empty(t, out)
}

func ids(vs []domain.Video) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}
