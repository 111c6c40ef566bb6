// Package recommend builds a personalized video list from a viewer's watch
// history and likes, falling back to trending content.
package recommend

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"example.com/longform/internal/auth"
	"example.com/longform/internal/domain"
	"example.com/longform/internal/logging"
	"example.com/longform/internal/metrics"
)

// Catalog is the slice of the catalog gateway the engine reads.
type Catalog interface {
	Trending(ctx context.Context, limit int) ([]domain.Video, error)
	ChannelRecent(ctx context.Context, channelID string, limit int) ([]domain.Video, error)
}

// Signals is the slice of the repository the engine reads.
type Signals interface {
	ListWatchByUser(ctx context.Context, userID string, limit int) ([]domain.WatchHistory, error)
	ListInteractionsByType(ctx context.Context, userID string, t domain.InteractionType) ([]domain.VideoInteraction, error)
	GetVideo(ctx context.Context, id string) (domain.Video, error)
}

type Config struct {
	HistoryWindow int // most recent watch entries considered
	WatchWeight   int
	LikeWeight    int
	TopChannels   int
	PerChannel    int // videos requested per top channel
	MinCandidates int // below this, backfill with trending
	Target        int // backfill tops the list up to this size
	Concurrency   int // parallel channel fetches
}

func DefaultConfig() Config {
	return Config{
		HistoryWindow: 50,
		WatchWeight:   1,
		LikeWeight:    3,
		TopChannels:   3,
		PerChannel:    10,
		MinCandidates: 20,
		Target:        30,
		Concurrency:   3,
	}
}

type Engine struct {
	catalog Catalog
	signals Signals
	cfg     Config
	log     zerolog.Logger
}

// New fills zero fields of cfg from DefaultConfig.
func New(catalog Catalog, signals Signals, cfg Config) *Engine {
	d := DefaultConfig()
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = d.HistoryWindow
	}
	if cfg.WatchWeight <= 0 {
		cfg.WatchWeight = d.WatchWeight
	}
	if cfg.LikeWeight <= 0 {
		cfg.LikeWeight = d.LikeWeight
	}
	if cfg.TopChannels <= 0 {
		cfg.TopChannels = d.TopChannels
	}
	if cfg.PerChannel <= 0 {
		cfg.PerChannel = d.PerChannel
	}
	if cfg.MinCandidates <= 0 {
		cfg.MinCandidates = d.MinCandidates
	}
	if cfg.Target <= 0 {
		cfg.Target = d.Target
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = d.Concurrency
	}
	return &Engine{catalog: catalog, signals: signals, cfg: cfg, log: logging.Component("recommend")}
}

// Recommend returns unfiltered candidates; the content filter is applied by
// the caller. Anonymous callers get the trending list unchanged.
func (e *Engine) Recommend(ctx context.Context, id auth.Identity) ([]domain.Video, error) {
	if !id.Authenticated() {
		metrics.Recommendations.WithLabelValues("anonymous").Inc()
		return e.catalog.Trending(ctx, 0)
	}
	metrics.Recommendations.WithLabelValues("personalized").Inc()

	history, err := e.signals.ListWatchByUser(ctx, id.UserID, e.cfg.HistoryWindow)
	if err != nil {
		return nil, err
	}
	likes, err := e.signals.ListInteractionsByType(ctx, id.UserID, domain.InteractionLike)
	if err != nil {
		return nil, err
	}

	watched := make(map[string]bool, len(history))
	for _, h := range history {
		watched[h.VideoID] = true
	}

	weights := e.channelWeights(ctx, history, likes)
	top := TopChannels(weights, e.cfg.TopChannels)

	candidates := e.fetchChannels(ctx, top, watched)

	if len(candidates) < e.cfg.MinCandidates {
		trending, err := e.catalog.Trending(ctx, e.cfg.Target-len(candidates))
		if err != nil {
			return nil, err
		}
		present := make(map[string]bool, len(candidates))
		for _, c := range candidates {
			present[c.ID] = true
		}
		for _, v := range trending {
			if watched[v.ID] || present[v.ID] {
				continue
			}
			present[v.ID] = true
			candidates = append(candidates, v)
		}
	}

	metrics.RecommendationSize.Observe(float64(len(candidates)))
	return candidates, nil
}

// ChannelWeight is one channel's accumulated affinity.
type ChannelWeight struct {
	ChannelID string
	Weight    int
}

// channelWeights scores each channel, keeping first-seen order. Every entry
// counts, so a video watched twice contributes twice. Videos that cannot be
// read from the repository are skipped.
func (e *Engine) channelWeights(ctx context.Context, history []domain.WatchHistory, likes []domain.VideoInteraction) []ChannelWeight {
	memo := make(map[string]string) // video id -> channel id, "" when unknown
	channelOf := func(videoID string) string {
		if ch, ok := memo[videoID]; ok {
			return ch
		}
		v, err := e.signals.GetVideo(ctx, videoID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			e.log.Debug().Err(err).Str("video_id", videoID).Msg("video hydration failed")
		}
		memo[videoID] = v.ChannelID
		return v.ChannelID
	}

	var out []ChannelWeight
	index := make(map[string]int)
	add := func(videoID string, w int) {
		ch := channelOf(videoID)
		if ch == "" {
			return
		}
		if i, ok := index[ch]; ok {
			out[i].Weight += w
			return
		}
		index[ch] = len(out)
		out = append(out, ChannelWeight{ChannelID: ch, Weight: w})
	}

	for _, h := range history {
		add(h.VideoID, e.cfg.WatchWeight)
	}
	for _, l := range likes {
		add(l.VideoID, e.cfg.LikeWeight)
	}
	return out
}

// TopChannels ranks by weight descending; ties keep their input order.
func TopChannels(weights []ChannelWeight, n int) []string {
	ranked := append([]ChannelWeight(nil), weights...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Weight > ranked[j].Weight })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, 0, len(ranked))
	for _, w := range ranked {
		out = append(out, w.ChannelID)
	}
	return out
}

// fetchChannels queries each channel concurrently. A failed channel is logged
// and contributes nothing; siblings are unaffected. Results are merged in
// channel order and the first occurrence of a video wins.
func (e *Engine) fetchChannels(ctx context.Context, channels []string, watched map[string]bool) []domain.Video {
	results := make([][]domain.Video, len(channels))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, ch := range channels {
		g.Go(func() error {
			videos, err := e.catalog.ChannelRecent(ctx, ch, e.cfg.PerChannel)
			if err != nil {
				metrics.ChannelFetchFailures.Inc()
				logging.Ctx(ctx).Warn().Err(err).Str("component", "recommend").Str("channel_id", ch).Msg("channel fetch failed")
				return nil
			}
			results[i] = videos
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Video, 0, len(channels)*e.cfg.PerChannel)
	seen := make(map[string]bool)
	for _, videos := range results {
		for _, v := range videos {
			if watched[v.ID] || seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			out = append(out, v)
		}
	}
	return out
}
