package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"example.com/longform/internal/domain"
	"example.com/longform/internal/logging"
	"example.com/longform/internal/storage"
)

// Cache is the part of the repository the gateway writes through.
type Cache interface {
	storage.VideoStore
	storage.ChannelStore
	storage.CategoryStore
}

const (
	DefaultTrendingMax = 24
	searchMax          = 24
	relatedChannelMax  = 10
	relatedTotal       = 15
	relatedTitleWords  = 3
)

// Gateway serves normalized catalog reads. Every video it returns has been
// offered to the cache first; cache write failures are logged, not returned.
type Gateway struct {
	client      Client
	cache       Cache
	norm        Normalizer
	trendingMax int
	log         zerolog.Logger
}

func NewGateway(client Client, cache Cache, norm Normalizer, trendingMax int) *Gateway {
	if trendingMax <= 0 {
		trendingMax = DefaultTrendingMax
	}
	return &Gateway{
		client:      client,
		cache:       cache,
		norm:        norm,
		trendingMax: trendingMax,
		log:         logging.Component("catalog"),
	}
}

// Trending lists the most popular chart. limit <= 0 uses the configured size.
func (g *Gateway) Trending(ctx context.Context, limit int) ([]domain.Video, error) {
	return g.chart(ctx, "", limit)
}

// ByCategory accepts "trending", "popular" or a numeric category id.
func (g *Gateway) ByCategory(ctx context.Context, categoryID string) ([]domain.Video, error) {
	switch categoryID {
	case "trending", "popular":
		return g.chart(ctx, "", 0)
	}
	if !isDigits(categoryID) {
		return nil, domain.NewValidationError("categoryId must be \"trending\", \"popular\" or a numeric id",
			domain.FieldError{Field: "categoryId", Msg: "invalid"})
	}
	return g.chart(ctx, categoryID, 0)
}

func (g *Gateway) chart(ctx context.Context, categoryID string, limit int) ([]domain.Video, error) {
	if limit <= 0 {
		limit = g.trendingMax
	}
	raw, err := g.client.Chart(ctx, categoryID, int64(limit))
	if err != nil {
		return nil, err
	}
	videos := g.norm.Videos(raw)
	g.persist(ctx, videos)
	return videos, nil
}

// Video is cache-first; a miss goes upstream, and an unknown id is
// domain.ErrNotFound.
func (g *Gateway) Video(ctx context.Context, id string) (domain.Video, error) {
	v, err := g.cache.GetVideo(ctx, id)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		g.log.Warn().Err(err).Str("video_id", id).Msg("video cache read failed")
	}
	raw, err := g.client.VideosByID(ctx, []string{id})
	if err != nil {
		return domain.Video{}, err
	}
	videos := g.norm.Videos(raw)
	if len(videos) == 0 {
		return domain.Video{}, domain.ErrNotFound
	}
	g.persist(ctx, videos[:1])
	return videos[0], nil
}

// Related lists same-channel uploads first, then backfills with a search on
// the first words of the title. An unknown video has no related videos.
func (g *Gateway) Related(ctx context.Context, id string) ([]domain.Video, error) {
	v, err := g.Video(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Video{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.Video, 0, relatedTotal)
	seen := map[string]bool{id: true}
	add := func(vs []domain.Video) {
		for _, c := range vs {
			if len(out) >= relatedTotal || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
	}

	if v.ChannelID != "" {
		same, err := g.searchDetailed(ctx, SearchParams{ChannelID: v.ChannelID, MaxResults: relatedChannelMax}, true)
		if err != nil {
			return nil, err
		}
		add(same)
	}

	if len(out) < relatedChannelMax {
		if terms := titleTerms(v.Title); terms != "" {
			more, err := g.searchDetailed(ctx, SearchParams{Query: terms, MaxResults: int64(relatedTotal - len(out))}, true)
			if err != nil {
				return nil, err
			}
			add(more)
		}
	}
	return out, nil
}

// Search runs a free-text search and upgrades each hit to its full record.
func (g *Gateway) Search(ctx context.Context, q string) ([]domain.Video, error) {
	return g.searchDetailed(ctx, SearchParams{Query: q, MaxResults: searchMax}, true)
}

// ChannelRecent lists a channel's newest uploads. A failed detail fetch is an
// error: uploads without a duration cannot be classified.
func (g *Gateway) ChannelRecent(ctx context.Context, channelID string, limit int) ([]domain.Video, error) {
	return g.searchDetailed(ctx, SearchParams{ChannelID: channelID, Order: "date", MaxResults: int64(limit)}, false)
}

// searchDetailed keeps search order. With partial set, hits whose details
// cannot be fetched fall back to the cached record, then to the snippet.
// Only full records are persisted.
func (g *Gateway) searchDetailed(ctx context.Context, p SearchParams, partial bool) ([]domain.Video, error) {
	raw, err := g.client.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	hits := g.norm.SearchResults(raw)
	if len(hits) == 0 {
		return hits, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	details, err := g.client.VideosByID(ctx, ids)
	if err != nil {
		if !partial {
			return nil, err
		}
		g.log.Warn().Err(err).Int("hits", len(hits)).Msg("search detail fetch failed, using cache and snippets")
	}
	full := g.norm.Videos(details)
	byID := make(map[string]domain.Video, len(full))
	for _, d := range full {
		byID[d.ID] = d
	}
	for i, h := range hits {
		if d, ok := byID[h.ID]; ok {
			hits[i] = d
			continue
		}
		if cached, err := g.cache.GetVideo(ctx, h.ID); err == nil {
			hits[i] = cached
		}
	}
	g.persist(ctx, full)
	return hits, nil
}

// Channel returns the cached channel stub, learning it from the channel's
// newest upload when it was never seen.
func (g *Gateway) Channel(ctx context.Context, id string) (domain.Channel, error) {
	c, err := g.cache.GetChannel(ctx, id)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Channel{}, err
	}
	videos, err := g.ChannelRecent(ctx, id, 1)
	if err != nil {
		return domain.Channel{}, err
	}
	if len(videos) == 0 {
		return domain.Channel{}, domain.ErrNotFound
	}
	return domain.Channel{ID: id, Title: videos[0].ChannelTitle}, nil
}

// Categories is cache-first; an empty cache is filled from upstream.
func (g *Gateway) Categories(ctx context.Context) ([]domain.Category, error) {
	cached, err := g.cache.ListCategories(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("category cache read failed")
	} else if len(cached) > 0 {
		return cached, nil
	}
	raw, err := g.client.Categories(ctx)
	if err != nil {
		return nil, err
	}
	cats := g.norm.Categories(raw)
	if err := g.cache.UpsertCategories(context.WithoutCancel(ctx), cats); err != nil {
		g.log.Warn().Err(err).Msg("category cache write failed")
	}
	return cats, nil
}

func (g *Gateway) persist(ctx context.Context, videos []domain.Video) {
	if len(videos) == 0 {
		return
	}
	// The cache write outlives a cancelled request.
	ctx = context.WithoutCancel(ctx)
	if err := g.cache.UpsertVideos(ctx, videos); err != nil {
		g.log.Warn().Err(err).Int("count", len(videos)).Msg("video cache write failed")
	}
	channels := make([]domain.Channel, 0, len(videos))
	for _, v := range videos {
		if v.ChannelID != "" {
			channels = append(channels, domain.Channel{ID: v.ChannelID, Title: v.ChannelTitle})
		}
	}
	if err := g.cache.UpsertChannels(ctx, channels); err != nil {
		g.log.Warn().Err(err).Int("count", len(channels)).Msg("channel cache write failed")
	}
}

func titleTerms(title string) string {
	words := strings.Fields(title)
	if len(words) > relatedTitleWords {
		words = words[:relatedTitleWords]
	}
	return strings.Join(words, " ")
}

func isDigits(s string) bool {
	if s == "" || len(s) > 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
