// Package catalog talks to the external video catalog (YouTube Data API v3)
// and caches everything it fetches in the repository.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"example.com/longform/internal/domain"
	"example.com/longform/internal/logging"
	"example.com/longform/internal/metrics"
)

// Client returns raw catalog records. Implementations bound every call in time
// and report failures as *domain.UpstreamError.
type Client interface {
	// Chart lists the most popular videos, optionally within a category.
	Chart(ctx context.Context, categoryID string, maxResults int64) ([]*youtube.Video, error)
	VideosByID(ctx context.Context, ids []string) ([]*youtube.Video, error)
	Search(ctx context.Context, p SearchParams) ([]*youtube.SearchResult, error)
	Categories(ctx context.Context) ([]*youtube.VideoCategory, error)
}

type SearchParams struct {
	Query      string
	ChannelID  string
	Order      string
	MaxResults int64
}

var videoParts = []string{"snippet", "contentDetails", "statistics", "player"}

// videosPerRequest is the videos.list id cap.
const videosPerRequest = 50

type YouTubeConfig struct {
	APIKey     string
	BaseURL    string // empty uses the public endpoint
	RegionCode string
	Timeout    time.Duration
	RatePerSec float64
	// PlayerMaxHeight makes the API return embed dimensions, which carry the
	// aspect ratio.
	PlayerMaxHeight int64
}

type YouTubeClient struct {
	svc     *youtube.Service
	cb      *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter
	timeout time.Duration
	region  string
	maxH    int64
}

var _ Client = (*YouTubeClient)(nil)

func NewYouTubeClient(ctx context.Context, cfg YouTubeConfig) (*YouTubeClient, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	// WithHTTPClient replaces WithAPIKey, so the key rides on the transport.
	hc := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &transport.APIKey{Key: cfg.APIKey, Transport: http.DefaultTransport},
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	limit := rate.Inf
	burst := 1
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
		burst = max(1, int(cfg.RatePerSec))
	}

	return &YouTubeClient{
		svc:     svc,
		cb:      newBreaker("youtube-api"),
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.Timeout,
		region:  cfg.RegionCode,
		maxH:    cfg.PlayerMaxHeight,
	}, nil
}

// newBreaker opens after 60% failures over at least 10 requests in a minute
// and probes again after 30s. Client errors other than 429 do not count.
func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	log := logging.Component("catalog")
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var gerr *googleapi.Error
			if errors.As(err, &gerr) {
				return gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != http.StatusTooManyRequests
			}
			return false
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// call runs fn behind the limiter, the per-call timeout and the breaker.
func call[T any](ctx context.Context, c *YouTubeClient, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.CatalogRequests.WithLabelValues(op, "rejected").Inc()
		return zero, &domain.UpstreamError{Op: op, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.cb.Execute(func() (any, error) { return fn(ctx) })
	metrics.CatalogLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.CatalogRequests.WithLabelValues(op, outcome).Inc()
		return zero, upstreamError(op, err)
	}
	metrics.CatalogRequests.WithLabelValues(op, "ok").Inc()
	out, ok := res.(T)
	if !ok {
		return zero, &domain.UpstreamError{Op: op, Err: fmt.Errorf("unexpected result type %T", res)}
	}
	return out, nil
}

func upstreamError(op string, err error) *domain.UpstreamError {
	ue := &domain.UpstreamError{Op: op, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		ue.Status = gerr.Code
	}
	return ue
}

func (c *YouTubeClient) videosCall(ctx context.Context) *youtube.VideosListCall {
	req := c.svc.Videos.List(videoParts).Context(ctx)
	if c.maxH > 0 {
		req = req.MaxHeight(c.maxH)
	}
	return req
}

func (c *YouTubeClient) Chart(ctx context.Context, categoryID string, maxResults int64) ([]*youtube.Video, error) {
	return call(ctx, c, "chart", func(ctx context.Context) ([]*youtube.Video, error) {
		req := c.videosCall(ctx).Chart("mostPopular").MaxResults(clampResults(maxResults))
		if c.region != "" {
			req = req.RegionCode(c.region)
		}
		if categoryID != "" {
			req = req.VideoCategoryId(categoryID)
		}
		resp, err := req.Do()
		if err != nil {
			return nil, err
		}
		return resp.Items, nil
	})
}

// VideosByID fetches details in chunks of 50 ids. Unknown ids are omitted.
func (c *YouTubeClient) VideosByID(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	var out []*youtube.Video
	for start := 0; start < len(ids); start += videosPerRequest {
		chunk := ids[start:min(start+videosPerRequest, len(ids))]
		items, err := call(ctx, c, "videos", func(ctx context.Context) ([]*youtube.Video, error) {
			resp, err := c.videosCall(ctx).Id(chunk...).Do()
			if err != nil {
				return nil, err
			}
			return resp.Items, nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (c *YouTubeClient) Search(ctx context.Context, p SearchParams) ([]*youtube.SearchResult, error) {
	return call(ctx, c, "search", func(ctx context.Context) ([]*youtube.SearchResult, error) {
		req := c.svc.Search.List([]string{"snippet"}).Context(ctx).
			Type("video").
			MaxResults(clampResults(p.MaxResults))
		if p.Query != "" {
			req = req.Q(p.Query)
		}
		if p.ChannelID != "" {
			req = req.ChannelId(p.ChannelID)
		}
		if p.Order != "" {
			req = req.Order(p.Order)
		}
		resp, err := req.Do()
		if err != nil {
			return nil, err
		}
		return resp.Items, nil
	})
}

func (c *YouTubeClient) Categories(ctx context.Context) ([]*youtube.VideoCategory, error) {
	return call(ctx, c, "categories", func(ctx context.Context) ([]*youtube.VideoCategory, error) {
		req := c.svc.VideoCategories.List([]string{"snippet"}).Context(ctx)
		region := c.region
		if region == "" {
			region = "US"
		}
		resp, err := req.RegionCode(region).Do()
		if err != nil {
			return nil, err
		}
		return resp.Items, nil
	})
}

func clampResults(n int64) int64 {
	switch {
	case n <= 0:
		return 1
	case n > domain.MaxCatalogResults:
		return domain.MaxCatalogResults
	default:
		return n
	}
}
