package transporthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/longform/internal/activity"
	"example.com/longform/internal/auth"
	"example.com/longform/internal/config"
	"example.com/longform/internal/domain"
	"example.com/longform/internal/storage"
)

// Catalog is the read side of the catalog gateway.
type Catalog interface {
	Trending(ctx context.Context, limit int) ([]domain.Video, error)
	ByCategory(ctx context.Context, categoryID string) ([]domain.Video, error)
	Video(ctx context.Context, id string) (domain.Video, error)
	Related(ctx context.Context, id string) ([]domain.Video, error)
	Search(ctx context.Context, q string) ([]domain.Video, error)
	Channel(ctx context.Context, id string) (domain.Channel, error)
	ChannelRecent(ctx context.Context, channelID string, limit int) ([]domain.Video, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

type Recommender interface {
	Recommend(ctx context.Context, id auth.Identity) ([]domain.Video, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) (auth.Identity, error)
}

// SearchLog accepts search queries without blocking.
type SearchLog interface {
	Enqueue(q domain.SearchQuery) bool
}

// Pinger reports whether the repository is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServerDeps struct {
	Cfg         config.ServerConfig
	Catalog     Catalog
	Recommender Recommender
	Tracker     *activity.Tracker
	Identity    IdentityResolver
	Prefs       storage.PreferenceStore
	Searches    storage.SearchQueryStore
	SearchLog   SearchLog
	Repo        Pinger
	Now         func() time.Time
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog)
	if origins := d.Cfg.CORSOriginList(); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", d.HandleHealthz)
	r.Get("/readyz", d.HandleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.Cfg.RateLimitPerMin > 0 {
			r.Use(httprate.Limit(d.Cfg.RateLimitPerMin, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					WriteProblem(w, http.StatusTooManyRequests, "rate limit exceeded", "try again later", nil)
				}),
			))
		}

		r.Get("/videos/trending", d.withIdentity(d.HandleTrending))
		r.Get("/videos/category/{categoryId}", d.withIdentity(d.HandleCategory))
		r.Get("/videos/{id}", d.withIdentity(d.HandleVideo))
		r.Get("/videos/{id}/related", d.withIdentity(d.HandleRelated))
		r.Get("/channels/{id}", d.withIdentity(d.HandleChannel))
		r.Get("/search", d.withIdentity(d.HandleSearch))
		r.Get("/search/recent", d.HandleRecentSearches)
		r.Get("/categories", d.HandleCategories)
		r.Get("/recommendations", d.withIdentity(d.HandleRecommendations))
		r.Get("/preferences", d.withIdentity(d.HandleGetPreferences))
		r.Get("/watch-history", d.requireIdentity(d.HandleListWatchHistory))
		r.Get("/video-interactions", d.requireIdentity(d.HandleListInteractions))
		r.Delete("/video-interactions", d.requireIdentity(d.HandleDeleteInteraction))

		r.Group(func(r chi.Router) {
			r.Use(RequireJSON)
			r.Use(BodyLimit(d.Cfg.MaxBodyBytes))
			r.Post("/preferences", d.withIdentity(d.HandlePostPreferences))
			r.Post("/watch-history", d.requireIdentity(d.HandlePostWatchHistory))
			r.Post("/video-interactions", d.requireIdentity(d.HandlePostInteraction))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteProblem(w, http.StatusNotFound, "not found", "no such route", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteProblem(w, http.StatusMethodNotAllowed, "method not allowed", r.Method+" is not supported here", nil)
	})
	return r
}

// identityHandler receives the resolved caller as an explicit argument.
type identityHandler func(w http.ResponseWriter, r *http.Request, id auth.Identity)

// withIdentity resolves the Authorization header; a bad token is a 401,
// a missing one is anonymous.
func (d *ServerDeps) withIdentity(h identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := d.Identity.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			DrainBody(r)
			writeError(r.Context(), w, err)
			return
		}
		h(w, r, id)
	}
}

// requireIdentity is withIdentity that also rejects anonymous callers before
// the handler runs.
func (d *ServerDeps) requireIdentity(h identityHandler) http.HandlerFunc {
	return d.withIdentity(func(w http.ResponseWriter, r *http.Request, id auth.Identity) {
		if !id.Authenticated() {
			DrainBody(r)
			writeError(r.Context(), w, domain.ErrUnauthenticated)
			return
		}
		h(w, r, id)
	})
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := d.Repo.Ping(r.Context()); err != nil {
		WriteProblem(w, http.StatusServiceUnavailable, "not ready", "repository not reachable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
