package transporthttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"example.com/longform/internal/auth"
	"example.com/longform/internal/content"
	"example.com/longform/internal/domain"
)

const (
	defaultRecentSearches = 10
	maxListLimit          = 100
	channelPageSize       = 24
)

// filterFor overlays the query parameters excludeShorts, excludeVertical and
// minDuration on the caller's stored preference.
func (d *ServerDeps) filterFor(r *http.Request, id auth.Identity) (domain.Filter, error) {
	pref, err := d.Prefs.GetPreference(r.Context(), id.UserID)
	if err != nil {
		return domain.Filter{}, err
	}
	f := pref.Filter
	q := r.URL.Query()

	var fields []domain.FieldError
	for name, dst := range map[string]*bool{"excludeShorts": &f.ExcludeShorts, "excludeVertical": &f.ExcludeVertical} {
		if raw := q.Get(name); raw != "" {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				fields = append(fields, domain.FieldError{Field: name, Msg: "must be a boolean"})
				continue
			}
			*dst = b
		}
	}
	if raw := q.Get("minDuration"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > domain.MaxMinDuration {
			fields = append(fields, domain.FieldError{Field: "minDuration", Msg: "must be an integer between 0 and 1440"})
		} else {
			f.MinDuration = n
		}
	}
	if len(fields) > 0 {
		return domain.Filter{}, domain.NewValidationError("invalid filter parameters", fields...)
	}
	return f, nil
}

// listVideos runs fetch and writes its result through the caller's filter.
func (d *ServerDeps) listVideos(w http.ResponseWriter, r *http.Request, id auth.Identity, fetch func(ctx context.Context) ([]domain.Video, error)) {
	f, err := d.filterFor(r, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	videos, err := fetch(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, content.Apply(videos, f))
}

func (d *ServerDeps) HandleTrending(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	d.listVideos(w, r, id, func(ctx context.Context) ([]domain.Video, error) {
		return d.Catalog.Trending(ctx, 0)
	})
}

func (d *ServerDeps) HandleCategory(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	categoryID := chi.URLParam(r, "categoryId")
	d.listVideos(w, r, id, func(ctx context.Context) ([]domain.Video, error) {
		return d.Catalog.ByCategory(ctx, categoryID)
	})
}

func (d *ServerDeps) HandleVideo(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	videoID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	v, err := d.Catalog.Video(r.Context(), videoID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (d *ServerDeps) HandleRelated(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	videoID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	d.listVideos(w, r, id, func(ctx context.Context) ([]domain.Video, error) {
		return d.Catalog.Related(ctx, videoID)
	})
}

type channelResponse struct {
	Channel domain.Channel `json:"channel"`
	Videos  []domain.Video `json:"videos"`
}

func (d *ServerDeps) HandleChannel(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	channelID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	f, err := d.filterFor(r, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	ch, err := d.Catalog.Channel(r.Context(), channelID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	videos, err := d.Catalog.ChannelRecent(r.Context(), channelID, channelPageSize)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, channelResponse{Channel: ch, Videos: content.Apply(videos, f)})
}

func (d *ServerDeps) HandleSearch(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(r.Context(), w, domain.NewValidationError("search query is required",
			domain.FieldError{Field: "q", Msg: "required"}))
		return
	}
	if len(q) > domain.MaxQueryLen {
		writeError(r.Context(), w, domain.NewValidationError("search query is too long",
			domain.FieldError{Field: "q", Msg: "max length " + strconv.Itoa(domain.MaxQueryLen)}))
		return
	}
	if d.SearchLog != nil && !d.SearchLog.Enqueue(domain.SearchQuery{Query: q, Timestamp: d.Now().UTC()}) {
		logAPI(r.Context()).Warn().Msg("search log queue full, query not recorded")
	}
	d.listVideos(w, r, id, func(ctx context.Context) ([]domain.Video, error) {
		return d.Catalog.Search(ctx, q)
	})
}

func (d *ServerDeps) HandleRecentSearches(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultRecentSearches)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	list, err := d.Searches.ListRecentSearchQueries(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (d *ServerDeps) HandleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := d.Catalog.Categories(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (d *ServerDeps) HandleRecommendations(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	d.listVideos(w, r, id, func(ctx context.Context) ([]domain.Video, error) {
		return d.Recommender.Recommend(ctx, id)
	})
}

// pathID returns a bounded, non-empty path parameter.
func pathID(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(chi.URLParam(r, name))
	if v == "" || len(v) > domain.MaxVideoIDLen {
		return "", domain.NewValidationError("invalid "+name, domain.FieldError{Field: name, Msg: "invalid"})
	}
	return v, nil
}

// queryLimit parses ?limit=, defaulting to def and capping at maxListLimit.
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, domain.NewValidationError("limit must be a positive integer",
			domain.FieldError{Field: "limit", Msg: "must be a positive integer"})
	}
	return min(n, maxListLimit), nil
}
