package transporthttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"example.com/longform/internal/auth"
	"example.com/longform/internal/domain"
	"example.com/longform/internal/logging"
)

const defaultHistoryLimit = 50

func logAPI(ctx context.Context) *zerolog.Logger {
	l := logging.Ctx(ctx).With().Str("component", "api").Logger()
	return &l
}

// decodeJSONStrict rejects unknown fields and trailing data, then validates.
func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return domain.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
		}
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required")
		}
		return domain.NewValidationError("invalid json: " + err.Error())
	}
	if dec.More() {
		return domain.NewValidationError("invalid json: unexpected data after object")
	}
	return domain.ValidateStruct(v)
}

// --- Watch history ---

type watchRequest struct {
	VideoID       string `json:"videoId" validate:"required,max=64"`
	WatchDuration *int   `json:"watchDuration,omitempty" validate:"omitempty,gte=0"`
	Completed     bool   `json:"completed"`
}

func (d *ServerDeps) HandlePostWatchHistory(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	defer DrainBody(r)
	var req watchRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	entry, err := d.Tracker.RecordWatch(r.Context(), id, req.VideoID, req.WatchDuration, req.Completed)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	logAPI(r.Context()).Debug().Str("user_id", id.UserID).Str("video_id", req.VideoID).Msg("watch recorded")
	writeJSON(w, http.StatusCreated, entry)
}

func (d *ServerDeps) HandleListWatchHistory(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	limit, err := queryLimit(r, defaultHistoryLimit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	list, err := d.Tracker.History(r.Context(), id, limit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- Interactions ---

type interactionRequest struct {
	VideoID         string                 `json:"videoId" validate:"required,max=64"`
	InteractionType domain.InteractionType `json:"interactionType" validate:"required,oneof=like dislike save share"`
}

func (d *ServerDeps) HandlePostInteraction(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	defer DrainBody(r)
	var req interactionRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	in, err := d.Tracker.ToggleInteraction(r.Context(), id, req.VideoID, req.InteractionType)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (d *ServerDeps) HandleListInteractions(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	q := r.URL.Query()
	list, err := d.Tracker.Interactions(r.Context(), id, q.Get("videoId"), domain.InteractionType(q.Get("type")))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (d *ServerDeps) HandleDeleteInteraction(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	q := r.URL.Query()
	videoID := q.Get("videoId")
	if videoID == "" {
		writeError(r.Context(), w, domain.NewValidationError("videoId is required",
			domain.FieldError{Field: "videoId", Msg: "required"}))
		return
	}
	if err := d.Tracker.RemoveInteraction(r.Context(), id, videoID, domain.InteractionType(q.Get("type"))); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Preferences ---

func (d *ServerDeps) HandleGetPreferences(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	pref, err := d.Prefs.GetPreference(r.Context(), id.UserID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// HandlePostPreferences merges the given fields onto the stored preference.
// Anonymous callers share one record.
func (d *ServerDeps) HandlePostPreferences(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	defer DrainBody(r)
	var patch domain.FilterPatch
	if err := decodeJSONStrict(r, &patch); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	current, err := d.Prefs.GetPreference(r.Context(), id.UserID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	saved, err := d.Prefs.SavePreference(r.Context(), domain.UserPreference{
		UserID:    id.UserID,
		Filter:    current.Filter.Merge(patch),
		UpdatedAt: d.Now().UTC(),
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
