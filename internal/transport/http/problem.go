package transporthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"example.com/longform/internal/domain"
	"example.com/longform/internal/logging"
)

type Problem struct {
	Type     string              `json:"type,omitempty"`
	Title    string              `json:"title,omitempty"`
	Status   int                 `json:"status,omitempty"`
	Detail   string              `json:"detail,omitempty"`
	Instance string              `json:"instance,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Meta     map[string]any      `json:"meta,omitempty"`
}

func WriteProblem(w http.ResponseWriter, status int, title, detail string, errs map[string][]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:  title,
		Status: status,
		Detail: detail,
		Errors: errs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto problem responses.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		ve *domain.ValidationError
		ue *domain.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		var fields map[string][]string
		if len(ve.Fields) > 0 {
			fields = make(map[string][]string, len(ve.Fields))
			for _, fe := range ve.Fields {
				fields[fe.Field] = append(fields[fe.Field], fe.Msg)
			}
		}
		WriteProblem(w, http.StatusBadRequest, "validation failed", ve.Message, fields)
	case errors.Is(err, domain.ErrUnauthenticated):
		WriteProblem(w, http.StatusUnauthorized, "unauthorized", "not authenticated", nil)
	case errors.Is(err, domain.ErrNotFound):
		WriteProblem(w, http.StatusNotFound, "not found", "resource not found", nil)
	case errors.As(err, &ue):
		logging.Ctx(ctx).Error().Err(err).Str("op", ue.Op).Int("upstream_status", ue.Status).Msg("catalog request failed")
		detail := "catalog service unavailable"
		if ue.Status > 0 {
			detail = fmt.Sprintf("catalog service returned status %d", ue.Status)
		}
		WriteProblem(w, http.StatusInternalServerError, "upstream error", detail, nil)
	default:
		logging.Ctx(ctx).Error().Err(err).Msg("request failed")
		WriteProblem(w, http.StatusInternalServerError, "internal error", "unexpected error", nil)
	}
}
