// Package activity records what authenticated viewers watch and how they
// react to videos.
package activity

import (
	"context"
	"errors"
	"time"

	"example.com/longform/internal/auth"
	"example.com/longform/internal/domain"
	"example.com/longform/internal/logging"
	"example.com/longform/internal/storage"
)

type Store interface {
	storage.HistoryStore
	storage.InteractionStore
	storage.VideoStore
}

type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, now: now}
}

// RecordWatch always appends; watching a video twice yields two entries.
func (t *Tracker) RecordWatch(ctx context.Context, id auth.Identity, videoID string, watchDuration *int, completed bool) (domain.WatchHistory, error) {
	if !id.Authenticated() {
		return domain.WatchHistory{}, domain.ErrUnauthenticated
	}
	return t.store.AppendWatch(ctx, domain.WatchHistory{
		UserID:        id.UserID,
		VideoID:       videoID,
		WatchedAt:     t.now().UTC(),
		WatchDuration: watchDuration,
		Completed:     completed,
	})
}

// ToggleInteraction marks the video; marking it again only refreshes the
// timestamp. Use RemoveInteraction to clear a mark.
func (t *Tracker) ToggleInteraction(ctx context.Context, id auth.Identity, videoID string, it domain.InteractionType) (domain.VideoInteraction, error) {
	if !id.Authenticated() {
		return domain.VideoInteraction{}, domain.ErrUnauthenticated
	}
	if !it.Valid() {
		return domain.VideoInteraction{}, invalidType(it)
	}
	return t.store.UpsertInteraction(ctx, domain.VideoInteraction{
		UserID:          id.UserID,
		VideoID:         videoID,
		InteractionType: it,
		CreatedAt:       t.now().UTC(),
	})
}

// RemoveInteraction returns domain.ErrNotFound when there was no mark.
func (t *Tracker) RemoveInteraction(ctx context.Context, id auth.Identity, videoID string, it domain.InteractionType) error {
	if !id.Authenticated() {
		return domain.ErrUnauthenticated
	}
	if !it.Valid() {
		return invalidType(it)
	}
	return t.store.DeleteInteraction(ctx, id.UserID, videoID, it)
}

// History is newest first. Entries whose video is not cached carry no video.
func (t *Tracker) History(ctx context.Context, id auth.Identity, limit int) ([]domain.WatchHistoryWithVideo, error) {
	if !id.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	entries, err := t.store.ListWatchByUser(ctx, id.UserID, limit)
	if err != nil {
		return nil, err
	}
	hydrate := t.hydrator(ctx)
	out := make([]domain.WatchHistoryWithVideo, 0, len(entries))
	for _, h := range entries {
		out = append(out, domain.WatchHistoryWithVideo{WatchHistory: h, Video: hydrate(h.VideoID)})
	}
	return out, nil
}

// Interactions lists the caller's marks, optionally narrowed by type and video.
func (t *Tracker) Interactions(ctx context.Context, id auth.Identity, videoID string, it domain.InteractionType) ([]domain.InteractionWithVideo, error) {
	if !id.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	var (
		list []domain.VideoInteraction
		err  error
	)
	if it != "" {
		if !it.Valid() {
			return nil, invalidType(it)
		}
		list, err = t.store.ListInteractionsByType(ctx, id.UserID, it)
	} else {
		list, err = t.store.ListInteractions(ctx, id.UserID, videoID)
	}
	if err != nil {
		return nil, err
	}

	hydrate := t.hydrator(ctx)
	out := make([]domain.InteractionWithVideo, 0, len(list))
	for _, in := range list {
		if videoID != "" && in.VideoID != videoID {
			continue
		}
		out = append(out, domain.InteractionWithVideo{VideoInteraction: in, Video: hydrate(in.VideoID)})
	}
	return out, nil
}

// hydrator reads each video at most once per call.
func (t *Tracker) hydrator(ctx context.Context) func(videoID string) *domain.Video {
	memo := make(map[string]*domain.Video)
	return func(videoID string) *domain.Video {
		if v, ok := memo[videoID]; ok {
			return v
		}
		v, err := t.store.GetVideo(ctx, videoID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logging.Ctx(ctx).Warn().Err(err).Str("video_id", videoID).Msg("video hydration failed")
			}
			memo[videoID] = nil
			return nil
		}
		memo[videoID] = &v
		return &v
	}
}

func invalidType(it domain.InteractionType) error {
	return domain.NewValidationError("interactionType must be one of like, dislike, save, share",
		domain.FieldError{Field: "interactionType", Msg: "unknown value " + string(it)})
}
