package domain

import "time"

type InteractionType string

const (
	InteractionLike    InteractionType = "like"
	InteractionDislike InteractionType = "dislike"
	InteractionSave    InteractionType = "save"
	InteractionShare   InteractionType = "share"
)

// Valid reports whether t is one of the known interaction types.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionLike, InteractionDislike, InteractionSave, InteractionShare:
		return true
	}
	return false
}

// WatchHistory is one watch session. Entries are append-only; repeat views of
// the same video produce repeat entries.
type WatchHistory struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"userId"`
	VideoID       string    `json:"videoId"`
	WatchedAt     time.Time `json:"watchedAt"`
	WatchDuration *int      `json:"watchDuration"`
	Completed     bool      `json:"completed"`
}

// VideoInteraction is unique per (UserID, VideoID, InteractionType).
type VideoInteraction struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"userId"`
	VideoID         string          `json:"videoId"`
	InteractionType InteractionType `json:"interactionType"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// WatchHistoryWithVideo carries the cached video when it could be hydrated.
type WatchHistoryWithVideo struct {
	WatchHistory
	Video *Video `json:"video,omitempty"`
}

type InteractionWithVideo struct {
	VideoInteraction
	Video *Video `json:"video,omitempty"`
}
