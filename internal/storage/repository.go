// Package storage declares the repository the rest of the service persists
// through. Implementations live in storage/memory and storage/postgres.
package storage

import (
	"context"

	"example.com/longform/internal/domain"
)

// VideoStore caches normalized catalog videos; upserts overwrite by id.
type VideoStore interface {
	UpsertVideos(ctx context.Context, videos []domain.Video) error
	// GetVideo returns domain.ErrNotFound when the id was never cached.
	GetVideo(ctx context.Context, id string) (domain.Video, error)
}

type ChannelStore interface {
	UpsertChannels(ctx context.Context, channels []domain.Channel) error
	GetChannel(ctx context.Context, id string) (domain.Channel, error)
}

type CategoryStore interface {
	UpsertCategories(ctx context.Context, categories []domain.Category) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type SearchQueryStore interface {
	// InsertSearchQueries assigns ids and returns the number stored.
	InsertSearchQueries(ctx context.Context, queries []domain.SearchQuery) (int64, error)
	ListRecentSearchQueries(ctx context.Context, limit int) ([]domain.SearchQuery, error)
}

type UserStore interface {
	// UpsertUser creates the user or refreshes username and last-seen time.
	UpsertUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
}

type PreferenceStore interface {
	// GetPreference returns the default filter when nothing was saved.
	GetPreference(ctx context.Context, userID string) (domain.UserPreference, error)
	SavePreference(ctx context.Context, p domain.UserPreference) (domain.UserPreference, error)
}

// HistoryStore is append-only.
type HistoryStore interface {
	AppendWatch(ctx context.Context, h domain.WatchHistory) (domain.WatchHistory, error)
	// ListWatchByUser is newest first; limit <= 0 means no limit.
	ListWatchByUser(ctx context.Context, userID string, limit int) ([]domain.WatchHistory, error)
}

// InteractionStore keeps at most one record per (user, video, type).
type InteractionStore interface {
	// UpsertInteraction inserts, or refreshes CreatedAt of the existing record.
	UpsertInteraction(ctx context.Context, in domain.VideoInteraction) (domain.VideoInteraction, error)
	// DeleteInteraction returns domain.ErrNotFound when nothing matched.
	DeleteInteraction(ctx context.Context, userID, videoID string, t domain.InteractionType) error
	// ListInteractions is newest first; an empty videoID lists every video.
	ListInteractions(ctx context.Context, userID, videoID string) ([]domain.VideoInteraction, error)
	ListInteractionsByType(ctx context.Context, userID string, t domain.InteractionType) ([]domain.VideoInteraction, error)
}

type Repository interface {
	VideoStore
	ChannelStore
	CategoryStore
	SearchQueryStore
	UserStore
	PreferenceStore
	HistoryStore
	InteractionStore

	Ping(ctx context.Context) error
	Close()
}
