package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/longform/internal/domain"
)

// --- Search queries ---

func (db *DB) InsertSearchQueries(ctx context.Context, queries []domain.SearchQuery) (int64, error) {
	if len(queries) == 0 {
		return 0, nil
	}
	rows := make([]string, 0, len(queries))
	args := make([]any, 0, len(queries)*2)
	argi := 1
	for _, q := range queries {
		args = append(args, q.Query, q.Timestamp)
		rows = append(rows, placeholders(argi, 2))
		argi += 2
	}
	sql := "INSERT INTO search_queries (query, ts) VALUES " + strings.Join(rows, ",")
	ct, err := db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (db *DB) ListRecentSearchQueries(ctx context.Context, limit int) ([]domain.SearchQuery, error) {
	lim, args := limitClause(limit, nil)
	rows, err := db.Pool.Query(ctx, "SELECT id, query, ts FROM search_queries ORDER BY ts DESC, id DESC"+lim, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.SearchQuery, error) {
		var q domain.SearchQuery
		err := r.Scan(&q.ID, &q.Query, &q.Timestamp)
		return q, err
	})
}

// --- Users ---

func (db *DB) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	created := u.CreatedAt
	if created.IsZero() {
		created = u.LastSeenAt
	}
	err := db.Pool.QueryRow(ctx, `
INSERT INTO users (id, username, created_at, last_seen_at) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET username=EXCLUDED.username, last_seen_at=EXCLUDED.last_seen_at
RETURNING id, username, created_at, last_seen_at`,
		u.ID, u.Username, created, u.LastSeenAt,
	).Scan(&u.ID, &u.Username, &u.CreatedAt, &u.LastSeenAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (db *DB) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := db.Pool.QueryRow(ctx, "SELECT id, username, created_at, last_seen_at FROM users WHERE id=$1", id).
		Scan(&u.ID, &u.Username, &u.CreatedAt, &u.LastSeenAt)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return u, nil
}

// --- Preferences ---

func (db *DB) GetPreference(ctx context.Context, userID string) (domain.UserPreference, error) {
	p := domain.UserPreference{UserID: userID}
	err := db.Pool.QueryRow(ctx, `
SELECT exclude_shorts, exclude_vertical, min_duration, updated_at
FROM user_preferences WHERE user_id=$1`, userID,
	).Scan(&p.ExcludeShorts, &p.ExcludeVertical, &p.MinDuration, &p.UpdatedAt)
	if err == nil {
		return p, nil
	}
	if err = notFound(err); err == domain.ErrNotFound {
		return domain.UserPreference{UserID: userID, Filter: domain.DefaultFilter()}, nil
	}
	return domain.UserPreference{}, err
}

func (db *DB) SavePreference(ctx context.Context, p domain.UserPreference) (domain.UserPreference, error) {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := db.Pool.Exec(ctx, `
INSERT INTO user_preferences (user_id, exclude_shorts, exclude_vertical, min_duration, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO UPDATE SET
  exclude_shorts=EXCLUDED.exclude_shorts,
  exclude_vertical=EXCLUDED.exclude_vertical,
  min_duration=EXCLUDED.min_duration,
  updated_at=EXCLUDED.updated_at`,
		p.UserID, p.ExcludeShorts, p.ExcludeVertical, p.MinDuration, p.UpdatedAt,
	)
	if err != nil {
		return domain.UserPreference{}, fmt.Errorf("save preference: %w", err)
	}
	return p, nil
}

// --- Watch history ---

func (db *DB) AppendWatch(ctx context.Context, h domain.WatchHistory) (domain.WatchHistory, error) {
	err := db.Pool.QueryRow(ctx, `
INSERT INTO watch_history (user_id, video_id, watched_at, watch_duration, completed)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		h.UserID, h.VideoID, h.WatchedAt, h.WatchDuration, h.Completed,
	).Scan(&h.ID)
	if err != nil {
		return domain.WatchHistory{}, fmt.Errorf("append watch: %w", err)
	}
	return h, nil
}

func (db *DB) ListWatchByUser(ctx context.Context, userID string, limit int) ([]domain.WatchHistory, error) {
	lim, args := limitClause(limit, []any{userID})
	rows, err := db.Pool.Query(ctx, `
SELECT id, user_id, video_id, watched_at, watch_duration, completed
FROM watch_history WHERE user_id=$1
ORDER BY watched_at DESC, id DESC`+lim, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.WatchHistory, error) {
		var h domain.WatchHistory
		err := r.Scan(&h.ID, &h.UserID, &h.VideoID, &h.WatchedAt, &h.WatchDuration, &h.Completed)
		return h, err
	})
}

// --- Interactions ---

// UpsertInteraction relies on UNIQUE(user_id, video_id, interaction_type); a
// repeat refreshes created_at and keeps the original id.
func (db *DB) UpsertInteraction(ctx context.Context, in domain.VideoInteraction) (domain.VideoInteraction, error) {
	err := db.Pool.QueryRow(ctx, `
INSERT INTO video_interactions (user_id, video_id, interaction_type, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id, video_id, interaction_type) DO UPDATE SET created_at=EXCLUDED.created_at
RETURNING id`,
		in.UserID, in.VideoID, string(in.InteractionType), in.CreatedAt,
	).Scan(&in.ID)
	if err != nil {
		return domain.VideoInteraction{}, fmt.Errorf("upsert interaction: %w", err)
	}
	return in, nil
}

func (db *DB) DeleteInteraction(ctx context.Context, userID, videoID string, t domain.InteractionType) error {
	ct, err := db.Pool.Exec(ctx,
		"DELETE FROM video_interactions WHERE user_id=$1 AND video_id=$2 AND interaction_type=$3",
		userID, videoID, string(t),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) ListInteractions(ctx context.Context, userID, videoID string) ([]domain.VideoInteraction, error) {
	return db.queryInteractions(ctx, userID, videoID, "")
}

func (db *DB) ListInteractionsByType(ctx context.Context, userID string, t domain.InteractionType) ([]domain.VideoInteraction, error) {
	return db.queryInteractions(ctx, userID, "", t)
}

// videoID and t are optional (empty means "no filter").
func (db *DB) queryInteractions(ctx context.Context, userID, videoID string, t domain.InteractionType) ([]domain.VideoInteraction, error) {
	cond := "WHERE user_id=$1"
	args := []any{userID}
	idx := 2

	if videoID != "" {
		cond += fmt.Sprintf(" AND video_id=$%d", idx)
		args = append(args, videoID)
		idx++
	}
	if t != "" {
		cond += fmt.Sprintf(" AND interaction_type=$%d", idx)
		args = append(args, string(t))
	}

	sql := "SELECT id, user_id, video_id, interaction_type, created_at FROM video_interactions " +
		cond + " ORDER BY created_at DESC, id DESC"
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.VideoInteraction, error) {
		var (
			in domain.VideoInteraction
			it string
		)
		err := r.Scan(&in.ID, &in.UserID, &in.VideoID, &it, &in.CreatedAt)
		in.InteractionType = domain.InteractionType(it)
		return in, err
	})
}
