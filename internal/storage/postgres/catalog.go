package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"example.com/longform/internal/domain"
	"example.com/longform/internal/duration"
)

var videoCols = []string{
	"id", "title", "description", "thumbnail_url", "channel_id", "channel_title",
	"published_at", "duration", "view_count", "width", "height", "is_short", "is_vertical",
}

// UpsertVideos writes the batch in one statement. Postgres rejects a batch that
// touches the same row twice, so ids are deduplicated (last one wins).
func (db *DB) UpsertVideos(ctx context.Context, videos []domain.Video) error {
	videos = dedupe(videos, func(v domain.Video) string { return v.ID })
	if len(videos) == 0 {
		return nil
	}

	rows := make([]string, 0, len(videos))
	args := make([]any, 0, len(videos)*len(videoCols))
	argi := 1
	for _, v := range videos {
		args = append(args,
			v.ID, v.Title, v.Description, nullable(v.ThumbnailURL), nullable(v.ChannelID), nullable(v.ChannelTitle),
			v.PublishedAt, v.Duration, v.ViewCount, v.Width, v.Height, v.IsShort, v.IsVertical,
		)
		rows = append(rows, placeholders(argi, len(videoCols)))
		argi += len(videoCols)
	}

	updates := make([]string, 0, len(videoCols)-1)
	for _, c := range videoCols[1:] {
		updates = append(updates, c+"=EXCLUDED."+c)
	}
	sql := "INSERT INTO videos (" + strings.Join(videoCols, ",") + ") VALUES " +
		strings.Join(rows, ",") +
		" ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ",") + ", updated_at=now()"

	if _, err := db.Pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert videos: %w", err)
	}
	return nil
}

func (db *DB) GetVideo(ctx context.Context, id string) (domain.Video, error) {
	sql := "SELECT " + strings.Join(videoCols, ",") + " FROM videos WHERE id=$1"
	var v domain.Video
	var thumb, channelID, channelTitle *string
	err := db.Pool.QueryRow(ctx, sql, id).Scan(
		&v.ID, &v.Title, &v.Description, &thumb, &channelID, &channelTitle,
		&v.PublishedAt, &v.Duration, &v.ViewCount, &v.Width, &v.Height, &v.IsShort, &v.IsVertical,
	)
	if err != nil {
		return domain.Video{}, notFound(err)
	}
	v.ThumbnailURL = deref(thumb)
	v.ChannelID = deref(channelID)
	v.ChannelTitle = deref(channelTitle)
	if v.Duration != "" {
		v.DurationText = duration.Format(duration.Parse(v.Duration))
	}
	return v, nil
}

func (db *DB) UpsertChannels(ctx context.Context, channels []domain.Channel) error {
	channels = dedupe(channels, func(c domain.Channel) string { return c.ID })
	if len(channels) == 0 {
		return nil
	}
	rows := make([]string, 0, len(channels))
	args := make([]any, 0, len(channels)*3)
	argi := 1
	for _, c := range channels {
		args = append(args, c.ID, c.Title, nullable(c.ThumbnailURL))
		rows = append(rows, placeholders(argi, 3))
		argi += 3
	}
	// A stub without a thumbnail must not erase one learned earlier.
	sql := "INSERT INTO channels (id, title, thumbnail_url) VALUES " + strings.Join(rows, ",") +
		" ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title," +
		" thumbnail_url=COALESCE(EXCLUDED.thumbnail_url, channels.thumbnail_url)"
	if _, err := db.Pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert channels: %w", err)
	}
	return nil
}

func (db *DB) GetChannel(ctx context.Context, id string) (domain.Channel, error) {
	var (
		c     domain.Channel
		thumb *string
	)
	err := db.Pool.QueryRow(ctx, "SELECT id, title, thumbnail_url FROM channels WHERE id=$1", id).
		Scan(&c.ID, &c.Title, &thumb)
	if err != nil {
		return domain.Channel{}, notFound(err)
	}
	c.ThumbnailURL = deref(thumb)
	return c, nil
}

func (db *DB) UpsertCategories(ctx context.Context, categories []domain.Category) error {
	categories = dedupe(categories, func(c domain.Category) string { return c.ID })
	if len(categories) == 0 {
		return nil
	}
	rows := make([]string, 0, len(categories))
	args := make([]any, 0, len(categories)*2)
	argi := 1
	for _, c := range categories {
		args = append(args, c.ID, c.Title)
		rows = append(rows, placeholders(argi, 2))
		argi += 2
	}
	sql := "INSERT INTO categories (id, title) VALUES " + strings.Join(rows, ",") +
		" ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title"
	if _, err := db.Pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert categories: %w", err)
	}
	return nil
}

func (db *DB) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := db.Pool.Query(ctx, "SELECT id, title FROM categories ORDER BY length(id), id")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := r.Scan(&c.ID, &c.Title)
		return c, err
	})
}

// dedupe drops empty keys and keeps the last item per key, in first-seen order.
func dedupe[T any](items []T, key func(T) string) []T {
	pos := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if k == "" {
			continue
		}
		if i, ok := pos[k]; ok {
			out[i] = it
			continue
		}
		pos[k] = len(out)
		out = append(out, it)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
