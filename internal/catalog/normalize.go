package catalog

import (
	"time"

	"google.golang.org/api/youtube/v3"

	"example.com/longform/internal/content"
	"example.com/longform/internal/domain"
	"example.com/longform/internal/duration"
)

// Normalizer turns raw catalog records into domain values. IsShort and
// IsVertical are decided here, once.
type Normalizer struct {
	Classifier content.Classifier
}

// Video reports false for records without an id.
func (n Normalizer) Video(r *youtube.Video) (domain.Video, bool) {
	if r == nil || r.Id == "" {
		return domain.Video{}, false
	}
	v := domain.Video{ID: r.Id}
	if s := r.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.ChannelID = s.ChannelId
		v.ChannelTitle = s.ChannelTitle
		v.PublishedAt = parseTime(s.PublishedAt)
		v.ThumbnailURL = bestThumbnail(s.Thumbnails)
	}
	if r.ContentDetails != nil {
		v.Duration = r.ContentDetails.Duration
		if v.Duration != "" {
			v.DurationText = duration.Format(duration.Parse(v.Duration))
		}
	}
	if r.Statistics != nil {
		v.ViewCount = int64(r.Statistics.ViewCount)
	}
	if r.Player != nil {
		v.Width = int(r.Player.EmbedWidth)
		v.Height = int(r.Player.EmbedHeight)
	}
	return n.classify(v), true
}

// SearchResult normalizes a search hit. Search hits carry no duration,
// statistics or player, so only the tag rule can mark them short.
func (n Normalizer) SearchResult(r *youtube.SearchResult) (domain.Video, bool) {
	if r == nil || r.Id == nil || r.Id.VideoId == "" {
		return domain.Video{}, false
	}
	v := domain.Video{ID: r.Id.VideoId}
	if s := r.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.ChannelID = s.ChannelId
		v.ChannelTitle = s.ChannelTitle
		v.PublishedAt = parseTime(s.PublishedAt)
		v.ThumbnailURL = bestThumbnail(s.Thumbnails)
	}
	return n.classify(v), true
}

func (n Normalizer) Videos(rs []*youtube.Video) []domain.Video {
	out := make([]domain.Video, 0, len(rs))
	for _, r := range rs {
		if v, ok := n.Video(r); ok {
			out = append(out, v)
		}
	}
	return out
}

func (n Normalizer) SearchResults(rs []*youtube.SearchResult) []domain.Video {
	out := make([]domain.Video, 0, len(rs))
	for _, r := range rs {
		if v, ok := n.SearchResult(r); ok {
			out = append(out, v)
		}
	}
	return out
}

func (n Normalizer) Categories(rs []*youtube.VideoCategory) []domain.Category {
	out := make([]domain.Category, 0, len(rs))
	for _, r := range rs {
		if r == nil || r.Id == "" {
			continue
		}
		c := domain.Category{ID: r.Id}
		if r.Snippet != nil {
			c.Title = r.Snippet.Title
		}
		out = append(out, c)
	}
	return out
}

func (n Normalizer) classify(v domain.Video) domain.Video {
	v.IsShort = n.Classifier.IsShort(v)
	v.IsVertical = content.IsVertical(v.Width, v.Height)
	return v
}

// bestThumbnail prefers maxres > standard > high > medium > default.
func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
