package domain

import "time"

// Video is a normalized catalog record. IsShort and IsVertical are derived once
// at normalization and cached with the record.
type Video struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	ChannelID    string     `json:"channelId"`
	ChannelTitle string     `json:"channelTitle"`
	PublishedAt  *time.Time `json:"publishedAt"`
	Duration     string     `json:"duration"`
	DurationText string     `json:"durationText,omitempty"`
	ViewCount    int64      `json:"viewCount"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	IsShort      bool       `json:"isShort"`
	IsVertical   bool       `json:"isVertical"`
}

type Channel struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type SearchQuery struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// User is the record kept for an authenticated identity.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Catalog limits (YouTube Data API v3 caps maxResults at 50).
const (
	MaxCatalogResults = 50
	MaxVideoIDLen     = 64
	MaxQueryLen       = 256
)
