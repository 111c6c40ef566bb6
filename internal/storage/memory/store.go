// Package memory is the in-process Repository. Each collection has its own
// lock; nothing is shared across collections, so no cross-entity transaction
// is implied.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"example.com/longform/internal/domain"
	"example.com/longform/internal/idempotency"
	"example.com/longform/internal/storage"
)

var _ storage.Repository = (*Store)(nil)

type Store struct {
	nextID atomic.Int64

	videosMu sync.RWMutex
	videos   map[string]domain.Video

	channelsMu sync.RWMutex
	channels   map[string]domain.Channel

	categoriesMu sync.RWMutex
	categories   map[string]domain.Category

	searchMu sync.RWMutex
	searches []domain.SearchQuery

	usersMu sync.RWMutex
	users   map[string]domain.User

	prefsMu sync.RWMutex
	prefs   map[string]domain.UserPreference

	historyMu sync.RWMutex
	history   []domain.WatchHistory

	interactionsMu sync.RWMutex
	interactions   map[string]domain.VideoInteraction
}

func New() *Store {
	return &Store{
		videos:       make(map[string]domain.Video),
		channels:     make(map[string]domain.Channel),
		categories:   make(map[string]domain.Category),
		users:        make(map[string]domain.User),
		prefs:        make(map[string]domain.UserPreference),
		interactions: make(map[string]domain.VideoInteraction),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func (s *Store) id() int64 { return s.nextID.Add(1) }

// --- Videos ---

func (s *Store) UpsertVideos(_ context.Context, videos []domain.Video) error {
	s.videosMu.Lock()
	defer s.videosMu.Unlock()
	for _, v := range videos {
		if v.ID == "" {
			continue
		}
		s.videos[v.ID] = v
	}
	return nil
}

func (s *Store) GetVideo(_ context.Context, id string) (domain.Video, error) {
	s.videosMu.RLock()
	defer s.videosMu.RUnlock()
	v, ok := s.videos[id]
	if !ok {
		return domain.Video{}, domain.ErrNotFound
	}
	return v, nil
}

// --- Channels ---

func (s *Store) UpsertChannels(_ context.Context, channels []domain.Channel) error {
	s.channelsMu.Lock()
	defer s.channelsMu.Unlock()
	for _, c := range channels {
		if c.ID == "" {
			continue
		}
		s.channels[c.ID] = c
	}
	return nil
}

func (s *Store) GetChannel(_ context.Context, id string) (domain.Channel, error) {
	s.channelsMu.RLock()
	defer s.channelsMu.RUnlock()
	c, ok := s.channels[id]
	if !ok {
		return domain.Channel{}, domain.ErrNotFound
	}
	return c, nil
}

// --- Categories ---

func (s *Store) UpsertCategories(_ context.Context, categories []domain.Category) error {
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()
	for _, c := range categories {
		if c.ID == "" {
			continue
		}
		s.categories[c.ID] = c
	}
	return nil
}

// ListCategories orders numerically for numeric ids ("2" before "10").
func (s *Store) ListCategories(context.Context) ([]domain.Category, error) {
	s.categoriesMu.RLock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	s.categoriesMu.RUnlock()
	slices.SortFunc(out, func(a, b domain.Category) int {
		if c := cmp.Compare(len(a.ID), len(b.ID)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// --- Search queries ---

func (s *Store) InsertSearchQueries(_ context.Context, queries []domain.SearchQuery) (int64, error) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	for _, q := range queries {
		q.ID = s.id()
		s.searches = append(s.searches, q)
	}
	return int64(len(queries)), nil
}

func (s *Store) ListRecentSearchQueries(_ context.Context, limit int) ([]domain.SearchQuery, error) {
	s.searchMu.RLock()
	out := append(make([]domain.SearchQuery, 0, len(s.searches)), s.searches...)
	s.searchMu.RUnlock()
	slices.SortStableFunc(out, func(a, b domain.SearchQuery) int {
		return newestFirst(a.Timestamp, b.Timestamp, a.ID, b.ID)
	})
	return truncate(out, limit), nil
}

// --- Users ---

func (s *Store) UpsertUser(_ context.Context, u domain.User) (domain.User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		existing.Username = u.Username
		existing.LastSeenAt = u.LastSeenAt
		s.users[u.ID] = existing
		return existing, nil
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = u.LastSeenAt
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

// --- Preferences ---

func (s *Store) GetPreference(_ context.Context, userID string) (domain.UserPreference, error) {
	s.prefsMu.RLock()
	defer s.prefsMu.RUnlock()
	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	return domain.UserPreference{UserID: userID, Filter: domain.DefaultFilter()}, nil
}

func (s *Store) SavePreference(_ context.Context, p domain.UserPreference) (domain.UserPreference, error) {
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	s.prefs[p.UserID] = p
	return p, nil
}

// --- Watch history ---

func (s *Store) AppendWatch(_ context.Context, h domain.WatchHistory) (domain.WatchHistory, error) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	h.ID = s.id()
	s.history = append(s.history, h)
	return h, nil
}

func (s *Store) ListWatchByUser(_ context.Context, userID string, limit int) ([]domain.WatchHistory, error) {
	s.historyMu.RLock()
	out := make([]domain.WatchHistory, 0)
	for _, h := range s.history {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	s.historyMu.RUnlock()
	slices.SortStableFunc(out, func(a, b domain.WatchHistory) int {
		return newestFirst(a.WatchedAt, b.WatchedAt, a.ID, b.ID)
	})
	return truncate(out, limit), nil
}

// --- Interactions ---

func (s *Store) UpsertInteraction(_ context.Context, in domain.VideoInteraction) (domain.VideoInteraction, error) {
	key := idempotency.InteractionKey(in.UserID, in.VideoID, in.InteractionType)
	s.interactionsMu.Lock()
	defer s.interactionsMu.Unlock()
	if existing, ok := s.interactions[key]; ok {
		existing.CreatedAt = in.CreatedAt
		s.interactions[key] = existing
		return existing, nil
	}
	in.ID = s.id()
	s.interactions[key] = in
	return in, nil
}

func (s *Store) DeleteInteraction(_ context.Context, userID, videoID string, t domain.InteractionType) error {
	key := idempotency.InteractionKey(userID, videoID, t)
	s.interactionsMu.Lock()
	defer s.interactionsMu.Unlock()
	if _, ok := s.interactions[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.interactions, key)
	return nil
}

func (s *Store) ListInteractions(_ context.Context, userID, videoID string) ([]domain.VideoInteraction, error) {
	return s.listInteractions(func(in domain.VideoInteraction) bool {
		return in.UserID == userID && (videoID == "" || in.VideoID == videoID)
	}), nil
}

func (s *Store) ListInteractionsByType(_ context.Context, userID string, t domain.InteractionType) ([]domain.VideoInteraction, error) {
	return s.listInteractions(func(in domain.VideoInteraction) bool {
		return in.UserID == userID && in.InteractionType == t
	}), nil
}

func (s *Store) listInteractions(keep func(domain.VideoInteraction) bool) []domain.VideoInteraction {
	s.interactionsMu.RLock()
	out := make([]domain.VideoInteraction, 0)
	for _, in := range s.interactions {
		if keep(in) {
			out = append(out, in)
		}
	}
	s.interactionsMu.RUnlock()
	slices.SortFunc(out, func(a, b domain.VideoInteraction) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return out
}

// newestFirst orders by timestamp descending, then id descending.
func newestFirst(ta, tb time.Time, ia, ib int64) int {
	if c := tb.Compare(ta); c != 0 {
		return c
	}
	return cmp.Compare(ib, ia)
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
