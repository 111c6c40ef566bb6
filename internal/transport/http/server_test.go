package transporthttp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/youtube/v3"

	"example.com/longform/internal/activity"
	"example.com/longform/internal/auth"
	"example.com/longform/internal/catalog"
	"example.com/longform/internal/config"
	"example.com/longform/internal/domain"
	"example.com/longform/internal/recommend"
	"example.com/longform/internal/storage/memory"
)

type stubClient struct {
	chart     []*youtube.Video
	byID      map[string]*youtube.Video
	hits      []*youtube.SearchResult
	chartErr  error
	mu        sync.Mutex
	searchQs  []string
	chartMaxs []int64
}

func (s *stubClient) Chart(_ context.Context, _ string, max int64) ([]*youtube.Video, error) {
	s.mu.Lock()
	s.chartMaxs = append(s.chartMaxs, max)
	s.mu.Unlock()
	if s.chartErr != nil {
		return nil, s.chartErr
	}
	return s.chart, nil
}

func (s *stubClient) VideosByID(_ context.Context, ids []string) ([]*youtube.Video, error) {
	var out []*youtube.Video
	for _, id := range ids {
		if v, ok := s.byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubClient) Search(_ context.Context, p catalog.SearchParams) ([]*youtube.SearchResult, error) {
	s.mu.Lock()
	s.searchQs = append(s.searchQs, p.Query)
	s.mu.Unlock()
	return s.hits, nil
}

func (s *stubClient) Categories(context.Context) ([]*youtube.VideoCategory, error) {
	return []*youtube.VideoCategory{{Id: "10", Snippet: &youtube.VideoCategorySnippet{Title: "Music"}}}, nil
}

type recordingLog struct {
	mu      sync.Mutex
	queries []string
}

func (l *recordingLog) Enqueue(q domain.SearchQuery) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, q.Query)
	return true
}

func ytVideo(id, channelID, duration string) *youtube.Video {
	return &youtube.Video{
		Id:             id,
		Snippet:        &youtube.VideoSnippet{Title: "title " + id, ChannelId: channelID, ChannelTitle: channelID},
		ContentDetails: &youtube.VideoContentDetails{Duration: duration},
	}
}

type harness struct {
	srv    *httptest.Server
	store  *memory.Store
	client *stubClient
	log    *recordingLog
	auth   *auth.Authenticator
}

var testNow = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	client := &stubClient{
		chart: []*youtube.Video{
			ytVideo("long1", "UC1", "PT12M"),
			ytVideo("short1", "UC2", "PT30S"),
			ytVideo("long2", "UC3", "PT3M"),
		},
		byID: map[string]*youtube.Video{
			"long1": ytVideo("long1", "UC1", "PT12M"),
		},
	}
	gw := catalog.NewGateway(client, store, catalog.Normalizer{}, 0)
	authn, err := auth.NewAuthenticator("secret-for-tests-only", store, func() time.Time { return testNow })
	require.NoError(t, err)
	log := &recordingLog{}

	deps := &ServerDeps{
		Cfg:         config.ServerConfig{MaxBodyBytes: 1 << 16},
		Catalog:     gw,
		Recommender: recommend.New(gw, store, recommend.Config{}),
		Tracker:     activity.NewTracker(store, func() time.Time { return testNow }),
		Identity:    authn,
		Prefs:       store,
		Searches:    store,
		SearchLog:   log,
		Repo:        store,
		Now:         func() time.Time { return testNow },
	}
	srv := httptest.NewServer(deps.Router())
	t.Cleanup(srv.Close)
	return &harness{srv: srv, store: store, client: client, log: log, auth: authn}
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := h.auth.Issue(userID, "user-"+userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(raw)
		}
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func ids(vs []domain.Video) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestTrending_ExcludesShortsByDefault(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/videos/trending", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"long1", "long2"}, ids(decode[[]domain.Video](t, resp)))
}

func TestTrending_QueryOverridesFilter(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/videos/trending?excludeShorts=false&minDuration=5", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"long1"}, ids(decode[[]domain.Video](t, resp)))

	for _, bad := range []string{"-1", "1441", "153722867292000000"} {
		resp = h.do(t, http.MethodGet, "/videos/trending?minDuration="+bad, "", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestSearch_MissingQueryIs400(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/search", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	p := decode[Problem](t, resp)
	require.NotEmpty(t, p.Detail)
	require.Empty(t, h.client.searchQs)
}

func TestSearch_LogsQuery(t *testing.T) {
	h := newHarness(t)
	h.client.hits = []*youtube.SearchResult{{Id: &youtube.ResourceId{VideoId: "long1"}, Snippet: &youtube.SearchResultSnippet{Title: "hit"}}}

	resp := h.do(t, http.MethodGet, "/search?q=golang", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	videos := decode[[]domain.Video](t, resp)
	require.Equal(t, "title long1", videos[0].Title)
	require.Equal(t, []string{"golang"}, h.log.queries)
}

func TestVideo_NotFound(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/videos/missing", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/videos/long1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "long1", decode[domain.Video](t, resp).ID)
}

func TestCategory_InvalidID(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/videos/category/music", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpstreamError_Is500WithStatus(t *testing.T) {
	h := newHarness(t)
	h.client.chartErr = &domain.UpstreamError{Op: "chart", Status: 403, Err: errors.New("quota")}
	resp := h.do(t, http.MethodGet, "/videos/trending", "", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Contains(t, decode[Problem](t, resp).Detail, "403")
}

func TestRecommendations_AnonymousEqualsTrending(t *testing.T) {
	h := newHarness(t)
	trending := h.do(t, http.MethodGet, "/videos/trending", "", nil)
	recs := h.do(t, http.MethodGet, "/recommendations", "", nil)
	require.Equal(t, http.StatusOK, recs.StatusCode)
	require.Equal(t, decode[[]domain.Video](t, trending), decode[[]domain.Video](t, recs))
	require.Equal(t, h.client.chartMaxs[0], h.client.chartMaxs[1])
}

func TestInteractions_UnauthenticatedIs401WithoutSideEffect(t *testing.T) {
	h := newHarness(t)
	body := map[string]string{"videoId": "long1", "interactionType": "like"}

	resp := h.do(t, http.MethodPost, "/video-interactions", "", body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/video-interactions", "bogus", body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = h.do(t, http.MethodGet, "/video-interactions", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	list, err := h.store.ListInteractions(context.Background(), "", "")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestInteractions_Lifecycle(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "u1")
	body := map[string]string{"videoId": "long1", "interactionType": "like"}

	resp := h.do(t, http.MethodPost, "/video-interactions", tok, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/video-interactions", tok, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/video-interactions?type=like", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]domain.InteractionWithVideo](t, resp)
	require.Len(t, list, 1)
	require.Equal(t, "u1", list[0].UserID)

	resp = h.do(t, http.MethodPost, "/video-interactions", tok, map[string]string{"videoId": "long1", "interactionType": "love"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/video-interactions?videoId=long1&type=like", tok, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(t, http.MethodDelete, "/video-interactions?videoId=long1&type=like", tok, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatchHistory_RoundTrip(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "u1")

	resp := h.do(t, http.MethodPost, "/watch-history", tok, `{"videoId":"long1","watchDuration":90,"completed":true}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[domain.WatchHistory](t, resp)
	require.Equal(t, "u1", entry.UserID)
	require.Equal(t, testNow, entry.WatchedAt)

	resp = h.do(t, http.MethodPost, "/watch-history", tok, `{"videoId":"ghost"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/watch-history?limit=10", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]domain.WatchHistoryWithVideo](t, resp)
	require.Len(t, list, 2)

	byVideo := map[string]domain.WatchHistoryWithVideo{}
	for _, e := range list {
		byVideo[e.VideoID] = e
	}
	require.Nil(t, byVideo["ghost"].Video)
	require.Nil(t, byVideo["long1"].Video, "long1 is not cached until fetched")

	h.do(t, http.MethodGet, "/videos/long1", "", nil)
	resp = h.do(t, http.MethodGet, "/watch-history", tok, nil)
	for _, e := range decode[[]domain.WatchHistoryWithVideo](t, resp) {
		if e.VideoID == "long1" {
			require.NotNil(t, e.Video)
		}
	}

	resp = h.do(t, http.MethodGet, "/watch-history", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWatchHistory_Validation(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "u1")

	resp := h.do(t, http.MethodPost, "/watch-history", tok, `{"watchDuration":10}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	p := decode[Problem](t, resp)
	require.Contains(t, p.Errors, "videoId")

	resp = h.do(t, http.MethodPost, "/watch-history", tok, `{"videoId":"a","watchDuration":-5}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreferences(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "u1")

	resp := h.do(t, http.MethodGet, "/preferences", tok, nil)
	require.True(t, decode[domain.UserPreference](t, resp).ExcludeShorts)

	resp = h.do(t, http.MethodPost, "/preferences", tok, `{"minDuration":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decode[domain.UserPreference](t, resp)
	require.Equal(t, 5, saved.MinDuration)
	require.True(t, saved.ExcludeShorts, "unspecified fields keep their value")

	resp = h.do(t, http.MethodGet, "/videos/trending", tok, nil)
	require.Equal(t, []string{"long1"}, ids(decode[[]domain.Video](t, resp)))

	resp = h.do(t, http.MethodGet, "/videos/trending", "", nil)
	require.Equal(t, []string{"long1", "long2"}, ids(decode[[]domain.Video](t, resp)), "anonymous preference untouched")
}

func TestPreferences_RejectsBadShape(t *testing.T) {
	h := newHarness(t)
	for _, body := range []string{`{"hideShorts":true}`, `{"minDuration":-1}`, `{"minDuration":1441}`, `{"minDuration":"ten"}`, `not json`} {
		resp := h.do(t, http.MethodPost, "/preferences", "", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestPost_RequiresJSONContentType(t *testing.T) {
	h := newHarness(t)
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/preferences", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestCategories(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cats := decode[[]domain.Category](t, resp)
	require.Equal(t, []domain.Category{{ID: "10", Title: "Music"}}, cats)
}

func TestRecentSearches(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.InsertSearchQueries(context.Background(), []domain.SearchQuery{
		{Query: "old", Timestamp: testNow.Add(-time.Hour)},
		{Query: "new", Timestamp: testNow},
	})
	require.NoError(t, err)

	resp := h.do(t, http.MethodGet, "/search/recent?limit=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]domain.SearchQuery](t, resp)
	require.Len(t, list, 1)
	require.Equal(t, "new", list[0].Query)

	resp = h.do(t, http.MethodGet, "/search/recent?limit=zero", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz", "", nil).StatusCode)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/readyz", "", nil).StatusCode)
	resp := h.do(t, http.MethodGet, "/healthz", "", nil)
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))
}
