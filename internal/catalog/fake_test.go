package catalog

import (
	"context"
	"sync"

	"google.golang.org/api/youtube/v3"
)

type fakeClient struct {
	mu sync.Mutex

	chart      map[string][]*youtube.Video
	videos     map[string]*youtube.Video
	search     func(p SearchParams) []*youtube.SearchResult
	categories []*youtube.VideoCategory

	chartErr, videosErr, searchErr error

	chartCalls, videosCalls, searchCalls, categoryCalls int

	searches []SearchParams
}

func (f *fakeClient) Chart(_ context.Context, categoryID string, max int64) ([]*youtube.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chartCalls++
	if f.chartErr != nil {
		return nil, f.chartErr
	}
	items := f.chart[categoryID]
	if int64(len(items)) > max {
		items = items[:max]
	}
	return items, nil
}

func (f *fakeClient) VideosByID(_ context.Context, ids []string) ([]*youtube.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videosCalls++
	if f.videosErr != nil {
		return nil, f.videosErr
	}
	var out []*youtube.Video
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeClient) Search(_ context.Context, p SearchParams) ([]*youtube.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.searches = append(f.searches, p)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.search == nil {
		return nil, nil
	}
	return f.search(p), nil
}

func (f *fakeClient) Categories(context.Context) ([]*youtube.VideoCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryCalls++
	return f.categories, nil
}

func ytVideo(id, channelID, title, duration string) *youtube.Video {
	return &youtube.Video{
		Id: id,
		Snippet: &youtube.VideoSnippet{
			Title:        title,
			ChannelId:    channelID,
			ChannelTitle: "ch " + channelID,
			PublishedAt:  "2024-05-01T10:00:00Z",
		},
		ContentDetails: &youtube.VideoContentDetails{Duration: duration},
		Statistics:     &youtube.VideoStatistics{ViewCount: 10},
	}
}

func ytHit(id, channelID, title string) *youtube.SearchResult {
	return &youtube.SearchResult{
		Id:      &youtube.ResourceId{Kind: "youtube#video", VideoId: id},
		Snippet: &youtube.SearchResultSnippet{Title: title, ChannelId: channelID},
	}
}
