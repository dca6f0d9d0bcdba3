// Package video finds and curates instructional videos for course modules.
package video

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Candidate is one raw search hit before curation.
type Candidate struct {
	ID           string
	Title        string
	Description  string
	ChannelTitle string
	PublishedAt  string
	ThumbnailURL string
	ViewCount    string
	LikeCount    string
}

// Searcher queries a video search service.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int64) ([]Candidate, error)
}

// YouTubeSearcher implements Searcher with the YouTube Data API v3.
type YouTubeSearcher struct {
	svc     *youtube.Service
	limiter *rate.Limiter
}

// NewYouTubeSearcher creates a searcher. rps <= 0 disables client-side rate limiting.
func NewYouTubeSearcher(ctx context.Context, apiKey string, rps float64, opts ...option.ClientOption) (*YouTubeSearcher, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}
	s := &YouTubeSearcher{svc: svc}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return s, nil
}

// Search requests HD, embeddable, syndicated, moderate-safety English results and fills in view
// and like counts from the statistics endpoint.
func (s *YouTubeSearcher) Search(ctx context.Context, query string, maxResults int64) ([]Candidate, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(maxResults).
		VideoDefinition("high").
		VideoEmbeddable("true").
		VideoSyndicated("true").
		SafeSearch("moderate").
		RelevanceLanguage("en").
		RegionCode("US").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search %q: %w", query, err)
	}

	candidates := make([]Candidate, 0, len(resp.Items))
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:           item.Id.VideoId,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
			ThumbnailURL: bestThumbnail(item.Snippet.Thumbnails),
		})
		ids = append(ids, item.Id.VideoId)
	}
	if len(ids) == 0 {
		return candidates, nil
	}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	stats, err := s.svc.Videos.List([]string{"statistics"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube video statistics: %w", err)
	}
	byID := make(map[string]*youtube.VideoStatistics, len(stats.Items))
	for _, v := range stats.Items {
		if v.Statistics != nil {
			byID[v.Id] = v.Statistics
		}
	}
	for i := range candidates {
		if st, ok := byID[candidates[i].ID]; ok {
			candidates[i].ViewCount = strconv.FormatUint(st.ViewCount, 10)
			candidates[i].LikeCount = strconv.FormatUint(st.LikeCount, 10)
		}
	}
	return candidates, nil
}

func (s *YouTubeSearcher) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
