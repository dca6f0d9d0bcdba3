package video

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"courseforge/internal/metrics"
	"courseforge/internal/model"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxCandidates = 8
	DefaultResultLimit   = 4

	queryQualifier       = "tutorial learn programming course"
	maxDescriptionLength = 200
	ellipsis             = "..."
)

var educationalKeywords = []string{
	"tutorial", "learn", "course", "guide", "how to", "programming", "coding",
	"development", "lesson", "training", "beginner", "intermediate", "advanced",
	"step by step", "complete",
}

var lowQualityTerms = []string{
	"shorts", "tiktok", "meme", "funny", "reaction", "clickbait", "live stream",
	"podcast", "music", "song", "gaming",
}

// Curator turns a module name into a short, ranked list of instructional videos.
type Curator struct {
	searcher      Searcher
	cache         Cache
	maxCandidates int64
	limit         int
	now           func() time.Time
	logger        zerolog.Logger
}

type CuratorOption func(*Curator)

func WithCache(c Cache) CuratorOption {
	return func(cu *Curator) { cu.cache = c }
}

func WithLimits(maxCandidates int64, limit int) CuratorOption {
	return func(cu *Curator) {
		if maxCandidates > 0 {
			cu.maxCandidates = maxCandidates
		}
		if limit > 0 {
			cu.limit = limit
		}
	}
}

func WithClock(now func() time.Time) CuratorOption {
	return func(cu *Curator) { cu.now = now }
}

func NewCurator(searcher Searcher, logger zerolog.Logger, opts ...CuratorOption) *Curator {
	c := &Curator{
		searcher:      searcher,
		maxCandidates: DefaultMaxCandidates,
		limit:         DefaultResultLimit,
		now:           time.Now,
		logger:        logger.With().Str("component", "VideoCurator").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Curate never fails: search errors are logged and produce an empty list.
func (c *Curator) Curate(ctx context.Context, name string) []model.VideoResult {
	query := BuildQuery(name)
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, query); ok {
			return c.fromCache(cached)
		}
	}

	candidates, err := c.searcher.Search(ctx, query, c.maxCandidates)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("Video search failed; continuing without videos")
		return []model.VideoResult{}
	}

	kept := Rank(Filter(candidates))
	metrics.VideoCandidates.WithLabelValues("filtered").Add(float64(len(candidates) - len(kept)))
	if len(kept) > c.limit {
		metrics.VideoCandidates.WithLabelValues("truncated").Add(float64(len(kept) - c.limit))
		kept = kept[:c.limit]
	}
	metrics.VideoCandidates.WithLabelValues("kept").Add(float64(len(kept)))

	addedAt := c.now().UTC()
	results := make([]model.VideoResult, 0, len(kept))
	for _, cand := range kept {
		results = append(results, toResult(cand, addedAt))
	}

	if c.cache != nil && len(results) > 0 {
		c.cache.Set(ctx, query, results)
	}
	c.logger.Debug().Str("query", query).Int("candidates", len(candidates)).Int("kept", len(results)).Msg("Curated videos")
	return results
}

// fromCache copies cached results under the current limit and stamps them with the current time.
func (c *Curator) fromCache(cached []model.VideoResult) []model.VideoResult {
	if len(cached) > c.limit {
		cached = cached[:c.limit]
	}
	addedAt := c.now().UTC()
	results := make([]model.VideoResult, len(cached))
	for i, r := range cached {
		r.AddedAt = addedAt
		results[i] = r
	}
	return results
}

// BuildQuery biases the search toward instructional content.
func BuildQuery(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return queryQualifier
	}
	return name + " " + queryQualifier
}

// Filter keeps candidates that mention an educational keyword and no low-quality term.
func Filter(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if isEducational(c) {
			out = append(out, c)
		}
	}
	return out
}

func isEducational(c Candidate) bool {
	text := strings.ToLower(c.Title + "\n" + c.Description)
	for _, term := range lowQualityTerms {
		if strings.Contains(text, term) {
			return false
		}
	}
	for _, kw := range educationalKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Rank orders by view count, highest first. Ties keep retrieval order.
func Rank(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return parseCount(out[i].ViewCount) > parseCount(out[j].ViewCount)
	})
	return out
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func toResult(c Candidate, addedAt time.Time) model.VideoResult {
	published, _ := time.Parse(time.RFC3339, c.PublishedAt)
	return model.VideoResult{
		VideoID:      c.ID,
		Title:        c.Title,
		Description:  truncate(c.Description, maxDescriptionLength),
		ChannelTitle: c.ChannelTitle,
		PublishedAt:  published,
		ThumbnailURL: c.ThumbnailURL,
		ViewCount:    parseCount(c.ViewCount),
		Source:       model.VideoSourceYouTube,
		Quality:      model.VideoQualityEducational,
		AddedAt:      addedAt,
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + ellipsis
}
