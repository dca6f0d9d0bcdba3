package model

import (
	"strings"
	"time"
)

const (
	// FallbackChapterTitle replaces the chapter title of a module whose content could not be generated.
	FallbackChapterTitle = "Generated Content"
	// FallbackContent is the sentinel body of a degraded module. Consumers detect degradation by
	// comparing against it.
	FallbackContent = "Content for this module is being prepared. Please check back soon."

	VideoSourceYouTube      = "youtube"
	VideoQualityEducational = "educational"
)

// CourseSkeleton is the immutable outline the pipeline enriches.
type CourseSkeleton struct {
	ID      string       `json:"id" yaml:"id" validate:"required"`
	Name    string       `json:"name" yaml:"name"`
	Modules []ModuleSpec `json:"modules" yaml:"modules" validate:"dive"`
}

// ModuleSpec is one module of a skeleton. Names are unique within a course.
type ModuleSpec struct {
	Name     string   `json:"moduleName" yaml:"name" validate:"required"`
	Topics   []string `json:"topics" yaml:"topics" validate:"min=1,dive,required"`
	Duration string   `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// EnrichedModule is the generated content of one module. It is built once and never patched.
type EnrichedModule struct {
	ModuleName   string          `json:"moduleName"`
	ChapterTitle string          `json:"chapterTitle"`
	Duration     string          `json:"duration"`
	About        string          `json:"about"`
	Topics       []EnrichedTopic `json:"topics"`
	Videos       []VideoResult   `json:"videos"`
	Degraded     bool            `json:"degraded"`
}

// IsFallback reports whether the module carries the placeholder content.
func (m EnrichedModule) IsFallback() bool {
	return m.ChapterTitle == FallbackChapterTitle && m.About == FallbackContent
}

type EnrichedTopic struct {
	Topic   string        `json:"topic"`
	Content string        `json:"content"`
	Videos  []VideoResult `json:"videos,omitempty"`
}

// VideoResult is a curated video attached to a module.
type VideoResult struct {
	VideoID      string    `json:"videoId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channelTitle"`
	PublishedAt  time.Time `json:"publishedAt"`
	ThumbnailURL string    `json:"thumbnail"`
	ViewCount    int64     `json:"viewCount"`
	Source       string    `json:"source"`
	Quality      string    `json:"quality"`
	AddedAt      time.Time `json:"addedAt"`
}

// CourseContentAggregate is what gets handed to persistence, keyed by CourseID.
type CourseContentAggregate struct {
	CourseID string           `json:"course_id"`
	Modules  []EnrichedModule `json:"modules"`
}

// DegradedCount returns how many modules fell back to placeholder content.
func (a *CourseContentAggregate) DegradedCount() int {
	n := 0
	for _, m := range a.Modules {
		if m.Degraded {
			n++
		}
	}
	return n
}

// FallbackModule builds the placeholder module used when generation or extraction fails.
func FallbackModule(spec ModuleSpec) EnrichedModule {
	return EnrichedModule{
		ModuleName:   spec.Name,
		ChapterTitle: FallbackChapterTitle,
		Duration:     spec.Duration,
		About:        FallbackContent,
		Topics:       []EnrichedTopic{},
		Videos:       []VideoResult{},
		Degraded:     true,
	}
}

// DuplicateModuleName returns the first module name that appears twice (case-insensitive), or "".
func (s CourseSkeleton) DuplicateModuleName() string {
	seen := make(map[string]struct{}, len(s.Modules))
	for _, m := range s.Modules {
		key := strings.ToLower(strings.TrimSpace(m.Name))
		if _, ok := seen[key]; ok {
			return m.Name
		}
		seen[key] = struct{}{}
	}
	return ""
}
