// Package extract pulls a structured module record out of free-text model output.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"courseforge/internal/model"
)

// ErrNoRecord is returned when no strategy yields a well-formed record.
var ErrNoRecord = errors.New("no structured record found in generated text")

// fencedBlock matches the first ``` block, optionally tagged json.
var fencedBlock = regexp.MustCompile("(?s)```(?i:json)?[ \\t]*\\r?\\n?(.*?)```")

// Record is the schema the generation prompt asks for.
type Record struct {
	ModuleName   Text          `json:"moduleName"`
	ChapterTitle Text          `json:"chapterTitle"`
	Duration     Text          `json:"duration"`
	About        Text          `json:"about"`
	Topics       []TopicRecord `json:"topics"`
}

type TopicRecord struct {
	Topic   Text `json:"topic"`
	Content Text `json:"content"`
}

// Text is a string field that also accepts JSON numbers, booleans and null.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*t = ""
		return nil
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case raw == "true" || raw == "false":
		*t = Text(raw)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("unsupported text value %s", raw)
	}
	*t = Text(raw)
	return nil
}

// Extract tries the fenced block first, then the outermost brace span.
func Extract(raw string) (Record, error) {
	var fenceErr error
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		rec, err := parse(m[1])
		if err == nil {
			return rec, nil
		}
		fenceErr = err
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		if fenceErr != nil {
			return Record{}, fmt.Errorf("%w: fenced block: %v", ErrNoRecord, fenceErr)
		}
		return Record{}, ErrNoRecord
	}
	rec, err := parse(raw[start : end+1])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrNoRecord, err)
	}
	return rec, nil
}

func parse(s string) (Record, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return Record{}, errors.New("not a JSON object")
	}
	var rec Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Apply turns the record into an enriched module, resolving absent fields from the outline module:
// module name and duration fall back to the outline, chapter title to the module name, and a record
// without topics gets the outline topics with empty content.
func (r Record) Apply(spec model.ModuleSpec) model.EnrichedModule {
	m := model.EnrichedModule{
		ModuleName:   strings.TrimSpace(string(r.ModuleName)),
		ChapterTitle: strings.TrimSpace(string(r.ChapterTitle)),
		Duration:     strings.TrimSpace(string(r.Duration)),
		About:        strings.TrimSpace(string(r.About)),
		Videos:       []model.VideoResult{},
	}
	if m.ModuleName == "" {
		m.ModuleName = spec.Name
	}
	if m.ChapterTitle == "" {
		m.ChapterTitle = m.ModuleName
	}
	if m.Duration == "" {
		m.Duration = spec.Duration
	}

	m.Topics = make([]model.EnrichedTopic, 0, len(r.Topics))
	for _, t := range r.Topics {
		if strings.TrimSpace(string(t.Topic)) == "" && strings.TrimSpace(string(t.Content)) == "" {
			continue
		}
		m.Topics = append(m.Topics, model.EnrichedTopic{Topic: string(t.Topic), Content: string(t.Content)})
	}
	if len(m.Topics) == 0 {
		for _, name := range spec.Topics {
			m.Topics = append(m.Topics, model.EnrichedTopic{Topic: name})
		}
	}
	return m
}
