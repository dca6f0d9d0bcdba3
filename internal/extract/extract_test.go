package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"courseforge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{"moduleName":"Go Basics","chapterTitle":"Getting Started","duration":"2h","about":"Intro","topics":[{"topic":"Syntax","content":"Long form syntax lesson"}]}`

func TestExtractFencedBlock(t *testing.T) {
	raw := "Sure! Here is the module:\n```json\n" + sampleJSON + "\n```\nLet me know if you need more."

	rec, err := Extract(raw)
	require.NoError(t, err)

	var direct Record
	require.NoError(t, json.Unmarshal([]byte(sampleJSON), &direct))
	assert.Equal(t, direct, rec)
}

func TestExtractFencedBlockWithoutTag(t *testing.T) {
	raw := "```\n" + sampleJSON + "\n```"

	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.EqualValues(t, "Go Basics", rec.ModuleName)
	require.Len(t, rec.Topics, 1)
	assert.EqualValues(t, "Long form syntax lesson", rec.Topics[0].Content)
}

func TestExtractUppercaseTag(t *testing.T) {
	rec, err := Extract("```JSON\n" + sampleJSON + "```")
	require.NoError(t, err)
	assert.EqualValues(t, "Getting Started", rec.ChapterTitle)
}

func TestExtractBraceScanningInProse(t *testing.T) {
	raw := "Here is the result: " + sampleJSON + " Hope this helps!"

	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.EqualValues(t, "Go Basics", rec.ModuleName)
	assert.EqualValues(t, "2h", rec.Duration)
}

func TestExtractFallsBackWhenFenceIsMalformed(t *testing.T) {
	raw := "```json\n{\"moduleName\": \"broken\",\n```\nActually, the corrected version is " + sampleJSON

	// The brace span runs from the first { (inside the fence) to the last }, which is not valid
	// JSON either, so this must fail without panicking.
	_, err := Extract(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRecord))
}

func TestExtractFenceContainingNullUsesBraces(t *testing.T) {
	raw := "```json\nnull\n```\n" + sampleJSON

	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.EqualValues(t, "Go Basics", rec.ModuleName)
}

func TestExtractToleratesNumericDuration(t *testing.T) {
	raw := "```json\n{\"moduleName\":\"Go Basics\",\"duration\":2,\"about\":null,\"topics\":[{\"topic\":\"Syntax\",\"content\":1.5}]}\n```"

	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.EqualValues(t, "2", rec.Duration)
	assert.Empty(t, rec.About)
	require.Len(t, rec.Topics, 1)
	assert.EqualValues(t, "1.5", rec.Topics[0].Content)

	m := rec.Apply(model.ModuleSpec{Name: "Basics", Duration: "1h"})
	assert.Equal(t, "2", m.Duration)
	assert.False(t, m.IsFallback())
}

func TestExtractRejectsObjectInTextField(t *testing.T) {
	_, err := Extract(`{"moduleName": {"en": "Go"}}`)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestExtractFailures(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"plain prose":     "I'm sorry, I cannot help with that.",
		"closing first":   "} nothing here {",
		"truncated":       `{"moduleName": "Go", "topics": [{"topic": "x"`,
		"array in fence":  "```json\n[1,2,3]\n```",
		"wrong types":     `{"topics": "not a list"}`,
		"only open brace": "{",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoRecord)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	spec := model.ModuleSpec{Name: "Concurrency", Topics: []string{"Goroutines", "Channels"}, Duration: "3h"}

	m := Record{About: "  All about concurrency "}.Apply(spec)

	assert.Equal(t, "Concurrency", m.ModuleName)
	assert.Equal(t, "Concurrency", m.ChapterTitle)
	assert.Equal(t, "3h", m.Duration)
	assert.Equal(t, "All about concurrency", m.About)
	require.Len(t, m.Topics, 2)
	assert.Equal(t, "Goroutines", m.Topics[0].Topic)
	assert.Empty(t, m.Topics[0].Content)
	assert.NotNil(t, m.Videos)
	assert.False(t, m.Degraded)
}

func TestApplyKeepsGeneratedFields(t *testing.T) {
	spec := model.ModuleSpec{Name: "Concurrency", Topics: []string{"Goroutines"}}
	rec := Record{
		ModuleName:   "Concurrency in Go",
		ChapterTitle: "Chapter 3",
		Duration:     "90m",
		Topics: []TopicRecord{
			{Topic: "Goroutines", Content: "..."},
			{},
			{Topic: "Select", Content: "select statement"},
		},
	}

	m := rec.Apply(spec)

	assert.Equal(t, "Concurrency in Go", m.ModuleName)
	assert.Equal(t, "Chapter 3", m.ChapterTitle)
	assert.Equal(t, "90m", m.Duration)
	require.Len(t, m.Topics, 2)
	assert.Equal(t, "Select", m.Topics[1].Topic)
	assert.False(t, m.IsFallback())
}
