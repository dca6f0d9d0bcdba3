package generation

import (
	"encoding/json"
	"fmt"

	"courseforge/internal/model"
)

const modulePromptTemplate = `You are an expert instructional designer writing a course chapter.
Write detailed, long-form lesson content for every topic of the module described below.
Each topic's content must explain the concepts step by step, include practical examples and
end with a short recap. Keep the tone clear and encouraging for self-paced learners.

Respond with a single JSON object and nothing else, using exactly this schema:
{
  "moduleName": string,
  "chapterTitle": string,
  "duration": string,
  "about": string,
  "topics": [{"topic": string, "content": string}]
}

Module:
%s`

type promptModule struct {
	ModuleName string   `json:"moduleName"`
	Topics     []string `json:"topics"`
	Duration   string   `json:"duration,omitempty"`
}

// BuildRequest combines the module spec with the fixed instructional template.
func BuildRequest(spec model.ModuleSpec, modelName, responseFormat string) (Request, error) {
	body, err := json.MarshalIndent(promptModule{
		ModuleName: spec.Name,
		Topics:     spec.Topics,
		Duration:   spec.Duration,
	}, "", "  ")
	if err != nil {
		return Request{}, fmt.Errorf("marshaling module spec: %w", err)
	}
	return Request{
		Model:          modelName,
		ResponseFormat: responseFormat,
		Prompt:         fmt.Sprintf(modulePromptTemplate, body),
	}, nil
}
