// Package generation talks to the generative-text service: it builds module prompts, performs
// single attempts against a provider SDK and retries failed attempts with capped exponential
// backoff.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("generation service returned empty text")

const ResponseFormatJSON = "application/json"

// Request is sent verbatim to the generation service.
type Request struct {
	Model          string
	ResponseFormat string
	Prompt         string
}

// Generator performs exactly one call to a generation backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Failure is returned once every attempt has failed. It unwraps to the last attempt's error.
type Failure struct {
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

var overloadSignatures = []string{
	"service unavailable",
	"overloaded",
	"unavailable",
	"503",
	"resource exhausted",
	"resource_exhausted",
	"429",
	"rate limit",
	"too many requests",
}

// IsOverloaded reports whether err is the external service shedding load, in which case the
// caller may retry the whole operation later. Typed SDK errors are judged by status code; anything
// else only by the message of its innermost cause, so identifiers added while wrapping never count.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return overloadStatus(gErr.Code)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return overloadStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return overloadStatus(reqErr.HTTPStatusCode)
	}

	msg := strings.ToLower(rootCause(err).Error())
	for _, sig := range overloadSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func overloadStatus(code int) bool {
	return code == http.StatusServiceUnavailable || code == http.StatusTooManyRequests
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
