package generator

import (
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrNoClient is returned when generation is attempted without an API
	// client, which happens in non-strict mode with no API key.
	ErrNoClient = errors.New("no API client configured")

	// ErrImageURLOnly is returned when the image API answers with links
	// instead of embedded image data.
	ErrImageURLOnly = errors.New("image API returned URLs instead of base64 data")

	// ErrEmptyImagePrompt is returned when stage one yields no description.
	ErrEmptyImagePrompt = errors.New("model returned an empty image description")
)

// APIError decorates a failed upstream call with the operation and model.
type APIError struct {
	Op      string
	Model   string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s with model %s failed (HTTP %d): %s", e.Op, e.Model, e.Status, e.Message)
	}
	return fmt.Sprintf("%s with model %s failed: %s", e.Op, e.Model, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func wrapAPIError(op, model string, err error) error {
	apiErr := &APIError{Op: op, Model: model, Message: err.Error(), Err: err}

	var openaiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &openaiErr):
		apiErr.Status = openaiErr.HTTPStatusCode
		if openaiErr.Message != "" {
			apiErr.Message = openaiErr.Message
		}
	case errors.As(err, &reqErr):
		apiErr.Status = reqErr.HTTPStatusCode
		if reqErr.Err != nil {
			apiErr.Message = reqErr.Err.Error()
		}
	}
	return apiErr
}
