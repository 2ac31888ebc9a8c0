package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// ExtractionErrorKind classifies a failed model call.
type ExtractionErrorKind int

const (
	// AuthFailure is fatal: the API key is bad, retrying cannot help.
	AuthFailure ExtractionErrorKind = iota
	// RateLimited is retryable with backoff.
	RateLimited
	// ServerError is an upstream 5xx, retryable with backoff.
	ServerError
	// Unexpected is anything else; fatal, wrapped as-is.
	Unexpected
)

func (k ExtractionErrorKind) String() string {
	switch k {
	case AuthFailure:
		return "auth failure"
	case RateLimited:
		return "rate limited"
	case ServerError:
		return "server error"
	default:
		return "unexpected"
	}
}

// ExtractionError wraps a model-call failure with its classification.
type ExtractionError struct {
	Kind ExtractionErrorKind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractionClient sends extraction prompts to the model with bounded retry.
// Retries happen synchronously; nothing is persisted on any path.
type ExtractionClient struct {
	client     *openai.Client
	model      string
	maxRetries int

	// backoffBase is the first retry delay; each subsequent retry doubles it.
	// Overridable so tests don't sleep for real.
	backoffBase time.Duration
}

const defaultMaxRetries = 3

func NewExtractionClient(client *openai.Client, model string) *ExtractionClient {
	return &ExtractionClient{
		client:      client,
		model:       model,
		maxRetries:  defaultMaxRetries,
		backoffBase: time.Second,
	}
}

// Extract runs one batch through the model and parses the reply. An empty
// batch short-circuits to an empty result without calling out. On RateLimited
// and ServerError the call is retried up to maxRetries with exponential
// backoff (1s, 2s, 4s, ...); AuthFailure fails immediately.
func (c *ExtractionClient) Extract(ctx context.Context, batch Batch) ([]ExtractedItem, error) {
	if len(batch.Messages) == 0 {
		return nil, nil
	}
	if c.client == nil {
		return nil, &ExtractionError{Kind: Unexpected, Err: errors.New("Extract: client is nil")}
	}
	if c.model == "" {
		return nil, &ExtractionError{Kind: Unexpected, Err: errors.New("Extract: model is empty")}
	}

	prompt := BuildExtractionPrompt(batch)
	text, err := c.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseExtractionResponse(text), nil
}

func (c *ExtractionClient) callWithRetry(ctx context.Context, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(8192),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}

	maxRetries := c.maxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := c.backoffBase
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr *ExtractionError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		resp, err := c.client.Responses.New(ctx, params)
		if err == nil {
			return resp.OutputText(), nil
		}

		lastErr = &ExtractionError{Kind: ClassifyModelError(err), Err: err}
		switch lastErr.Kind {
		case RateLimited, ServerError:
			continue
		default:
			return "", lastErr
		}
	}
	return "", lastErr
}

// ClassifyModelError maps a transport error onto the retry taxonomy. The SDK
// error carries an HTTP status when the API answered; substring checks cover
// wrapped and stringified failures the same way for any provider.
func ClassifyModelError(err error) ExtractionErrorKind {
	if err == nil {
		return Unexpected
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return AuthFailure
		case apierr.StatusCode == 429:
			return RateLimited
		case apierr.StatusCode >= 500:
			return ServerError
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "authentication"):
		return AuthFailure
	case strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests"):
		return RateLimited
	case strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error") ||
		strings.Contains(errStr, "overloaded"):
		return ServerError
	default:
		return Unexpected
	}
}
