package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/curaious/voicerelay/pkg/llm/chat_completion"
	"github.com/curaious/voicerelay/pkg/llm/speech"
)

// Provider is the upstream surface the relay needs. Implementations own the
// credential, the endpoint URLs and the model/voice constants.
type Provider interface {
	CompleteChat(ctx context.Context, messages json.RawMessage) (*chat_completion.Result, error)
	SynthesizeSpeech(ctx context.Context, text string) (*speech.Response, error)
}

type ProviderName string

var (
	ProviderNameOpenAI ProviderName = "OpenAI"
)

// ErrMissingAPIKey is returned before any network call when no credential is configured.
var ErrMissingAPIKey = errors.New("Missing OPENAI_API_KEY")

// UpstreamError is a non-2xx answer from the upstream API. Body holds the
// upstream bytes exactly as received.
type UpstreamError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

// AsUpstreamError unwraps err into an *UpstreamError when possible.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var uerr *UpstreamError
	if errors.As(err, &uerr) {
		return uerr, true
	}
	return nil, false
}
