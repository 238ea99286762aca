package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/curaious/voicerelay/pkg/llm"
	"github.com/curaious/voicerelay/pkg/llm/chat_completion"
	"github.com/curaious/voicerelay/pkg/llm/speech"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultChatModel   = "gpt-4o-mini"
	DefaultSpeechModel = "gpt-4o-mini-tts"
	DefaultVoice       = "alloy"
)

type ClientOptions struct {
	// https://api.openai.com/v1
	BaseURL     string
	ApiKey      string
	ChatModel   string
	SpeechModel string
	Voice       string
	Headers     map[string]string

	Transport *http.Client
}

type Client struct {
	opts *ClientOptions
}

var _ llm.Provider = (*Client)(nil)

func NewClient(opts *ClientOptions) *Client {
	if opts.Transport == nil {
		opts.Transport = http.DefaultClient
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}

	if opts.SpeechModel == "" {
		opts.SpeechModel = DefaultSpeechModel
	}

	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}

	return &Client{
		opts: opts,
	}
}

// CompleteChat forwards messages to /chat/completions. A non-2xx answer is
// returned as *llm.UpstreamError carrying the upstream JSON body.
func (c *Client) CompleteChat(ctx context.Context, messages json.RawMessage) (*chat_completion.Result, error) {
	if c.opts.ApiKey == "" {
		return nil, llm.ErrMissingAPIKey
	}

	if len(messages) == 0 {
		messages = chat_completion.EmptyMessages
	}

	payload, err := sonic.Marshal(&chat_completion.Request{
		Model:    c.opts.ChatModel,
		Messages: messages,
	})
	if err != nil {
		return nil, err
	}

	res, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON from upstream (status %d)", res.StatusCode)
	}

	if !isSuccess(res.StatusCode) {
		return nil, &llm.UpstreamError{
			StatusCode:  res.StatusCode,
			ContentType: "application/json",
			Body:        body,
		}
	}

	reply := gjson.GetBytes(body, "choices.0.message.content")

	return &chat_completion.Result{
		Reply: reply.String(),
		Raw:   body,
	}, nil
}

// SynthesizeSpeech forwards text to /audio/speech and returns the audio bytes.
// A non-2xx answer is returned as *llm.UpstreamError carrying the raw error text.
func (c *Client) SynthesizeSpeech(ctx context.Context, text string) (*speech.Response, error) {
	if c.opts.ApiKey == "" {
		return nil, llm.ErrMissingAPIKey
	}

	if text == "" {
		return nil, errors.New("no text to synthesize")
	}

	payload, err := sonic.Marshal(&speech.Request{
		Model:          c.opts.SpeechModel,
		Voice:          c.opts.Voice,
		Input:          speech.TruncateInput(text),
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}

	res, err := c.post(ctx, "/audio/speech", payload)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if !isSuccess(res.StatusCode) {
		return nil, &llm.UpstreamError{
			StatusCode:  res.StatusCode,
			ContentType: "text/plain; charset=utf-8",
			Body:        body,
		}
	}

	return &speech.Response{
		Audio:       body,
		ContentType: speech.ContentTypeMPEG,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}

	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.ApiKey)

	return c.opts.Transport.Do(req)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
