package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/curaious/voicerelay/internal/config"
	"github.com/curaious/voicerelay/pkg/llm"
	"github.com/curaious/voicerelay/pkg/llm/chat_completion"
	"github.com/curaious/voicerelay/pkg/llm/speech"
	"github.com/fasthttp/router"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fakeProvider struct {
	chatCalls   int
	speechCalls int

	gotMessages json.RawMessage
	gotText     string

	chatResult   *chat_completion.Result
	speechResult *speech.Response
	err          error
}

func (f *fakeProvider) CompleteChat(_ context.Context, messages json.RawMessage) (*chat_completion.Result, error) {
	f.chatCalls++
	f.gotMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return f.chatResult, nil
}

func (f *fakeProvider) SynthesizeSpeech(_ context.Context, text string) (*speech.Response, error) {
	f.speechCalls++
	f.gotText = text
	if f.err != nil {
		return nil, f.err
	}
	return f.speechResult, nil
}

func newHandler(conf *config.Config, p llm.Provider) fasthttp.RequestHandler {
	r := router.New()
	api := r.Group("/api")
	RegisterHealthRoutes(api)
	RegisterChatRoutes(api, conf, p)
	RegisterSpeechRoutes(api, conf, p)
	return r.Handler
}

func do(h fasthttp.RequestHandler, method, uri string, body string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != "" {
		req.Header.SetContentType("application/json")
		req.SetBodyString(body)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	h(ctx)
	return ctx
}

func configured() *config.Config {
	return &config.Config{OPENAI_API_KEY: "sk-test"}
}

func TestHealth(t *testing.T) {
	h := newHandler(configured(), &fakeProvider{})

	ctx := do(h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	var out struct {
		OK   bool   `json:"ok"`
		Time string `json:"time"`
	}
	require.NoError(t, sonic.Unmarshal(ctx.Response.Body(), &out))
	require.True(t, out.OK)

	ts, err := time.Parse(time.RFC3339Nano, out.Time)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), ts, time.Minute)
	require.True(t, strings.HasSuffix(out.Time, "Z"), out.Time)
}

func TestChat(t *testing.T) {
	upstreamPayload := `{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":"hi"}}]}`

	tests := []struct {
		name        string
		conf        *config.Config
		provider    *fakeProvider
		body        string
		wantStatus  int
		wantBody    string
		wantCalls   int
		wantContent string
	}{
		{
			name:       "relays reply and raw payload",
			conf:       configured(),
			provider:   &fakeProvider{chatResult: &chat_completion.Result{Reply: "hi", Raw: []byte(upstreamPayload)}},
			body:       `{"messages":[{"role":"user","content":"hello"}]}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"reply":"hi","raw":` + upstreamPayload + `}`,
			wantCalls:  1,
		},
		{
			name:       "missing credential fails before upstream",
			conf:       &config.Config{},
			provider:   &fakeProvider{},
			body:       `{"messages":[]}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Missing OPENAI_API_KEY"}`,
			wantCalls:  0,
		},
		{
			name:       "upstream error is passed through unchanged",
			conf:       configured(),
			provider:   &fakeProvider{err: &llm.UpstreamError{StatusCode: http.StatusUnauthorized, ContentType: "application/json", Body: []byte(`{"error":"bad key"}`)}},
			body:       `{"messages":[]}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"bad key"}`,
			wantCalls:  1,
		},
		{
			name:       "transport failure becomes server_error",
			conf:       configured(),
			provider:   &fakeProvider{err: errors.New("dial tcp: connection refused")},
			body:       `{"messages":[]}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"server_error","detail":"dial tcp: connection refused"}`,
			wantCalls:  1,
		},
		{
			name:       "malformed body is rejected",
			conf:       configured(),
			provider:   &fakeProvider{},
			body:       `{"messages":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid JSON body"}`,
			wantCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := do(newHandler(tt.conf, tt.provider), http.MethodPost, "/api/chat", tt.body)

			require.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
			require.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
			require.JSONEq(t, tt.wantBody, string(ctx.Response.Body()))
			require.Equal(t, tt.wantCalls, tt.provider.chatCalls)
		})
	}
}

func TestChatMessagesDefaultToEmpty(t *testing.T) {
	for _, body := range []string{"", `{}`, `{"messages":null}`} {
		p := &fakeProvider{chatResult: &chat_completion.Result{Raw: []byte(`{}`)}}

		ctx := do(newHandler(configured(), p), http.MethodPost, "/api/chat", body)

		require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), body)
		require.Equal(t, "[]", string(p.gotMessages), body)
		require.JSONEq(t, `{"reply":"","raw":{}}`, string(ctx.Response.Body()))
	}
}

func TestChatForwardsMessagesUnmodified(t *testing.T) {
	p := &fakeProvider{chatResult: &chat_completion.Result{Raw: []byte(`{}`)}}

	body := `{"messages":[{"role":"system","content":"be brief","name":"x"},{"role":"user","content":[{"type":"text","text":"hi"}]}]}`
	do(newHandler(configured(), p), http.MethodPost, "/api/chat", body)

	require.JSONEq(t, `[{"role":"system","content":"be brief","name":"x"},{"role":"user","content":[{"type":"text","text":"hi"}]}]`, string(p.gotMessages))
}

func TestChatRelaysNonArrayMessages(t *testing.T) {
	for _, messages := range []string{`"hi"`, `{"role":"user"}`, `42`, `false`} {
		p := &fakeProvider{err: &llm.UpstreamError{StatusCode: http.StatusBadRequest, ContentType: "application/json", Body: []byte(`{"error":{"message":"invalid messages"}}`)}}

		ctx := do(newHandler(configured(), p), http.MethodPost, "/api/chat", `{"messages":`+messages+`}`)

		require.Equal(t, 1, p.chatCalls, messages)
		require.Equal(t, messages, string(p.gotMessages))
		require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
		require.JSONEq(t, `{"error":{"message":"invalid messages"}}`, string(ctx.Response.Body()))
	}
}

func TestChatIsNotMemoized(t *testing.T) {
	p := &fakeProvider{chatResult: &chat_completion.Result{Reply: "hi", Raw: []byte(`{}`)}}
	h := newHandler(configured(), p)

	body := `{"messages":[{"role":"user","content":"same"}]}`
	do(h, http.MethodPost, "/api/chat", body)
	do(h, http.MethodPost, "/api/chat", body)

	require.Equal(t, 2, p.chatCalls)
}

func TestSpeech(t *testing.T) {
	audio := []byte{0xff, 0xfb, 0x90, 0x00, 0x01, 0x02, 0x00, 0xfe}

	tests := []struct {
		name            string
		conf            *config.Config
		provider        *fakeProvider
		body            string
		wantStatus      int
		wantContentType string
		wantBody        []byte
		wantCalls       int
	}{
		{
			name:            "relays audio bytes",
			conf:            configured(),
			provider:        &fakeProvider{speechResult: &speech.Response{Audio: audio, ContentType: speech.ContentTypeMPEG}},
			body:            `{"text":"hello there"}`,
			wantStatus:      http.StatusOK,
			wantContentType: "audio/mpeg",
			wantBody:        audio,
			wantCalls:       1,
		},
		{
			name:            "missing credential wins over empty text",
			conf:            &config.Config{},
			provider:        &fakeProvider{},
			body:            `{"text":""}`,
			wantStatus:      http.StatusInternalServerError,
			wantContentType: "application/json",
			wantBody:        []byte(`{"error":"Missing OPENAI_API_KEY"}`),
			wantCalls:       0,
		},
		{
			name:            "empty text is rejected",
			conf:            configured(),
			provider:        &fakeProvider{},
			body:            `{"text":""}`,
			wantStatus:      http.StatusBadRequest,
			wantContentType: "application/json",
			wantBody:        []byte(`{"error":"No text"}`),
			wantCalls:       0,
		},
		{
			name:            "absent text is rejected",
			conf:            configured(),
			provider:        &fakeProvider{},
			body:            ``,
			wantStatus:      http.StatusBadRequest,
			wantContentType: "application/json",
			wantBody:        []byte(`{"error":"No text"}`),
			wantCalls:       0,
		},
		{
			name:            "upstream error text is passed through raw",
			conf:            configured(),
			provider:        &fakeProvider{err: &llm.UpstreamError{StatusCode: http.StatusTooManyRequests, Body: []byte("rate limited, slow down")}},
			body:            `{"text":"hello"}`,
			wantStatus:      http.StatusTooManyRequests,
			wantContentType: "text/plain; charset=utf-8",
			wantBody:        []byte("rate limited, slow down"),
			wantCalls:       1,
		},
		{
			name:            "transport failure becomes server_error",
			conf:            configured(),
			provider:        &fakeProvider{err: errors.New("EOF")},
			body:            `{"text":"hello"}`,
			wantStatus:      http.StatusInternalServerError,
			wantContentType: "application/json",
			wantBody:        []byte(`{"error":"server_error","detail":"EOF"}`),
			wantCalls:       1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := do(newHandler(tt.conf, tt.provider), http.MethodPost, "/api/speech", tt.body)

			require.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
			require.Equal(t, tt.wantContentType, string(ctx.Response.Header.ContentType()))
			if tt.wantContentType == "application/json" {
				require.JSONEq(t, string(tt.wantBody), string(ctx.Response.Body()))
			} else {
				require.Equal(t, tt.wantBody, ctx.Response.Body())
			}
			require.Equal(t, tt.wantCalls, tt.provider.speechCalls)
		})
	}
}

func TestSpeechTruncatesText(t *testing.T) {
	p := &fakeProvider{speechResult: &speech.Response{Audio: []byte{1}}}

	long := strings.Repeat("a", speech.MaxInputLength) + strings.Repeat("b", 50)
	body, err := sonic.Marshal(map[string]string{"text": long})
	require.NoError(t, err)

	ctx := do(newHandler(configured(), p), http.MethodPost, "/api/speech", string(body))

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	require.Len(t, p.gotText, speech.MaxInputLength)
	require.Equal(t, strings.Repeat("a", speech.MaxInputLength), p.gotText)
}

func TestCoerceText(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"text":"hello"}`, "hello"},
		{`{"text":42}`, "42"},
		{`{"text":0}`, ""},
		{`{"text":true}`, "true"},
		{`{"text":false}`, ""},
		{`{"text":null}`, ""},
		{`{}`, ""},
		{`{"text":1.50}`, "1.5"},
		{`{"text":1e2}`, "100"},
		{`{"text":-7}`, "-7"},
		{`{"text":1e21}`, "1e+21"},
		{`{"text":1.5e-7}`, "1.5e-7"},
		{`{"text":["a","b"]}`, "a,b"},
		{`{"text":["a",null,2,[true,"x"]]}`, "a,,2,true,x"},
		{`{"text":[]}`, ""},
		{`{"text":{"k":"v"}}`, "[object Object]"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			p := &fakeProvider{speechResult: &speech.Response{Audio: []byte{1}}}
			ctx := do(newHandler(configured(), p), http.MethodPost, "/api/speech", tt.body)

			if tt.want == "" {
				require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
				require.Zero(t, p.speechCalls)
				return
			}
			require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
			require.Equal(t, tt.want, p.gotText)
		})
	}
}
