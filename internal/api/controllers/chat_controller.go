package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/curaious/voicerelay/internal/api/response"
	"github.com/curaious/voicerelay/internal/config"
	"github.com/curaious/voicerelay/internal/perrors"
	"github.com/curaious/voicerelay/pkg/llm"
	"github.com/curaious/voicerelay/pkg/llm/chat_completion"
	"github.com/fasthttp/router"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
)

type chatResponse struct {
	Reply string          `json:"reply"`
	Raw   json.RawMessage `json:"raw"`
}

func RegisterChatRoutes(r *router.Group, conf *config.Config, provider llm.Provider) {
	r.Handle(http.MethodPost, "/chat", func(reqCtx *fasthttp.RequestCtx) {
		ctx, span := tracer.Start(requestContext(reqCtx), "Controller.Chat")
		defer span.End()

		if conf.OPENAI_API_KEY == "" {
			writeError(reqCtx, ctx, span, perrors.NewErrMissingCredential(llm.ErrMissingAPIKey.Error()))
			return
		}

		body, ok := bodyJSON(reqCtx)
		if !ok {
			writeError(reqCtx, ctx, span, perrors.NewErrInvalidRequest(msgInvalidJSON, nil))
			return
		}

		// Any value other than null is relayed as-is; upstream judges its shape.
		messages := chat_completion.EmptyMessages
		if m := body.Get("messages"); m.Exists() && m.Type != gjson.Null {
			messages = json.RawMessage(m.Raw)
		}
		span.SetAttributes(attribute.Bool("chat.messages_is_array", gjson.ParseBytes(messages).IsArray()))

		out, err := provider.CompleteChat(ctx, messages)
		if err != nil {
			if uerr, ok := llm.AsUpstreamError(err); ok {
				span.SetAttributes(attribute.Int("upstream.status_code", uerr.StatusCode))
				response.WriteRaw(reqCtx, uerr.StatusCode, "application/json", uerr.Body)
				return
			}
			if errors.Is(err, llm.ErrMissingAPIKey) {
				writeError(reqCtx, ctx, span, perrors.NewErrMissingCredential(err.Error()))
				return
			}
			writeError(reqCtx, ctx, span, perrors.NewErrServerError(err))
			return
		}

		writeOK(reqCtx, ctx, &chatResponse{
			Reply: out.Reply,
			Raw:   json.RawMessage(out.Raw),
		})
	})
}
