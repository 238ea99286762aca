package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/curaious/voicerelay/pkg/llm"
	"github.com/curaious/voicerelay/pkg/llm/chat_completion"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func (g *RelayGateway) CompleteChat(ctx context.Context, messages json.RawMessage) (*chat_completion.Result, error) {
	ctx, span := tracer.Start(ctx, "LLM.ChatCompletion")
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.provider", string(g.providerName)),
		attribute.String("llm.request_type", "ChatCompletion"),
	)
	if m := gjson.ParseBytes(messages); m.IsArray() {
		span.SetAttributes(attribute.Int("llm.messages", len(m.Array())))
	}

	start := time.Now()
	out, err := g.provider.CompleteChat(ctx, messages)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	g.observe("chat", start, err)
	if err != nil {
		if uerr, ok := llm.AsUpstreamError(err); ok {
			span.SetAttributes(attribute.Int("llm.upstream.status_code", uerr.StatusCode))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("llm.reply_length", len(out.Reply)))

	return out, nil
}
