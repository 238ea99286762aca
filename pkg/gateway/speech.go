package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/curaious/voicerelay/pkg/llm"
	"github.com/curaious/voicerelay/pkg/llm/speech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func (g *RelayGateway) SynthesizeSpeech(ctx context.Context, text string) (*speech.Response, error) {
	ctx, span := tracer.Start(ctx, "LLM.Speech")
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.provider", string(g.providerName)),
		attribute.String("llm.request_type", "Speech"),
		attribute.Int("llm.input_length", len(text)),
	)

	start := time.Now()
	out, err := g.provider.SynthesizeSpeech(ctx, text)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	g.observe("speech", start, err)
	if err != nil {
		if uerr, ok := llm.AsUpstreamError(err); ok {
			span.SetAttributes(attribute.Int("llm.upstream.status_code", uerr.StatusCode))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("llm.audio_bytes", len(out.Audio)))

	return out, nil
}
