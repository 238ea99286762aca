package controllers

import (
	"context"

	"github.com/curaious/voicerelay/internal/api/response"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("Controllers")

// TraceContextKey is the fasthttp user value holding the inbound trace context.
const TraceContextKey = "traceCtx"

const msgInvalidJSON = "Invalid JSON body"

// requestContext returns the trace context extracted by the middleware, or the
// fasthttp context itself when the handler runs without it.
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if traceCtx, ok := ctx.UserValue(TraceContextKey).(context.Context); ok {
		return traceCtx
	}
	return ctx
}

// bodyJSON returns the request body as a gjson document, treating an empty
// body as an empty object.
func bodyJSON(ctx *fasthttp.RequestCtx) (gjson.Result, bool) {
	body := ctx.PostBody()
	if len(body) == 0 {
		return gjson.Parse("{}"), true
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, false
	}

	return gjson.ParseBytes(body), true
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	response.NewResponse[any](stdCtx, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, data any) {
	response.NewResponse(stdCtx, data).Write(ctx)
}
