package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/curaious/voicerelay/internal/api/controllers"
	"github.com/curaious/voicerelay/internal/api/cors"
	"github.com/curaious/voicerelay/internal/api/response"
	"github.com/curaious/voicerelay/internal/perrors"
)

const requestIDHeader = "X-Request-ID"

// knownRoutes bounds the route label cardinality of request metrics.
var knownRoutes = map[string]struct{}{
	"/api/health": {},
	"/api/chat":   {},
	"/api/speech": {},
	"/metrics":    {},
}

func (s *Server) initNewRoutes() fasthttp.RequestHandler {
	r := router.New()

	api := r.Group("/api")
	controllers.RegisterHealthRoutes(api)
	controllers.RegisterChatRoutes(api, s.conf, s.provider)
	controllers.RegisterSpeechRoutes(api, s.conf, s.provider)

	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(s.metrics.Handler()))

	return s.withMiddlewares(r.Handler)
}

func (s *Server) withMiddlewares(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		method := string(ctx.Method())
		path := string(ctx.Path())

		requestID := string(ctx.Request.Header.Peek(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.Response.Header.Set(requestIDHeader, requestID)

		h := http.Header{}
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			h[string(k)] = []string{string(v)}
		})
		traceCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(h))
		ctx.SetUserValue(controllers.TraceContextKey, traceCtx)

		slog.InfoContext(traceCtx, "Started processing", slog.String("method", method), slog.String("request_uri", string(ctx.RequestURI())), slog.String("request_id", requestID))

		defer func() {
			status := ctx.Response.StatusCode()
			s.metrics.ObserveRequest(routeLabel(path), method, status, time.Since(start))
			slog.InfoContext(traceCtx, "Finished processing", slog.String("method", method), slog.String("request_uri", string(ctx.RequestURI())), slog.String("request_id", requestID), slog.Int("status", status), slog.Duration("duration", time.Since(start)))
		}()

		if !s.applyCORS(ctx) {
			return
		}
		if method == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		if len(ctx.PostBody()) > MaxRequestBodySize {
			response.NewResponse[any](traceCtx, nil).
				WithError(perrors.NewErrPayloadTooLarge("request entity too large", map[string]interface{}{"size": len(ctx.PostBody())})).
				Write(ctx)
			return
		}

		withRecovery(next)(ctx)
	}
}

// applyCORS runs the admission decision and writes the CORS headers.
// It returns false when the request was rejected and already answered.
func (s *Server) applyCORS(ctx *fasthttp.RequestCtx) bool {
	origin := string(ctx.Request.Header.Peek("Origin"))

	admit, matched := s.cors.Admit(origin)
	if !admit {
		s.metrics.ObserveCORSRejection()
		response.NewResponse[any](requestContextOf(ctx), nil).
			WithError(perrors.NewErrForbidden("Origin not allowed", nil, map[string]interface{}{"origin": origin})).
			Write(ctx)
		return false
	}
	if !matched {
		slog.DebugContext(requestContextOf(ctx), "Origin not allow-listed, admitted by permissive CORS mode", slog.String("origin", origin))
	}

	cors.Apply(ctx, origin)
	return true
}

func withRecovery(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		defer func() {
			if rec := recover(); rec != nil {
				ctx.Response.ResetBody()
				response.NewResponse[any](requestContextOf(ctx), nil).
					WithError(perrors.NewErrServerError(fmt.Errorf("panic: %v", rec))).
					Write(ctx)
			}
		}()

		next(ctx)
	}
}

func requestContextOf(ctx *fasthttp.RequestCtx) context.Context {
	if traceCtx, ok := ctx.UserValue(controllers.TraceContextKey).(context.Context); ok {
		return traceCtx
	}
	return ctx
}

func routeLabel(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	return "other"
}
