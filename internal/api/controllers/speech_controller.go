package controllers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/curaious/voicerelay/internal/api/response"
	"github.com/curaious/voicerelay/internal/config"
	"github.com/curaious/voicerelay/internal/perrors"
	"github.com/curaious/voicerelay/pkg/llm"
	"github.com/curaious/voicerelay/pkg/llm/speech"
	"github.com/fasthttp/router"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
)

func RegisterSpeechRoutes(r *router.Group, conf *config.Config, provider llm.Provider) {
	r.Handle(http.MethodPost, "/speech", func(reqCtx *fasthttp.RequestCtx) {
		ctx, span := tracer.Start(requestContext(reqCtx), "Controller.Speech")
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

		text := speech.TruncateInput(coerceText(body.Get("text")))
		if text == "" {
			writeError(reqCtx, ctx, span, perrors.NewErrInvalidRequest("No text", nil))
			return
		}
		span.SetAttributes(attribute.Int("speech.input_length", len(text)))

		out, err := provider.SynthesizeSpeech(ctx, text)
		if err != nil {
			if uerr, ok := llm.AsUpstreamError(err); ok {
				span.SetAttributes(attribute.Int("upstream.status_code", uerr.StatusCode))
				response.WriteRaw(reqCtx, uerr.StatusCode, "text/plain; charset=utf-8", uerr.Body)
				return
			}
			if errors.Is(err, llm.ErrMissingAPIKey) {
				writeError(reqCtx, ctx, span, perrors.NewErrMissingCredential(err.Error()))
				return
			}
			writeError(reqCtx, ctx, span, perrors.NewErrServerError(err))
			return
		}

		response.WriteRaw(reqCtx, http.StatusOK, speech.ContentTypeMPEG, out.Audio)
	})
}

// coerceText turns the caller's text field into a string. Falsy values
// (absent, null, false, 0, "") become empty, anything else is stringified
// with browser semantics: 1e2 is "100", ["a","b"] is "a,b".
func coerceText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null, gjson.False:
		return ""
	case gjson.Number:
		if v.Num == 0 {
			return ""
		}
	}
	return stringify(v)
}

func stringify(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return formatNumber(v.Num)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.JSON:
		if !v.IsArray() {
			return "[object Object]"
		}
		items := v.Array()
		parts := make([]string, len(items))
		for i, item := range items {
			if item.Type != gjson.Null {
				parts[i] = stringify(item)
			}
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// formatNumber prints f as the shortest round-tripping decimal, switching to
// exponent form outside [1e-6, 1e21).
func formatNumber(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
