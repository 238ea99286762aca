package cors

import (
	"strings"

	"github.com/curaious/voicerelay/internal/config"
	"github.com/valyala/fasthttp"
)

const (
	allowMethods        = "GET,POST,OPTIONS"
	defaultAllowHeaders = "Content-Type,Authorization"
)

// IsOriginAllowed reports whether origin may make cross-origin requests.
// A missing Origin is always allowed; otherwise origin must start with one
// of the allow-listed origins.
func IsOriginAllowed(origin string, allowlist []string) bool {
	if origin == "" {
		return true
	}

	for _, allowed := range allowlist {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// Policy is the CORS admission decision for one deployment.
type Policy struct {
	Mode           config.CORSMode
	AllowedOrigins []string
}

func NewPolicy(conf *config.Config) *Policy {
	return &Policy{
		Mode:           conf.CORS_MODE,
		AllowedOrigins: conf.ALLOWED_ORIGINS,
	}
}

// Admit returns whether the request is let through and whether its origin
// matched the allow-list. In permissive mode every request is let through.
func (p *Policy) Admit(origin string) (admit bool, matched bool) {
	matched = IsOriginAllowed(origin, p.AllowedOrigins)
	if p.Mode == config.CORSModeStrict {
		return matched, matched
	}
	return true, matched
}

// Apply writes the CORS response headers for an admitted request.
func Apply(ctx *fasthttp.RequestCtx, origin string) {
	headers := &ctx.Response.Header
	headers.Add("Vary", "Origin")
	if origin == "" {
		return
	}

	headers.Set("Access-Control-Allow-Origin", origin)
	headers.Set("Access-Control-Allow-Methods", allowMethods)

	if requested := ctx.Request.Header.Peek("Access-Control-Request-Headers"); len(requested) > 0 {
		headers.SetBytesV("Access-Control-Allow-Headers", requested)
	} else {
		headers.Set("Access-Control-Allow-Headers", defaultAllowHeaders)
	}
}
