package controllers

import (
	"net/http"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// isoMillis matches the ISO-8601 form browsers produce for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type healthResponse struct {
	OK   bool   `json:"ok"`
	Time string `json:"time"`
}

func RegisterHealthRoutes(r *router.Group) {
	r.Handle(http.MethodGet, "/health", func(ctx *fasthttp.RequestCtx) {
		writeOK(ctx, requestContext(ctx), &healthResponse{
			OK:   true,
			Time: time.Now().UTC().Format(isoMillis),
		})
	})
}
