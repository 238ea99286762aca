package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	json "github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/curaious/voicerelay/internal/perrors"
)

type Response[T any] struct {
	ctx    context.Context
	Data   T
	Status int
	err    *perrors.Err
}

func NewResponse[T any](ctx context.Context, data T) *Response[T] {
	return &Response[T]{
		ctx:    ctx,
		Data:   data,
		Status: http.StatusOK,
	}
}

// WithError replaces the body with the classified error and takes its status.
// Errors that are not perrors.Err are reported as server_error.
func (r *Response[T]) WithError(err error) *Response[T] {
	var perr perrors.Err
	if !errors.As(err, &perr) {
		perr = perrors.NewErrServerError(err).(perrors.Err)
	}

	perr.Print(r.ctx)
	r.Status = perr.HttpStatus()
	r.err = &perr

	return r
}

// WithStatus will set the HTTP response status code.
//
// This is not a preferred way of setting status code.
//   - Try to use perrors.Err embedded with a status code whenever possible.
//   - Default is http.StatusOK and it need not be set explicitly.
func (r *Response[T]) WithStatus(code int) *Response[T] {
	r.Status = code

	return r
}

// Write will set the `content-type` to `application/json` and write the response to the fasthttp context.
func (r *Response[T]) Write(ctx *fasthttp.RequestCtx) {
	var payload any = r.Data
	if r.err != nil {
		payload = r.err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(r.ctx, "Unable to json encode response", slog.Any("error", err))
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.Response.Header.Set("content-type", "application/json")
	ctx.SetStatusCode(r.Status)
	ctx.SetBody(body)
}

// WriteRaw writes body untouched with the given status and content type.
func WriteRaw(ctx *fasthttp.RequestCtx, status int, contentType string, body []byte) {
	ctx.Response.Header.Set("content-type", contentType)
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
