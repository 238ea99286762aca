package perrors

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
)

type ErrCode struct {
	Code   string `json:"code"`
	Status int    `json:"status"`
}

var (
	ErrCodeInvalidRequest    ErrCode = ErrCode{"invalid_request", http.StatusBadRequest}
	ErrCodeMissingCredential         = ErrCode{"missing_credential", http.StatusInternalServerError}
	ErrCodeForbidden                 = ErrCode{"forbidden", http.StatusForbidden}
	ErrCodePayloadTooLarge           = ErrCode{"payload_too_large", http.StatusRequestEntityTooLarge}
	ErrCodeServerError               = ErrCode{"server_error", http.StatusInternalServerError}
)

// Err is a classified error. Its JSON form is the response body sent to the
// caller: {"error": <Message>, "detail": <Detail>}.
type Err struct {
	Message    string                   `json:"error"`
	Detail     string                   `json:"detail,omitempty"`
	Err        string                   `json:"-"`
	Code       ErrCode                  `json:"-"`
	Stacktrace []string                 `json:"-"`
	Args       []map[string]interface{} `json:"-"`
}

func (e Err) Error() string {
	return e.Err
}

func (e Err) HttpStatus() int {
	return e.Code.Status
}

func (e Err) Print(ctx context.Context) {
	args := []any{slog.String("code", e.Code.Code), slog.Any("error", e.Error())}
	if len(e.Args) > 0 {
		for k, v := range e.Args[0] {
			args = append(args, slog.Any(k, v))
		}
	}
	args = append(args, slog.Any("stacktrace", e.Stacktrace))
	slog.ErrorContext(ctx, e.Message, args...)
}

func New(code ErrCode, msg string, err error, args ...map[string]interface{}) error {
	pc := make([]uintptr, 20)
	count := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:count])

	var stacktrace []string
	for frame, hasMore := frames.Next(); hasMore; frame, hasMore = frames.Next() {
		stacktrace = append(stacktrace, fmt.Sprintf("%s:%d", frame.File, frame.Line))
	}

	errString := msg
	if err != nil {
		errString = err.Error()
	}

	return Err{
		Code:       code,
		Message:    msg,
		Err:        errString,
		Stacktrace: stacktrace,
		Args:       args,
	}
}

func NewErrInvalidRequest(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeInvalidRequest, msg, err, args...)
}

func NewErrMissingCredential(msg string) error {
	return New(ErrCodeMissingCredential, msg, nil)
}

func NewErrForbidden(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeForbidden, msg, err, args...)
}

func NewErrPayloadTooLarge(msg string, args ...map[string]interface{}) error {
	return New(ErrCodePayloadTooLarge, msg, nil, args...)
}

// NewErrServerError reports an unexpected failure as {"error":"server_error","detail":<err>}.
func NewErrServerError(err error, args ...map[string]interface{}) error {
	perr := New(ErrCodeServerError, ErrCodeServerError.Code, err, args...).(Err)
	if err != nil {
		perr.Detail = err.Error()
	}
	return perr
}
