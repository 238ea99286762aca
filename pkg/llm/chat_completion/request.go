package chat_completion

import "encoding/json"

// Request is the body sent to the upstream /chat/completions endpoint.
// Messages is the caller's value kept as raw JSON, so it reaches upstream
// untouched even when it is not an array.
type Request struct {
	Model    string          `json:"model"`
	Messages json.RawMessage `json:"messages"`
}

// EmptyMessages is sent when the caller gave no messages.
var EmptyMessages = json.RawMessage(`[]`)

// Result is a successful chat completion: the first choice's text plus the
// full upstream payload.
type Result struct {
	Reply string
	Raw   []byte
}
