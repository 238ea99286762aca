package speech

// MaxInputLength caps the number of characters forwarded for synthesis.
const MaxInputLength = 10000

type Request struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// TruncateInput keeps at most MaxInputLength characters of text.
func TruncateInput(text string) string {
	if len(text) <= MaxInputLength {
		return text
	}

	n := 0
	for i := range text {
		if n == MaxInputLength {
			return text[:i]
		}
		n++
	}
	return text
}
