package speech

const ContentTypeMPEG = "audio/mpeg"

type Response struct {
	Audio       []byte `json:"audio"`
	ContentType string `json:"content_type"`
}
