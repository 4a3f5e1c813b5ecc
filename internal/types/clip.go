package types

import "strings"

// ClipData is the payload stored per clip. This is the exact wire shape:
// the remote store keeps `{text, timestamp}` under a generated id.
type ClipData struct {
	Text string `json:"text" dynamodbav:"text"`
	// Timestamp is client-assigned milliseconds since epoch at creation.
	Timestamp int64 `json:"timestamp" dynamodbav:"timestamp"`
}

// Clip is a synchronized clipboard entry as seen by callers: the stored
// payload plus the id the remote store assigned at creation. A clip is
// immutable once created; the only mutation is deletion.
type Clip struct {
	ID string `json:"id"`
	ClipData
}

func (d ClipData) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return Err(ErrValidation, nil, "clip text must be non-empty")
	}
	if d.Timestamp <= 0 {
		return Err(ErrValidation, nil, "clip timestamp must be positive")
	}
	return nil
}

// NewClipData trims the raw text and builds the payload. Returns
// ErrValidation when the trimmed text is empty, before anything reaches
// the network.
func NewClipData(raw string, timestampMillis int64) (ClipData, error) {
	d := ClipData{Text: strings.TrimSpace(raw), Timestamp: timestampMillis}
	if err := d.Validate(); err != nil {
		return ClipData{}, err
	}
	return d, nil
}
