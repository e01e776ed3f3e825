package domain

type PartKind string

const (
	PartKindText   PartKind = "text"
	PartKindInline PartKind = "inline_data"
)

// Part is one element of a request payload: text, or base64 data tagged with a MIME type.
type Part struct {
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func InlinePart(mimeType, base64Data string) Part {
	return Part{MimeType: mimeType, Data: base64Data}
}

func (p Part) Kind() PartKind {
	if p.MimeType != "" {
		return PartKindInline
	}
	return PartKindText
}

type RequestPayload struct {
	Parts []Part `json:"parts"`
}
