package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Decoder reads text-like assets in full. Invalid UTF-8 sequences become U+FFFD,
// the same substitution a browser text reader applies.
type Decoder struct {
	maxBytes int64
}

func NewDecoder(maxBytes int64) *Decoder {
	return &Decoder{maxBytes: maxBytes}
}

func (d *Decoder) DecodeText(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src := r
	if d.maxBytes > 0 {
		src = io.LimitReader(r, d.maxBytes+1)
	}

	raw, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read text content: %w", err)
	}
	if d.maxBytes > 0 && int64(len(raw)) > d.maxBytes {
		return "", fmt.Errorf("text content exceeds %d bytes", d.maxBytes)
	}

	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}
