package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/core/ports"
)

type assetClass int

const (
	assetClassText assetClass = iota
	assetClassBinary
	assetClassMetadataOnly
)

var textExtensions = map[string]struct{}{
	"txt":  {},
	"md":   {},
	"csv":  {},
	"json": {},
}

type Normalizer struct {
	decoder ports.TextDecoder
}

func NewNormalizer(decoder ports.TextDecoder) *Normalizer {
	return &Normalizer{decoder: decoder}
}

func (n *Normalizer) Normalize(ctx context.Context, asset domain.Asset) (domain.RequestPayload, error) {
	switch a := asset.(type) {
	case domain.URLAsset:
		return n.normalizeURL(a)
	case *domain.URLAsset:
		if a == nil {
			break
		}
		return n.normalizeURL(*a)
	case domain.FileAsset:
		return n.normalizeFile(ctx, a)
	case *domain.FileAsset:
		if a == nil {
			break
		}
		return n.normalizeFile(ctx, *a)
	}
	return domain.RequestPayload{}, domain.WrapError(domain.ErrInvalidInput, "normalize asset", errors.New("no asset selected"))
}

func (n *Normalizer) normalizeURL(a domain.URLAsset) (domain.RequestPayload, error) {
	target := strings.TrimSpace(a.URL)
	if target == "" {
		return domain.RequestPayload{}, domain.WrapError(domain.ErrInvalidInput, "normalize url", errors.New("url is empty"))
	}
	return domain.RequestPayload{Parts: []domain.Part{domain.TextPart(buildURLInstruction(target))}}, nil
}

func (n *Normalizer) normalizeFile(ctx context.Context, a domain.FileAsset) (domain.RequestPayload, error) {
	if a.Size > domain.MaxFileSize {
		return domain.RequestPayload{}, domain.WrapError(
			domain.ErrInvalidInput,
			"normalize file",
			fmt.Errorf("file %s is %d bytes, limit is %d", a.Name, a.Size, domain.MaxFileSize),
		)
	}

	switch classifyFile(a) {
	case assetClassText:
		text, err := n.readText(ctx, a)
		if err != nil {
			return domain.RequestPayload{}, err
		}
		return domain.RequestPayload{Parts: []domain.Part{domain.TextPart(buildTextInstruction(a.Name, text))}}, nil
	case assetClassBinary:
		encoded, err := readBase64(a)
		if err != nil {
			return domain.RequestPayload{}, err
		}
		return domain.RequestPayload{Parts: []domain.Part{
			domain.InlinePart(a.MimeType, encoded),
			domain.TextPart(buildBinaryInstruction(a.Name, a.MimeType)),
		}}, nil
	default:
		return domain.RequestPayload{Parts: []domain.Part{domain.TextPart(buildMetadataInstruction(a))}}, nil
	}
}

func classifyFile(a domain.FileAsset) assetClass {
	mimeType := strings.ToLower(strings.TrimSpace(a.MimeType))
	if strings.HasPrefix(mimeType, "text/") {
		return assetClassText
	}
	if _, ok := textExtensions[a.Extension()]; ok {
		return assetClassText
	}
	switch {
	case mimeType == "application/pdf",
		strings.HasPrefix(mimeType, "image/"),
		strings.HasPrefix(mimeType, "video/"):
		return assetClassBinary
	default:
		return assetClassMetadataOnly
	}
}

func (n *Normalizer) readText(ctx context.Context, a domain.FileAsset) (string, error) {
	rc, err := openAsset(a)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	text, err := n.decoder.DecodeText(ctx, rc)
	if err != nil {
		return "", domain.WrapError(domain.ErrIO, "read text asset", err)
	}
	return text, nil
}

func readBase64(a domain.FileAsset) (string, error) {
	rc, err := openAsset(a)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, domain.MaxFileSize+1))
	if err != nil {
		return "", domain.WrapError(domain.ErrIO, "encode binary asset", err)
	}
	if int64(len(raw)) > domain.MaxFileSize {
		return "", domain.WrapError(domain.ErrInvalidInput, "encode binary asset", fmt.Errorf("file %s exceeds size limit", a.Name))
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func openAsset(a domain.FileAsset) (io.ReadCloser, error) {
	if a.Open == nil {
		return nil, domain.WrapError(domain.ErrIO, "open asset", fmt.Errorf("file %s has no readable content", a.Name))
	}
	rc, err := a.Open()
	if err != nil {
		return nil, domain.WrapError(domain.ErrIO, "open asset", err)
	}
	return rc, nil
}
