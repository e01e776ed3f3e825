package domain

import (
	"io"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest file accepted for submission (50 MiB).
const MaxFileSize int64 = 50 << 20

type AssetKind string

const (
	AssetKindURL  AssetKind = "url"
	AssetKindFile AssetKind = "file"
)

// Asset is the user-submitted subject of a scan: a URLAsset or a FileAsset.
type Asset interface {
	Kind() AssetKind
	Describe() AssetSummary
}

type URLAsset struct {
	URL string
}

func (a URLAsset) Kind() AssetKind { return AssetKindURL }

func (a URLAsset) Describe() AssetSummary {
	return AssetSummary{Kind: AssetKindURL, URL: a.URL}
}

// FileAsset carries file metadata and a lazy reader so unsupported types are never opened.
type FileAsset struct {
	Name     string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

func (a FileAsset) Kind() AssetKind { return AssetKindFile }

func (a FileAsset) Describe() AssetSummary {
	return AssetSummary{Kind: AssetKindFile, Name: a.Name, MimeType: a.MimeType, Size: a.Size}
}

// Extension returns the lower-cased file extension without the dot.
func (a FileAsset) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(a.Name)), ".")
}

type AssetSummary struct {
	Kind     AssetKind `json:"kind"`
	URL      string    `json:"url,omitempty"`
	Name     string    `json:"name,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Size     int64     `json:"size,omitempty"`
}

// IsEmptyAsset reports whether an asset cannot be submitted as-is.
func IsEmptyAsset(a Asset) bool {
	switch v := a.(type) {
	case nil:
		return true
	case URLAsset:
		return strings.TrimSpace(v.URL) == ""
	case *URLAsset:
		return v == nil || strings.TrimSpace(v.URL) == ""
	case FileAsset:
		return v.Open == nil && v.Name == ""
	case *FileAsset:
		return v == nil || (v.Open == nil && v.Name == "")
	default:
		return false
	}
}
