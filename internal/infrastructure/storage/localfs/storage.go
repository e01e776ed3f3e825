package localfs

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

// Source is the file-selection surface for local files.
type Source struct {
	basePath string
	maxBytes int64
}

func New(basePath string, maxBytes int64) *Source {
	if maxBytes <= 0 {
		maxBytes = domain.MaxFileSize
	}
	return &Source{basePath: basePath, maxBytes: maxBytes}
}

// Select stats a file and returns a lazily-read asset. Files above the ceiling are
// rejected here, before any content is read.
func (s *Source) Select(name string) (domain.FileAsset, error) {
	path := name
	if s.basePath != "" && !filepath.IsAbs(name) {
		path = filepath.Join(s.basePath, name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.FileAsset{}, domain.WrapError(domain.ErrIO, "select file", err)
	}
	if info.IsDir() {
		return domain.FileAsset{}, domain.WrapError(domain.ErrInvalidInput, "select file", fmt.Errorf("%s is a directory", path))
	}
	if info.Size() > s.maxBytes {
		return domain.FileAsset{}, domain.WrapError(
			domain.ErrInvalidInput,
			"select file",
			fmt.Errorf("%s is %d bytes, limit is %d", filepath.Base(path), info.Size(), s.maxBytes),
		)
	}

	mimeType, err := detectMimeType(path)
	if err != nil {
		return domain.FileAsset{}, domain.WrapError(domain.ErrIO, "select file", err)
	}

	return domain.FileAsset{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     info.Size(),
		Open: func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open file: %w", err)
			}
			return f, nil
		},
	}, nil
}

func detectMimeType(path string) (string, error) {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		mediaType, _, err := mime.ParseMediaType(byExt)
		if err == nil {
			return mediaType, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("sniff file: %w", err)
	}
	sniffed := http.DetectContentType(head[:n])
	return strings.TrimSpace(strings.Split(sniffed, ";")[0]), nil
}
