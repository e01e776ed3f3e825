package ports

import (
	"context"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

// ScanSession is the inbound contract for the single scan session.
type ScanSession interface {
	State() domain.State
	Changed() <-chan struct{}
	SelectFile(asset domain.FileAsset) error
	SetURL(rawURL string) error
	Submit(ctx context.Context) (domain.State, error)
	SubmitAsset(ctx context.Context, asset domain.Asset) (domain.State, error)
	AnimationComplete() domain.State
	Reset() domain.State
}

// AssetNormalizer turns a submitted asset into a request payload.
type AssetNormalizer interface {
	Normalize(ctx context.Context, asset domain.Asset) (domain.RequestPayload, error)
}

// ReportService obtains a validated report for a payload.
type ReportService interface {
	Request(ctx context.Context, payload domain.RequestPayload) (*domain.ForensicReport, error)
}
