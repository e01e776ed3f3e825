package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/core/ports"
)

type FailureClass int

const (
	FailureFatal FailureClass = iota
	FailureRateLimited
)

func (c FailureClass) String() string {
	if c == FailureRateLimited {
		return "rate_limited"
	}
	return "fatal"
}

const resourceExhausted = "RESOURCE_EXHAUSTED"

// ClassifyFailure decides whether a report request failure is throttling.
// Substring matching is case-sensitive.
func ClassifyFailure(err error) FailureClass {
	if err == nil {
		return FailureFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureFatal
	}
	if domain.IsKind(err, domain.ErrMalformedReport) || domain.IsKind(err, domain.ErrUnauthorized) {
		return FailureFatal
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Code == 429 || upstream.Status == resourceExhausted {
			return FailureRateLimited
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, resourceExhausted) {
		return FailureRateLimited
	}
	return FailureFatal
}

func classifyForRetry(err error) ports.RetryDecision {
	if errors.Is(err, context.Canceled) {
		return ports.RetryDecision{}
	}
	if ClassifyFailure(err) == FailureRateLimited {
		return ports.RetryDecision{Retry: true, Record: true}
	}
	if domain.IsKind(err, domain.ErrMalformedReport) || domain.IsKind(err, domain.ErrUnauthorized) {
		return ports.RetryDecision{Retry: false, Record: false}
	}
	return ports.RetryDecision{Retry: false, Record: true}
}
