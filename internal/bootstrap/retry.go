package bootstrap

import (
	"context"

	"github.com/kirillkom/forensic-scan/internal/core/ports"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/resilience"
)

// retryExecutor exposes a resilience.Executor through the core retry port.
type retryExecutor struct {
	executor *resilience.Executor
}

func newRetryExecutor(executor *resilience.Executor) ports.RetryExecutor {
	return retryExecutor{executor: executor}
}

func (r retryExecutor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	decide func(error) ports.RetryDecision,
) error {
	var classifier resilience.ErrorClassifier
	if decide != nil {
		classifier = func(err error) resilience.ErrorClassification {
			d := decide(err)
			return resilience.ErrorClassification{Retryable: d.Retry, RecordFailure: d.Record}
		}
	}
	return r.executor.Execute(ctx, operation, fn, classifier)
}
