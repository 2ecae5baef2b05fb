package probe

import (
	"context"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// CheckResult is the unified result of a single probe.
//
// Fields:
// - StatusCode: HTTP status code when available; 0 for transport errors.
// - Kind: empty on success, otherwise the failure classification.
type CheckResult struct {
	Success    bool
	Kind       domain.ErrorKind
	LatencyMS  float64
	Message    string
	StatusCode int
}

// Checker performs a single liveness check against a base URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
