package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
)

const (
	DefaultPath    = "/health"
	DefaultTimeout = 5 * time.Second

	healthyStatus = "healthy"
	maxBodyBytes  = 64 << 10
)

// HealthChecker probes GET {target}{Path} and expects 2xx with {"status":"healthy"}.
type HealthChecker struct {
	Client *http.Client
	Path   string
}

func NewHealthChecker(path string, timeout time.Duration) *HealthChecker {
	if path == "" {
		path = DefaultPath
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HealthChecker{
		Client: &http.Client{Timeout: timeout},
		Path:   path,
	}
}

type healthPayload struct {
	Status string `json:"status"`
}

func (h *HealthChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	url := strings.TrimSuffix(target, "/") + h.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CheckResult{Kind: domain.KindNetwork, Message: domain.MsgNetwork}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		if isTimeout(ctx, err) {
			return CheckResult{Kind: domain.KindTimeout, Message: domain.MsgTimeout, LatencyMS: latency}
		}
		return CheckResult{Kind: domain.KindNetwork, Message: domain.MsgNetwork, LatencyMS: latency}
	}
	defer resp.Body.Close()

	out := CheckResult{StatusCode: resp.StatusCode, LatencyMS: latency}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		out.Kind = domain.KindServer
		out.Message = fmt.Sprintf("Server error: Server responded with status: %d", resp.StatusCode)
		return out
	}

	var p healthPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&p); err != nil {
		if isTimeout(ctx, err) {
			out.Kind, out.Message = domain.KindTimeout, domain.MsgTimeout
			return out
		}
		// unparseable body is treated like a failed fetch
		out.Kind, out.Message = domain.KindNetwork, domain.MsgNetwork
		return out
	}
	if p.Status != healthyStatus {
		out.Kind = domain.KindServer
		out.Message = fmt.Sprintf("Server error: Server status: %s", p.Status)
		return out
	}

	out.Success = true
	out.Message = resp.Status
	return out
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
