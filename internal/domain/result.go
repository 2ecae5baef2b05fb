package domain

import "time"

// CheckRecord is one applied outcome kept in the check history.
type CheckRecord struct {
	ID         int64     `json:"id"`
	Target     string    `json:"target"`
	Up         bool      `json:"up"`
	Kind       ErrorKind `json:"kind,omitempty"`
	HTTPStatus *int      `json:"http_status"` // pointer to allow nil
	LatencyMS  *float64  `json:"latency_ms"`  // pointer to allow nil
	Message    string    `json:"message"`
	RetryCount uint      `json:"retry_count"`
	CheckedAt  time.Time `json:"checked_at"`
}

// NewCheckRecord flattens an outcome for storage.
func NewCheckRecord(target string, o Outcome) *CheckRecord {
	r := &CheckRecord{
		Target:     target,
		Up:         o.IsHealthy(),
		Kind:       o.Kind,
		Message:    o.Message,
		RetryCount: o.RetryCount,
		CheckedAt:  o.Timestamp,
	}
	if o.StatusCode != 0 {
		v := o.StatusCode
		r.HTTPStatus = &v
	}
	if o.LatencyMS != 0 {
		v := o.LatencyMS
		r.LatencyMS = &v
	}
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	return r
}
