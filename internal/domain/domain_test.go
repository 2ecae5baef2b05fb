package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestState_JSONShape(t *testing.T) {
	at := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	lastErr := Failed(KindOffline, MsgOffline, at)
	lastErr.RetryCount = 2
	s := State{IsDown: true, LastError: &lastErr, ConsecutiveFailures: 2}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["isDown"] != true || got["isChecking"] != false || got["retryCount"] != float64(2) {
		t.Fatalf("unexpected top level: %s", b)
	}
	le, ok := got["lastError"].(map[string]any)
	if !ok {
		t.Fatalf("lastError missing: %s", b)
	}
	if le["type"] != "OfflineError" || le["message"] != MsgOffline || le["retryCount"] != float64(2) {
		t.Fatalf("unexpected lastError: %v", le)
	}
	if le["timestamp"] != "2025-08-18T12:00:00Z" {
		t.Fatalf("unexpected timestamp: %v", le["timestamp"])
	}
	if _, leaked := le["StatusCode"]; leaked {
		t.Fatalf("status code should not be serialised: %v", le)
	}
}

func TestState_HealthyHasNullLastError(t *testing.T) {
	b, _ := json.Marshal(State{})
	if string(b) != `{"isDown":false,"isChecking":false,"lastError":null,"retryCount":0}` {
		t.Fatalf("unexpected: %s", b)
	}
}

func TestState_CloneDetachesLastError(t *testing.T) {
	o := Failed(KindServer, "boom", time.Now())
	s := State{IsDown: true, LastError: &o}
	c := s.Clone()
	c.LastError.Message = "changed"
	if s.LastError.Message != "boom" {
		t.Fatalf("clone shares LastError")
	}
}

func TestErrorKind_UserMessage(t *testing.T) {
	if KindOffline.UserMessage() == KindNetwork.UserMessage() {
		t.Fatalf("offline and network messages should differ")
	}
	if ErrorKind("").UserMessage() != KindNetwork.UserMessage() {
		t.Fatalf("unknown kind should fall back to the network message")
	}
}

func TestNewCheckRecord(t *testing.T) {
	o := Failed(KindServer, "Server error: Server responded with status: 503", time.Now())
	o.StatusCode = 503
	o.RetryCount = 3
	r := NewCheckRecord("http://api", o)
	if r.Up || r.Kind != KindServer || r.HTTPStatus == nil || *r.HTTPStatus != 503 || r.RetryCount != 3 {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.LatencyMS != nil {
		t.Fatalf("zero latency should be nil")
	}

	h := NewCheckRecord("http://api", Healthy(time.Now()))
	if !h.Up || h.Kind != "" || h.HTTPStatus != nil {
		t.Fatalf("unexpected healthy record: %+v", h)
	}
}
