package connectivity

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

var _ Probe = (*Static)(nil)
var _ Probe = (*Watcher)(nil)

func TestStatic_FiresOnlyOnTransitions(t *testing.T) {
	s := NewStatic(true)
	var got []bool
	cancel := s.OnChange(func(online bool) { got = append(got, online) })

	s.SetOnline(true) // no change
	s.SetOnline(false)
	s.SetOnline(false) // no change
	s.SetOnline(true)

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Fatalf("unexpected transitions: %v", got)
	}

	cancel()
	cancel() // idempotent
	s.SetOnline(false)
	if len(got) != 2 {
		t.Fatalf("listener fired after cancel: %v", got)
	}
	if s.IsOnline() {
		t.Fatalf("want offline")
	}
}

type fakeResolver struct {
	mu  sync.Mutex
	err error
}

func (f *fakeResolver) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []net.IP{net.ParseIP("192.0.2.1")}, nil
}

func TestCheckDNS_Classes(t *testing.T) {
	ctx := context.Background()
	r := &fakeResolver{}

	if s := CheckDNS(ctx, r, "example.com"); s.Class != "RESOLVES" || !s.Online() {
		t.Fatalf("want RESOLVES, got %+v", s)
	}
	if s := CheckDNS(ctx, r, "https://example.com"); s.Class != "INVALID_NAME" || s.Online() {
		t.Fatalf("want INVALID_NAME, got %+v", s)
	}

	r.setErr(&net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true})
	if s := CheckDNS(ctx, r, "nope.invalid"); s.Class != "NXDOMAIN" || !s.Online() {
		t.Fatalf("want NXDOMAIN (online), got %+v", s)
	}

	r.setErr(errors.New("dial udp: network is unreachable"))
	if s := CheckDNS(ctx, r, "example.com"); s.Class != "SERVFAIL_or_TIMEOUT" || s.Online() {
		t.Fatalf("want SERVFAIL_or_TIMEOUT, got %+v", s)
	}
}

func TestWatcher_ReportsTransitions(t *testing.T) {
	r := &fakeResolver{}
	w := NewWatcher(zap.NewNop(), "example.com", 5*time.Millisecond)
	w.Resolver = r

	changes := make(chan bool, 8)
	w.OnChange(func(online bool) { changes <- online })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	r.setErr(errors.New("network is unreachable"))
	select {
	case online := <-changes:
		if online {
			t.Fatalf("want offline transition first")
		}
	case <-time.After(time.Second):
		t.Fatalf("no offline transition")
	}

	r.setErr(nil)
	select {
	case online := <-changes:
		if !online {
			t.Fatalf("want online transition")
		}
	case <-time.After(time.Second):
		t.Fatalf("no online transition")
	}
}
