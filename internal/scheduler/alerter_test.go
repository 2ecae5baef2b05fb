package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/monitor"
	"github.com/hamed0406/healthwatch/internal/repo/memory"
)

// ---- shared helpers ----

const target = "http://backend.test"

func downEvent(failures uint) monitor.Event {
	o := domain.Failed(domain.KindTimeout, domain.MsgTimeout, time.Now())
	o.RetryCount = failures
	return monitor.Event{
		Cause:   monitor.CauseProbe,
		Target:  target,
		Outcome: o,
		State:   domain.State{IsDown: true, LastError: &o, ConsecutiveFailures: failures},
	}
}

func upEvent() monitor.Event {
	return monitor.Event{
		Cause:   monitor.CauseProbe,
		Target:  target,
		Outcome: domain.Healthy(time.Now()),
	}
}

type memNotifier struct {
	n     int
	title string
	text  string
}

func (m *memNotifier) Send(ctx context.Context, title, text string) error {
	m.n++
	m.title, m.text = title, text
	return nil
}

// ---- tests ----

func TestAlerter_SendsOnDown_RespectsCooldown(t *testing.T) {
	ctx := context.Background()
	nt := &memNotifier{}
	al := NewAlerter(nil, memory.New(0), nt, AlerterConfig{
		AlertOnRecovery: true,
		Cooldown:        1 * time.Minute,
	})

	// first failure -> alert
	if err := al.handle(ctx, downEvent(1)); err != nil {
		t.Fatal(err)
	}
	if nt.n != 1 || !strings.Contains(nt.title, "DOWN") || !strings.Contains(nt.text, "TimeoutError") {
		t.Fatalf("want 1 down alert, got %d %q %q", nt.n, nt.title, nt.text)
	}

	// repeated failures -> no new alert
	if err := al.handle(ctx, downEvent(2)); err != nil {
		t.Fatal(err)
	}
	if nt.n != 1 {
		t.Fatalf("repeat failures should not alert, got %d", nt.n)
	}

	// recovery -> allowed regardless of cooldown
	if err := al.handle(ctx, upEvent()); err != nil {
		t.Fatal(err)
	}
	if nt.n != 2 || !strings.Contains(nt.title, "RECOVERED") {
		t.Fatalf("want recovery alert, got %d %q", nt.n, nt.title)
	}

	// down again within cooldown of the last send -> suppressed
	if err := al.handle(ctx, downEvent(1)); err != nil {
		t.Fatal(err)
	}
	if nt.n != 2 {
		t.Fatalf("want cooldown to suppress, got %d", nt.n)
	}

	// after the cooldown the next transition alerts again
	al.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_ = al.handle(ctx, upEvent())
	_ = al.handle(ctx, downEvent(1))
	if nt.n != 4 {
		t.Fatalf("want recovery + down after cooldown, got %d", nt.n)
	}
}

func TestAlerter_NoRecoveryIfDisabled(t *testing.T) {
	ctx := context.Background()
	nt := &memNotifier{}
	al := NewAlerter(nil, memory.New(0), nt, AlerterConfig{AlertOnRecovery: false})

	// first healthy sighting -> never alerts
	if err := al.handle(ctx, upEvent()); err != nil {
		t.Fatal(err)
	}
	if nt.n != 0 {
		t.Fatalf("unexpected alert: %d", nt.n)
	}

	if err := al.handle(ctx, downEvent(1)); err != nil {
		t.Fatal(err)
	}
	if nt.n != 1 {
		t.Fatalf("want one down alert, got %d", nt.n)
	}

	if err := al.handle(ctx, upEvent()); err != nil {
		t.Fatal(err)
	}
	if nt.n != 1 {
		t.Fatalf("recovery alert should be off, got %d", nt.n)
	}
}

func TestAlerter_RunConsumesObservedEvents(t *testing.T) {
	nt := &memNotifier{}
	store := memory.New(0)
	al := NewAlerter(nil, store, nt, AlerterConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go al.Run(ctx)

	al.Observe(downEvent(1))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rec, _ := store.Get(ctx, target); rec != nil && rec.LastDown {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("alert state was never recorded")
}
