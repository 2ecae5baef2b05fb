// Package monitor keeps a single, continuously updated belief about whether
// the backend is reachable.
//
// All state is owned by one event-loop goroutine. Probes run on their own
// goroutine and post the result back to the loop; retry timers and
// connectivity changes do the same. At most one probe is in flight, and at
// most one retry timer is pending.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/connectivity"
	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/probe"
)

const inboxSize = 64

// Cause says what produced an Event.
type Cause string

const (
	CauseProbe   Cause = "probe"
	CauseOffline Cause = "offline"
)

// Event is emitted after every applied outcome.
type Event struct {
	Cause   Cause
	Target  string
	Outcome domain.Outcome
	State   domain.State
	// Online is the connectivity reading when the outcome was applied.
	Online bool
}

type Options struct {
	Checker      probe.Checker
	Target       string // base URL; the checker appends the health path
	Connectivity connectivity.Probe
	Clock        Clock
	Logger       *zap.Logger
	Timeout      time.Duration
	Backoff      Backoff

	// RescheduleOnCollision reschedules a retry that fires while a check is
	// in flight instead of dropping it.
	RescheduleOnCollision bool
}

type Monitor struct {
	checker    probe.Checker
	target     string
	conn       connectivity.Probe
	clock      Clock
	log        *zap.Logger
	timeout    time.Duration
	backoff    Backoff
	reschedule bool

	inbox chan any
	done  chan struct{}

	lifeMu   sync.Mutex
	started  bool
	disposed bool
	running  atomic.Bool
	cancel   context.CancelFunc
	unsubCon func()

	snapMu sync.RWMutex
	snap   domain.State

	subMu   sync.Mutex
	subNext int
	subs    map[int]func(Event)

	queueMu      sync.Mutex
	queue        []Event
	wake         chan struct{}
	dispatchDone chan struct{}

	// owned by the loop goroutine
	st          domain.State
	checking    bool
	probeCancel context.CancelFunc
	retry       Timer
	retryGen    uint64
}

// loop messages
type (
	checkRequested struct{}
	probeFinished  struct{ res probe.CheckResult }
	retryFired     struct{ gen uint64 }
	wentOnline     struct{}
	wentOffline    struct{}
)

// New validates opts and returns an idle monitor. Call Init to start it.
func New(opts Options) (*Monitor, error) {
	if opts.Checker == nil {
		return nil, errors.New("monitor: checker required")
	}
	if opts.Target == "" {
		return nil, errors.New("monitor: target required")
	}
	if opts.Connectivity == nil {
		opts.Connectivity = connectivity.NewStatic(true)
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = probe.DefaultTimeout
	}
	if opts.Backoff == (Backoff{}) {
		opts.Backoff = DefaultBackoff()
	}
	if opts.Backoff.Base <= 0 || opts.Backoff.Max < opts.Backoff.Base {
		return nil, errors.New("monitor: backoff base must be > 0 and <= max")
	}
	return &Monitor{
		checker:      opts.Checker,
		target:       opts.Target,
		conn:         opts.Connectivity,
		clock:        opts.Clock,
		log:          opts.Logger,
		timeout:      opts.Timeout,
		backoff:      opts.Backoff,
		reschedule:   opts.RescheduleOnCollision,
		inbox:        make(chan any, inboxSize),
		done:         make(chan struct{}),
		subs:         make(map[int]func(Event)),
		wake:         make(chan struct{}, 1),
		dispatchDone: make(chan struct{}),
	}, nil
}

// Init starts the event loop, follows connectivity changes and runs the first check.
// Cancelling ctx has the same effect as Dispose, minus waiting.
func (m *Monitor) Init(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.disposed {
		return errors.New("monitor: disposed")
	}
	if m.started {
		return errors.New("monitor: already initialised")
	}
	m.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running.Store(true)

	go m.loop(loopCtx)
	go m.dispatch()

	m.unsubCon = m.conn.OnChange(func(online bool) {
		if online {
			m.HandleOnline()
		} else {
			m.HandleOffline()
		}
	})

	m.log.Info("monitor_started",
		zap.String("target", m.target),
		zap.Duration("timeout", m.timeout),
		zap.Duration("retry_base", m.backoff.Base),
		zap.Duration("retry_max", m.backoff.Max),
	)
	m.CheckHealth()
	return nil
}

// Dispose cancels the pending retry and any in-flight probe, then stops the loop.
// Safe to call more than once.
func (m *Monitor) Dispose() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.disposed {
		return
	}
	m.disposed = true
	m.running.Store(false)
	if m.unsubCon != nil {
		m.unsubCon()
	}
	if !m.started {
		return
	}
	m.cancel()
	<-m.done
	<-m.dispatchDone
	m.log.Info("monitor_stopped", zap.String("target", m.target))
}

// CheckHealth triggers an asynchronous probe. It is a no-op while a probe is
// in flight and after Dispose.
func (m *Monitor) CheckHealth() { m.send(checkRequested{}) }

// HandleOnline probes immediately, bypassing backoff, if the backend is believed down.
func (m *Monitor) HandleOnline() { m.send(wentOnline{}) }

// HandleOffline marks the backend down without a network call and schedules a retry.
func (m *Monitor) HandleOffline() { m.send(wentOffline{}) }

// State returns a snapshot of the current belief.
func (m *Monitor) State() domain.State {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap.Clone()
}

// Target is the base URL being probed.
func (m *Monitor) Target() string { return m.target }

// Subscribe registers fn for every applied outcome. Events are delivered in
// order on a single dispatcher goroutine, never on the loop.
func (m *Monitor) Subscribe(fn func(Event)) (cancel func()) {
	m.subMu.Lock()
	id := m.subNext
	m.subNext++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Monitor) send(msg any) {
	if !m.running.Load() {
		return
	}
	select {
	case m.inbox <- msg:
	case <-m.done:
	}
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.running.Store(false)
			m.cancelRetry()
			if m.probeCancel != nil {
				m.probeCancel()
				m.probeCancel = nil
			}
			return
		case msg := <-m.inbox:
			m.handle(ctx, msg)
		}
	}
}

func (m *Monitor) handle(ctx context.Context, msg any) {
	switch msg := msg.(type) {
	case checkRequested:
		m.startCheck(ctx)
	case probeFinished:
		m.finishCheck(msg.res)
	case retryFired:
		m.onRetry(ctx, msg.gen)
	case wentOnline:
		if m.st.IsDown {
			m.log.Info("connectivity_online_recheck", zap.String("target", m.target))
			m.startCheck(ctx)
		}
	case wentOffline:
		m.fail(domain.Failed(domain.KindOffline, domain.MsgOffline, m.clock.Now()), CauseOffline)
	}
}

func (m *Monitor) startCheck(ctx context.Context) {
	if m.checking {
		m.log.Debug("health_check_skipped", zap.String("reason", "in_flight"))
		return
	}
	m.checking = true
	m.st.IsChecking = true
	m.cancelRetry()
	m.publishState()

	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	m.probeCancel = cancel
	go func() {
		defer cancel()
		res := m.checker.Check(pctx, m.target)
		select {
		case m.inbox <- probeFinished{res: res}:
		case <-m.done:
		}
	}()
}

func (m *Monitor) finishCheck(res probe.CheckResult) {
	if m.probeCancel != nil {
		m.probeCancel()
		m.probeCancel = nil
	}

	if res.Success {
		wasDown := m.st.IsDown
		failures := m.st.ConsecutiveFailures
		m.st.IsDown = false
		m.st.LastError = nil
		m.st.ConsecutiveFailures = 0
		m.cancelRetry()
		m.checking = false
		m.st.IsChecking = false
		m.publishState()

		if wasDown {
			m.log.Info("health_check_recovered",
				zap.String("target", m.target),
				zap.Uint("after_failures", failures),
				zap.Float64("latency_ms", res.LatencyMS),
			)
		}
		out := domain.Healthy(m.clock.Now())
		out.StatusCode = res.StatusCode
		out.LatencyMS = res.LatencyMS
		m.emit(CauseProbe, out)
		return
	}

	kind, msg := res.Kind, res.Message
	if kind == "" {
		kind, msg = domain.KindNetwork, domain.MsgNetwork
	}
	if kind == domain.KindNetwork && !m.conn.IsOnline() {
		kind, msg = domain.KindOffline, domain.MsgOffline
	}
	out := domain.Failed(kind, msg, m.clock.Now())
	out.StatusCode = res.StatusCode
	out.LatencyMS = res.LatencyMS

	m.checking = false
	m.st.IsChecking = false
	m.fail(out, CauseProbe)
}

// fail applies a failed outcome: down, one more consecutive failure, retry scheduled.
func (m *Monitor) fail(out domain.Outcome, cause Cause) {
	m.st.IsDown = true
	m.st.ConsecutiveFailures++
	out.RetryCount = m.st.ConsecutiveFailures
	le := out
	m.st.LastError = &le
	delay := m.scheduleRetry()
	m.publishState()

	m.log.Debug("health_check_failed",
		zap.String("target", m.target),
		zap.String("cause", string(cause)),
		zap.String("kind", string(out.Kind)),
		zap.String("message", out.Message),
		zap.Int("status", out.StatusCode),
		zap.Uint("retry_count", out.RetryCount),
		zap.Duration("next_retry", delay),
	)
	m.emit(cause, out)
}

func (m *Monitor) scheduleRetry() time.Duration {
	m.cancelRetry()
	d := m.backoff.Delay(m.st.ConsecutiveFailures)
	m.retryGen++
	gen := m.retryGen
	m.retry = m.clock.AfterFunc(d, func() {
		select {
		case m.inbox <- retryFired{gen: gen}:
		case <-m.done:
		}
	})
	return d
}

func (m *Monitor) cancelRetry() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	// a timer whose Stop lost the race still delivers; the bump makes it stale
	m.retryGen++
}

func (m *Monitor) onRetry(ctx context.Context, gen uint64) {
	if gen != m.retryGen || m.retry == nil {
		return
	}
	m.retry = nil
	if !m.checking {
		m.startCheck(ctx)
		return
	}
	if m.reschedule {
		d := m.scheduleRetry()
		m.log.Debug("retry_rescheduled", zap.Duration("next_retry", d))
		return
	}
	m.log.Debug("retry_dropped", zap.String("reason", "in_flight"))
}

func (m *Monitor) publishState() {
	s := m.st.Clone()
	m.snapMu.Lock()
	m.snap = s
	m.snapMu.Unlock()
}

func (m *Monitor) emit(cause Cause, out domain.Outcome) {
	ev := Event{
		Cause:   cause,
		Target:  m.target,
		Outcome: out,
		State:   m.st.Clone(),
		Online:  m.conn.IsOnline(),
	}
	m.queueMu.Lock()
	m.queue = append(m.queue, ev)
	m.queueMu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Monitor) dispatch() {
	defer close(m.dispatchDone)
	for {
		select {
		case <-m.wake:
			m.drain()
		case <-m.done:
			m.drain()
			return
		}
	}
}

func (m *Monitor) drain() {
	for {
		m.queueMu.Lock()
		if len(m.queue) == 0 {
			m.queueMu.Unlock()
			return
		}
		batch := m.queue
		m.queue = nil
		m.queueMu.Unlock()

		m.subMu.Lock()
		fns := make([]func(Event), 0, len(m.subs))
		for _, fn := range m.subs {
			fns = append(fns, fn)
		}
		m.subMu.Unlock()

		for _, ev := range batch {
			for _, fn := range fns {
				fn(ev)
			}
		}
	}
}
