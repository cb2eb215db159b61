package presence

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/realtime"
	"go.uber.org/multierr"
)

const (
	defaultReconcileInterval = 30 * time.Second
	defaultDialTimeout       = 10 * time.Second

	eventSync      = "sync"
	eventJoin      = "join"
	eventLeave     = "leave"
	eventReconcile = "reconcile"

	failureDial       = "dial"
	failureDisconnect = "disconnect"
)

// ErrShutdown is returned when subscribing to a tracker that has been shut down.
var ErrShutdown = errors.New("presence tracker shut down")

// Options configure a Tracker.
type Options struct {
	Factory           ChannelFactory
	ReconcileInterval time.Duration
	DialTimeout       time.Duration
	Logger            *logger.Logger
	Metrics           *metrics.PresenceMetrics
}

// Tracker owns the process-wide online driver set. One channel is shared by
// every subscriber; it is opened by the first acquire and torn down by the
// last release, which also clears the set.
type Tracker struct {
	factory     ChannelFactory
	interval    time.Duration
	dialTimeout time.Duration
	logg        *logger.Logger
	metrics     *metrics.PresenceMetrics

	// dispatch keeps event application and listener notification in
	// delivery order. Acquired before mu, never while holding it.
	dispatch sync.Mutex

	mu          sync.Mutex
	refs        int
	generation  uint64
	channel     Channel
	// session identifies the dial whose events are accepted; 0 means none.
	session     uint64
	nextSession uint64
	dialing     bool
	online      map[string]struct{}
	listeners   map[string]map[uint64]*Subscription
	nextID      uint64
	cancel      context.CancelFunc
	closed      bool

	wg sync.WaitGroup
}

// NewTracker builds a tracker. Nothing is dialed until the first subscriber.
func NewTracker(opts Options) (*Tracker, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("channel factory required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	interval := opts.ReconcileInterval
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Tracker{
		factory:     opts.Factory,
		interval:    interval,
		dialTimeout: dialTimeout,
		logg:        opts.Logger,
		metrics:     opts.Metrics,
		online:      map[string]struct{}{},
		listeners:   map[string]map[uint64]*Subscription{},
	}, nil
}

// Subscription is one listener on a driver's presence.
type Subscription struct {
	tracker  *Tracker
	driverID string
	id       uint64
	online   bool
	fn       func(online bool)
	once     sync.Once
}

// DriverID returns the driver this subscription follows.
func (s *Subscription) DriverID() string {
	return s.driverID
}

// Online reports the driver's state at the moment the subscription was registered.
func (s *Subscription) Online() bool {
	return s.online
}

// Unsubscribe removes the listener and releases the shared channel. Calling
// it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		t := s.tracker
		t.mu.Lock()
		if subs, ok := t.listeners[s.driverID]; ok {
			delete(subs, s.id)
			if len(subs) == 0 {
				delete(t.listeners, s.driverID)
			}
		}
		t.mu.Unlock()
		t.release()
	})
}

// Subscribe registers fn for changes of driverID. The returned subscription
// already carries the driver's current state; channel failures are logged and
// leave the driver offline until reconciliation recovers.
func (t *Tracker) Subscribe(ctx context.Context, driverID string, fn func(online bool)) (*Subscription, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, fmt.Errorf("driver id required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrShutdown
	}
	first, gen := t.acquireLocked()
	t.nextID++
	sub := &Subscription{tracker: t, driverID: driverID, id: t.nextID, fn: fn}
	_, sub.online = t.online[driverID]
	if t.listeners[driverID] == nil {
		t.listeners[driverID] = map[uint64]*Subscription{}
	}
	t.listeners[driverID][sub.id] = sub
	t.mu.Unlock()

	if first {
		t.connect(ctx, gen)
	}
	t.logg.Debug(t.logg.WithDriverID(ctx, driverID), "presence subscription registered")
	return sub, nil
}

// Acquire holds the shared channel open without listening to a driver. The
// returned release func is idempotent.
func (t *Tracker) Acquire(ctx context.Context) (func(), error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrShutdown
	}
	first, gen := t.acquireLocked()
	t.mu.Unlock()

	if first {
		t.connect(ctx, gen)
	}
	var once sync.Once
	return func() { once.Do(t.release) }, nil
}

func (t *Tracker) acquireLocked() (bool, uint64) {
	t.refs++
	t.metrics.SetSubscribers(t.refs)
	if t.refs > 1 {
		return false, t.generation
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	gen := t.generation
	t.wg.Add(1)
	go t.run(loopCtx, gen)
	return true, gen
}

func (t *Tracker) release() {
	t.mu.Lock()
	if t.closed || t.refs == 0 {
		t.mu.Unlock()
		return
	}
	t.refs--
	t.metrics.SetSubscribers(t.refs)
	if t.refs > 0 {
		t.mu.Unlock()
		return
	}
	ch, cancel := t.teardownLocked()
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := closeChannel(ch); err != nil {
		t.logg.Warn(t.logg.WithField(context.Background(), "error", err.Error()), "presence channel close failed")
	}
	t.logg.Info(context.Background(), "presence channel released")
}

// teardownLocked bumps the generation so late events from the old channel
// are dropped.
func (t *Tracker) teardownLocked() (Channel, context.CancelFunc) {
	t.generation++
	ch := t.channel
	cancel := t.cancel
	t.channel = nil
	t.cancel = nil
	t.session = 0
	t.dialing = false
	t.online = map[string]struct{}{}
	t.metrics.SetOnline(0)
	return ch, cancel
}

func closeChannel(ch Channel) error {
	if ch == nil {
		return nil
	}
	return ch.Close()
}

func (t *Tracker) connect(ctx context.Context, gen uint64) {
	if ctx == nil {
		ctx = context.Background()
	}

	t.mu.Lock()
	if gen != t.generation || t.refs == 0 || t.channel != nil || t.dialing {
		t.mu.Unlock()
		return
	}
	t.dialing = true
	t.nextSession++
	session := t.nextSession
	t.session = session
	t.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, t.dialTimeout)
	defer cancel()
	ch, err := t.factory.Open(dialCtx, t.handlers(gen, session))

	t.mu.Lock()
	if t.session == session {
		t.dialing = false
	}
	if err != nil {
		t.mu.Unlock()
		t.metrics.IncFailure(failureDial)
		t.logg.Error(ctx, "presence channel dial failed", err)
		return
	}
	if gen != t.generation || t.session != session || t.channel != nil {
		t.mu.Unlock()
		_ = ch.Close()
		return
	}
	t.channel = ch
	t.mu.Unlock()

	t.watch(gen, session, ch)
	t.logg.Info(ctx, "presence channel connected")
}

// watch drops ch as soon as it reports a lost connection instead of waiting
// for the next reconcile tick.
func (t *Tracker) watch(gen, session uint64, ch Channel) {
	d, ok := ch.(doneNotifier)
	if !ok {
		return
	}
	go func() {
		<-d.Done()
		t.dispatch.Lock()
		dropped := t.dropLocked(gen, session, ch)
		t.dispatch.Unlock()
		if !dropped {
			return
		}
		t.metrics.IncFailure(failureDisconnect)
		t.logg.Warn(context.Background(), "presence channel lost; drivers marked offline")
		_ = ch.Close()
	}()
}

func (t *Tracker) handlers(gen, session uint64) realtime.Handlers {
	return realtime.Handlers{
		OnSync: func(keys []string) {
			t.replace(gen, session, keys, eventSync)
		},
		OnJoin: func(key string) {
			t.apply(gen, session, eventJoin, map[string]bool{key: true})
		},
		OnLeave: func(key string) {
			t.apply(gen, session, eventLeave, map[string]bool{key: false})
		},
	}
}

type notification struct {
	fn     func(bool)
	online bool
}

func (t *Tracker) acceptsLocked(gen, session uint64) bool {
	return gen == t.generation && session == t.session && t.refs > 0
}

// replace makes keys the whole online set and notifies drivers whose state
// changed. Returns the number of drivers added and removed.
func (t *Tracker) replace(gen, session uint64, keys []string, kind string) (int, int) {
	t.dispatch.Lock()
	defer t.dispatch.Unlock()
	return t.replaceDispatched(gen, session, keys, kind)
}

// replaceDispatched is replace for callers already holding dispatch.
func (t *Tracker) replaceDispatched(gen, session uint64, keys []string, kind string) (int, int) {
	t.mu.Lock()
	if !t.acceptsLocked(gen, session) {
		t.mu.Unlock()
		return 0, 0
	}
	changes := t.resetLocked(keys)
	pending := t.pendingLocked(changes)
	t.mu.Unlock()

	t.metrics.IncEvent(kind)
	notify(pending)
	return countChanges(changes)
}

// dropLocked forgets ch when it is still the live channel and marks every
// driver offline. The caller holds dispatch and closes ch if it returns true.
func (t *Tracker) dropLocked(gen, session uint64, ch Channel) bool {
	t.mu.Lock()
	if !t.acceptsLocked(gen, session) || t.channel != ch {
		t.mu.Unlock()
		return false
	}
	t.channel = nil
	t.session = 0
	pending := t.pendingLocked(t.resetLocked(nil))
	t.mu.Unlock()

	notify(pending)
	return true
}

// resetLocked swaps in keys as the online set and returns the per-driver
// changes.
func (t *Tracker) resetLocked(keys []string) map[string]bool {
	next := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		next[key] = struct{}{}
	}
	changes := map[string]bool{}
	for key := range next {
		if _, ok := t.online[key]; !ok {
			changes[key] = true
		}
	}
	for key := range t.online {
		if _, ok := next[key]; !ok {
			changes[key] = false
		}
	}
	t.online = next
	t.metrics.SetOnline(len(t.online))
	return changes
}

func (t *Tracker) apply(gen, session uint64, kind string, changes map[string]bool) {
	t.dispatch.Lock()
	defer t.dispatch.Unlock()

	t.mu.Lock()
	if !t.acceptsLocked(gen, session) {
		t.mu.Unlock()
		return
	}
	for key, online := range changes {
		_, was := t.online[key]
		if was == online {
			delete(changes, key)
			continue
		}
		if online {
			t.online[key] = struct{}{}
		} else {
			delete(t.online, key)
		}
	}
	pending := t.pendingLocked(changes)
	t.metrics.SetOnline(len(t.online))
	t.mu.Unlock()

	t.metrics.IncEvent(kind)
	notify(pending)
}

func (t *Tracker) pendingLocked(changes map[string]bool) []notification {
	var pending []notification
	for key, online := range changes {
		for _, sub := range t.listeners[key] {
			if sub.fn != nil {
				pending = append(pending, notification{fn: sub.fn, online: online})
			}
		}
	}
	return pending
}

func notify(pending []notification) {
	for _, n := range pending {
		n.fn(n.online)
	}
}

func countChanges(changes map[string]bool) (joined, left int) {
	for _, online := range changes {
		if online {
			joined++
		} else {
			left++
		}
	}
	return joined, left
}

func (t *Tracker) run(ctx context.Context, gen uint64) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.reconcile(ctx, gen)
		}
	}
}

// reconcile re-reads the channel's authoritative state and emits synthetic
// join/leave notifications for any drift. A channel that can no longer be read
// is dropped and its drivers go offline; without a channel it re-dials.
func (t *Tracker) reconcile(ctx context.Context, gen uint64) {
	start := time.Now()
	defer func() { t.metrics.ObserveReconcile(time.Since(start)) }()

	t.mu.Lock()
	if gen != t.generation || t.refs == 0 {
		t.mu.Unlock()
		return
	}
	ch, session, dialing := t.channel, t.session, t.dialing
	t.mu.Unlock()

	if ch == nil {
		if dialing {
			return
		}
		t.logg.Debug(ctx, "presence channel unavailable; redialing")
		t.connect(ctx, gen)
		return
	}

	// Live events wait on dispatch, so none can land between the read and
	// the diff below.
	t.dispatch.Lock()
	keys, err := ch.PresenceState()
	if err != nil {
		dropped := t.dropLocked(gen, session, ch)
		t.dispatch.Unlock()
		t.metrics.IncFailure(eventReconcile)
		t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "presence channel unreadable; drivers marked offline")
		if dropped {
			_ = ch.Close()
		}
		return
	}
	joined, left := t.replaceDispatched(gen, session, keys, eventReconcile)
	t.dispatch.Unlock()

	t.metrics.AddDrift(eventJoin, joined)
	t.metrics.AddDrift(eventLeave, left)
	if joined+left > 0 {
		t.logg.Info(t.logg.WithFields(ctx, map[string]any{
			"joined": joined,
			"left":   left,
		}), "presence drift corrected")
	}
}

// IsOnline reports whether driverID is in the online set.
func (t *Tracker) IsOnline(driverID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.online[driverID]
	return ok
}

// OnlineDrivers returns the online set in sorted order.
func (t *Tracker) OnlineDrivers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.online))
}

// Shutdown tears down the channel regardless of outstanding subscriptions and
// waits for background work to stop.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.refs = 0
	t.listeners = map[string]map[uint64]*Subscription{}
	t.metrics.SetSubscribers(0)
	ch, cancel := t.teardownLocked()
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := closeChannel(ch)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}
