// Package kiosk hosts the single live game of a totem. It drives the session
// clock, fires scheduled events, persists finished games and publishes every
// change to subscribers.
package kiosk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/mayorkiosk/internal/mayor"
	"github.com/playperu/mayorkiosk/internal/metrics"
	"github.com/playperu/mayorkiosk/internal/results"
)

type UpdateType string

const (
	UpdateState        UpdateType = "state"
	UpdatePhoneCall    UpdateType = "phone_call"
	UpdateAudioSpeedup UpdateType = "audio_speedup"
	UpdateFinished     UpdateType = "finished"
)

// Update is one message on the live feed.
type Update struct {
	Type    UpdateType   `json:"type"`
	State   mayor.State  `json:"state"`
	Event   *mayor.Event `json:"event,omitempty"`
	Outcome *Outcome     `json:"outcome,omitempty"`
}

// Outcome describes how a finished game was recorded. Percentile is nil when
// there were no earlier games to compare with.
type Outcome struct {
	ResultID   string `json:"resultId"`
	Score      int    `json:"score"`
	Percentile *int   `json:"percentile"`
	SampleSize int    `json:"sampleSize"`
	Saved      bool   `json:"saved"`
}

// Publisher receives updates. Publish must not block.
type Publisher interface {
	Publish(u Update)
}

type Options struct {
	// TickInterval is the length of one game second. Zero disables the
	// clock goroutine; the caller then drives time with Step.
	TickInterval time.Duration
	SaveTimeout  time.Duration
	Metrics      *metrics.Metrics
	Now          func() time.Time
	NewID        func() string
}

// Kiosk owns one session and its scheduler. All operations are serialized;
// the session clock runs in its own goroutine while a game is playing.
type Kiosk struct {
	session *mayor.Session
	sched   *mayor.Scheduler
	store   results.Store
	pub     Publisher
	logger  *slog.Logger
	opts    Options
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	gen         uint64 // bumped whenever the session is replaced
	stopClock   context.CancelFunc
	pendingCall int
	recorded    bool
	outcome     *Outcome
}

func New(e *mayor.Engine, store results.Store, pub Publisher, logger *slog.Logger, opts Options) *Kiosk {
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 5 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	k := &Kiosk{
		session: mayor.NewSession(e),
		sched:   mayor.NewScheduler(e.Rules),
		store:   store,
		pub:     pub,
		logger:  logger,
		opts:    opts,
		metrics: opts.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
	// The scheduler only runs under mu.
	k.sched.SetLineBusy(func() bool { return k.pendingCall != 0 })
	return k
}

func (k *Kiosk) Engine() *mayor.Engine { return k.session.Engine() }

func (k *Kiosk) Snapshot() mayor.State { return k.session.State() }

// CanSelect reports whether id could be selected right now.
func (k *Kiosk) CanSelect(id string) bool { return k.session.CanSelect(id) }

// PendingCall returns the phone call waiting for an answer, or 0.
func (k *Kiosk) PendingCall() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pendingCall
}

// Outcome returns how the last finished game was recorded.
func (k *Kiosk) Outcome() (Outcome, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.outcome == nil {
		return Outcome{}, false
	}
	return *k.outcome, true
}

func (k *Kiosk) SetPlayer(name, role string) (mayor.State, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.publishIf(k.session.SetPlayerInfo(name, role))
}

// Start begins a game and its clock.
func (k *Kiosk) Start() (mayor.State, bool) {
	k.mu.Lock()

	st, ok := k.session.Start()
	if !ok {
		k.mu.Unlock()
		return st, false
	}
	k.renew()
	k.metrics.GamesStarted.Inc()
	k.logger.Info("game started", "player", st.PlayerName, "role", st.PlayerRole)

	st, events := k.sched.Check(k.session)
	fin := k.settle(st, events)
	if fin == nil {
		k.runClock()
	}
	k.mu.Unlock()

	k.save(fin)
	return st, true
}

func (k *Kiosk) Select(id string) (mayor.State, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.publishIf(k.session.Select(id))
}

func (k *Kiosk) Undo() (mayor.State, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.publishIf(k.session.Undo())
}

// Finish ends the game if the win conditions hold.
func (k *Kiosk) Finish() (mayor.State, bool) {
	k.mu.Lock()
	st, ok := k.session.Finish()
	var fin *finished
	if ok {
		fin = k.settle(st, nil)
	}
	k.mu.Unlock()

	k.save(fin)
	return st, ok
}

// AnswerCall resolves the pending phone call. The second call cannot be
// declined: declining it counts as answering.
func (k *Kiosk) AnswerCall(answered bool) (mayor.State, bool) {
	k.mu.Lock()

	n := k.pendingCall
	if n == 0 {
		k.mu.Unlock()
		return k.session.State(), false
	}
	if n == 2 {
		answered = true
	}
	st, ok := k.session.AnswerPhoneCall(answered, k.Engine().Rules.Penalty(n))
	if !ok {
		k.mu.Unlock()
		return st, false
	}
	k.pendingCall = 0
	k.metrics.PhoneCall(n, answered)
	k.logger.Info("phone call resolved", "call", n, "answered", answered, "time_remaining", st.TimeRemaining)
	fin := k.settle(st, nil)
	k.mu.Unlock()

	k.save(fin)
	return st, true
}

// Reset abandons the current game and returns to the start screen.
func (k *Kiosk) Reset() mayor.State {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.halt()
	st := k.session.Reset()
	k.sched.Reset()
	k.renew()
	k.outcome = nil
	k.publish(Update{Type: UpdateState, State: st})
	return st
}

// Stage jumps to a prepared demo screen. Staged finished games are not
// recorded; a staged playing game runs and is recorded like any other.
func (k *Kiosk) Stage(d mayor.Demo) (mayor.State, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	st, ok := k.session.Stage(d)
	if !ok {
		return st, false
	}
	k.halt()
	k.sched.Reset()
	k.renew()
	k.outcome = nil
	k.recorded = st.Status.Terminal()
	k.logger.Info("demo staged", "status", st.Status)

	k.publish(Update{Type: UpdateState, State: st})
	if st.Status == mayor.StatusPlaying {
		k.runClock()
	}
	return st, true
}

// Step advances the game by one second. The clock goroutine calls it on
// every tick; with a zero TickInterval tests call it directly.
func (k *Kiosk) Step() mayor.State {
	k.mu.Lock()
	st, fin := k.step()
	k.mu.Unlock()

	k.save(fin)
	return st
}

// step must be called with mu held.
func (k *Kiosk) step() (mayor.State, *finished) {
	st, events := k.sched.Step(k.session)
	if st.Status == mayor.StatusStart {
		return st, nil
	}
	return st, k.settle(st, events)
}

// Close stops the clock and waits for it to exit.
func (k *Kiosk) Close() {
	k.mu.Lock()
	k.halt()
	k.mu.Unlock()
	k.cancel()
	k.wg.Wait()
}

// renew marks the start of a new session. Must be called with mu held.
func (k *Kiosk) renew() {
	k.gen++
	k.pendingCall = 0
	k.recorded = false
}

// halt stops the running clock, if any. Must be called with mu held.
func (k *Kiosk) halt() {
	k.gen++
	if k.stopClock != nil {
		k.stopClock()
		k.stopClock = nil
	}
}

// runClock starts the ticker for the current generation. Must be called with
// mu held. A clock whose generation is gone exits without touching the game.
func (k *Kiosk) runClock() {
	if k.opts.TickInterval <= 0 {
		return
	}
	k.halt()
	gen := k.gen
	ctx, cancel := context.WithCancel(k.ctx)
	k.stopClock = cancel

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		t := time.NewTicker(k.opts.TickInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}

			k.mu.Lock()
			if k.gen != gen {
				k.mu.Unlock()
				return
			}
			st, fin := k.step()
			k.mu.Unlock()

			k.save(fin)
			if st.Status != mayor.StatusPlaying {
				return
			}
		}
	}()
}

func (k *Kiosk) publishIf(st mayor.State, ok bool) (mayor.State, bool) {
	if ok {
		k.publish(Update{Type: UpdateState, State: st})
	}
	return st, ok
}

// finished is a game that ended and still has to be saved.
type finished struct {
	gen uint64
	st  mayor.State
}

// settle publishes st and the events that led to it. The first time st is
// terminal it claims the game for recording and returns it; the caller
// passes it to save once mu is released. Must be called with mu held.
func (k *Kiosk) settle(st mayor.State, events []mayor.Event) *finished {
	for _, ev := range events {
		typ := UpdateAudioSpeedup
		if n := ev.PhoneCall(); n > 0 {
			typ = UpdatePhoneCall
			k.pendingCall = n
		}
		k.logger.Debug("event fired", "kind", ev.Kind, "at", ev.At)
		k.publish(Update{Type: typ, State: st, Event: &ev})
	}

	if !st.Status.Terminal() {
		k.publish(Update{Type: UpdateState, State: st})
		return nil
	}
	if k.recorded {
		return nil
	}
	k.recorded = true
	k.pendingCall = 0
	if k.stopClock != nil {
		k.stopClock()
		k.stopClock = nil
	}
	return &finished{gen: k.gen, st: st}
}

// save records fin without holding mu, so a slow store never stalls the
// kiosk. The outcome is only published if the session was not reset or
// restaged in the meantime.
func (k *Kiosk) save(fin *finished) {
	if fin == nil {
		return
	}
	out := k.record(fin.st)

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.gen != fin.gen {
		k.logger.Debug("session replaced while saving", "id", out.ResultID)
		return
	}
	k.outcome = &out
	k.publish(Update{Type: UpdateFinished, State: fin.st, Outcome: &out})
}

// record persists a finished game. Storage failures are logged and counted;
// the game stays finished either way. It only reads fields fixed at New.
func (k *Kiosk) record(st mayor.State) Outcome {
	ctx, cancel := context.WithTimeout(k.ctx, k.opts.SaveTimeout)
	defer cancel()

	e := k.Engine()
	totem, err := k.store.TotemID(ctx)
	if err != nil {
		k.logger.Warn("reading totem id", "error", err)
		totem = results.DefaultTotemID
	}

	res, _ := e.Result(st, k.opts.NewID(), totem, k.opts.Now())
	rec := results.NewRecord(e, res)
	out := Outcome{ResultID: rec.ID, Score: rec.Score}

	k.metrics.GamesFinished.WithLabelValues(string(st.Status)).Inc()
	k.metrics.Scores.Observe(float64(rec.Score))

	// Rank against earlier games before this one joins them.
	prior, err := k.store.Scores(ctx)
	if err != nil {
		k.logger.Warn("loading prior scores", "error", err)
	} else if p, ok := results.Percentile(rec.Score, prior); ok {
		out.Percentile = &p
		out.SampleSize = len(prior)
	}

	if err := k.store.Append(ctx, rec); err != nil {
		k.metrics.ResultSaveErrors.Inc()
		k.logger.Error("saving game result", "id", rec.ID, "result", rec.Result, "error", err)
		return out
	}
	out.Saved = true
	k.logger.Info("game finished",
		"id", rec.ID,
		"result", rec.Result,
		"score", rec.Score,
		"time_used", rec.TimeUsed,
		"final_budget", rec.FinalBudget,
	)
	return out
}

func (k *Kiosk) publish(u Update) {
	if k.pub != nil {
		k.pub.Publish(u)
	}
}
