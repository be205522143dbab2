package kiosk_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/playperu/mayorkiosk/internal/kiosk"
	"github.com/playperu/mayorkiosk/internal/mayor"
	"github.com/playperu/mayorkiosk/internal/metrics"
	"github.com/playperu/mayorkiosk/internal/results"
)

// memStore is an in-memory results.Store that can be told to fail appends.
// When release is set, Append signals entered and blocks until release is
// closed.
type memStore struct {
	mu        sync.Mutex
	recs      []results.Record
	appends   int
	appendErr error
	totem     string

	entered chan struct{}
	release chan struct{}
}

func (s *memStore) Append(_ context.Context, r results.Record) error {
	if s.release != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	if s.appendErr != nil {
		return s.appendErr
	}
	s.recs = append(s.recs, r)
	return nil
}

func (s *memStore) List(context.Context) ([]results.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]results.Record{}, s.recs...), nil
}

func (s *memStore) Stats(context.Context) (results.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := results.Stats{Total: len(s.recs)}
	for _, r := range s.recs {
		if r.Result == mayor.StatusWon {
			st.Won++
		} else {
			st.Timeout++
		}
	}
	return st, nil
}

func (s *memStore) Scores(context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.recs))
	for i, r := range s.recs {
		out[i] = r.Score
	}
	return out, nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = nil
	return nil
}

func (s *memStore) TotemID(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totem == "" {
		return results.DefaultTotemID, nil
	}
	return s.totem, nil
}

func (s *memStore) SetTotemID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totem != "" {
		return results.ErrTotemLocked
	}
	s.totem = id
	return nil
}

func (s *memStore) ResetTotemID(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totem = ""
	return nil
}

func (s *memStore) count() (recs, appends int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs), s.appends
}

type recorder struct {
	mu      sync.Mutex
	updates []kiosk.Update
}

func (r *recorder) Publish(u kiosk.Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) count(typ kiosk.UpdateType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.updates {
		if u.Type == typ {
			n++
		}
	}
	return n
}

// winning spends 430000 of 450000 and brings every category to 50 or more.
var winning = []string{"a2", "a4", "a3", "e4", "e6", "i2", "i7"}

type fixture struct {
	k       *kiosk.Kiosk
	store   *memStore
	pub     *recorder
	metrics *metrics.Metrics
}

func newKiosk(t *testing.T, rules mayor.Rules, tick time.Duration) *fixture {
	t.Helper()
	f := &fixture{store: &memStore{totem: "2"}, pub: &recorder{}, metrics: metrics.New()}
	ids := 0
	f.k = kiosk.New(
		mayor.NewEngine(mayor.DefaultCatalog(), rules),
		f.store,
		f.pub,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		kiosk.Options{
			TickInterval: tick,
			Metrics:      f.metrics,
			Now:          func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
			NewID: func() string {
				ids++
				return "game-" + string(rune('0'+ids))
			},
		},
	)
	t.Cleanup(f.k.Close)
	return f
}

func (f *fixture) play(t *testing.T) {
	t.Helper()
	if _, ok := f.k.SetPlayer("Ana", "Primar"); !ok {
		t.Fatal("SetPlayer rejected")
	}
	if _, ok := f.k.Start(); !ok {
		t.Fatal("Start rejected")
	}
}

func TestKiosk_WinRecordedOnce(t *testing.T) {
	f := newKiosk(t, mayor.DefaultRules(), 0)
	f.play(t)

	for _, id := range winning {
		if _, ok := f.k.Select(id); !ok {
			t.Fatalf("Select(%s) rejected", id)
		}
	}
	st, ok := f.k.Finish()
	if !ok || st.Status != mayor.StatusWon {
		t.Fatalf("Finish = %v, %v", st.Status, ok)
	}

	// Nothing after the transition may record again.
	f.k.Finish()
	f.k.Step()
	f.k.AnswerCall(true)

	recs, appends := f.store.count()
	if recs != 1 || appends != 1 {
		t.Fatalf("records = %d, appends = %d; want 1, 1", recs, appends)
	}

	out, ok := f.k.Outcome()
	if !ok || !out.Saved || out.ResultID != "game-1" {
		t.Fatalf("Outcome = %+v, %v", out, ok)
	}
	// 500 for time plus (70+65+50)/3 % of 500.
	if out.Score != 808 {
		t.Errorf("Score = %d, want 808", out.Score)
	}
	if out.Percentile != nil {
		t.Errorf("Percentile = %d, want none for the first game", *out.Percentile)
	}

	r := f.store.recs[0]
	if r.PlayerName != "Ana" || r.TotemID != "2" || r.FinalBudget != 20000 || len(r.SelectedChallenges) != 7 {
		t.Errorf("record = %+v", r)
	}
	if f.pub.count(kiosk.UpdateFinished) != 1 {
		t.Errorf("finished updates = %d, want 1", f.pub.count(kiosk.UpdateFinished))
	}
	if got := testutil.ToFloat64(f.metrics.GamesFinished.WithLabelValues("won")); got != 1 {
		t.Errorf("games_finished{won} = %v", got)
	}
}

func TestKiosk_TimeoutPercentile(t *testing.T) {
	f := newKiosk(t, mayor.DefaultRules(), 0)
	f.play(t)
	for _, id := range winning {
		f.k.Select(id)
	}
	f.k.Finish()

	f.k.Reset()
	f.play(t)
	var st mayor.State
	for range 200 {
		st = f.k.Step()
	}
	if st.Status != mayor.StatusTimeout {
		t.Fatalf("status = %s, want timeout", st.Status)
	}

	out, _ := f.k.Outcome()
	if out.Score != 0 {
		t.Errorf("Score = %d, want 0", out.Score)
	}
	if out.Percentile == nil || *out.Percentile != 0 || out.SampleSize != 1 {
		t.Errorf("Outcome = %+v, want percentile 0 of 1", out)
	}
	if recs, _ := f.store.count(); recs != 2 {
		t.Errorf("records = %d, want 2", recs)
	}
}

func TestKiosk_PhoneCalls(t *testing.T) {
	f := newKiosk(t, mayor.DefaultRules(), 0)
	f.play(t)

	if _, ok := f.k.AnswerCall(true); ok {
		t.Error("AnswerCall with no call pending applied")
	}

	for range 30 {
		f.k.Step()
	}
	if n := f.k.PendingCall(); n != 1 {
		t.Fatalf("PendingCall = %d at 90s, want 1", n)
	}
	st, ok := f.k.AnswerCall(false)
	if !ok || st.TimeRemaining != 90 || st.PhoneCallAnswered {
		t.Fatalf("decline first = %+v, %v", st, ok)
	}

	for range 30 {
		f.k.Step()
	}
	if n := f.k.PendingCall(); n != 2 {
		t.Fatalf("PendingCall = %d at 60s, want 2", n)
	}
	st, ok = f.k.AnswerCall(false)
	if !ok || !st.PhoneCallAnswered || st.TimeRemaining != 45 {
		t.Errorf("decline second = %+v, %v; want forced answer at 45s", st, ok)
	}
	if f.k.PendingCall() != 0 {
		t.Error("call still pending after answer")
	}
	if got := f.pub.count(kiosk.UpdatePhoneCall); got != 2 {
		t.Errorf("phone_call updates = %d, want 2", got)
	}
	if got := testutil.ToFloat64(f.metrics.PhoneCalls.WithLabelValues("2", "true")); got != 1 {
		t.Errorf("phone_calls{2,true} = %v", got)
	}
}

func TestKiosk_StoreFailure(t *testing.T) {
	f := newKiosk(t, mayor.DefaultRules(), 0)
	f.store.appendErr = errors.New("disk full")
	f.play(t)
	for _, id := range winning {
		f.k.Select(id)
	}

	st, ok := f.k.Finish()
	if !ok || st.Status != mayor.StatusWon {
		t.Fatalf("Finish = %v, %v; want won despite failing store", st.Status, ok)
	}
	f.k.Step()

	if _, appends := f.store.count(); appends != 1 {
		t.Errorf("appends = %d, want exactly 1", appends)
	}
	out, _ := f.k.Outcome()
	if out.Saved {
		t.Error("Outcome.Saved = true for failed append")
	}
	if got := testutil.ToFloat64(f.metrics.ResultSaveErrors); got != 1 {
		t.Errorf("result_save_errors = %v", got)
	}
	if f.k.Snapshot().Status != mayor.StatusWon {
		t.Error("session left won state")
	}
}

func TestKiosk_Clock(t *testing.T) {
	rules := mayor.DefaultRules()
	rules.Duration = 5
	rules.FirstCallAt, rules.SecondCallAt, rules.SpeedupAt = 4, 2, 1

	f := newKiosk(t, rules, 2*time.Millisecond)
	f.play(t)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if recs, _ := f.store.count(); recs == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("game never finished; state %+v", f.k.Snapshot())
		}
		time.Sleep(2 * time.Millisecond)
	}

	st := f.k.Snapshot()
	if st.Status != mayor.StatusTimeout || st.TimeRemaining != 0 {
		t.Errorf("state = %+v, want timeout at 0", st)
	}
	if f.pub.count(kiosk.UpdateAudioSpeedup) != 1 {
		t.Errorf("audio_speedup updates = %d, want 1", f.pub.count(kiosk.UpdateAudioSpeedup))
	}
}

func TestKiosk_ResetStopsClock(t *testing.T) {
	f := newKiosk(t, mayor.DefaultRules(), time.Millisecond)
	f.play(t)

	deadline := time.Now().Add(2 * time.Second)
	for f.k.Snapshot().TimeRemaining == 120 {
		if time.Now().After(deadline) {
			t.Fatal("clock never ticked")
		}
		time.Sleep(time.Millisecond)
	}

	f.k.Reset()
	time.Sleep(20 * time.Millisecond)
	st := f.k.Snapshot()
	if st.Status != mayor.StatusStart || st.TimeRemaining != 120 {
		t.Errorf("state after reset = %+v; clock kept running", st)
	}
}

func TestKiosk_Stage(t *testing.T) {
	f := newKiosk(t, mayor.DefaultRules(), 0)

	st, ok := f.k.Stage(mayor.DemoWon())
	if !ok || st.Status != mayor.StatusWon {
		t.Fatalf("Stage(won) = %v, %v", st.Status, ok)
	}
	if _, appends := f.store.count(); appends != 0 {
		t.Errorf("staged result was recorded")
	}

	bad := mayor.DemoGame()
	bad.Selected = append(bad.Selected, "nope")
	if _, ok := f.k.Stage(bad); ok {
		t.Error("Stage accepted unknown challenge")
	}
	if f.k.Snapshot().Status != mayor.StatusWon {
		t.Error("failed Stage changed the session")
	}

	st, ok = f.k.Stage(mayor.DemoGame())
	if !ok || st.Status != mayor.StatusPlaying || st.TimeRemaining != 60 {
		t.Fatalf("Stage(game) = %+v, %v", st, ok)
	}
	f.k.Step()
	if got := f.k.Snapshot().TimeRemaining; got != 59 {
		t.Errorf("TimeRemaining after step = %d, want 59", got)
	}
}

func TestKiosk_SecondCallWaitsForFirst(t *testing.T) {
	f := newKiosk(t, mayor.DefaultRules(), 0)
	f.play(t)

	for range 30 {
		f.k.Step()
	}
	if n := f.k.PendingCall(); n != 1 {
		t.Fatalf("PendingCall = %d at 90s, want 1", n)
	}

	// Call 1 stays on screen through 60s.
	var st mayor.State
	for range 30 {
		st = f.k.Step()
	}
	if st.TimeRemaining != 60 || st.PhoneCall2Shown {
		t.Fatalf("state at 60s = %+v, want call 2 not shown", st)
	}
	if n := f.k.PendingCall(); n != 1 {
		t.Fatalf("PendingCall = %d at 60s, want call 1 still pending", n)
	}
	if got := f.pub.count(kiosk.UpdatePhoneCall); got != 1 {
		t.Errorf("phone_call updates = %d, want 1", got)
	}

	st, ok := f.k.AnswerCall(false)
	if !ok || st.PhoneCallAnswered || st.TimeRemaining != 60 {
		t.Errorf("decline first = %+v, %v; want no penalty", st, ok)
	}
	if got := testutil.ToFloat64(f.metrics.PhoneCalls.WithLabelValues("1", "false")); got != 1 {
		t.Errorf("phone_calls{1,false} = %v", got)
	}

	for range 10 {
		f.k.Step()
	}
	if n := f.k.PendingCall(); n != 0 {
		t.Errorf("PendingCall = %d after 60s passed, want 0", n)
	}
}

func TestKiosk_SlowStoreDoesNotBlock(t *testing.T) {
	f := newKiosk(t, mayor.DefaultRules(), 0)
	f.store.entered = make(chan struct{})
	f.store.release = make(chan struct{})
	f.play(t)
	for _, id := range winning {
		f.k.Select(id)
	}

	done := make(chan mayor.State)
	go func() {
		st, _ := f.k.Finish()
		done <- st
	}()
	<-f.store.entered

	reset := make(chan mayor.State)
	go func() { reset <- f.k.Reset() }()
	select {
	case st := <-reset:
		if st.Status != mayor.StatusStart {
			t.Errorf("Reset status = %s", st.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("Reset blocked while a result was being saved")
	}

	close(f.store.release)
	if st := <-done; st.Status != mayor.StatusWon {
		t.Errorf("Finish status = %s, want won", st.Status)
	}

	if recs, appends := f.store.count(); recs != 1 || appends != 1 {
		t.Errorf("records = %d, appends = %d; want 1, 1", recs, appends)
	}
	if _, ok := f.k.Outcome(); ok {
		t.Error("outcome of the replaced session was kept")
	}
	if got := f.pub.count(kiosk.UpdateFinished); got != 0 {
		t.Errorf("finished updates = %d, want 0 after reset", got)
	}
}
