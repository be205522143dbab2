package mayor_test

import (
	"testing"

	"github.com/playperu/mayorkiosk/internal/mayor"
)

// stepUntil steps the scheduler n times and returns every event fired along
// the way together with the last state.
func stepUntil(sc *mayor.Scheduler, s *mayor.Session, n int) (mayor.State, []mayor.Event) {
	var (
		st  mayor.State
		all []mayor.Event
	)
	for i := 0; i < n; i++ {
		var evs []mayor.Event
		st, evs = sc.Step(s)
		all = append(all, evs...)
	}
	return st, all
}

func kinds(evs []mayor.Event) []mayor.EventKind {
	out := make([]mayor.EventKind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

func TestSchedulerPhoneCallChain(t *testing.T) {
	s := newPlaying(t)
	sc := mayor.NewScheduler(mayor.DefaultRules())

	st, evs := stepUntil(sc, s, 29)
	if len(evs) != 0 {
		t.Fatalf("events before 90s = %v", kinds(evs))
	}

	st, evs = sc.Step(s)
	if st.TimeRemaining != 90 || len(evs) != 1 || evs[0].Kind != mayor.EventPhoneCall1 {
		t.Fatalf("at %d events = %v, want [phone_call_1] at 90", st.TimeRemaining, kinds(evs))
	}
	if !st.PhoneCallShown {
		t.Error("PhoneCallShown not set")
	}

	st, _ = s.AnswerPhoneCall(false, 10)
	if st.TimeRemaining != 90 || st.PhoneCallAnswered {
		t.Errorf("after decline time/answered = %d/%v, want 90/false", st.TimeRemaining, st.PhoneCallAnswered)
	}

	st, evs = stepUntil(sc, s, 30)
	if st.TimeRemaining != 60 || len(evs) != 1 || evs[0].Kind != mayor.EventPhoneCall2 {
		t.Fatalf("at %d events = %v, want [phone_call_2] at 60", st.TimeRemaining, kinds(evs))
	}
	if evs[0].PhoneCall() != 2 {
		t.Errorf("PhoneCall() = %d, want 2", evs[0].PhoneCall())
	}

	st, _ = s.AnswerPhoneCall(true, 15)
	if st.TimeRemaining != 45 {
		t.Errorf("time after answering = %d, want 45", st.TimeRemaining)
	}

	st, evs = stepUntil(sc, s, 15)
	if st.TimeRemaining != 30 || len(evs) != 1 || evs[0].Kind != mayor.EventAudioSpeedup {
		t.Fatalf("at %d events = %v, want [audio_speedup] at 30", st.TimeRemaining, kinds(evs))
	}

	st, evs = stepUntil(sc, s, 30)
	if st.Status != mayor.StatusTimeout {
		t.Errorf("status = %q, want timeout", st.Status)
	}
	if len(evs) != 0 {
		t.Errorf("unexpected events = %v", kinds(evs))
	}

	if _, evs := sc.Step(s); evs != nil {
		t.Errorf("events after timeout = %v", kinds(evs))
	}
}

func TestSchedulerAnsweredFirstCallSkipsSecond(t *testing.T) {
	s := newPlaying(t)
	sc := mayor.NewScheduler(mayor.DefaultRules())

	stepUntil(sc, s, 30)
	st, _ := s.AnswerPhoneCall(true, 10)
	if st.TimeRemaining != 80 {
		t.Fatalf("time = %d, want 80", st.TimeRemaining)
	}

	_, evs := stepUntil(sc, s, 80)
	for _, e := range evs {
		if e.Kind == mayor.EventPhoneCall2 || e.Kind == mayor.EventPhoneCall1 {
			t.Errorf("unexpected %s", e.Kind)
		}
	}
	if s.State().PhoneCall2Shown {
		t.Error("PhoneCall2Shown set after answered first call")
	}
}

func TestSchedulerFiresOnce(t *testing.T) {
	rules := mayor.DefaultRules()
	s := mayor.NewSession(mayor.NewEngine(mayor.DefaultCatalog(), rules))
	sc := mayor.NewScheduler(rules)

	// Stage a game sitting exactly on the speedup second.
	s.Stage(mayor.Demo{Status: mayor.StatusPlaying, TimeRemaining: 30, PhoneCallShown: true, PhoneCallAnswered: true})

	_, evs := sc.Check(s)
	if len(evs) != 1 || evs[0].Kind != mayor.EventAudioSpeedup {
		t.Fatalf("Check events = %v, want [audio_speedup]", kinds(evs))
	}
	if _, evs := sc.Check(s); len(evs) != 0 {
		t.Errorf("second Check events = %v, want none", kinds(evs))
	}

	sc.Reset()
	if _, evs := sc.Check(s); len(evs) != 1 {
		t.Errorf("after Reset events = %v, want [audio_speedup]", kinds(evs))
	}
}

func TestSchedulerIdleSession(t *testing.T) {
	s := mayor.NewSession(defaultEngine())
	sc := mayor.NewScheduler(mayor.DefaultRules())

	st, evs := sc.Step(s)
	if evs != nil || st.TimeRemaining != 120 {
		t.Errorf("Step before Start = %d/%v, want untouched", st.TimeRemaining, kinds(evs))
	}
}

func TestSchedulerSecondCallWaitsForFreeLine(t *testing.T) {
	s := newPlaying(t)
	sc := mayor.NewScheduler(mayor.DefaultRules())
	busy := false
	sc.SetLineBusy(func() bool { return busy })

	_, evs := stepUntil(sc, s, 30)
	if len(evs) != 1 || evs[0].Kind != mayor.EventPhoneCall1 {
		t.Fatalf("events = %v, want [phone_call_1]", kinds(evs))
	}

	// The first call is left unanswered through 60s.
	busy = true
	st, evs := stepUntil(sc, s, 30)
	if st.TimeRemaining != 60 || len(evs) != 0 {
		t.Fatalf("at %d events = %v, want none", st.TimeRemaining, kinds(evs))
	}
	if st.PhoneCall2Shown {
		t.Error("PhoneCall2Shown set while the line was busy")
	}

	// The trigger is edge based: freeing the line later does not ring.
	busy = false
	if _, evs := stepUntil(sc, s, 10); len(evs) != 0 {
		t.Errorf("events after line freed = %v, want none", kinds(evs))
	}
}
