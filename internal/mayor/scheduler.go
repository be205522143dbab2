package mayor

import "sync"

type EventKind string

const (
	EventPhoneCall1   EventKind = "phone_call_1"
	EventPhoneCall2   EventKind = "phone_call_2"
	EventAudioSpeedup EventKind = "audio_speedup"
)

// Event is a one-shot occurrence fired by the scheduler.
type Event struct {
	Kind EventKind `json:"kind"`
	At   int       `json:"at"` // seconds remaining when it fired
}

// PhoneCall returns the call number for phone-call events, 0 otherwise.
func (e Event) PhoneCall() int {
	switch e.Kind {
	case EventPhoneCall1:
		return 1
	case EventPhoneCall2:
		return 2
	}
	return 0
}

type trigger struct {
	kind  EventKind
	at    int
	fired bool
	fire  func(s *Session, st State) bool
}

// Scheduler advances a session one second at a time and fires the events of
// its table. Triggers match TimeRemaining exactly, so every second must be
// visited once: drive it with Step and never skip.
type Scheduler struct {
	mu       sync.Mutex
	rules    Rules
	table    []trigger
	lineBusy func() bool
}

func NewScheduler(r Rules) *Scheduler {
	sc := &Scheduler{rules: r}
	sc.table = sc.build()
	return sc
}

func (sc *Scheduler) build() []trigger {
	return []trigger{
		{
			kind: EventPhoneCall1,
			at:   sc.rules.FirstCallAt,
			fire: func(s *Session, st State) bool {
				if st.PhoneCallShown {
					return false
				}
				_, ok := s.ShowPhoneCall(1)
				return ok
			},
		},
		{
			kind: EventPhoneCall2,
			at:   sc.rules.SecondCallAt,
			fire: func(s *Session, st State) bool {
				// Only a declined first call brings the second one, and it
				// never rings over a call still on screen.
				if !st.PhoneCallShown || st.PhoneCallAnswered || st.PhoneCall2Shown {
					return false
				}
				if sc.lineBusy != nil && sc.lineBusy() {
					return false
				}
				_, ok := s.ShowPhoneCall(2)
				return ok
			},
		},
		{
			kind: EventAudioSpeedup,
			at:   sc.rules.SpeedupAt,
			fire: func(*Session, State) bool { return true },
		},
	}
}

// SetLineBusy installs f to report whether a phone call is still waiting for
// an answer. f is called during Step and Check, so it must not take locks
// their caller already holds.
func (sc *Scheduler) SetLineBusy(f func() bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.lineBusy = f
}

// Reset re-arms every trigger for a new session.
func (sc *Scheduler) Reset() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.table = sc.build()
}

// Step ticks the session once and fires the triggers due at the new time.
// Nothing fires once the session has left playing.
func (sc *Scheduler) Step(s *Session) (State, []Event) {
	st, ok := s.Tick()
	if !ok {
		return st, nil
	}
	return sc.check(s, st)
}

// Check fires the triggers due at the current time without ticking.
func (sc *Scheduler) Check(s *Session) (State, []Event) {
	return sc.check(s, s.State())
}

func (sc *Scheduler) check(s *Session, st State) (State, []Event) {
	if st.Status != StatusPlaying {
		return st, nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	var events []Event
	for i := range sc.table {
		t := &sc.table[i]
		if t.fired || t.at != st.TimeRemaining {
			continue
		}
		if t.fire(s, st) {
			t.fired = true
			events = append(events, Event{Kind: t.kind, At: t.at})
		}
	}
	if len(events) > 0 {
		st = s.State()
	}
	return st, events
}
