package core

// Timer represents a scheduled event in the board loop
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer

	// Period is non-zero for timers that must keep running even when
	// their handler panics.
	Period uint32
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var timerList *Timer

// timerBefore compares clock values modulo wraparound
func timerBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// ScheduleTimer adds a timer to the schedule
func ScheduleTimer(t *Timer) {
	state := irqSave()
	insertTimer(t)
	irqRestore(state)
}

// CancelTimer removes t from the schedule if it is queued
func CancelTimer(t *Timer) {
	state := irqSave()
	defer irqRestore(state)

	for p := &timerList; *p != nil; p = &(*p).Next {
		if *p == t {
			*p = t.Next
			t.Next = nil
			return
		}
	}
}

// insertTimer inserts a timer in sorted order by WakeTime
func insertTimer(t *Timer) {
	if timerList == nil || timerBefore(t.WakeTime, timerList.WakeTime) {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && !timerBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// TimerDispatch runs every timer due at the current clock. Handlers run
// with interrupts enabled, so they may kick the driver chain.
func TimerDispatch() {
	now := GetTime()
	for {
		state := irqSave()
		timer := timerList
		if timer == nil || timerBefore(now, timer.WakeTime) {
			irqRestore(state)
			return
		}
		timerList = timer.Next
		timer.Next = nil
		irqRestore(state)

		runTimer(timer)
	}
}

// runTimer calls the handler and requeues the timer if asked to. A
// periodic timer is requeued even if its handler panics; the panic
// still reaches the caller.
func runTimer(t *Timer) {
	result := uint8(SF_DONE)
	completed := false
	defer func() {
		if result == SF_RESCHEDULE || (!completed && t.Period != 0) {
			ScheduleTimer(t)
		}
	}()
	result = t.Handler(t)
	completed = true
}

// NewPeriodicTimer returns a timer that calls fn every period ticks,
// first firing one period from now.
func NewPeriodicTimer(period uint32, fn func()) *Timer {
	return &Timer{
		WakeTime: GetTime() + period,
		Period:   period,
		Handler: func(t *Timer) uint8 {
			t.WakeTime += t.Period
			fn()
			return SF_RESCHEDULE
		},
	}
}
