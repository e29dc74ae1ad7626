package core

import "testing"

func resetTimers() {
	timerList = nil
}

func TestTimerDispatchOrder(t *testing.T) {
	resetTimers()
	defer resetTimers()
	SetTime(1000)

	var order []int
	mk := func(id int, wake uint32) *Timer {
		return &Timer{WakeTime: wake, Handler: func(*Timer) uint8 {
			order = append(order, id)
			return SF_DONE
		}}
	}
	ScheduleTimer(mk(3, 1300))
	ScheduleTimer(mk(1, 1100))
	ScheduleTimer(mk(2, 1200))

	SetTime(1250)
	TimerDispatch()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("dispatched %v, want [1 2]", order)
	}

	SetTime(1300)
	TimerDispatch()
	if len(order) != 3 || order[2] != 3 {
		t.Errorf("dispatched %v, want [1 2 3]", order)
	}
	if timerList != nil {
		t.Errorf("timer list not empty")
	}
}

func TestTimerWraparound(t *testing.T) {
	resetTimers()
	defer resetTimers()
	SetTime(0xFFFFFF00)

	fired := 0
	late := &Timer{WakeTime: 0x00000100, Handler: func(*Timer) uint8 { fired++; return SF_DONE }}
	ScheduleTimer(late)

	TimerDispatch()
	if fired != 0 {
		t.Fatalf("timer past the wrap fired early")
	}
	SetTime(0x00000100)
	TimerDispatch()
	if fired != 1 {
		t.Errorf("timer past the wrap did not fire")
	}
}

func TestPeriodicTimer(t *testing.T) {
	resetTimers()
	defer resetTimers()
	SetTime(0)

	n := 0
	p := NewPeriodicTimer(100, func() { n++ })
	ScheduleTimer(p)

	for now := uint32(50); now <= 350; now += 50 {
		SetTime(now)
		TimerDispatch()
	}
	if n != 3 {
		t.Errorf("periodic timer ran %d times, want 3", n)
	}

	CancelTimer(p)
	SetTime(1000)
	TimerDispatch()
	if n != 3 {
		t.Errorf("cancelled timer ran")
	}
}

// dispatchRecovering runs TimerDispatch the way the board loop does and
// reports whether a handler panicked.
func dispatchRecovering() (panicked bool) {
	defer func() {
		if recover() != nil {
			panicked = true
		}
	}()
	TimerDispatch()
	return false
}

func TestPeriodicTimerSurvivesPanic(t *testing.T) {
	resetTimers()
	defer resetTimers()
	SetTime(0)

	n := 0
	p := NewPeriodicTimer(100, func() {
		n++
		if n == 1 {
			panic("handler fault")
		}
	})
	ScheduleTimer(p)

	SetTime(100)
	if !dispatchRecovering() {
		t.Fatalf("panic did not reach the caller")
	}
	if timerList != p || p.WakeTime != 200 {
		t.Fatalf("periodic timer not requeued after panic: wake %d", p.WakeTime)
	}

	SetTime(200)
	if dispatchRecovering() {
		t.Fatalf("second run panicked")
	}
	if n != 2 || p.WakeTime != 300 {
		t.Errorf("ran %d times, wake %d; want 2 and 300", n, p.WakeTime)
	}
}

func TestOneShotTimerDroppedOnPanic(t *testing.T) {
	resetTimers()
	defer resetTimers()
	SetTime(0)

	ScheduleTimer(&Timer{WakeTime: 10, Handler: func(*Timer) uint8 {
		panic("handler fault")
	}})

	SetTime(10)
	if !dispatchRecovering() {
		t.Fatalf("panic did not reach the caller")
	}
	if timerList != nil {
		t.Errorf("one-shot timer requeued after panic")
	}
}

func TestStepTracker(t *testing.T) {
	var s StepTracker
	SetTime(1000)

	if s.StepInterval(0, 4) != 0 {
		t.Errorf("idle axis reports an interval")
	}
	s.Step(0)
	if s.StepInterval(0, 4) != 0 {
		t.Errorf("single pulse reports an interval")
	}

	SetTime(1300)
	s.Step(0)
	if got := s.StepInterval(0, 4); got != 300*16 {
		t.Errorf("StepInterval(x16) = %d, want %d", got, 300*16)
	}
	if got := s.StepInterval(0, 0); got != 300 {
		t.Errorf("StepInterval(x1) = %d, want 300", got)
	}

	SetTime(1300 + StepIdleTimeout + 1)
	if s.StepInterval(0, 4) != 0 {
		t.Errorf("axis still stepping after idle timeout")
	}

	s.Step(MaxTrackedAxes)
	if s.StepInterval(MaxTrackedAxes, 0) != 0 {
		t.Errorf("untracked axis reports an interval")
	}

	SetTime(5000)
	s.Step(1)
	SetTime(5100)
	s.Step(1)
	s.Stop(1)
	if s.StepInterval(1, 0) != 0 {
		t.Errorf("stopped axis reports an interval")
	}
}

func TestStepTrackerGatesStall(t *testing.T) {
	gpio := NewMockGPIODriver()
	SetGPIODriver(gpio)
	powerUpSettle = 0
	bus := &LoopbackTransport{
		Respond: func(GPIOPin, uint32) uint32 { return EncodeResponse(StatusStall) },
	}
	var steps StepTracker
	sd := NewSmartDrivers(bus, &steps, testEnablePin)
	if err := sd.Init([]GPIOPin{40}, 1); err != nil {
		t.Fatal(err)
	}
	sd.EnableDrive(0, true)
	sd.Spin(true)

	SetTime(10000)
	bus.Complete()
	if sd.GetLiveStatus(0)&StatusStall != 0 {
		t.Errorf("stall reported on a motionless axis")
	}

	// x16 microsteps every 200 ticks: 3200 ticks per full step
	steps.Step(0)
	SetTime(10200)
	steps.Step(0)
	bus.Complete()
	if sd.GetLiveStatus(0)&StatusStall == 0 {
		t.Errorf("stall hidden on a moving axis")
	}
}
