package core

import "testing"

func TestNegotiatorCoalescesRequestsBeforeFlush(t *testing.T) {
	loop := NewSerialLoop()
	host := &fakeHost{max: 200}
	n := NewNegotiator(NegotiatorConfig{Loop: loop, Host: host, Height: 10})

	fired := 0
	n.RequestHeightChange(20, func() { fired++ })
	n.RequestHeightChange(15, func() { fired++ })
	loop.Drain()

	calls := host.resizeCalls()
	if len(calls) != 1 || calls[0] != 35 {
		t.Fatalf("expected one resize of +35, got %+v", calls)
	}
	if fired != 0 {
		t.Fatalf("expected completions to wait for the host, fired %d", fired)
	}
	host.complete(0)
	loop.Drain()
	if fired != 2 {
		t.Fatalf("expected both completions fired once, got %d", fired)
	}
	if n.Height() != 45 {
		t.Fatalf("expected height 45, got %d", n.Height())
	}

	host.complete(0)
	loop.Drain()
	if fired != 2 {
		t.Fatalf("expected duplicate host callback to be ignored, fired %d", fired)
	}
}

func TestNegotiatorBatchesRequestsDuringResize(t *testing.T) {
	loop := NewSerialLoop()
	host := &fakeHost{max: 200}
	n := NewNegotiator(NegotiatorConfig{Loop: loop, Host: host, Height: 10})

	n.RequestHeightChange(5, nil)
	loop.Drain()
	n.RequestHeightChange(3, nil)
	n.RequestHeightChange(4, nil)
	loop.Drain()
	if calls := host.resizeCalls(); len(calls) != 1 {
		t.Fatalf("expected no second resize while the first is in flight, got %+v", calls)
	}
	if got := n.ProjectedHeight(); got != 22 {
		t.Fatalf("expected projected height 22, got %d", got)
	}
	host.complete(0)
	loop.Drain()
	calls := host.resizeCalls()
	if len(calls) != 2 || calls[1] != 7 {
		t.Fatalf("expected second resize of +7, got %+v", calls)
	}
	host.complete(1)
	loop.Drain()
	if n.Height() != 22 {
		t.Fatalf("expected height 22, got %d", n.Height())
	}
}

func TestNegotiatorClampsToBounds(t *testing.T) {
	loop := NewSerialLoop()
	host := &fakeHost{max: 50}
	n := NewNegotiator(NegotiatorConfig{Loop: loop, Host: host, Surface: fixedSurface{min: 5}, Height: 40})

	n.RequestHeightChange(100, nil)
	loop.Drain()
	if calls := host.resizeCalls(); len(calls) != 1 || calls[0] != 10 {
		t.Fatalf("expected clamp to max (+10), got %+v", calls)
	}
	host.complete(0)
	loop.Drain()

	n.RequestHeightChange(-100, nil)
	loop.Drain()
	if calls := host.resizeCalls(); len(calls) != 2 || calls[1] != -45 {
		t.Fatalf("expected clamp to min (-45), got %+v", calls)
	}
	host.complete(1)
	loop.Drain()
	if n.Height() != 5 {
		t.Fatalf("expected height 5, got %d", n.Height())
	}
}

func TestNegotiatorMinWinsOverMax(t *testing.T) {
	n := NewNegotiator(NegotiatorConfig{Loop: NewSerialLoop(), Host: &fakeHost{max: 4}, Surface: fixedSurface{min: 6}})
	if got := n.Clamp(100); got != 6 {
		t.Fatalf("expected min to win, got %d", got)
	}
}

func TestNegotiatorZeroDeltaCompletesOnLoop(t *testing.T) {
	loop := NewSerialLoop()
	host := &fakeHost{max: 30}
	n := NewNegotiator(NegotiatorConfig{Loop: loop, Host: host, Height: 30})

	fired := false
	n.RequestHeightChange(10, func() { fired = true })
	if fired {
		t.Fatalf("expected completion to be deferred to the loop")
	}
	loop.Drain()
	if !fired {
		t.Fatalf("expected completion after clamped no-op")
	}
	if calls := host.resizeCalls(); len(calls) != 0 {
		t.Fatalf("expected no host resize, got %+v", calls)
	}
}

func TestNegotiatorReportsAppliedHeight(t *testing.T) {
	loop := NewSerialLoop()
	host := &fakeHost{max: 100}
	var applied []int
	n := NewNegotiator(NegotiatorConfig{Loop: loop, Host: host, Height: 1, OnApplied: func(height, delta int) {
		applied = append(applied, height, delta)
	}})
	n.RequestHeightChange(4, nil)
	loop.Drain()
	host.complete(0)
	loop.Drain()
	if len(applied) != 2 || applied[0] != 5 || applied[1] != 4 {
		t.Fatalf("unexpected applied callback: %+v", applied)
	}
}
