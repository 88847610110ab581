package lifecycle

import (
	"errors"
	"testing"
	"time"
)

type fakeResource struct {
	stopErr    error
	stopCalled bool
	closed     bool
}

func (f *fakeResource) Stop(time.Duration) error {
	f.stopCalled = true
	return f.stopErr
}

func (f *fakeResource) Close() {
	f.closed = true
}

func TestStopCloseAndNilHappyPath(t *testing.T) {
	r := &fakeResource{}
	if err := StopCloseAndNil(&r, time.Second); err != nil {
		t.Fatalf("StopCloseAndNil: %v", err)
	}
	if r != nil {
		t.Fatal("pointer not nilled")
	}
}

func TestStopCloseAndNilStillClosesOnStopError(t *testing.T) {
	boom := errors.New("boom")
	inner := &fakeResource{stopErr: boom}
	r := inner
	err := StopCloseAndNil(&r, time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !inner.closed {
		t.Fatal("Close was not called despite Stop failing")
	}
	if r != nil {
		t.Fatal("pointer not nilled despite Stop failing")
	}
}

func TestStopCloseAndNilNilPointerIsNoop(t *testing.T) {
	var r *fakeResource
	if err := StopCloseAndNil(&r, time.Second); err != nil {
		t.Fatalf("StopCloseAndNil on nil resource: %v", err)
	}
}

func TestStopCloseAndNilNilOuterPointerIsNoop(t *testing.T) {
	if err := StopCloseAndNil[*fakeResource](nil, time.Second); err != nil {
		t.Fatalf("StopCloseAndNil with nil outer pointer: %v", err)
	}
}
