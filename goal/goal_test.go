package goal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

type recordingResponder struct {
	mu           sync.Mutex
	accepted     bool
	rejected     *Result
	feedbacks    int
	resultState  State
	resultCode   ErrorCode
	results      int
	resultArrive chan struct{}
}

func newRecordingResponder() *recordingResponder {
	return &recordingResponder{resultArrive: make(chan struct{}, 1)}
}

func (r *recordingResponder) Accepted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted = true
}

func (r *recordingResponder) Rejected(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = result
}

func (r *recordingResponder) PublishFeedback(*Feedback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedbacks++
}

func (r *recordingResponder) PublishResult(state State, result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results++
	r.resultState = state
	r.resultCode = result.Code
	select {
	case r.resultArrive <- struct{}{}:
	default:
	}
}

func (r *recordingResponder) snapshot() recordingResponder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recordingResponder{
		accepted:    r.accepted,
		feedbacks:   r.feedbacks,
		resultState: r.resultState,
		resultCode:  r.resultCode,
		results:     r.results,
	}
}

func TestStateTerminal(t *testing.T) {
	test.That(t, Pending.Terminal(), test.ShouldBeFalse)
	test.That(t, Active.Terminal(), test.ShouldBeFalse)
	for _, s := range []State{Succeeded, Aborted, Preempted, Rejected} {
		test.That(t, s.Terminal(), test.ShouldBeTrue)
	}
}

func TestErrorCodeString(t *testing.T) {
	test.That(t, Successful.String(), test.ShouldEqual, "SUCCESSFUL")
	test.That(t, InvalidGoal.String(), test.ShouldEqual, "INVALID_GOAL")
	test.That(t, InvalidJoints.String(), test.ShouldEqual, "INVALID_JOINTS")
	test.That(t, PathToleranceViolated.String(), test.ShouldEqual, "PATH_TOLERANCE_VIOLATED")
	test.That(t, GoalToleranceViolated.String(), test.ShouldEqual, "GOAL_TOLERANCE_VIOLATED")
}

func TestTransitionsLeaveActiveOnce(t *testing.T) {
	h := NewRTHandle([]string{"j1", "j2"}, newRecordingResponder())
	test.That(t, h.State(), test.ShouldEqual, Active)

	test.That(t, h.SetPreempted(), test.ShouldBeTrue)
	test.That(t, h.State(), test.ShouldEqual, Preempted)

	// A stale real-time tick cannot rewrite a terminal state.
	test.That(t, h.SetSucceeded(), test.ShouldBeFalse)
	test.That(t, h.SetAborted(), test.ShouldBeFalse)
	test.That(t, h.State(), test.ShouldEqual, Preempted)
}

func TestCompletionFlags(t *testing.T) {
	h := NewRTHandle([]string{"j1", "j2"}, newRecordingResponder())
	test.That(t, h.AllJointsCompleted(), test.ShouldBeFalse)
	h.MarkJointCompleted(0)
	test.That(t, h.AllJointsCompleted(), test.ShouldBeFalse)
	h.MarkJointCompleted(1)
	test.That(t, h.AllJointsCompleted(), test.ShouldBeTrue)
}

func TestRunNonRealtimePublishesFeedbackOncePerMark(t *testing.T) {
	r := newRecordingResponder()
	h := NewRTHandle([]string{"j1"}, r)

	test.That(t, h.RunNonRealtime(), test.ShouldBeFalse)
	test.That(t, r.snapshot().feedbacks, test.ShouldEqual, 0)

	h.SetFeedback()
	test.That(t, h.RunNonRealtime(), test.ShouldBeFalse)
	test.That(t, h.RunNonRealtime(), test.ShouldBeFalse)
	test.That(t, r.snapshot().feedbacks, test.ShouldEqual, 1)
}

func TestRunNonRealtimePublishesExactlyOneResult(t *testing.T) {
	r := newRecordingResponder()
	h := NewRTHandle([]string{"j1"}, r)

	h.Result().Code = PathToleranceViolated
	h.SetAborted()

	test.That(t, h.RunNonRealtime(), test.ShouldBeTrue)
	test.That(t, h.RunNonRealtime(), test.ShouldBeTrue)

	got := r.snapshot()
	test.That(t, got.results, test.ShouldEqual, 1)
	test.That(t, got.resultState, test.ShouldEqual, Aborted)
	test.That(t, got.resultCode, test.ShouldEqual, PathToleranceViolated)

	select {
	case <-h.Done():
	default:
		t.Fatal("Done should be closed after the result is published")
	}
}

func TestMonitorPublishesResultOnCancel(t *testing.T) {
	r := newRecordingResponder()
	h := NewRTHandle([]string{"j1"}, r)
	mock := clock.NewMock()

	ctx, cancel := context.WithCancel(context.Background())
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		Monitor(ctx, mock, 10*time.Millisecond, h)
	}()

	// The goal turns terminal while the monitor sits on its ticker; the
	// cancellation that follows must not swallow the result.
	h.SetPreempted()
	cancel()

	select {
	case <-monitorDone:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
	got := r.snapshot()
	test.That(t, got.results, test.ShouldEqual, 1)
	test.That(t, got.resultState, test.ShouldEqual, Preempted)
}

func TestMonitorPublishesTerminalResult(t *testing.T) {
	r := newRecordingResponder()
	h := NewRTHandle([]string{"j1"}, r)
	mock := clock.NewMock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		Monitor(ctx, mock, 10*time.Millisecond, h)
	}()

	h.Result().Code = Successful
	h.SetSucceeded()
	for i := 0; i < 100; i++ {
		mock.Add(10 * time.Millisecond)
		select {
		case <-r.resultArrive:
			i = 100
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case <-monitorDone:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after the terminal result")
	}
	got := r.snapshot()
	test.That(t, got.results, test.ShouldEqual, 1)
	test.That(t, got.resultState, test.ShouldEqual, Succeeded)
}
