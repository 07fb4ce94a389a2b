// Package goal tracks a trajectory-following request through its
// accept/execute/terminate lifecycle. The real-time control loop records
// requested transitions and feedback into preallocated payloads with atomic
// flags; a non-real-time status worker applies them through the transport.
package goal

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// ErrorCode is the terminal result code reported for a goal. The numeric
// values match the FollowJointTrajectory action contract.
type ErrorCode int32

const (
	Successful            ErrorCode = 0
	InvalidGoal           ErrorCode = -1
	InvalidJoints         ErrorCode = -2
	PathToleranceViolated ErrorCode = -4
	GoalToleranceViolated ErrorCode = -5
)

func (c ErrorCode) String() string {
	switch c {
	case Successful:
		return "SUCCESSFUL"
	case InvalidGoal:
		return "INVALID_GOAL"
	case InvalidJoints:
		return "INVALID_JOINTS"
	case PathToleranceViolated:
		return "PATH_TOLERANCE_VIOLATED"
	case GoalToleranceViolated:
		return "GOAL_TOLERANCE_VIOLATED"
	default:
		return "UNKNOWN"
	}
}

// State is a goal's position in its lifecycle.
type State int32

const (
	Pending State = iota
	Active
	Succeeded
	Aborted
	Preempted
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Active:
		return "ACTIVE"
	case Succeeded:
		return "SUCCEEDED"
	case Aborted:
		return "ABORTED"
	case Preempted:
		return "PREEMPTED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible from s.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, Aborted, Preempted, Rejected:
		return true
	default:
		return false
	}
}

// Result is the single terminal report for a goal.
type Result struct {
	Code    ErrorCode
	Message string
}

// PointData is one multi-joint motion state inside a feedback message.
type PointData struct {
	Positions     []float64
	Velocities    []float64
	Accelerations []float64
}

func newPointData(n int) PointData {
	return PointData{
		Positions:     make([]float64, n),
		Velocities:    make([]float64, n),
		Accelerations: make([]float64, n),
	}
}

// Feedback is the periodic progress report for an active goal. It is
// allocated once at acceptance and rewritten in place by the real-time loop;
// the status worker may read it concurrently and tolerates slightly stale
// values.
type Feedback struct {
	Stamp      time.Time
	JointNames []string
	Desired    PointData
	Actual     PointData
	Error      PointData
}

// Responder is the asynchronous transport half of the goal protocol,
// implemented by the external action layer. All methods are invoked from the
// non-real-time context. PublishResult is called exactly once, when the goal
// reaches a terminal state.
type Responder interface {
	Accepted()
	Rejected(result *Result)
	PublishFeedback(fb *Feedback)
	PublishResult(state State, result *Result)
}

// RTHandle is the real-time side of one accepted goal.
type RTHandle struct {
	id        uuid.UUID
	responder Responder

	// Preallocated payloads, written only by the real-time context after
	// acceptance so the control path never allocates.
	feedback *Feedback
	result   *Result

	// Per-joint completion flags in controller joint order. Real-time
	// context only.
	completed []bool

	state           atomic.Int32
	feedbackPending atomic.Bool
	done            chan struct{}
}

// NewRTHandle creates the handle for a goal that is about to be accepted,
// preallocating its feedback and result payloads for the given controller
// joints.
func NewRTHandle(jointNames []string, responder Responder) *RTHandle {
	n := len(jointNames)
	h := &RTHandle{
		id:        uuid.New(),
		responder: responder,
		feedback: &Feedback{
			JointNames: append([]string(nil), jointNames...),
			Desired:    newPointData(n),
			Actual:     newPointData(n),
			Error:      newPointData(n),
		},
		result:    &Result{},
		completed: make([]bool, n),
		done:      make(chan struct{}),
	}
	h.state.Store(int32(Active))
	return h
}

// ID returns the goal's unique identifier.
func (h *RTHandle) ID() uuid.UUID { return h.id }

// State returns the goal's current lifecycle state.
func (h *RTHandle) State() State { return State(h.state.Load()) }

// Feedback returns the preallocated feedback payload. Written only by the
// real-time context.
func (h *RTHandle) Feedback() *Feedback { return h.feedback }

// Result returns the preallocated result payload, or nil if it is missing.
// Written only by the real-time context.
func (h *RTHandle) Result() *Result { return h.result }

// MarkJointCompleted records that joint i ended inside its goal tolerances.
// Real-time context only.
func (h *RTHandle) MarkJointCompleted(i int) { h.completed[i] = true }

// AllJointsCompleted reports whether every controlled joint has completed.
// Real-time context only.
func (h *RTHandle) AllJointsCompleted() bool {
	for _, c := range h.completed {
		if !c {
			return false
		}
	}
	return true
}

// SetSucceeded requests the ACTIVE→SUCCEEDED transition. It is a no-op when
// the goal already left ACTIVE. Safe on the real-time path.
func (h *RTHandle) SetSucceeded() bool {
	return h.state.CompareAndSwap(int32(Active), int32(Succeeded))
}

// SetAborted requests the ACTIVE→ABORTED transition. It is a no-op when the
// goal already left ACTIVE. Safe on the real-time path.
func (h *RTHandle) SetAborted() bool {
	return h.state.CompareAndSwap(int32(Active), int32(Aborted))
}

// SetPreempted requests the ACTIVE→PREEMPTED transition, used when a new
// goal supersedes this one. It is a no-op when the goal already left ACTIVE.
func (h *RTHandle) SetPreempted() bool {
	return h.state.CompareAndSwap(int32(Active), int32(Preempted))
}

// SetFeedback marks the preallocated feedback payload ready for the status
// worker to publish. Safe on the real-time path.
func (h *RTHandle) SetFeedback() { h.feedbackPending.Store(true) }

// Done is closed once the terminal result has been published.
func (h *RTHandle) Done() <-chan struct{} { return h.done }

// RunNonRealtime performs one status publication step: pending feedback is
// forwarded and, once a terminal state has been requested, the final result
// is published exactly once. It returns true when the goal is finished and
// the status worker can stop. Non-real-time context only.
func (h *RTHandle) RunNonRealtime() bool {
	select {
	case <-h.done:
		return true
	default:
	}
	if h.feedbackPending.Swap(false) {
		h.responder.PublishFeedback(h.feedback)
	}
	if st := h.State(); st.Terminal() {
		h.responder.PublishResult(st, h.result)
		close(h.done)
		return true
	}
	return false
}
