// ABOUTME: Step sequencer for multi-step console flows with async gating
// ABOUTME: Guards forward transitions behind an optional validate/commit hook

package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoSteps is returned by New when the step list is empty.
var ErrNoSteps = errors.New("wizard requires at least one step")

// Step is one page of a flow. Content is opaque to the engine; the
// owning page decides what it means and how it renders.
type Step struct {
	Title   string
	Content any
}

// ValidateFunc gates a forward transition. It receives the index of the
// step about to be left and reports whether the transition may proceed.
// A non-nil error is treated the same as false; the engine never lets
// it escape to the caller.
type ValidateFunc func(ctx context.Context, index int) (bool, error)

// Outcome classifies the result of an Advance call.
type Outcome int

const (
	// Advanced means the wizard moved forward one step.
	Advanced Outcome = iota
	// Completed means the last step was confirmed and the completion
	// callback fired. The index does not change.
	Completed
	// Rejected means the validate hook returned false or an error.
	Rejected
	// Busy means a validation was already in flight; the call was a no-op.
	Busy
	// Stale means the user retreated while the validation was in
	// flight, so the late result was discarded without a transition.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Completed:
		return "completed"
	case Rejected:
		return "rejected"
	case Busy:
		return "busy"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result carries the outcome of an Advance together with the hook's
// error, if any. Err is informational: a Rejected outcome with a nil
// Err means the hook said no without saying why.
type Result struct {
	Outcome Outcome
	Err     error
}

// Labels customizes the navigation affordance text.
type Labels struct {
	Next string
	Back string
	Done string
}

var defaultLabels = Labels{Next: "Next", Back: "Back", Done: "Done"}

// Option configures a Wizard at construction time.
type Option func(*Wizard)

// WithValidate installs the step validate/commit hook. Without it every
// transition succeeds immediately.
func WithValidate(fn ValidateFunc) Option {
	return func(w *Wizard) { w.validate = fn }
}

// WithLabels overrides the default Next/Back/Done labels. Empty fields
// keep their defaults.
func WithLabels(next, back, done string) Option {
	return func(w *Wizard) {
		if next != "" {
			w.labels.Next = next
		}
		if back != "" {
			w.labels.Back = back
		}
		if done != "" {
			w.labels.Done = done
		}
	}
}

// Wizard sequences a fixed list of steps. The step list is immutable
// after construction; only the current index and the validating flag
// change. All methods are safe for concurrent use.
type Wizard struct {
	mu         sync.Mutex
	steps      []Step
	onComplete func()
	validate   ValidateFunc
	labels     Labels

	current    int
	validating bool
	epoch      uint64
}

// New creates a wizard over the given steps. onComplete fires exactly
// once per confirmed pass through the last step. At least one step is
// required.
func New(steps []Step, onComplete func(), opts ...Option) (*Wizard, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	w := &Wizard{
		steps:      steps,
		onComplete: onComplete,
		labels:     defaultLabels,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Advance attempts the forward transition from the current step. When a
// validation is already in flight the call is a no-op returning Busy.
// The hook runs without the lock held so Retreat and queries stay
// responsive while a commit is on the wire.
func (w *Wizard) Advance(ctx context.Context) Result {
	w.mu.Lock()
	if w.validating {
		w.mu.Unlock()
		return Result{Outcome: Busy}
	}
	w.validating = true
	index := w.current
	startEpoch := w.epoch
	w.mu.Unlock()

	ok, err := w.runValidate(ctx, index)

	w.mu.Lock()
	w.validating = false
	if w.epoch != startEpoch {
		// The user navigated back while the hook was in flight. The
		// result no longer applies to the step being shown.
		w.mu.Unlock()
		return Result{Outcome: Stale, Err: err}
	}
	if !ok {
		w.mu.Unlock()
		return Result{Outcome: Rejected, Err: err}
	}
	if w.current == len(w.steps)-1 {
		done := w.onComplete
		w.mu.Unlock()
		if done != nil {
			done()
		}
		return Result{Outcome: Completed}
	}
	w.current++
	w.mu.Unlock()
	return Result{Outcome: Advanced}
}

// runValidate invokes the hook, converting any panic into a rejection
// so that Advance never throws to its caller.
func (w *Wizard) runValidate(ctx context.Context, index int) (ok bool, err error) {
	if w.validate == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("validate step %d panicked: %v", index, r)
		}
	}()
	return w.validate(ctx, index)
}

// Retreat moves back one step. It is a no-op at the first step and is
// always permitted, including while a validation is in flight; in that
// case the in-flight result is discarded when it settles.
func (w *Wizard) Retreat() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == 0 {
		return false
	}
	w.current--
	w.epoch++
	return true
}

// CurrentIndex returns the index of the step being shown.
func (w *Wizard) CurrentIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// IsFirstStep reports whether the wizard is on its first step.
func (w *Wizard) IsFirstStep() bool {
	return w.CurrentIndex() == 0
}

// IsLastStep reports whether the wizard is on its last step.
func (w *Wizard) IsLastStep() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current == len(w.steps)-1
}

// IsValidating reports whether a validate hook is currently in flight.
func (w *Wizard) IsValidating() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validating
}

// Len returns the number of steps.
func (w *Wizard) Len() int {
	return len(w.steps)
}

// StepAt returns the step at the given index.
func (w *Wizard) StepAt(i int) Step {
	return w.steps[i]
}

// Current returns the step being shown.
func (w *Wizard) Current() Step {
	return w.steps[w.CurrentIndex()]
}

// NextLabel returns the forward affordance text: the Done label on the
// last step, the Next label otherwise.
func (w *Wizard) NextLabel() string {
	if w.IsLastStep() {
		return w.labels.Done
	}
	return w.labels.Next
}

// BackLabel returns the backward affordance text.
func (w *Wizard) BackLabel() string {
	return w.labels.Back
}

// Titles returns the step titles in order, for step indicators.
func (w *Wizard) Titles() []string {
	titles := make([]string, len(w.steps))
	for i, s := range w.steps {
		titles[i] = s.Title
	}
	return titles
}
