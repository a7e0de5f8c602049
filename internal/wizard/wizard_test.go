// ABOUTME: Tests for the wizard step sequencer
// ABOUTME: Covers navigation, validation gating, double-submit and stale results

package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSteps(n int) []Step {
	steps := make([]Step, n)
	for i := range steps {
		steps[i] = Step{Title: "Step"}
	}
	return steps
}

func TestNew_RequiresSteps(t *testing.T) {
	_, err := New(nil, func() {})
	require.ErrorIs(t, err, ErrNoSteps)
}

func TestNew_InitialState(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		w, err := New(makeSteps(n), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, w.CurrentIndex())
		assert.True(t, w.IsFirstStep())
		assert.Equal(t, n == 1, w.IsLastStep())
		assert.False(t, w.IsValidating())
		assert.Equal(t, n, w.Len())
	}
}

func TestAdvance_NoHookWalksAllSteps(t *testing.T) {
	completed := 0
	w, err := New(makeSteps(4), func() { completed++ })
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res := w.Advance(ctx)
		assert.Equal(t, Advanced, res.Outcome)
		assert.Equal(t, i+1, w.CurrentIndex())
		assert.Zero(t, completed)
	}

	require.True(t, w.IsLastStep())
	res := w.Advance(ctx)
	assert.Equal(t, Completed, res.Outcome)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 3, w.CurrentIndex(), "completion leaves the index unchanged")
}

func TestAdvance_RejectedKeepsIndex(t *testing.T) {
	completed := false
	w, err := New(makeSteps(2), func() { completed = true },
		WithValidate(func(ctx context.Context, index int) (bool, error) {
			return false, nil
		}))
	require.NoError(t, err)

	res := w.Advance(context.Background())
	assert.Equal(t, Rejected, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, 0, w.CurrentIndex())
	assert.False(t, completed)
}

func TestAdvance_HookErrorIsRejection(t *testing.T) {
	hookErr := errors.New("backend unreachable")
	w, err := New(makeSteps(3), nil,
		WithValidate(func(ctx context.Context, index int) (bool, error) {
			return false, hookErr
		}))
	require.NoError(t, err)

	res := w.Advance(context.Background())
	assert.Equal(t, Rejected, res.Outcome)
	assert.ErrorIs(t, res.Err, hookErr)
	assert.Equal(t, 0, w.CurrentIndex())
	assert.False(t, w.IsValidating())
}

func TestAdvance_HookPanicDoesNotEscape(t *testing.T) {
	w, err := New(makeSteps(2), nil,
		WithValidate(func(ctx context.Context, index int) (bool, error) {
			panic("boom")
		}))
	require.NoError(t, err)

	var res Result
	require.NotPanics(t, func() {
		res = w.Advance(context.Background())
	})
	assert.Equal(t, Rejected, res.Outcome)
	assert.Error(t, res.Err)
	assert.Equal(t, 0, w.CurrentIndex())
	assert.False(t, w.IsValidating())
}

func TestAdvance_ValidatingWindow(t *testing.T) {
	inHook := make(chan struct{})
	release := make(chan struct{})
	w, err := New(makeSteps(2), nil,
		WithValidate(func(ctx context.Context, index int) (bool, error) {
			close(inHook)
			<-release
			return true, nil
		}))
	require.NoError(t, err)

	assert.False(t, w.IsValidating())

	done := make(chan Result, 1)
	go func() { done <- w.Advance(context.Background()) }()

	<-inHook
	assert.True(t, w.IsValidating())

	// A second Advance during the in-flight hook is a no-op.
	res := w.Advance(context.Background())
	assert.Equal(t, Busy, res.Outcome)

	close(release)
	first := <-done
	assert.Equal(t, Advanced, first.Outcome)
	assert.False(t, w.IsValidating())
	assert.Equal(t, 1, w.CurrentIndex())
}

func TestRetreat(t *testing.T) {
	w, err := New(makeSteps(3), nil)
	require.NoError(t, err)

	assert.False(t, w.Retreat(), "retreat at index 0 is a no-op")

	w.Advance(context.Background())
	w.Advance(context.Background())
	require.Equal(t, 2, w.CurrentIndex())

	assert.True(t, w.Retreat())
	assert.Equal(t, 1, w.CurrentIndex())
	assert.True(t, w.Retreat())
	assert.Equal(t, 0, w.CurrentIndex())
	assert.False(t, w.Retreat())
}

func TestAdvance_StaleAfterRetreat(t *testing.T) {
	inHook := make(chan struct{})
	release := make(chan struct{})
	completed := false
	w, err := New(makeSteps(3), func() { completed = true },
		WithValidate(func(ctx context.Context, index int) (bool, error) {
			if index == 1 {
				close(inHook)
				<-release
			}
			return true, nil
		}))
	require.NoError(t, err)

	require.Equal(t, Advanced, w.Advance(context.Background()).Outcome)
	require.Equal(t, 1, w.CurrentIndex())

	done := make(chan Result, 1)
	go func() { done <- w.Advance(context.Background()) }()

	<-inHook
	// Back navigation is permitted mid-validation.
	assert.True(t, w.Retreat())
	assert.Equal(t, 0, w.CurrentIndex())

	close(release)
	res := <-done
	assert.Equal(t, Stale, res.Outcome, "late result must not advance a step the user left")
	assert.Equal(t, 0, w.CurrentIndex())
	assert.False(t, completed)
	assert.False(t, w.IsValidating())
}

func TestLabels(t *testing.T) {
	w, err := New(makeSteps(2), nil, WithLabels("Continue", "Previous", "Finish"))
	require.NoError(t, err)

	assert.Equal(t, "Continue", w.NextLabel())
	assert.Equal(t, "Previous", w.BackLabel())

	w.Advance(context.Background())
	assert.Equal(t, "Finish", w.NextLabel())

	def, err := New(makeSteps(1), nil)
	require.NoError(t, err)
	assert.Equal(t, "Done", def.NextLabel())
	assert.Equal(t, "Back", def.BackLabel())
}

func TestTitles(t *testing.T) {
	w, err := New([]Step{{Title: "Welcome"}, {Title: "Details"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Welcome", "Details"}, w.Titles())
}

func TestAdvance_ConcurrentCallsSingleTransition(t *testing.T) {
	w, err := New(makeSteps(2), nil,
		WithValidate(func(ctx context.Context, index int) (bool, error) {
			return true, nil
		}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 8)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = w.Advance(context.Background()).Outcome
		}(i)
	}
	wg.Wait()

	// However the calls interleave, the index stays in range and each
	// call resolved to a defined outcome.
	assert.LessOrEqual(t, w.CurrentIndex(), 1)
	for _, o := range outcomes {
		assert.Contains(t, []Outcome{Advanced, Completed, Busy}, o)
	}
}
