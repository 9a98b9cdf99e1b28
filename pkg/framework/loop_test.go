package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct{ n int }

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestLoopIterationOrder(t *testing.T) {
	var order []int
	loop := NewLoop()
	loop.AddController(PrLvOutput, ControlFunc(func(ControlContext) error {
		order = append(order, PrLvOutput)
		return nil
	}))
	loop.AddController(PrLvDriver, ControlFunc(func(ControlContext) error {
		order = append(order, PrLvDriver)
		return errors.New("logged only")
	}))
	loop.AddController(PrLvInput, ControlFunc(func(ControlContext) error {
		order = append(order, PrLvInput)
		return nil
	}))
	loop.RunIteration(context.TODO())
	require.Equal(t, []int{PrLvInput, PrLvDriver, PrLvOutput}, order)
}

func TestLoopMessages(t *testing.T) {
	var taken, left []int
	loop := NewLoop()
	loop.AddController(PrLvDriver, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			if m := mctx.CurrentMessage().(*testMsg); m.n%2 == 0 {
				mctx.MessageTaken()
				taken = append(taken, m.n)
			}
		}))
		return nil
	}))
	loop.AddController(PrLvOutput, ControlFunc(func(cc ControlContext) error {
		require.Equal(t, 2, cc.Messages().Len())
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			left = append(left, mctx.CurrentMessage().(*testMsg).n)
		}))
		return nil
	}))
	loop.Add(DiscardMessages{})
	for i := 1; i <= 4; i++ {
		loop.PostMessage(&testMsg{n: i})
	}
	loop.RunIteration(context.TODO())
	require.Equal(t, []int{2, 4}, taken)
	require.Equal(t, []int{1, 3}, left)

	// left-overs were discarded at idle level.
	taken, left = nil, nil
	loop.controllers[PrLvOutput] = nil
	loop.RunIteration(context.TODO())
	require.Empty(t, taken)
}

func TestLoopStopProcessing(t *testing.T) {
	var seen []int
	loop := NewLoop()
	loop.AddController(PrLvDriver, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			seen = append(seen, mctx.CurrentMessage().(*testMsg).n)
			mctx.StopProcessing()
		}))
		require.Equal(t, 3, cc.Messages().Len())
		return nil
	}))
	for i := 1; i <= 3; i++ {
		loop.PostMessage(&testMsg{n: i})
	}
	loop.RunIteration(context.TODO())
	require.Equal(t, []int{1}, seen)
}

func TestLoopRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	iterCh := make(chan uint64, 1)
	loop := NewLoop()
	loop.Interval = time.Millisecond
	loop.AddController(PrLvDriver, ControlFunc(func(cc ControlContext) error {
		select {
		case iterCh <- cc.Iteration():
		default:
		}
		return nil
	}))
	startedCh := make(chan struct{})
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		LoopCtlFrom(ctx).TriggerNext()
		close(startedCh)
		<-ctx.Done()
		return ctx.Err()
	}))
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	<-startedCh
	select {
	case n := <-iterCh:
		require.NotZero(t, n)
	case <-time.After(time.Second):
		t.Fatal("no iteration")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("a"))
	require.EqualError(t, errs.Aggregate(), "a")
	errs.Add(errors.New("b"))
	require.EqualError(t, errs.Aggregate(), "multiple errors:\n  a\n  b")
}

func TestAggregatedErrorUnwrap(t *testing.T) {
	errStop := errors.New("stop")
	var errs AggregatedError
	errs.Add(errors.New("a"), errStop)
	require.True(t, errors.Is(errs.Aggregate(), errStop))
}

func TestRunnerWait(t *testing.T) {
	errFail := errors.New("fail")
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunnerWith(ctx).Go(
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		NamedRun("failing", RunFunc(func(context.Context) error {
			cancel()
			return errFail
		})),
	)
	err := runner.Wait()
	require.EqualError(t, err, "fail")
	require.True(t, errors.Is(err, errFail))
}
