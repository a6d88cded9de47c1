package simulation

import (
	"context"
	"sync"
	"time"

	"dhsim/model"
)

// 每个时间步是一个独立任务
type task struct {
	step int
}

type outcome struct {
	step  int
	state *model.FlowState
	err   error
	cost  time.Duration
}

// 基于时间步的任务分配，拓扑只读共享，每个任务的输入输出归 worker 独占
type executor struct {
	workers      int
	dispatchChan chan task
	doneChan     chan outcome
}

func newExecutor(workers int) *executor {
	if workers <= 0 {
		workers = 1
	}
	return &executor{
		workers:      workers,
		dispatchChan: make(chan task, workers*2),
		doneChan:     make(chan outcome, workers*2),
	}
}

// run dispatches steps 0..steps-1 to the workers and returns the channel
// the outcomes arrive on. The channel is closed after every dispatched step
// has been reported; dispatching stops once ctx is done.
func (e *executor) run(ctx context.Context, steps int, solve func(step int) (*model.FlowState, error)) <-chan outcome {
	go func() {
		defer close(e.dispatchChan)
		for i := 0; i < steps; i++ {
			select {
			case e.dispatchChan <- task{step: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range e.dispatchChan {
				if ctx.Err() != nil {
					continue
				}
				start := time.Now()
				state, err := solve(t.step)
				e.doneChan <- outcome{step: t.step, state: state, err: err, cost: time.Since(start)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(e.doneChan)
	}()
	return e.doneChan
}
