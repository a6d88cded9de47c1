// Package simulation runs the steady-state solver over every time step of a
// scenario. Steps share the read-only network and nothing else, so they are
// solved in parallel and collected into one result bundle.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dhsim/calculator"
	"dhsim/model"
	"dhsim/network"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Observer receives every solved step. Calls come from a single goroutine
// in completion order, which is not necessarily step order.
type Observer func(state *model.FlowState)

// Recorder collects timing and outcome counters, see package metrics.
type Recorder interface {
	StepSolved(cost time.Duration)
	StepFailed(cost time.Duration, err error)
	BatchFinished(cost time.Duration, steps, failed int)
}

type Simulation struct {
	net    *network.Network
	calc   calculator.Calculator
	inputs *inputs
	opts   Options

	observer Observer
	recorder Recorder
}

// New validates the scenario topology and its sequences.
func New(sc *model.Scenario, cfg calculator.Config, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	net, err := network.New(sc.Nodes, sc.Pipes)
	if err != nil {
		return nil, err
	}
	in, err := newInputs(net, sc, cfg)
	if err != nil {
		return nil, err
	}
	return &Simulation{
		net:    net,
		calc:   calculator.New(net, cfg),
		inputs: in,
		opts:   opts,
	}, nil
}

func (s *Simulation) SetObserver(o Observer) { s.observer = o }

func (s *Simulation) SetRecorder(r Recorder) { s.recorder = r }

func (s *Simulation) Network() *network.Network { return s.net }

func (s *Simulation) Steps() int { return s.inputs.steps }

// Step solves a single time step.
func (s *Simulation) Step(step int) (*model.FlowState, error) {
	if step < 0 || step >= s.inputs.steps {
		return nil, fmt.Errorf("step %d out of range [0, %d)", step, s.inputs.steps)
	}
	return s.calc.Calculate(s.inputs.at(step))
}

// Run solves all time steps. A TopologyError always aborts the batch; a
// PhysicalInputError aborts it unless SkipFailedSteps is set, in which case
// the step is left nil in Results.Steps and listed in Results.Failures.
func (s *Simulation) Run(ctx context.Context) (*model.Results, error) {
	start := time.Now()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	res := &model.Results{
		RunID: uuid.New().String(),
		Steps: make([]*model.FlowState, s.inputs.steps),
	}
	logger := log.WithField("run", res.RunID)
	logger.WithFields(log.Fields{
		"steps":   s.inputs.steps,
		"workers": s.opts.Workers,
		"nodes":   s.net.NumNodes(),
		"pipes":   s.net.NumPipes(),
	}).Info("开始批量计算")

	var fatal error
	e := newExecutor(s.opts.Workers)
	for out := range e.run(ctx, s.inputs.steps, s.Step) {
		if out.err != nil {
			if s.recorder != nil {
				s.recorder.StepFailed(out.cost, out.err)
			}
			if s.opts.SkipFailedSteps && errors.Is(out.err, model.ErrPhysicalInput) {
				logger.WithField("step", out.step).Warn("跳过计算失败的时间步: ", out.err)
				res.Failures = append(res.Failures, model.StepFailure{Step: out.step, Error: out.err.Error()})
				continue
			}
			if fatal == nil {
				fatal = fmt.Errorf("step %d: %w", out.step, out.err)
				cancel()
			}
			continue
		}
		if s.recorder != nil {
			s.recorder.StepSolved(out.cost)
		}
		res.Steps[out.step] = out.state
		if s.observer != nil && fatal == nil {
			s.observer(out.state)
		}
		logger.WithFields(log.Fields{
			"step":          out.step,
			"heat_loss":     out.state.HeatLoss,
			"pressure_loss": out.state.PressureLoss,
			"cost":          out.cost,
		}).Debug("时间步计算完成")
	}
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Step < res.Failures[j].Step })

	if s.recorder != nil {
		s.recorder.BatchFinished(time.Since(start), s.inputs.steps, len(res.Failures))
	}
	if fatal != nil {
		logger.WithError(fatal).Error("批量计算终止")
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		logger.WithError(err).Error("批量计算被取消")
		return nil, fmt.Errorf("run %s: %w", res.RunID, err)
	}

	logger.WithFields(log.Fields{
		"steps":  s.inputs.steps,
		"failed": len(res.Failures),
		"cost":   time.Since(start),
	}).Info("批量计算完成")
	return res, nil
}

// Run builds a Simulation for the scenario and solves every time step.
func Run(ctx context.Context, sc *model.Scenario, cfg calculator.Config, opts Options) (*model.Results, error) {
	s, err := New(sc, cfg, opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}
