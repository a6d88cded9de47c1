package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"dhsim/calculator"
	"dhsim/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func treeScenario() *model.Scenario {
	pipe := func(id, from, to string, length, diameter float64) model.Pipe {
		return model.Pipe{ID: id, From: from, To: to, Length: length, Diameter: diameter,
			Roughness: 1e-5, HeatTransfer: 0.5}
	}
	return &model.Scenario{
		Nodes: []model.Node{
			{ID: "producers-0", Role: model.Producer, TempInlet: 90},
			{ID: "forks-0", Role: model.Fork},
			{ID: "consumers-0", Role: model.Consumer, MassFlow: 1.5, TempDrop: 30},
			{ID: "consumers-1", Role: model.Consumer, MassFlow: 2.5, TempDrop: 20},
		},
		Pipes: []model.Pipe{
			pipe("0", "producers-0", "forks-0", 200, 0.1),
			pipe("1", "forks-0", "consumers-0", 80, 0.05),
			pipe("2", "forks-0", "consumers-1", 120, 0.065),
		},
		Sequences: map[string]*model.Sequence{},
	}
}

func seq(values map[string][]float64) *model.Sequence {
	return &model.Sequence{Values: values}
}

type countingRecorder struct {
	mu      sync.Mutex
	solved  int
	failed  int
	batches int
}

func (r *countingRecorder) StepSolved(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solved++
}

func (r *countingRecorder) StepFailed(time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

func (r *countingRecorder) BatchFinished(time.Duration, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
}

func TestBatchIndependence(t *testing.T) {
	sc := treeScenario()
	sc.Sequences[model.SeqConsumerMassFlow] = seq(map[string][]float64{
		"consumers-0": {1.5, 1.5, 1.5},
		"consumers-1": {2.5, 2.5, 2.5},
	})

	res, err := Run(context.Background(), sc, calculator.DefaultConfig(), Options{Workers: 3})
	require.NoError(t, err)
	require.Len(t, res.Steps, 3)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Failures)

	for i, s := range res.Steps {
		require.NotNil(t, s)
		assert.Equal(t, i, s.Step)
	}
	first := *res.Steps[0]
	for _, s := range res.Steps[1:] {
		other := *s
		other.Step = first.Step
		assert.Equal(t, first, other)
	}
}

func TestSequencesOverrideStaticValues(t *testing.T) {
	sc := treeScenario()
	sc.Sequences[model.SeqConsumerMassFlow] = seq(map[string][]float64{"consumers-0": {1, 2}})
	sc.Sequences[model.SeqProducerTemp] = seq(map[string][]float64{"producers-0": {80, 70}})
	sc.Sequences[model.SeqEnvironmentTemp] = seq(map[string][]float64{"temp_env": {5, 15}})

	s, err := New(sc, calculator.DefaultConfig(), Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Steps())

	in := s.inputs.at(1)
	c0, _ := s.Network().NodeIndex("consumers-0")
	c1, _ := s.Network().NodeIndex("consumers-1")
	p0, _ := s.Network().NodeIndex("producers-0")
	assert.Equal(t, 2.0, in.Demand[c0])
	assert.Equal(t, 2.5, in.Demand[c1])
	assert.Equal(t, 70.0, in.TempInlet[p0])
	assert.Equal(t, 15.0, in.TempEnv)

	state, err := s.Step(1)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, state.Pipes["0"].MassFlow, 1e-12)
	assert.Equal(t, 70.0, state.Nodes["producers-0"].TempInlet)

	_, err = s.Step(2)
	assert.Error(t, err)
}

func TestTableFluidFollowsInletTemperature(t *testing.T) {
	sc := treeScenario()
	sc.Sequences[model.SeqProducerTemp] = seq(map[string][]float64{"producers-0": {40, 120}})
	cfg := calculator.DefaultConfig()
	cfg.FluidMode = calculator.FluidTable

	s, err := New(sc, cfg, DefaultOptions())
	require.NoError(t, err)
	cold, hot := s.inputs.at(0), s.inputs.at(1)
	assert.Greater(t, cold.Fluid.Density, hot.Fluid.Density)
	assert.Greater(t, cold.Fluid.Viscosity, hot.Fluid.Viscosity)
}

func TestSequenceValidation(t *testing.T) {
	cases := map[string]map[string]*model.Sequence{
		"undefined node": {model.SeqConsumerMassFlow: seq(map[string][]float64{"consumers-9": {1}})},
		"undefined pipe": {model.SeqPipeMassFlow: seq(map[string][]float64{"9": {1}})},
		"env column":     {model.SeqEnvironmentTemp: seq(map[string][]float64{"outside": {1}})},
	}
	for name, seqs := range cases {
		t.Run(name, func(t *testing.T) {
			sc := treeScenario()
			sc.Sequences = seqs
			_, err := New(sc, calculator.DefaultConfig(), DefaultOptions())
			assert.True(t, errors.Is(err, model.ErrTopology))
		})
	}

	sc := treeScenario()
	sc.Sequences[model.SeqConsumerMassFlow] = seq(map[string][]float64{
		"consumers-0": {1, 2, 3},
		"consumers-1": {1, 2},
	})
	_, err := New(sc, calculator.DefaultConfig(), DefaultOptions())
	assert.True(t, errors.Is(err, model.ErrPhysicalInput))

	sc = treeScenario()
	sc.Sequences[model.SeqPipeMassFlow] = seq(map[string][]float64{"0": {4}, "1": {1.5}})
	_, err = New(sc, calculator.DefaultConfig(), DefaultOptions())
	var pe *model.PhysicalInputError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "2", pe.ID)
}

func TestFailedStepPolicy(t *testing.T) {
	build := func() *model.Scenario {
		sc := treeScenario()
		sc.Sequences[model.SeqConsumerMassFlow] = seq(map[string][]float64{
			"consumers-0": {1.5, -1, 1.5, 1.5},
		})
		return sc
	}

	_, err := Run(context.Background(), build(), calculator.DefaultConfig(), Options{Workers: 2})
	require.Error(t, err)
	var pe *model.PhysicalInputError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Step)

	rec := &countingRecorder{}
	var observed int
	s, err := New(build(), calculator.DefaultConfig(), Options{Workers: 2, SkipFailedSteps: true})
	require.NoError(t, err)
	s.SetRecorder(rec)
	s.SetObserver(func(*model.FlowState) { observed++ })
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Nil(t, res.Steps[1])
	assert.NotNil(t, res.Steps[0])
	assert.NotNil(t, res.Steps[3])
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Step)
	assert.Equal(t, 3, observed)
	assert.Equal(t, 3, rec.solved)
	assert.Equal(t, 1, rec.failed)
	assert.Equal(t, 1, rec.batches)
}

func TestScenarioJSONPipesActiveByDefault(t *testing.T) {
	data := `{
		"nodes": [
			{"id": "producers-0", "role": "producers", "temp_inlet": 80},
			{"id": "consumers-0", "role": "consumers", "mass_flow": 1, "temperature_drop": 30}
		],
		"pipes": [
			{"id": "0", "from_node": "producers-0", "to_node": "consumers-0", "length": 100,
			 "diameter": 0.1, "roughness": 1e-5, "heat_transfer_coefficient": 0.5},
			{"id": "1", "from_node": "consumers-0", "to_node": "producers-0", "length": 100,
			 "diameter": 0.1, "roughness": 1e-5, "heat_transfer_coefficient": 0.5, "inactive": true}
		]
	}`
	var sc model.Scenario
	require.NoError(t, json.Unmarshal([]byte(data), &sc))
	assert.False(t, sc.Pipes[0].Inactive)
	assert.True(t, sc.Pipes[1].Inactive)

	res, err := Run(context.Background(), &sc, calculator.DefaultConfig(), Options{Workers: 1})
	require.NoError(t, err)
	require.Len(t, res.Steps, 1)
	assert.Contains(t, res.Steps[0].Pipes, "0")
	assert.NotContains(t, res.Steps[0].Pipes, "1")
	assert.Equal(t, 1.0, res.Steps[0].Pipes["0"].MassFlow)
}

func TestMeshWithoutFlowsIsFatal(t *testing.T) {
	sc := treeScenario()
	sc.Pipes = append(sc.Pipes, model.Pipe{ID: "3", From: "consumers-0", To: "consumers-1",
		Length: 50, Diameter: 0.05, Roughness: 1e-5, HeatTransfer: 0.5})

	_, err := Run(context.Background(), sc, calculator.DefaultConfig(), Options{Workers: 2, SkipFailedSteps: true})
	assert.True(t, errors.Is(err, model.ErrTopology))
}

func TestCancelledRun(t *testing.T) {
	sc := treeScenario()
	sc.Sequences[model.SeqConsumerMassFlow] = seq(map[string][]float64{"consumers-0": make([]float64, 50)})
	for i := range sc.Sequences[model.SeqConsumerMassFlow].Values["consumers-0"] {
		sc.Sequences[model.SeqConsumerMassFlow].Values["consumers-0"][i] = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, sc, calculator.DefaultConfig(), Options{Workers: 2})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOptionsFromIni(t *testing.T) {
	file, err := ini.Load([]byte("[simulation]\nworkers = 3\nskip_failed_steps = true\ntimeout = 2m\n"))
	require.NoError(t, err)
	opts := OptionsFromIni(file)
	assert.Equal(t, 3, opts.Workers)
	assert.True(t, opts.SkipFailedSteps)
	assert.Equal(t, 2*time.Minute, opts.Timeout)

	opts = OptionsFromIni(ini.Empty())
	assert.Equal(t, DefaultOptions(), opts)
}

func BenchmarkRun(b *testing.B) {
	sc := treeScenario()
	flows := make([]float64, 1000)
	for i := range flows {
		flows[i] = 1 + float64(i%10)/10
	}
	sc.Sequences[model.SeqConsumerMassFlow] = seq(map[string][]float64{"consumers-0": flows})
	cfg := calculator.DefaultConfig()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Run(context.Background(), sc, cfg, DefaultOptions()); err != nil {
			b.Fatal(err)
		}
	}
}
