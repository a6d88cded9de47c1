package simulation

import (
	"math"
	"sort"

	"dhsim/calculator"
	"dhsim/fluid"
	"dhsim/model"
	"dhsim/network"
)

// 环境温度序列中的列名
const envColumn = "temp_env"

// 时间步输入的来源：有序列时取序列值，否则取节点的静态属性
type inputs struct {
	net      *network.Network
	cfg      calculator.Config
	provider fluid.Provider
	steps    int

	massFlow *model.Sequence
	tempDrop *model.Sequence
	tempIn   *model.Sequence
	tempEnv  *model.Sequence
	pipeFlow *model.Sequence
}

func newInputs(net *network.Network, sc *model.Scenario, cfg calculator.Config) (*inputs, error) {
	in := &inputs{
		net:      net,
		cfg:      cfg,
		provider: cfg.Provider(),
		steps:    sc.Steps(),
		massFlow: sc.Sequences[model.SeqConsumerMassFlow],
		tempDrop: sc.Sequences[model.SeqConsumerTempDrop],
		tempIn:   sc.Sequences[model.SeqProducerTemp],
		tempEnv:  sc.Sequences[model.SeqEnvironmentTemp],
		pipeFlow: sc.Sequences[model.SeqPipeMassFlow],
	}

	pipes := make(map[string]bool, len(sc.Pipes))
	for _, p := range sc.Pipes {
		pipes[p.ID] = true
	}
	for _, name := range sortedNames(sc.Sequences) {
		seq := sc.Sequences[name]
		for _, key := range seq.Keys() {
			if n := len(seq.Values[key]); n != in.steps {
				return nil, model.NewPhysicalInputError(key, name, float64(n), "sequence length differs from the number of time steps")
			}
			switch name {
			case model.SeqEnvironmentTemp:
				if key != envColumn {
					return nil, model.NewTopologyError(key, "unknown column in %s", name)
				}
			case model.SeqPipeMassFlow:
				if !pipes[key] {
					return nil, model.NewTopologyError(key, "sequence %s refers to an undefined pipe", name)
				}
			default:
				if _, ok := net.NodeIndex(key); !ok {
					return nil, model.NewTopologyError(key, "sequence %s refers to an undefined node", name)
				}
			}
		}
	}
	if in.pipeFlow != nil {
		for p := 0; p < net.NumPipes(); p++ {
			if _, ok := in.pipeFlow.Values[net.Pipe(p).ID]; !ok {
				return nil, model.NewPhysicalInputError(net.Pipe(p).ID, model.SeqPipeMassFlow, math.NaN(), "active pipe has no mass flow column")
			}
		}
	}
	return in, nil
}

func value(seq *model.Sequence, key string, step int, fallback float64) float64 {
	if seq == nil {
		return fallback
	}
	if v, ok := seq.Values[key]; ok {
		return v[step]
	}
	return fallback
}

// 组装第 step 个时间步的求解输入
func (s *inputs) at(step int) calculator.Input {
	n := s.net.NumNodes()
	in := calculator.Input{
		Step:      step,
		Demand:    make([]float64, n),
		TempDrop:  make([]float64, n),
		TempInlet: make([]float64, n),
		TempEnv:   value(s.tempEnv, envColumn, step, s.cfg.TempEnv),
	}
	for i := 0; i < n; i++ {
		node := s.net.Node(i)
		switch node.Role {
		case model.Consumer:
			in.Demand[i] = value(s.massFlow, node.ID, step, node.MassFlow)
			in.TempDrop[i] = value(s.tempDrop, node.ID, step, node.TempDrop)
		case model.Producer:
			in.TempInlet[i] = value(s.tempIn, node.ID, step, node.TempInlet)
		}
	}
	if s.pipeFlow != nil {
		in.PipeFlow = make([]float64, s.net.NumPipes())
		for p := range in.PipeFlow {
			in.PipeFlow[p] = s.pipeFlow.Values[s.net.Pipe(p).ID][step]
		}
	}

	// 物性取各热源供水温度的平均值
	mean := 0.0
	for _, i := range s.net.Producers() {
		mean += in.TempInlet[i]
	}
	in.Fluid = s.provider.At(mean / float64(len(s.net.Producers())))
	return in
}

func sortedNames(m map[string]*model.Sequence) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
