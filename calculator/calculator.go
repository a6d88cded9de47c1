package calculator

import (
	"errors"

	"dhsim/fluid"
	"dhsim/model"
	"dhsim/network"
)

// 单个时间步的输入，切片按 arena 下标索引
type Input struct {
	Step      int
	Demand    []float64 // 节点 -> 热用户质量流量 kg/s
	TempDrop  []float64 // 节点 -> 热用户供回水温差 K
	TempInlet []float64 // 节点 -> 热源供水温度 ℃
	TempEnv   float64
	PipeFlow  []float64 // 可选，管道 -> 带符号质量流量，环状网必须给出
	Fluid     fluid.Properties
}

// calculator 的接口定义
type Calculator interface {
	// 计算一个时间步的稳态水力、热力工况
	Calculate(in Input) (*model.FlowState, error)
}

type steadyState struct {
	net *network.Network
	cfg Config
}

// New returns a Calculator over a read-only network. The returned value
// keeps no per-step state and may be used from several goroutines.
func New(net *network.Network, cfg Config) Calculator {
	return &steadyState{net: net, cfg: cfg}
}

func (s *steadyState) Calculate(in Input) (*model.FlowState, error) {
	if err := validateInput(s.net, in); err != nil {
		return nil, withStep(err, in.Step)
	}
	o, err := s.net.Orient(in.Demand, in.PipeFlow)
	if err != nil {
		return nil, withStep(err, in.Step)
	}
	h, err := SolveHydraulic(s.net, o, in, s.cfg)
	if err != nil {
		return nil, err
	}
	th, err := SolveThermal(s.net, o, in)
	if err != nil {
		return nil, err
	}
	return BuildData(s.net, o, h, th, in), nil
}

// 求解器入口处统一校验，任何结果产生之前失败
func validateInput(net *network.Network, in Input) error {
	if err := validateFluid(in.Fluid, true); err != nil {
		return err
	}
	n := net.NumNodes()
	if len(in.Demand) != n || len(in.TempDrop) != n || len(in.TempInlet) != n {
		return model.NewPhysicalInputError("input", "length", float64(len(in.Demand)), "node slices must match node count")
	}
	if in.PipeFlow != nil && len(in.PipeFlow) != net.NumPipes() {
		return model.NewPhysicalInputError("input", "length", float64(len(in.PipeFlow)), "pipe flows must match pipe count")
	}
	if !finite(in.TempEnv) || in.TempEnv < model.AbsoluteZero {
		return model.NewPhysicalInputError("environment", "temp_env", in.TempEnv, "below absolute zero")
	}
	for _, c := range net.Consumers() {
		id := net.Node(c).ID
		if !finite(in.Demand[c]) || in.Demand[c] <= 0 {
			return model.NewPhysicalInputError(id, "mass_flow", in.Demand[c], "must be positive")
		}
		if !finite(in.TempDrop[c]) || in.TempDrop[c] < 0 {
			return model.NewPhysicalInputError(id, "temperature_drop", in.TempDrop[c], "must not be negative")
		}
	}
	for _, p := range net.Producers() {
		if !finite(in.TempInlet[p]) || in.TempInlet[p] < model.AbsoluteZero {
			return model.NewPhysicalInputError(net.Node(p).ID, "temp_inlet", in.TempInlet[p], "below absolute zero")
		}
	}
	for p := 0; p < net.NumPipes(); p++ {
		if err := validatePipe(net.Pipe(p), true); err != nil {
			return err
		}
	}
	return nil
}

func validateFluid(f fluid.Properties, thermal bool) error {
	if !finite(f.Density) || f.Density <= 0 {
		return model.NewPhysicalInputError("fluid", "density", f.Density, "must be positive")
	}
	if !finite(f.Viscosity) || f.Viscosity <= 0 {
		return model.NewPhysicalInputError("fluid", "viscosity", f.Viscosity, "must be positive")
	}
	if thermal && (!finite(f.HeatCapacity) || f.HeatCapacity <= 0) {
		return model.NewPhysicalInputError("fluid", "heat_capacity", f.HeatCapacity, "must be positive")
	}
	return nil
}

func validatePipe(pipe model.Pipe, thermal bool) error {
	if !finite(pipe.Length) || pipe.Length <= 0 {
		return model.NewPhysicalInputError(pipe.ID, "length", pipe.Length, "must be positive")
	}
	if !finite(pipe.Diameter) || pipe.Diameter <= 0 {
		return model.NewPhysicalInputError(pipe.ID, "diameter", pipe.Diameter, "must be positive")
	}
	if !finite(pipe.Roughness) || pipe.Roughness < 0 {
		return model.NewPhysicalInputError(pipe.ID, "roughness", pipe.Roughness, "must not be negative")
	}
	if thermal && (!finite(pipe.HeatTransfer) || pipe.HeatTransfer <= 0) {
		return model.NewPhysicalInputError(pipe.ID, "heat_transfer_coefficient", pipe.HeatTransfer, "must be positive")
	}
	return nil
}

// 为物理输入错误补上时间步
func withStep(err error, step int) error {
	var pe *model.PhysicalInputError
	if errors.As(err, &pe) {
		pe.Step = step
	}
	return err
}
