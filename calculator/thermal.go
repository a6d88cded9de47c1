package calculator

import (
	"dhsim/model"
	"dhsim/network"

	log "github.com/sirupsen/logrus"
)

// 热力计算结果，双管模型：供水沿 Orientation 方向，回水反向
type ThermalState struct {
	SupplyIn  []float64
	SupplyOut []float64
	ReturnIn  []float64 // 回水进入管道的温度，位于供水下游端
	ReturnOut []float64
	HeatLoss  []float64 // 供回水两侧之和 W

	NodeInlet    []float64
	NodeReturn   []float64
	ConsumerHeat []float64

	TotalHeatLoss float64
}

// SolveThermal propagates supply temperatures downstream in topological
// order, then return temperatures upstream in reverse order. Streams that
// meet at a node mix ideally.
func SolveThermal(net *network.Network, o *network.Orientation, in Input) (*ThermalState, error) {
	if err := validateThermal(net, o, in); err != nil {
		return nil, withStep(err, in.Step)
	}

	c := in.Fluid.HeatCapacity
	np, nn := net.NumPipes(), net.NumNodes()
	th := &ThermalState{
		SupplyIn:     make([]float64, np),
		SupplyOut:    make([]float64, np),
		ReturnIn:     make([]float64, np),
		ReturnOut:    make([]float64, np),
		HeatLoss:     make([]float64, np),
		NodeInlet:    make([]float64, nn),
		NodeReturn:   make([]float64, nn),
		ConsumerHeat: make([]float64, nn),
	}

	outlet := func(p int, tin float64) float64 {
		pipe := net.Pipe(p)
		return OutletTemperature(tin, in.TempEnv, pipe.HeatTransfer, pipe.Diameter, pipe.Length, c, o.Flow[p])
	}

	// 供水
	for _, i := range o.Order {
		// 热源出口温度由供水温度给定，不与流入的供水混合
		if net.Node(i).Role == model.Producer {
			th.NodeInlet[i] = in.TempInlet[i]
		} else {
			flows, temps := make([]float64, 0, len(o.Up[i])), make([]float64, 0, len(o.Up[i]))
			for _, p := range o.Up[i] {
				flows = append(flows, o.Flow[p])
				temps = append(temps, th.SupplyOut[p])
			}
			th.NodeInlet[i] = MixTemperature(flows, temps)
		}
		for _, p := range o.Down[i] {
			th.SupplyIn[p] = th.NodeInlet[i]
			th.SupplyOut[p] = outlet(p, th.SupplyIn[p])
		}
	}

	// 回水
	for k := len(o.Order) - 1; k >= 0; k-- {
		i := o.Order[k]
		flows, temps := make([]float64, 0, len(o.Down[i])+1), make([]float64, 0, len(o.Down[i])+1)
		for _, p := range o.Down[i] {
			flows = append(flows, o.Flow[p])
			temps = append(temps, th.ReturnOut[p])
		}
		if net.Node(i).Role == model.Consumer {
			flows = append(flows, in.Demand[i])
			temps = append(temps, th.NodeInlet[i]-in.TempDrop[i])
			th.ConsumerHeat[i] = in.Demand[i] * c * in.TempDrop[i]
		}
		if len(flows) == 0 {
			th.NodeReturn[i] = th.NodeInlet[i]
		} else {
			th.NodeReturn[i] = MixTemperature(flows, temps)
		}
		if !finite(th.NodeReturn[i]) || th.NodeReturn[i] < model.AbsoluteZero {
			return nil, withStep(model.NewPhysicalInputError(net.Node(i).ID, "temp_return", th.NodeReturn[i], "below absolute zero"), in.Step)
		}
		for _, p := range o.Up[i] {
			th.ReturnIn[p] = th.NodeReturn[i]
			th.ReturnOut[p] = outlet(p, th.ReturnIn[p])
		}
	}

	for p := 0; p < np; p++ {
		th.HeatLoss[p] = HeatLoss(o.Flow[p], c, th.SupplyIn[p], th.SupplyOut[p]) +
			HeatLoss(o.Flow[p], c, th.ReturnIn[p], th.ReturnOut[p])
		if !finite(th.HeatLoss[p]) {
			return nil, withStep(model.NewPhysicalInputError(net.Pipe(p).ID, "heat_loss", th.HeatLoss[p], "numeric failure"), in.Step)
		}
		th.TotalHeatLoss += th.HeatLoss[p]
	}

	log.WithFields(log.Fields{
		"step":      in.Step,
		"heat_loss": th.TotalHeatLoss,
	}).Debug("热力计算完成")
	return th, nil
}

func validateThermal(net *network.Network, o *network.Orientation, in Input) error {
	if !finite(in.Fluid.HeatCapacity) || in.Fluid.HeatCapacity <= 0 {
		return model.NewPhysicalInputError("fluid", "heat_capacity", in.Fluid.HeatCapacity, "must be positive")
	}
	if !finite(in.TempEnv) || in.TempEnv < model.AbsoluteZero {
		return model.NewPhysicalInputError("environment", "temp_env", in.TempEnv, "below absolute zero")
	}
	for _, i := range net.Producers() {
		if !finite(in.TempInlet[i]) || in.TempInlet[i] < model.AbsoluteZero {
			return model.NewPhysicalInputError(net.Node(i).ID, "temp_inlet", in.TempInlet[i], "below absolute zero")
		}
	}
	for p := 0; p < net.NumPipes(); p++ {
		if err := validatePipe(net.Pipe(p), true); err != nil {
			return err
		}
		if !finite(o.Flow[p]) || o.Flow[p] <= 0 {
			return model.NewPhysicalInputError(net.Pipe(p).ID, "mass_flow", o.Flow[p], "must be positive")
		}
	}
	return nil
}
