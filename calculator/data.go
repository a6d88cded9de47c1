package calculator

import (
	"time"

	"dhsim/model"
	"dhsim/network"

	log "github.com/sirupsen/logrus"
)

// BuildData flattens the per-index solver state into a FlowState keyed by
// pipe and node ids.
func BuildData(net *network.Network, o *network.Orientation, h *HydraulicState, th *ThermalState, in Input) *model.FlowState {
	start := time.Now()
	s := &model.FlowState{
		Step:         in.Step,
		Pipes:        make(map[string]model.PipeState, net.NumPipes()),
		Nodes:        make(map[string]model.NodeState, net.NumNodes()),
		Producers:    make(map[string]model.ProducerState, len(net.Producers())),
		Consumers:    make(map[string]model.ConsumerState, len(net.Consumers())),
		HeatLoss:     th.TotalHeatLoss,
		PressureLoss: h.PressureLoss,
	}

	for p := 0; p < net.NumPipes(); p++ {
		s.Pipes[net.Pipe(p).ID] = model.PipeState{
			MassFlow:      o.SignedFlow(p),
			Velocity:      h.Velocity[p],
			Reynolds:      h.Reynolds[p],
			Friction:      h.Friction[p],
			DistLoss:      2 * h.DistLoss[p],
			LocLoss:       h.SupplyLocLoss[p] + h.ReturnLocLoss[p],
			HydroLoss:     h.HydroLoss[p],
			SupplyLoss:    h.SupplyLoss[p],
			ReturnLoss:    h.ReturnLoss[p],
			TempIn:        th.SupplyIn[p],
			TempOut:       th.SupplyOut[p],
			ReturnTempIn:  th.ReturnIn[p],
			ReturnTempOut: th.ReturnOut[p],
			HeatLoss:      th.HeatLoss[p],
		}
	}

	for i := 0; i < net.NumNodes(); i++ {
		s.Nodes[net.Node(i).ID] = model.NodeState{
			TempInlet:  th.NodeInlet[i],
			TempReturn: th.NodeReturn[i],
		}
	}
	for _, i := range net.Producers() {
		critical := ""
		if h.Critical[i] >= 0 {
			critical = net.Node(h.Critical[i]).ID
		}
		s.Producers[net.Node(i).ID] = model.ProducerState{
			MassFlow:         h.ProducerFlow[i],
			PressureHead:     h.Head[i],
			CriticalConsumer: critical,
			PumpPower:        h.PumpPower[i],
		}
	}
	for _, i := range net.Consumers() {
		s.Consumers[net.Node(i).ID] = model.ConsumerState{HeatTransfer: th.ConsumerHeat[i]}
	}

	log.WithField("cost", time.Since(start)).Trace("构建计算结果")
	return s
}
