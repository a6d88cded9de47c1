package calculator

import (
	"math"

	"dhsim/model"
	"dhsim/network"

	log "github.com/sirupsen/logrus"
)

// 水力计算结果，管道量按管道下标，热源量按节点下标
type HydraulicState struct {
	Velocity []float64
	Reynolds []float64
	Friction []float64

	DistLoss      []float64 // 单侧沿程压损，供回水相同
	SupplyLocLoss []float64
	ReturnLocLoss []float64
	HydroLoss     []float64 // 供水侧静压差，回水侧取反
	SupplyLoss    []float64
	ReturnLoss    []float64

	ProducerFlow []float64
	Head         []float64 // 最不利环路的供回水总压损
	Critical     []int     // 最不利热用户，没有时为 -1
	PumpPower    []float64

	PressureLoss float64 // 各热源扬程的最大值
}

// SolveHydraulic computes velocities, friction factors and pressure losses
// of every pipe, then the head each producer's pump has to deliver for its
// most lossy strand. Consumers on other strands are assumed to throttle.
func SolveHydraulic(net *network.Network, o *network.Orientation, in Input, cfg Config) (*HydraulicState, error) {
	if err := validateHydraulic(net, o, in, cfg); err != nil {
		return nil, withStep(err, in.Step)
	}

	rho := in.Fluid.Density
	np, nn := net.NumPipes(), net.NumNodes()
	h := &HydraulicState{
		Velocity:      make([]float64, np),
		Reynolds:      make([]float64, np),
		Friction:      make([]float64, np),
		DistLoss:      make([]float64, np),
		SupplyLocLoss: make([]float64, np),
		ReturnLocLoss: make([]float64, np),
		HydroLoss:     make([]float64, np),
		SupplyLoss:    make([]float64, np),
		ReturnLoss:    make([]float64, np),
		ProducerFlow:  make([]float64, nn),
		Head:          make([]float64, nn),
		Critical:      make([]int, nn),
		PumpPower:     make([]float64, nn),
	}

	isFork := func(i int) bool { return net.Node(i).Role == model.Fork }
	valve := cfg.valve()

	for p := 0; p < np; p++ {
		pipe := net.Pipe(p)
		m := o.Flow[p]
		v := Velocity(m, rho, pipe.Diameter)
		re := Reynolds(v, pipe.Diameter, rho, in.Fluid.Viscosity)
		lambda, err := FrictionFactor(cfg.Friction, re, pipe.Diameter, pipe.Roughness)
		if err != nil {
			return nil, err
		}
		h.Velocity[p], h.Reynolds[p], h.Friction[p] = v, re, lambda
		h.DistLoss[p] = DistributedLoss(lambda, pipe.Length, pipe.Diameter, rho, m)

		// 局部压损记在三通下游的管道上
		u, d := o.Source[p], o.Target[p]
		if isFork(u) {
			if len(o.Down[u]) > 1 {
				h.SupplyLocLoss[p] += LocalLoss(cfg.ZetaTeeDivide, v, rho)
			}
			if len(o.Up[u]) > 1 {
				h.SupplyLocLoss[p] += LocalLoss(cfg.ZetaTeeCombine, v, rho)
			}
		}
		if net.Node(d).Role == model.Consumer {
			h.SupplyLocLoss[p] += valve.Loss(net.Node(d).ID, v, rho)
		}
		// 回水从 d 流回 u
		if isFork(d) {
			if len(o.Down[d]) > 1 {
				h.ReturnLocLoss[p] += LocalLoss(cfg.ZetaTeeCombine, v, rho)
			}
			if len(o.Up[d]) > 1 {
				h.ReturnLocLoss[p] += LocalLoss(cfg.ZetaTeeDivide, v, rho)
			}
		}

		dh := net.HeightDifference(p) * float64(o.Dir[p])
		h.HydroLoss[p] = HydrostaticLoss(rho, cfg.Gravity, dh)
		h.SupplyLoss[p] = h.DistLoss[p] + h.SupplyLocLoss[p] + h.HydroLoss[p]
		h.ReturnLoss[p] = h.DistLoss[p] + h.ReturnLocLoss[p] - h.HydroLoss[p]

		if !finite(h.SupplyLoss[p]) || !finite(h.ReturnLoss[p]) {
			return nil, withStep(model.NewPhysicalInputError(pipe.ID, "pressure_loss", h.SupplyLoss[p], "numeric failure"), in.Step)
		}
	}

	h.solveStrands(net, o, in, cfg)

	log.WithFields(log.Fields{
		"step":          in.Step,
		"pressure_loss": h.PressureLoss,
	}).Debug("水力计算完成")
	return h, nil
}

// 对每个热源沿拓扑序做最长路，得到最不利环路
func (h *HydraulicState) solveStrands(net *network.Network, o *network.Orientation, in Input, cfg Config) {
	best := make([]float64, net.NumNodes())
	for _, prod := range net.Producers() {
		for i := range best {
			best[i] = math.NaN()
		}
		best[prod] = 0
		for _, i := range o.Order {
			if math.IsNaN(best[i]) {
				continue
			}
			for _, p := range o.Down[i] {
				j := o.Target[p]
				loss := best[i] + h.SupplyLoss[p] + h.ReturnLoss[p]
				if math.IsNaN(best[j]) || loss > best[j] {
					best[j] = loss
				}
			}
		}

		h.Critical[prod] = -1
		for _, c := range net.Consumers() {
			if math.IsNaN(best[c]) {
				continue
			}
			if h.Critical[prod] < 0 || best[c] > h.Head[prod] {
				h.Head[prod], h.Critical[prod] = best[c], c
			}
		}

		for _, p := range o.Down[prod] {
			h.ProducerFlow[prod] += o.Flow[p]
		}
		for _, p := range o.Up[prod] {
			h.ProducerFlow[prod] -= o.Flow[p]
		}
		h.PumpPower[prod] = PumpPower(h.Head[prod], in.Fluid.Density, h.ProducerFlow[prod], cfg.EtaEl, cfg.EtaHyd)
		if h.Head[prod] > h.PressureLoss {
			h.PressureLoss = h.Head[prod]
		}
	}
}

func validateHydraulic(net *network.Network, o *network.Orientation, in Input, cfg Config) error {
	if err := validateFluid(in.Fluid, false); err != nil {
		return err
	}
	if cfg.EtaEl <= 0 || cfg.EtaHyd <= 0 {
		return model.NewPhysicalInputError("pump", "efficiency", math.Min(cfg.EtaEl, cfg.EtaHyd), "must be positive")
	}
	for p := 0; p < net.NumPipes(); p++ {
		pipe := net.Pipe(p)
		if err := validatePipe(pipe, false); err != nil {
			return err
		}
		if !finite(o.Flow[p]) || o.Flow[p] <= 0 {
			return model.NewPhysicalInputError(pipe.ID, "mass_flow", o.Flow[p], "must be positive")
		}
	}
	return nil
}
