package model

// 单根管道的计算结果，供回水两条管路合并报告
type PipeState struct {
	MassFlow  float64 `json:"mass_flow"`                 // 按标注方向带符号
	Velocity  float64 `json:"velocity"`
	Reynolds  float64 `json:"reynolds"`
	Friction  float64 `json:"friction_factor"`
	DistLoss  float64 `json:"dist_pressure_loss"`        // 供水 + 回水
	LocLoss   float64 `json:"loc_pressure_loss"`         // 供水 + 回水
	HydroLoss float64 `json:"hydrostatic_pressure_loss"` // 供水侧，回水侧取反

	SupplyLoss float64 `json:"supply_pressure_loss"`
	ReturnLoss float64 `json:"return_pressure_loss"`

	TempIn        float64 `json:"temp_in"`  // 供水入口
	TempOut       float64 `json:"temp_out"` // 供水出口
	ReturnTempIn  float64 `json:"return_temp_in"`
	ReturnTempOut float64 `json:"return_temp_out"`
	HeatLoss      float64 `json:"heat_loss"` // 供水 + 回水
}

// 供回水两侧总压损
func (p PipeState) TotalLoss() float64 {
	return p.SupplyLoss + p.ReturnLoss
}

type NodeState struct {
	TempInlet  float64 `json:"temp_inlet"`
	TempReturn float64 `json:"temp_return"`
}

type ProducerState struct {
	MassFlow         float64 `json:"mass_flow"`
	PressureHead     float64 `json:"pressure_head"` // 最不利环路压损
	CriticalConsumer string  `json:"critical_consumer"`
	PumpPower        float64 `json:"pump_power"`
}

type ConsumerState struct {
	HeatTransfer float64 `json:"heat_transfer"`
}

// 一个时间步的稳态结果
type FlowState struct {
	Step         int                      `json:"step"`
	Pipes        map[string]PipeState     `json:"pipes"`
	Nodes        map[string]NodeState     `json:"nodes"`
	Producers    map[string]ProducerState `json:"producers"`
	Consumers    map[string]ConsumerState `json:"consumers"`
	HeatLoss     float64                  `json:"heat_loss"`
	PressureLoss float64                  `json:"pressure_loss"`
}

type StepFailure struct {
	Step  int    `json:"step"`
	Error string `json:"error"`
}

// 整个批次的结果，Steps 按时间步排列，被跳过的时间步为 nil
type Results struct {
	RunID    string        `json:"run_id"`
	Steps    []*FlowState  `json:"steps"`
	Failures []StepFailure `json:"failures,omitempty"`
}
