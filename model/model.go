package model

import (
	"sort"

	"github.com/paulmach/orb"
)

// 节点类型，取值与输入文件名前缀一致
type Role string

const (
	Producer Role = "producers"
	Consumer Role = "consumers"
	Fork     Role = "forks"
)

// 节点 id 形如 consumers-0
func NodeID(role Role, id string) string {
	return string(role) + "-" + id
}

// 网络节点
type Node struct {
	ID       string     `json:"id"`
	Role     Role       `json:"role"`
	Geometry *orb.Point `json:"geometry,omitempty"` // lon, lat，仅用于推算管长
	Height   *float64   `json:"height,omitempty"`   // 海拔 m

	// 热源
	TempInlet float64 `json:"temp_inlet,omitempty"` // 供水温度 ℃

	// 热用户
	MassFlow float64 `json:"mass_flow,omitempty"`        // 质量流量 kg/s
	TempDrop float64 `json:"temperature_drop,omitempty"` // 供回水温差 K
}

// 管道（有向边），方向只是标注，实际流向由拓扑推导
type Pipe struct {
	ID               string   `json:"id"`
	From             string   `json:"from_node"`
	To               string   `json:"to_node"`
	Length           float64  `json:"length"`                      // m
	Diameter         float64  `json:"diameter"`                    // 内径 m
	Roughness        float64  `json:"roughness"`                   // 绝对粗糙度 m
	HeatTransfer     float64  `json:"heat_transfer_coefficient"`   // U W/(m²·K)
	HeightDifference *float64 `json:"height_difference,omitempty"` // from -> to 的高差 m
	Capacity         float64  `json:"capacity,omitempty"`          // 已建容量 kW
	Inactive         bool     `json:"inactive,omitempty"`          // 停用的管道不参与计算
}

// 时间序列，Values 以实体 id 为键
type Sequence struct {
	Values map[string][]float64 `json:"values"`
}

func NewSequence() *Sequence {
	return &Sequence{Values: make(map[string][]float64)}
}

// 序列长度，各列长度不一致时返回最长的
func (s *Sequence) Len() int {
	n := 0
	for _, v := range s.Values {
		if len(v) > n {
			n = len(v)
		}
	}
	return n
}

func (s *Sequence) Keys() []string {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// 序列名称，对应 sequences/<list>-<attr>.csv
const (
	SeqConsumerMassFlow = "consumers-mass_flow"
	SeqConsumerTempDrop = "consumers-temperature_drop"
	SeqProducerTemp     = "producers-temp_inlet"
	SeqEnvironmentTemp  = "environment-temp_env"
	SeqPipeMassFlow     = "pipes-mass_flow"
)

// 一个场景：节点、管道以及时间序列
type Scenario struct {
	Nodes     []Node               `json:"nodes"`
	Pipes     []Pipe               `json:"pipes"`
	Sequences map[string]*Sequence `json:"sequences"`
}

func (s *Scenario) NodesOf(role Role) []Node {
	var nodes []Node
	for _, n := range s.Nodes {
		if n.Role == role {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// 时间步数量，没有任何序列时为 1
func (s *Scenario) Steps() int {
	steps := 0
	for _, seq := range s.Sequences {
		if n := seq.Len(); n > steps {
			steps = n
		}
	}
	if steps == 0 {
		return 1
	}
	return steps
}
