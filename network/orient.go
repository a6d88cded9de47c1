package network

import (
	"math"

	"dhsim/deque"
	"dhsim/model"
)

// 质量守恒的相对容差
const conservationTolerance = 1e-6

// Orientation is the supply-side flow direction of one time step. The
// return leg of every pipe carries the same mass flow the other way.
type Orientation struct {
	Dir    []int     // 管道：1 表示供水沿标注方向，-1 表示反向
	Flow   []float64 // 管道质量流量绝对值 kg/s
	Source []int     // 管道供水上游节点
	Target []int     // 管道供水下游节点
	Up     [][]int   // 节点：供水流入的管道
	Down   [][]int   // 节点：供水流出的管道
	Order  []int     // 沿供水方向的拓扑序
}

// 按标注方向带符号的质量流量
func (o *Orientation) SignedFlow(p int) float64 {
	return float64(o.Dir[p]) * o.Flow[p]
}

// Orient decides the supply direction and mass flow of every pipe. demand
// holds the consumer mass flow per node index. When pipeFlow is nil the
// flows are derived from the demands, which requires a radial network;
// otherwise pipeFlow gives the signed flow per pipe index.
func (n *Network) Orient(demand []float64, pipeFlow []float64) (*Orientation, error) {
	if len(demand) != len(n.nodes) {
		return nil, model.NewPhysicalInputError("demand", "length", float64(len(demand)), "must match node count")
	}
	o := &Orientation{
		Dir:    make([]int, len(n.pipes)),
		Flow:   make([]float64, len(n.pipes)),
		Source: make([]int, len(n.pipes)),
		Target: make([]int, len(n.pipes)),
		Up:     make([][]int, len(n.nodes)),
		Down:   make([][]int, len(n.nodes)),
	}

	if pipeFlow == nil {
		if err := n.deriveFlows(o, demand); err != nil {
			return nil, err
		}
	} else if err := n.assignFlows(o, pipeFlow); err != nil {
		return nil, err
	}

	for p := range n.pipes {
		if o.Dir[p] > 0 {
			o.Source[p], o.Target[p] = n.from[p], n.to[p]
		} else {
			o.Source[p], o.Target[p] = n.to[p], n.from[p]
		}
		o.Down[o.Source[p]] = append(o.Down[o.Source[p]], p)
		o.Up[o.Target[p]] = append(o.Up[o.Target[p]], p)
	}

	if pipeFlow != nil {
		if err := n.checkConservation(o, demand); err != nil {
			return nil, err
		}
	}
	if err := n.sort(o); err != nil {
		return nil, err
	}
	return o, nil
}

// 树状网：从热源广度优先遍历，逆序累加下游用户需求
func (n *Network) deriveFlows(o *Orientation, demand []float64) error {
	if !n.IsRadial() {
		for i := range n.nodes {
			if !n.radial[n.component[i]] {
				return model.NewTopologyError(n.nodes[i].ID, "meshed network or several producers in one part, pipe mass flows must be given")
			}
		}
	}

	parent := make([]int, len(n.nodes))
	for i := range parent {
		parent[i] = -1
	}
	visited := make([]bool, len(n.nodes))
	order := make([]int, 0, len(n.nodes))
	queue := deque.NewArrDeque(len(n.nodes))
	for _, root := range n.producers {
		visited[root] = true
		queue.AddLast(root)
		for !queue.IsEmpty() {
			i, _ := queue.RemoveFirst()
			order = append(order, i)
			n.eachNeighbor(i, func(p, j int) {
				if visited[j] {
					return
				}
				visited[j] = true
				parent[j] = p
				if n.from[p] == i {
					o.Dir[p] = 1
				} else {
					o.Dir[p] = -1
				}
				queue.AddLast(j)
			})
		}
	}

	subtree := make([]float64, len(n.nodes))
	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		if n.nodes[i].Role == model.Consumer {
			subtree[i] += demand[i]
		}
		p := parent[i]
		if p < 0 {
			continue
		}
		o.Flow[p] = subtree[i]
		up := n.from[p]
		if up == i {
			up = n.to[p]
		}
		subtree[up] += subtree[i]
	}
	return nil
}

func (n *Network) assignFlows(o *Orientation, pipeFlow []float64) error {
	if len(pipeFlow) != len(n.pipes) {
		return model.NewPhysicalInputError("pipes", "mass_flow columns", float64(len(pipeFlow)), "must match active pipe count")
	}
	for p, f := range pipeFlow {
		if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
			return model.NewPhysicalInputError(n.pipes[p].ID, "mass_flow", f, "must be finite and non-zero")
		}
		if f > 0 {
			o.Dir[p] = 1
		} else {
			o.Dir[p] = -1
		}
		o.Flow[p] = math.Abs(f)
	}
	return nil
}

// 给定管道流量时检查节点质量守恒
func (n *Network) checkConservation(o *Orientation, demand []float64) error {
	for i, node := range n.nodes {
		in, out := 0.0, 0.0
		for _, p := range o.Up[i] {
			in += o.Flow[p]
		}
		for _, p := range o.Down[i] {
			out += o.Flow[p]
		}
		switch node.Role {
		case model.Producer:
			if out-in <= 0 {
				return model.NewPhysicalInputError(node.ID, "net outflow", out-in, "producer must feed the network")
			}
		case model.Consumer:
			if math.Abs(in-out-demand[i]) > conservationTolerance*math.Max(1, demand[i]) {
				return model.NewPhysicalInputError(node.ID, "net inflow", in-out, "does not match consumer mass flow")
			}
		default:
			if math.Abs(in-out) > conservationTolerance*math.Max(1, in) {
				return model.NewPhysicalInputError(node.ID, "net inflow", in-out, "fork must conserve mass")
			}
		}
	}
	return nil
}

// Kahn 拓扑排序，剩余未出队的节点说明供水方向成环
func (n *Network) sort(o *Orientation) error {
	indegree := make([]int, len(n.nodes))
	queue := deque.NewArrDeque(len(n.nodes))
	for i := range n.nodes {
		indegree[i] = len(o.Up[i])
		if indegree[i] == 0 {
			queue.AddLast(i)
		}
	}
	o.Order = make([]int, 0, len(n.nodes))
	for !queue.IsEmpty() {
		i, _ := queue.RemoveFirst()
		o.Order = append(o.Order, i)
		for _, p := range o.Down[i] {
			j := o.Target[p]
			indegree[j]--
			if indegree[j] == 0 {
				queue.AddLast(j)
			}
		}
	}
	if len(o.Order) < len(n.nodes) {
		for i, d := range indegree {
			if d > 0 {
				return model.NewTopologyError(n.nodes[i].ID, "cyclic flow direction")
			}
		}
	}
	return nil
}
