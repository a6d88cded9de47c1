// Package network holds the validated, read-only topology of a district
// heating network. Nodes and pipes live in arenas and are referred to by
// index; a Network is safe to share between goroutines once built.
package network

import (
	"dhsim/deque"
	"dhsim/model"

	log "github.com/sirupsen/logrus"
)

type Network struct {
	nodes []model.Node
	pipes []model.Pipe // 仅包含 active 管道

	nodeIndex map[string]int
	pipeIndex map[string]int

	from []int // 管道 -> 标注起点下标
	to   []int // 管道 -> 标注终点下标
	out  [][]int
	in   [][]int

	producers []int
	consumers []int

	component []int  // 节点 -> 连通分量
	radial    []bool // 连通分量是否为单热源树状网
}

// New validates nodes and pipes and builds the arena. Inactive pipes are
// dropped before any check.
func New(nodes []model.Node, pipes []model.Pipe) (*Network, error) {
	n := &Network{
		nodes:     make([]model.Node, 0, len(nodes)),
		nodeIndex: make(map[string]int, len(nodes)),
		pipeIndex: make(map[string]int, len(pipes)),
	}

	for _, node := range nodes {
		if node.ID == "" {
			return nil, model.NewTopologyError("<empty>", "node without id")
		}
		if _, ok := n.nodeIndex[node.ID]; ok {
			return nil, model.NewTopologyError(node.ID, "duplicate node id")
		}
		i := len(n.nodes)
		switch node.Role {
		case model.Producer:
			n.producers = append(n.producers, i)
		case model.Consumer:
			n.consumers = append(n.consumers, i)
		case model.Fork:
		default:
			return nil, model.NewTopologyError(node.ID, "unknown node role %q", node.Role)
		}
		n.nodeIndex[node.ID] = i
		n.nodes = append(n.nodes, node)
	}
	n.out = make([][]int, len(n.nodes))
	n.in = make([][]int, len(n.nodes))

	type pair struct{ a, b int }
	seen := make(map[pair]string)
	for _, pipe := range pipes {
		if pipe.Inactive {
			continue
		}
		if _, ok := n.pipeIndex[pipe.ID]; ok {
			return nil, model.NewTopologyError(pipe.ID, "duplicate pipe id")
		}
		f, ok := n.nodeIndex[pipe.From]
		if !ok {
			return nil, model.NewTopologyError(pipe.ID, "from_node %s not defined", pipe.From)
		}
		t, ok := n.nodeIndex[pipe.To]
		if !ok {
			return nil, model.NewTopologyError(pipe.ID, "to_node %s not defined", pipe.To)
		}
		if f == t {
			return nil, model.NewTopologyError(pipe.ID, "connects %s to itself", pipe.From)
		}
		key := pair{f, t}
		if t < f {
			key = pair{t, f}
		}
		if other, ok := seen[key]; ok {
			return nil, model.NewTopologyError(pipe.ID, "duplicates pipe %s between %s and %s", other, pipe.From, pipe.To)
		}
		seen[key] = pipe.ID

		p := len(n.pipes)
		n.pipeIndex[pipe.ID] = p
		n.pipes = append(n.pipes, pipe)
		n.from = append(n.from, f)
		n.to = append(n.to, t)
		n.out[f] = append(n.out[f], p)
		n.in[t] = append(n.in[t], p)
	}

	if len(n.producers) == 0 {
		return nil, model.NewTopologyError("producers", "network has no producer")
	}
	if err := n.checkReachable(); err != nil {
		return nil, err
	}
	n.buildComponents()

	log.WithFields(log.Fields{
		"nodes":     len(n.nodes),
		"pipes":     len(n.pipes),
		"producers": len(n.producers),
		"consumers": len(n.consumers),
		"radial":    n.IsRadial(),
	}).Debug("管网拓扑校验通过")
	return n, nil
}

// 从所有热源出发做无向广度优先遍历，每个节点都必须可达
func (n *Network) checkReachable() error {
	reached := make([]bool, len(n.nodes))
	queue := deque.NewArrDeque(len(n.nodes))
	for _, p := range n.producers {
		reached[p] = true
		queue.AddLast(p)
	}
	for !queue.IsEmpty() {
		i, _ := queue.RemoveFirst()
		n.eachNeighbor(i, func(_, j int) {
			if !reached[j] {
				reached[j] = true
				queue.AddLast(j)
			}
		})
	}

	for _, c := range n.consumers {
		if !reached[c] {
			return model.NewTopologyError(n.nodes[c].ID, "consumer has no path from any active producer")
		}
	}
	for i, ok := range reached {
		if !ok {
			return model.NewTopologyError(n.nodes[i].ID, "node is not connected to any producer")
		}
	}
	return nil
}

// 划分连通分量，判断每个分量是否为单热源树
func (n *Network) buildComponents() {
	n.component = make([]int, len(n.nodes))
	for i := range n.component {
		n.component[i] = -1
	}
	queue := deque.NewArrDeque(len(n.nodes))
	for start := range n.nodes {
		if n.component[start] >= 0 {
			continue
		}
		c := len(n.radial)
		nodes, producers, degree := 0, 0, 0
		n.component[start] = c
		queue.AddLast(start)
		for !queue.IsEmpty() {
			i, _ := queue.RemoveFirst()
			nodes++
			degree += len(n.out[i]) + len(n.in[i])
			if n.nodes[i].Role == model.Producer {
				producers++
			}
			n.eachNeighbor(i, func(_, j int) {
				if n.component[j] < 0 {
					n.component[j] = c
					queue.AddLast(j)
				}
			})
		}
		// 每根管道被两端各计一次
		n.radial = append(n.radial, producers == 1 && degree/2 == nodes-1)
	}
}

func (n *Network) eachNeighbor(i int, f func(pipe, node int)) {
	for _, p := range n.out[i] {
		f(p, n.to[p])
	}
	for _, p := range n.in[i] {
		f(p, n.from[p])
	}
}

func (n *Network) NumNodes() int { return len(n.nodes) }

func (n *Network) NumPipes() int { return len(n.pipes) }

func (n *Network) Node(i int) model.Node { return n.nodes[i] }

func (n *Network) Pipe(p int) model.Pipe { return n.pipes[p] }

func (n *Network) NodeIndex(id string) (int, bool) {
	i, ok := n.nodeIndex[id]
	return i, ok
}

func (n *Network) PipeIndex(id string) (int, bool) {
	p, ok := n.pipeIndex[id]
	return p, ok
}

// 管道标注的起点、终点
func (n *Network) From(p int) int { return n.from[p] }

func (n *Network) To(p int) int { return n.to[p] }

// 以节点为终点的管道（按标注方向）
func (n *Network) Incoming(i int) []int { return n.in[i] }

// 以节点为起点的管道（按标注方向）
func (n *Network) Outgoing(i int) []int { return n.out[i] }

func (n *Network) Producers() []int { return n.producers }

func (n *Network) Consumers() []int { return n.consumers }

// 所有连通分量都是单热源树状网时，流量可以由用户需求直接推出
func (n *Network) IsRadial() bool {
	for _, r := range n.radial {
		if !r {
			return false
		}
	}
	return true
}

// 管道高差，沿标注方向；未给出时由节点海拔推算
func (n *Network) HeightDifference(p int) float64 {
	pipe := n.pipes[p]
	if pipe.HeightDifference != nil {
		return *pipe.HeightDifference
	}
	from, to := n.nodes[n.from[p]], n.nodes[n.to[p]]
	if from.Height != nil && to.Height != nil {
		return *to.Height - *from.Height
	}
	return 0
}
