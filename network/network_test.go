package network

import (
	"testing"

	"dhsim/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 一个热源、一个分支点、两个热用户
func treeNodes() []model.Node {
	return []model.Node{
		{ID: "producers-0", Role: model.Producer, TempInlet: 130},
		{ID: "forks-0", Role: model.Fork},
		{ID: "consumers-0", Role: model.Consumer, MassFlow: 1.5, TempDrop: 30},
		{ID: "consumers-1", Role: model.Consumer, MassFlow: 2.5, TempDrop: 30},
	}
}

func treePipes() []model.Pipe {
	return []model.Pipe{
		{ID: "0", From: "producers-0", To: "forks-0", Length: 100, Diameter: 0.1},
		{ID: "1", From: "forks-0", To: "consumers-0", Length: 50, Diameter: 0.08},
		{ID: "2", From: "forks-0", To: "consumers-1", Length: 70, Diameter: 0.08},
	}
}

func demandOf(t *testing.T, n *Network) []float64 {
	t.Helper()
	demand := make([]float64, n.NumNodes())
	for _, c := range n.Consumers() {
		demand[c] = n.Node(c).MassFlow
	}
	return demand
}

func TestNew_Tree(t *testing.T) {
	n, err := New(treeNodes(), treePipes())
	require.NoError(t, err)

	assert.Equal(t, 4, n.NumNodes())
	assert.Equal(t, 3, n.NumPipes())
	assert.True(t, n.IsRadial())

	fork, ok := n.NodeIndex("forks-0")
	require.True(t, ok)
	assert.Len(t, n.Outgoing(fork), 2)
	assert.Len(t, n.Incoming(fork), 1)
}

func TestNew_UndefinedNode(t *testing.T) {
	pipes := treePipes()
	pipes[2].To = "consumers-7"

	_, err := New(treeNodes(), pipes)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTopology)

	var topoErr *model.TopologyError
	require.ErrorAs(t, err, &topoErr)
	assert.Equal(t, "2", topoErr.ID)
}

func TestNew_UnreachableConsumer(t *testing.T) {
	nodes := append(treeNodes(), model.Node{ID: "consumers-2", Role: model.Consumer, MassFlow: 1})

	_, err := New(nodes, treePipes())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTopology)
	assert.Contains(t, err.Error(), "consumers-2")
}

func TestNew_InactivePipeDisconnects(t *testing.T) {
	pipes := treePipes()
	pipes[1].Inactive = true

	_, err := New(treeNodes(), pipes)
	assert.ErrorIs(t, err, model.ErrTopology)
}

func TestNew_SelfLoopAndDuplicates(t *testing.T) {
	pipes := append(treePipes(), model.Pipe{ID: "3", From: "forks-0", To: "forks-0", Length: 1, Diameter: 0.1})
	_, err := New(treeNodes(), pipes)
	assert.ErrorIs(t, err, model.ErrTopology)

	pipes = append(treePipes(), model.Pipe{ID: "3", From: "consumers-0", To: "forks-0", Length: 1, Diameter: 0.1})
	_, err = New(treeNodes(), pipes)
	assert.ErrorIs(t, err, model.ErrTopology)

	nodes := append(treeNodes(), model.Node{ID: "forks-0", Role: model.Fork})
	_, err = New(nodes, treePipes())
	assert.ErrorIs(t, err, model.ErrTopology)
}

func TestNew_NoProducer(t *testing.T) {
	_, err := New(treeNodes()[1:], treePipes()[1:])
	assert.ErrorIs(t, err, model.ErrTopology)
}

func TestHeightDifference(t *testing.T) {
	nodes := treeNodes()
	h0, h1 := 10.0, 25.0
	nodes[0].Height = &h0
	nodes[1].Height = &h1
	pipes := treePipes()
	dh := -3.0
	pipes[1].HeightDifference = &dh

	n, err := New(nodes, pipes)
	require.NoError(t, err)
	assert.Equal(t, 15.0, n.HeightDifference(0))
	assert.Equal(t, -3.0, n.HeightDifference(1))
	assert.Equal(t, 0.0, n.HeightDifference(2))
}
