package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dhsim/calculator"
	"dhsim/metrics"
	"dhsim/model"
	"dhsim/simulation"
	"dhsim/store"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioJSON(t *testing.T) string {
	pipe := func(id, from, to string) model.Pipe {
		return model.Pipe{ID: id, From: from, To: to, Length: 100, Diameter: 0.08,
			Roughness: 1e-5, HeatTransfer: 0.5}
	}
	sc := model.Scenario{
		Nodes: []model.Node{
			{ID: "producers-0", Role: model.Producer, TempInlet: 85},
			{ID: "forks-0", Role: model.Fork},
			{ID: "consumers-0", Role: model.Consumer, MassFlow: 1, TempDrop: 25},
			{ID: "consumers-1", Role: model.Consumer, MassFlow: 2, TempDrop: 25},
		},
		Pipes: []model.Pipe{
			pipe("0", "producers-0", "forks-0"),
			pipe("1", "forks-0", "consumers-0"),
			pipe("2", "consumers-1", "forks-0"),
		},
		Sequences: map[string]*model.Sequence{
			model.SeqConsumerMassFlow: {Values: map[string][]float64{"consumers-0": {1, 1.2, 1.4}}},
		},
	}
	data, err := json.Marshal(sc)
	require.NoError(t, err)
	return string(data)
}

func newTestServer(t *testing.T, runner Runner) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	srv := httptest.NewServer(NewServer(":0", websocket.Upgrader{}, runner).Handler())
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req model.Msg) model.Msg {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	return read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) model.Msg {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var msg model.Msg
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestRunOverWebsocket(t *testing.T) {
	reg := metrics.NewRegistry()
	db, err := store.New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	srv, conn := newTestServer(t, Runner{
		Config:  calculator.DefaultConfig(),
		Options: simulation.Options{Workers: 2},
		Metrics: reg,
		Store:   db,
	})

	reply := roundTrip(t, conn, model.Msg{Type: model.MsgScenario, Content: scenarioJSON(t)})
	require.Equal(t, model.MsgScenarioSet, reply.Type, reply.Content)
	var summary model.ScenarioSummary
	require.NoError(t, json.Unmarshal([]byte(reply.Content), &summary))
	assert.Equal(t, 4, summary.Nodes)
	assert.Equal(t, 3, summary.Steps)
	assert.True(t, summary.Radial)
	assert.NotEmpty(t, summary.Session)

	require.NoError(t, conn.WriteJSON(model.Msg{Type: model.MsgStart}))
	seen := map[int]bool{}
	var finished model.RunSummary
	for {
		msg := read(t, conn)
		if msg.Type == model.MsgFinished {
			require.NoError(t, json.Unmarshal([]byte(msg.Content), &finished))
			break
		}
		require.Equal(t, model.MsgStep, msg.Type, msg.Content)
		var state model.FlowState
		require.NoError(t, json.Unmarshal([]byte(msg.Content), &state))
		seen[state.Step] = true
		assert.Equal(t, -2.0, state.Pipes["2"].MassFlow)
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, seen)
	assert.Equal(t, 3, finished.Steps)

	runs, err := db.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, finished.RunID, runs[0].ID)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dhsim_steps_total{status="solved"} 3`)
	assert.Contains(t, string(body), "dhsim_websocket_clients 1")
}

func TestHubErrors(t *testing.T) {
	_, conn := newTestServer(t, Runner{Config: calculator.DefaultConfig(), Options: simulation.DefaultOptions()})

	reply := roundTrip(t, conn, model.Msg{Type: model.MsgStart})
	assert.Equal(t, model.MsgError, reply.Type)
	assert.Contains(t, reply.Content, "no scenario")

	reply = roundTrip(t, conn, model.Msg{Type: "env"})
	assert.Equal(t, model.MsgError, reply.Type)

	reply = roundTrip(t, conn, model.Msg{Type: model.MsgScenario, Content: "{not json"})
	assert.Equal(t, model.MsgError, reply.Type)

	// 引用未定义节点的管道
	bad := `{"nodes":[{"id":"producers-0","role":"producers","temp_inlet":80}],` +
		`"pipes":[{"id":"0","from_node":"producers-0","to_node":"consumers-9","length":10,"diameter":0.1}]}`
	reply = roundTrip(t, conn, model.Msg{Type: model.MsgScenario, Content: bad})
	assert.Equal(t, model.MsgError, reply.Type)
	assert.Contains(t, reply.Content, "consumers-9")

	reply = roundTrip(t, conn, model.Msg{Type: model.MsgStop})
	assert.Equal(t, model.MsgStopped, reply.Type)
}
