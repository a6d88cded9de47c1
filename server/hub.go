package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"dhsim/model"
	"dhsim/simulation"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Hub serves one websocket connection: it holds the scenario the client
// set and at most one running batch.
type Hub struct {
	id     string
	runner Runner
	conn   *websocket.Conn
	// request
	msg chan model.Msg
	// response
	reply chan model.Msg
	done  chan struct{}

	mu     sync.Mutex
	sim    *simulation.Simulation
	cancel context.CancelFunc
}

func NewHub(runner Runner) *Hub {
	return &Hub{
		id:     uuid.New().String(),
		runner: runner,
		msg:    make(chan model.Msg, 10),
		reply:  make(chan model.Msg, 10),
		done:   make(chan struct{}),
	}
}

func (h *Hub) send(msg model.Msg) {
	select {
	case h.reply <- msg:
	case <-h.done:
	}
}

func (h *Hub) sendJSON(typ string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.sendError(err)
		return
	}
	h.send(model.Msg{Type: typ, Content: string(data)})
}

func (h *Hub) sendError(err error) {
	log.WithField("session", h.id).Warn("请求处理失败: ", err)
	h.send(model.Msg{Type: model.MsgError, Content: err.Error()})
}

// 响应统一由一个 goroutine 写出
func (h *Hub) handleResponse() {
	for {
		select {
		case reply := <-h.reply:
			if err := h.conn.WriteJSON(&reply); err != nil {
				log.WithField("session", h.id).Error("err: ", err)
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) handleRequest() {
	for {
		select {
		case msg := <-h.msg:
			switch msg.Type {
			case model.MsgScenario:
				h.setScenario(msg.Content)
			case model.MsgStart:
				h.start()
			case model.MsgStop:
				h.stop()
				h.send(model.Msg{Type: model.MsgStopped, Content: "stopped"})
			default:
				h.sendError(errors.New("no such type: " + msg.Type))
			}
		case <-h.done:
			h.stop()
			return
		}
	}
}

func (h *Hub) setScenario(content string) {
	var sc model.Scenario
	if err := json.Unmarshal([]byte(content), &sc); err != nil {
		h.sendError(err)
		return
	}
	sim, err := simulation.New(&sc, h.runner.Config, h.runner.Options)
	if err != nil {
		h.sendError(err)
		return
	}
	if h.runner.Metrics != nil {
		sim.SetRecorder(h.runner.Metrics)
	}

	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		h.sendError(errors.New("a run is in progress, stop it first"))
		return
	}
	h.sim = sim
	h.mu.Unlock()

	log.WithFields(log.Fields{
		"session": h.id,
		"nodes":   sim.Network().NumNodes(),
		"steps":   sim.Steps(),
	}).Info("设置场景")
	h.sendJSON(model.MsgScenarioSet, model.ScenarioSummary{
		Session: h.id,
		Nodes:   sim.Network().NumNodes(),
		Pipes:   sim.Network().NumPipes(),
		Steps:   sim.Steps(),
		Radial:  sim.Network().IsRadial(),
	})
}

func (h *Hub) start() {
	h.mu.Lock()
	if h.sim == nil {
		h.mu.Unlock()
		h.sendError(errors.New("no scenario set"))
		return
	}
	if h.cancel != nil {
		h.mu.Unlock()
		h.sendError(errors.New("a run is already in progress"))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	sim := h.sim
	h.mu.Unlock()

	sim.SetObserver(func(state *model.FlowState) {
		h.sendJSON(model.MsgStep, state)
	})
	go func() {
		defer func() {
			h.mu.Lock()
			h.cancel = nil
			h.mu.Unlock()
			cancel()
		}()
		res, err := sim.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			h.sendError(err)
			return
		}
		if h.runner.Store != nil {
			if err := h.runner.Store.SaveRun(ctx, res); err != nil {
				h.sendError(err)
				return
			}
		}
		h.sendJSON(model.MsgFinished, model.RunSummary{
			RunID:    res.RunID,
			Steps:    len(res.Steps),
			Failures: res.Failures,
		})
	}()
}

func (h *Hub) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}
