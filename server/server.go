package server

import (
	"net/http"

	"dhsim/calculator"
	"dhsim/metrics"
	"dhsim/model"
	"dhsim/simulation"
	"dhsim/store"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// 每个连接上的批量计算使用的参数，Metrics 与 Store 可以为空
type Runner struct {
	Config  calculator.Config
	Options simulation.Options
	Metrics *metrics.Registry
	Store   *store.Store
}

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	runner   Runner
}

func NewServer(addr string, upgrader websocket.Upgrader, runner Runner) *Server {
	return &Server{
		addr:     addr,
		upgrader: upgrader,
		runner:   runner,
	}
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade: ", err)
		return
	}
	defer conn.Close()

	hub := NewHub(s.runner)
	hub.conn = conn
	if s.runner.Metrics != nil {
		s.runner.Metrics.WebsocketClients.Inc()
		defer s.runner.Metrics.WebsocketClients.Dec()
	}
	log.WithFields(log.Fields{
		"session": hub.id,
		"remote":  r.RemoteAddr,
	}).Info("客户端连接")

	go hub.handleRequest()
	go hub.handleResponse()
	defer close(hub.done)
	for {
		var msg model.Msg
		if err := conn.ReadJSON(&msg); err != nil {
			log.WithField("session", hub.id).Info("客户端断开: ", err)
			return
		}
		hub.msg <- msg
	}
}

// Handler routes /ws and, when metrics are enabled, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	if s.runner.Metrics != nil {
		mux.Handle("/metrics", s.runner.Metrics.Handler())
	}
	return mux
}

func (s *Server) Serve() error {
	log.WithField("addr", s.addr).Info("启动服务")
	return http.ListenAndServe(s.addr, s.Handler())
}
