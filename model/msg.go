package model

// websocket 消息，Content 为 json 字符串
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// 请求
const (
	MsgScenario = "scenario"
	MsgStart    = "start"
	MsgStop     = "stop"
)

// 响应
const (
	MsgScenarioSet = "scenarioSet"
	MsgStep        = "step"
	MsgFinished    = "finished"
	MsgError       = "error"
	MsgStopped     = "stopped"
)

// 场景设置成功后的摘要
type ScenarioSummary struct {
	Session string `json:"session"`
	Nodes   int    `json:"nodes"`
	Pipes   int    `json:"pipes"`
	Steps   int    `json:"steps"`
	Radial  bool   `json:"radial"`
}

// 批量计算结束后的摘要
type RunSummary struct {
	RunID    string        `json:"run_id"`
	Steps    int           `json:"steps"`
	Failures []StepFailure `json:"failures,omitempty"`
}
