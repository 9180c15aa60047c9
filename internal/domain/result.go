package domain

import "time"

type CheckStatus string

const (
	StatusSuccess CheckStatus = "success"
	StatusFailed  CheckStatus = "failed"
	StatusTimeout CheckStatus = "timeout"
)

type CheckResult struct {
	TaskID    string      `json:"task_id"`
	AgentID   string      `json:"agent_id"`
	Type      TaskType    `json:"type"`
	Target    string      `json:"target"`
	Status    CheckStatus `json:"status"`
	Duration  int64       `json:"duration"`
	Error     string      `json:"error"`
	Timestamp time.Time   `json:"timestamp"`

	// Latency fields are set by latency, tcp and ping checks.
	Method    string `json:"method,omitempty"`
	LatencyMs *int64 `json:"latency_ms,omitempty"`
	Estimated bool   `json:"estimated,omitempty"`
	Display   string `json:"display,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`
}
