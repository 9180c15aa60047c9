package domain

import "time"

// тип задачи для проверки

type TaskType string

const (
	TaskTypeLatency TaskType = "latency"
	TaskTypeTCP     TaskType = "tcp"
	TaskTypePing    TaskType = "ping"
	TaskTypeSweep   TaskType = "sweep"
)

type Task struct {
	ID          string                 `json:"task_id"`
	Type        TaskType               `json:"type"`
	Target      string                 `json:"target"`
	Parameters  map[string]interface{} `json:"parameters"`
	ScheduledAt time.Time              `json:"scheduled_at"`
	CreatedAt   time.Time              `json:"created_at"`
	Timeout     int                    `json:"timeout"`
}
