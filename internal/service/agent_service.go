package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ozzus/relayping/internal/domain"
	"ozzus/relayping/internal/repository"
)

type Checker interface {
	Check(ctx context.Context, target string, parameters map[string]interface{}) (*domain.CheckResult, error)
	Type() domain.TaskType
}

type AgentService struct {
	taskRepo     repository.TaskRepository
	resultRepo   repository.ResultRepository
	agentID      string
	pollInterval time.Duration
	log          *slog.Logger

	mu       sync.RWMutex
	checkers map[domain.TaskType]Checker

	isRunning atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64
	lastPoll  atomic.Int64
}

type Config struct {
	AgentID      string
	PollInterval time.Duration
}

func NewAgentService(
	taskRepo repository.TaskRepository,
	resultRepo repository.ResultRepository,
	config Config,
	log *slog.Logger,
) *AgentService {
	if config.PollInterval == 0 {
		config.PollInterval = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &AgentService{
		taskRepo:     taskRepo,
		resultRepo:   resultRepo,
		checkers:     make(map[domain.TaskType]Checker),
		agentID:      config.AgentID,
		pollInterval: config.PollInterval,
		log:          log.With(slog.String("agent_id", config.AgentID)),
	}
}

// RegisterChecker регистрирует checker для определенного типа задач
func (s *AgentService) RegisterChecker(checker Checker) {
	s.mu.Lock()
	s.checkers[checker.Type()] = checker
	total := len(s.checkers)
	s.mu.Unlock()

	s.log.Debug("checker registered", "task_type", checker.Type(), "total_checkers", total)
}

func (s *AgentService) Start(ctx context.Context) error {
	s.isRunning.Store(true)
	defer s.isRunning.Store(false)

	s.log.Info("agent service started",
		"poll_interval", s.pollInterval,
		"checkers", s.checkerCount(),
	)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if err := s.processTasks(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("failed to process tasks", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.log.Info("agent service stopped")
			return nil
		}
	}
}

func (s *AgentService) processTasks(ctx context.Context) error {
	s.lastPoll.Store(time.Now().Unix())
	s.log.Debug("fetching tasks from repository")

	tasks, err := s.taskRepo.FetchTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch tasks: %w", err)
	}

	if len(tasks) == 0 {
		return nil
	}

	s.log.Info("found tasks to process", "task_count", len(tasks))

	var processedCount, skippedCount int

	for _, task := range tasks {
		processed, err := s.tryProcessTask(ctx, task)
		if err != nil {
			s.failed.Add(1)
			s.log.Error("task processing failed", "task_id", task.ID, "error", err)
		}

		if processed {
			if err := s.taskRepo.AckTask(ctx, task.ID); err != nil {
				s.log.Error("failed to ack task", "task_id", task.ID, "error", err)
			}
			s.processed.Add(1)
			processedCount++
			continue
		}

		s.taskRepo.NackTask(task.ID)
		skippedCount++
	}

	s.log.Info("tasks processing summary",
		"total", len(tasks),
		"processed", processedCount,
		"skipped", skippedCount,
	)

	return nil
}

// tryProcessTask reports whether the task reached a terminal result that
// was published. A false return leaves the task for redelivery.
func (s *AgentService) tryProcessTask(ctx context.Context, task domain.Task) (bool, error) {
	s.sendLog(ctx, task, domain.LogLevelInfo, fmt.Sprintf("Received %s task for %s", task.Type, task.Target))

	s.mu.RLock()
	checker, exists := s.checkers[task.Type]
	s.mu.RUnlock()

	if !exists {
		msg := fmt.Sprintf("no checker available for task type: %s", task.Type)
		s.sendLog(ctx, task, domain.LogLevelError, msg)

		failure := s.failure(task, 0, errors.New(msg))
		if err := s.resultRepo.SendResult(ctx, failure); err != nil {
			return false, fmt.Errorf("failed to send failure result: %w", err)
		}
		return true, nil
	}

	checkCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, time.Duration(task.Timeout)*time.Second)
		defer cancel()
	}

	startTime := time.Now()
	result, err := checker.Check(checkCtx, task.Target, task.Parameters)
	duration := time.Since(startTime)

	if err != nil {
		s.sendLog(ctx, task, domain.LogLevelError, fmt.Sprintf("Checker execution failed: %v", err))

		failure := s.failure(task, duration, err)
		if sendErr := s.resultRepo.SendResult(ctx, failure); sendErr != nil {
			return false, fmt.Errorf("failed to send failure result: %w", sendErr)
		}
		return true, err
	}

	result.TaskID = task.ID
	result.AgentID = s.agentID
	result.Type = task.Type
	if result.Target == "" {
		result.Target = task.Target
	}
	result.Duration = duration.Milliseconds()
	result.Timestamp = time.Now()

	if err := s.resultRepo.SendResult(ctx, *result); err != nil {
		return false, fmt.Errorf("failed to send result: %w", err)
	}

	level := domain.LogLevelInfo
	if result.Status != domain.StatusSuccess {
		level = domain.LogLevelWarn
	}
	s.sendLog(ctx, task, level, fmt.Sprintf("Check completed with status: %s", result.Status))

	return true, nil
}

func (s *AgentService) failure(task domain.Task, duration time.Duration, err error) domain.CheckResult {
	return domain.CheckResult{
		TaskID:    task.ID,
		AgentID:   s.agentID,
		Type:      task.Type,
		Target:    task.Target,
		Status:    domain.StatusFailed,
		Duration:  duration.Milliseconds(),
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
}

func (s *AgentService) sendLog(ctx context.Context, task domain.Task, level domain.LogLevel, message string) {
	entry := domain.LogEntry{
		TaskID:    task.ID,
		AgentID:   s.agentID,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	if err := s.resultRepo.SendLog(ctx, entry); err != nil {
		s.log.Warn("failed to send log", "task_id", task.ID, "error", err)
	}
}

func (s *AgentService) checkerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkers)
}

func (s *AgentService) HealthCheck(ctx context.Context) error {
	if !s.isRunning.Load() {
		return errors.New("service is not running")
	}

	return nil
}

func (s *AgentService) GetStatus() map[string]interface{} {
	status := "RUNNING"
	switch {
	case !s.isRunning.Load():
		status = "STOPPED"
	case s.checkerCount() == 0:
		status = "RUNNING_NO_CHECKERS"
	}

	out := map[string]interface{}{
		"agent_id":        s.agentID,
		"is_running":      s.isRunning.Load(),
		"poll_interval":   s.pollInterval.String(),
		"checkers":        s.checkerCount(),
		"tasks_processed": s.processed.Load(),
		"tasks_failed":    s.failed.Load(),
		"status":          status,
	}
	if last := s.lastPoll.Load(); last > 0 {
		out["last_poll"] = time.Unix(last, 0).UTC().Format(time.RFC3339)
	}
	return out
}
