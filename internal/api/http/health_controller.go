package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/domain"
)

// AgentStatus is implemented by *service.AgentService.
type AgentStatus interface {
	HealthCheck(ctx context.Context) error
	GetStatus() map[string]interface{}
}

// DirectoryStatus is implemented by *directory.Cache.
type DirectoryStatus interface {
	Status() directory.CacheStatus
}

type HealthController struct {
	agentService AgentStatus
	directory    DirectoryStatus
	agentID      string
	version      string
}

// NewHealthController builds the health handlers. dir may be nil when the
// agent runs without a relay directory.
func NewHealthController(agentService AgentStatus, dir DirectoryStatus, agentID, version string) *HealthController {
	return &HealthController{
		agentService: agentService,
		directory:    dir,
		agentID:      agentID,
		version:      version,
	}
}

// Health handler для проверки работоспособности агента
func (h *HealthController) Health(c *gin.Context) {
	if err := h.agentService.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, domain.HealthResponse{
			Status:    domain.HealthStatusUnhealthy,
			Timestamp: time.Now(),
			AgentID:   h.agentID,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, domain.HealthResponse{
		Status:    domain.HealthStatusHealthy,
		Timestamp: time.Now(),
		AgentID:   h.agentID,
		Message:   "Agent is running",
	})
}

// Status handler для получения детального статуса агента
func (h *HealthController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.agentService.GetStatus())
}

// Ready handler для проверки готовности агента к работе
func (h *HealthController) Ready(c *gin.Context) {
	if err := h.agentService.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"agent":     h.agentID,
			"message":   err.Error(),
			"timestamp": time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"agent":     h.agentID,
		"message":   "Agent is ready to process tasks",
		"timestamp": time.Now(),
	})
}

// Info handler для получения общей информации об агенте
func (h *HealthController) Info(c *gin.Context) {
	ctx := c.Request.Context()

	components := []domain.ComponentHealth{h.taskProcessorHealth(ctx)}
	if h.directory != nil {
		components = append(components, h.directoryHealth())
	}

	c.JSON(http.StatusOK, domain.DetailedHealthResponse{
		Status:     h.healthStatus(ctx),
		Timestamp:  time.Now(),
		AgentID:    h.agentID,
		Version:    h.version,
		Components: components,
	})
}

func (h *HealthController) taskProcessorHealth(ctx context.Context) domain.ComponentHealth {
	component := domain.ComponentHealth{
		Name:    "task_processor",
		Status:  "running",
		Details: h.agentService.GetStatus(),
	}
	if err := h.agentService.HealthCheck(ctx); err != nil {
		component.Status = "stopped"
		component.Message = err.Error()
	}
	return component
}

func (h *HealthController) directoryHealth() domain.ComponentHealth {
	status := h.directory.Status()

	component := domain.ComponentHealth{Name: "relay_directory", Details: status}
	switch {
	case status.Servers == 0:
		component.Status = "empty"
		component.Message = "relay list not fetched yet"
	case status.Fresh:
		component.Status = "fresh"
	default:
		component.Status = "stale"
		component.Message = "relay list older than cache ttl"
	}
	return component
}

func (h *HealthController) healthStatus(ctx context.Context) domain.HealthStatus {
	if h.agentService.HealthCheck(ctx) != nil {
		return domain.HealthStatusUnhealthy
	}
	return domain.HealthStatusHealthy
}
