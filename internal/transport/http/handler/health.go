package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chatmypdf/internal/bootstrap"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

// Check reports 503 when any backing service is unreachable.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	probes := map[string]func(context.Context) error{
		"mysql":    h.pingMySQL,
		"redis":    h.pingRedis,
		"rabbitmq": h.pingRabbitMQ,
	}

	statusCode := http.StatusOK
	deps := make(map[string]dependencyStatus, len(probes))
	for name, probe := range probes {
		if err := probe(ctx); err != nil {
			deps[name] = dependencyStatus{Message: err.Error()}
			statusCode = http.StatusServiceUnavailable
			continue
		}
		deps[name] = dependencyStatus{OK: true}
	}

	workspaces := 0
	if h.app.Workspaces != nil {
		workspaces = h.app.Workspaces.Len()
	}

	c.JSON(statusCode, gin.H{
		"app":          h.app.Config.App.Name,
		"env":          h.app.Config.App.Env,
		"uptime_sec":   int(time.Since(h.app.StartedAt).Seconds()),
		"workspaces":   workspaces,
		"dependencies": deps,
	})
}

func (h *HealthHandler) pingMySQL(ctx context.Context) error {
	if h.app.MySQL == nil {
		return errNotConnected
	}
	sqlDB, err := h.app.MySQL.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (h *HealthHandler) pingRedis(ctx context.Context) error {
	if h.app.Redis == nil {
		return errNotConnected
	}
	return h.app.Redis.Ping(ctx).Err()
}

func (h *HealthHandler) pingRabbitMQ(context.Context) error {
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return errConnectionClosed
	}
	return nil
}
