package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"syscall"
	"time"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/config"
	"github.com/paybridge/paybridge/infra/response"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store     *config.CredentialStore
	registry  *connector.Registry
	service   DispatchService
	startTime time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string                      `json:"status"`
	Version     string                      `json:"version"`
	Timestamp   time.Time                   `json:"timestamp"`
	Uptime      string                      `json:"uptime"`
	Environment string                      `json:"environment"`
	Storage     *StorageHealth              `json:"storage"`
	Connectors  map[string]*ConnectorHealth `json:"connectors"`
	System      *SystemHealth               `json:"system"`
}

// StorageHealth represents credential store health status
type StorageHealth struct {
	Status       string        `json:"status"`
	Connected    bool          `json:"connected"`
	ResponseTime time.Duration `json:"response_time_ms"`
	OpenConns    int           `json:"open_connections"`
	InUseConns   int           `json:"in_use_connections"`
	IdleConns    int           `json:"idle_connections"`
	Error        string        `json:"error,omitempty"`
}

// ConnectorHealth represents one registered connector
type ConnectorHealth struct {
	Status         string   `json:"status"`
	Registered     bool     `json:"registered"`
	SupportedFlows []string `json:"supported_flows,omitempty"`
	LastCheck      string   `json:"last_check"`
	Error          string   `json:"error,omitempty"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Memory     *MemoryHealth `json:"memory"`
	Disk       *DiskHealth   `json:"disk"`
	GoRoutines int           `json:"goroutines"`
}

// MemoryHealth represents memory usage
type MemoryHealth struct {
	Alloc        string  `json:"alloc"`
	TotalAlloc   string  `json:"total_alloc"`
	Sys          string  `json:"sys"`
	GCRuns       uint32  `json:"gc_runs"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskHealth represents disk usage
type DiskHealth struct {
	Available    string  `json:"available"`
	Used         string  `json:"used"`
	Total        string  `json:"total"`
	UsagePercent float64 `json:"usage_percent"`
	Status       string  `json:"status"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *config.CredentialStore, registry *connector.Registry, service DispatchService) *HealthHandler {
	return &HealthHandler{
		store:     store,
		registry:  registry,
		service:   service,
		startTime: time.Now(),
	}
}

// CheckHealth performs comprehensive health checks
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	health := &HealthStatus{
		Version:     "1.0.0",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).String(),
		Environment: getEnvironment(),
		Storage:     h.checkStorageHealth(ctx),
		Connectors:  h.checkConnectorsHealth(),
		System:      h.checkSystemHealth(),
	}

	health.Status = h.determineOverallStatus(health)

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	_ = response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: health.Status != "unhealthy",
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

// checkStorageHealth checks credential store health
func (h *HealthHandler) checkStorageHealth(ctx context.Context) *StorageHealth {
	storage := &StorageHealth{
		Status:    "unknown",
		Connected: false,
	}

	if h.store == nil {
		storage.Status = "not_configured"
		storage.Error = "Credential store not configured"
		return storage
	}

	start := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		storage.Status = "unhealthy"
		storage.Error = err.Error()
		storage.ResponseTime = time.Since(start)
		return storage
	}

	storage.Connected = true
	storage.ResponseTime = time.Since(start)

	stats := h.store.Stats()
	storage.OpenConns = stats.OpenConnections
	storage.InUseConns = stats.InUse
	storage.IdleConns = stats.Idle

	if storage.ResponseTime > time.Second {
		storage.Status = "degraded"
	} else {
		storage.Status = "healthy"
	}

	return storage
}

// checkConnectorsHealth reports every registered connector
func (h *HealthHandler) checkConnectorsHealth() map[string]*ConnectorHealth {
	connectors := make(map[string]*ConnectorHealth)

	for _, name := range h.registry.Names() {
		health := &ConnectorHealth{
			LastCheck: time.Now().UTC().Format(time.RFC3339),
		}

		conn, err := h.registry.CreateConnector(name, connector.Endpoints{})
		if err != nil {
			health.Status = "not_available"
			health.Error = err.Error()
		} else {
			health.Status = "healthy"
			health.Registered = true
			health.SupportedFlows = connector.SupportedFlows(conn)
		}

		connectors[name] = health
	}

	return connectors
}

// checkSystemHealth checks system resource health
func (h *HealthHandler) checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Memory: &MemoryHealth{
			Alloc:        formatBytes(memStats.Alloc),
			TotalAlloc:   formatBytes(memStats.TotalAlloc),
			Sys:          formatBytes(memStats.Sys),
			GCRuns:       memStats.NumGC,
			UsagePercent: calculateMemoryUsagePercent(memStats),
		},
		Disk:       getDiskUsage(),
		GoRoutines: runtime.NumGoroutine(),
	}
}

// determineOverallStatus determines overall system status
func (h *HealthHandler) determineOverallStatus(health *HealthStatus) string {
	if health.Storage != nil && health.Storage.Status == "unhealthy" {
		return "unhealthy"
	}

	if h.service == nil {
		return "unhealthy"
	}

	if len(health.Connectors) == 0 {
		return "unhealthy"
	}

	if health.System != nil {
		if health.System.Memory.UsagePercent > 90 {
			return "degraded"
		}
		if health.System.Disk != nil && health.System.Disk.UsagePercent > 90 {
			return "degraded"
		}
	}

	if health.Storage != nil && health.Storage.Status == "degraded" {
		return "degraded"
	}

	return "healthy"
}

// Helper functions

func getEnvironment() string {
	if env := config.GetEnv("ENVIRONMENT", ""); env != "" {
		return env
	}
	return "development"
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func calculateMemoryUsagePercent(memStats runtime.MemStats) float64 {
	return (float64(memStats.Alloc) / float64(memStats.Sys)) * 100
}

func getDiskUsage() *DiskHealth {
	var stat syscall.Statfs_t
	disk := &DiskHealth{
		Status: "unknown",
	}

	if err := syscall.Statfs("/", &stat); err != nil {
		disk.Status = "error"
		return disk
	}

	available := stat.Bavail * uint64(stat.Bsize)
	total := stat.Blocks * uint64(stat.Bsize)
	used := total - (stat.Bfree * uint64(stat.Bsize))

	disk.Available = formatBytes(available)
	disk.Total = formatBytes(total)
	disk.Used = formatBytes(used)
	disk.UsagePercent = (float64(used) / float64(total)) * 100

	if disk.UsagePercent > 90 {
		disk.Status = "critical"
	} else if disk.UsagePercent > 80 {
		disk.Status = "warning"
	} else {
		disk.Status = "healthy"
	}

	return disk
}
