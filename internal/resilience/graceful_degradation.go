package resilience

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DegradationLevel represents how unreliable a collaborator has been
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

func (l DegradationLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// DegradationConfig holds the error-rate thresholds for each level
type DegradationConfig struct {
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	HealthCheckTimeout  time.Duration `json:"health_check_timeout"`
	DegradedThreshold   float64       `json:"degraded_threshold"`
	CriticalThreshold   float64       `json:"critical_threshold"`
	EmergencyThreshold  float64       `json:"emergency_threshold"`
	// MinRequests is the sample size below which a service stays normal
	MinRequests int64 `json:"min_requests"`
}

func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		HealthCheckTimeout:  5 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		MinRequests:         4,
	}
}

// ServiceHealth is the reported status of one collaborator
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime *time.Time       `json:"last_error_time,omitempty"`
	StatusMessage string           `json:"status_message"`
}

// HealthCheckFunc probes a collaborator
type HealthCheckFunc func(ctx context.Context) error

// DegradationManager tracks collaborator error rates. Collaborator failures
// never fail an evaluation; this only feeds /health/services and the logs.
type DegradationManager struct {
	config       DegradationConfig
	logger       *slog.Logger
	mutex        sync.RWMutex
	services     map[string]*ServiceHealth
	healthChecks map[string]HealthCheckFunc
}

func NewDegradationManager(config DegradationConfig, logger *slog.Logger) *DegradationManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DegradationManager{
		config:       config,
		logger:       logger,
		services:     make(map[string]*ServiceHealth),
		healthChecks: make(map[string]HealthCheckFunc),
	}
}

// RegisterService starts tracking serviceName. healthCheck may be nil.
func (dm *DegradationManager) RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if _, ok := dm.services[serviceName]; !ok {
		dm.services[serviceName] = &ServiceHealth{
			ServiceName:   serviceName,
			StatusMessage: "Service is healthy",
		}
	}
	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}
}

// RecordResult counts one request; a nil err is a success. Unknown services
// are registered on first use.
func (dm *DegradationManager) RecordResult(serviceName string, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, ok := dm.services[serviceName]
	if !ok {
		service = &ServiceHealth{ServiceName: serviceName}
		dm.services[serviceName] = service
	}

	service.TotalRequests++
	if err != nil {
		now := time.Now()
		service.ErrorCount++
		service.LastError = err.Error()
		service.LastErrorTime = &now
	}
	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)

	dm.updateLevel(service)
}

func (dm *DegradationManager) updateLevel(service *ServiceHealth) {
	old := service.Level

	switch {
	case service.TotalRequests < dm.config.MinRequests:
		service.Level = LevelNormal
	case service.ErrorRate >= dm.config.EmergencyThreshold:
		service.Level = LevelEmergency
	case service.ErrorRate >= dm.config.CriticalThreshold:
		service.Level = LevelCritical
	case service.ErrorRate >= dm.config.DegradedThreshold:
		service.Level = LevelDegraded
	default:
		service.Level = LevelNormal
	}

	switch service.Level {
	case LevelEmergency:
		service.StatusMessage = "Service is failing, fallbacks in use"
	case LevelCritical:
		service.StatusMessage = "Service has an elevated error rate"
	case LevelDegraded:
		service.StatusMessage = "Service is degraded"
	default:
		service.StatusMessage = "Service is healthy"
	}

	if old != service.Level {
		dm.logger.Warn("Service degradation level changed",
			"service", service.ServiceName,
			"old_level", old.String(),
			"new_level", service.Level.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests)
	}
}

// GetServiceHealth returns a copy of one service's status
func (dm *DegradationManager) GetServiceHealth(serviceName string) (ServiceHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, ok := dm.services[serviceName]
	if !ok {
		return ServiceHealth{}, false
	}
	return *service, true
}

// Snapshot returns every tracked service ordered by name
func (dm *DegradationManager) Snapshot() []ServiceHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	out := make([]ServiceHealth, 0, len(dm.services))
	for _, s := range dm.services {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceName < out[j].ServiceName })
	return out
}

// IsServiceAvailable is false only for unknown services and those in the
// emergency level
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, ok := dm.services[serviceName]
	return ok && service.Level != LevelEmergency
}

// CheckNow runs every registered health check once and records the results
func (dm *DegradationManager) CheckNow(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()
			dm.RecordResult(name, check(checkCtx))
		}()
	}
	wg.Wait()
}

// StartHealthChecks runs CheckNow every HealthCheckInterval until ctx ends
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	if dm.config.HealthCheckInterval <= 0 {
		return
	}
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.CheckNow(ctx)
		}
	}
}

func (dm *DegradationManager) ResetService(serviceName string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if _, ok := dm.services[serviceName]; ok {
		dm.services[serviceName] = &ServiceHealth{
			ServiceName:   serviceName,
			StatusMessage: "Service is healthy",
		}
	}
}
