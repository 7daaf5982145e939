package core

import (
	"fmt"
	"time"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ErrorRateThreshold is the error rate above which an adapter reports the
// high-error-rate standing issue.
const ErrorRateThreshold = 0.1

// HealthStatus is computed on demand from connectivity and standing issues.
type HealthStatus struct {
	Status    string          `json:"status"`
	Provider  string          `json:"provider"`
	Connected bool            `json:"connected"`
	LastCheck time.Time       `json:"lastCheck"`
	Metrics   MetricsSnapshot `json:"metrics"`
	Issues    []string        `json:"issues"`
}

// EvaluateHealth builds a HealthStatus for a provider. A disconnected
// adapter is unhealthy outright; otherwise the status follows the issue
// count: 0 healthy, 1-2 degraded, more than 2 unhealthy. extra carries
// adapter-specific standing issues beyond the two built-in checks.
func EvaluateHealth(provider string, connected bool, metrics MetricsSnapshot, extra []string) HealthStatus {
	issues := make([]string, 0, len(extra)+2)
	if !connected {
		issues = append(issues, fmt.Sprintf("Not connected to %s", provider))
	}
	if metrics.ErrorRate > ErrorRateThreshold {
		issues = append(issues, "High error rate detected")
	}
	issues = append(issues, extra...)

	status := StatusHealthy
	switch {
	case !connected, len(issues) > 2:
		status = StatusUnhealthy
	case len(issues) > 0:
		status = StatusDegraded
	}

	return HealthStatus{
		Status:    status,
		Provider:  provider,
		Connected: connected,
		LastCheck: time.Now(),
		Metrics:   metrics,
		Issues:    issues,
	}
}
