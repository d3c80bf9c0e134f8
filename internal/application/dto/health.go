package dto

import "time"

// HealthStatus is the overall service state reported by GET /health.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// DependencyStatusValue is the state of one dependency.
type DependencyStatusValue string

const (
	DependencyStatusHealthy   DependencyStatusValue = "healthy"
	DependencyStatusUnhealthy DependencyStatusValue = "unhealthy"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is one entry of HealthResponse.Dependencies.
type DependencyStatus struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	ResponseTime string `json:"response_time,omitempty"`
}

// Healthy reports whether the dependency is up.
func (d DependencyStatus) Healthy() bool {
	return d.Status == string(DependencyStatusHealthy)
}

// AddDependency records a dependency and lowers the overall status when it is
// down: a critical dependency makes the service unhealthy, any other degrades it.
func (r *HealthResponse) AddDependency(name string, status DependencyStatus, critical bool) {
	if r.Dependencies == nil {
		r.Dependencies = make(map[string]DependencyStatus)
	}
	r.Dependencies[name] = status
	if status.Healthy() {
		return
	}
	switch {
	case critical:
		r.Status = string(HealthStatusUnhealthy)
	case r.Status == string(HealthStatusHealthy):
		r.Status = string(HealthStatusDegraded)
	}
}
