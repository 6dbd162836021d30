// Package health reports whether the collaborators a tensorpath process
// depends on are usable: the Python interpreter, the cotengra module, Redis,
// and remote optimizer servers.
//
// Every check returns a Status; Combine folds several into one.
package health

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Status is the outcome of a health check.
type Status struct {
	// Status is StatusHealthy, StatusDegraded or StatusUnhealthy.
	Status string `json:"status"`

	// Message describes the outcome.
	Message string `json:"message,omitempty"`

	// Details carries diagnostic values such as the error or a version.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy reports whether s is healthy.
func (s Status) IsHealthy() bool {
	return s.Status == StatusHealthy
}

// IsDegraded reports whether s is degraded.
func (s Status) IsDegraded() bool {
	return s.Status == StatusDegraded
}

// IsUnhealthy reports whether s is unhealthy.
func (s Status) IsUnhealthy() bool {
	return s.Status == StatusUnhealthy
}

// Healthy returns a healthy Status.
func Healthy(message string) Status {
	return Status{Status: StatusHealthy, Message: message}
}

// Degraded returns a degraded Status.
func Degraded(message string, details map[string]any) Status {
	return Status{Status: StatusDegraded, Message: message, Details: details}
}

// Unhealthy returns an unhealthy Status.
func Unhealthy(message string, details map[string]any) Status {
	return Status{Status: StatusUnhealthy, Message: message, Details: details}
}
