package model

import "fmt"

// ConfigError rejects an invalid configuration before any network activity.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", e.Reason)
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// PartialRunFailure is returned when some chunks failed while others
// completed. The run report carries the per-chunk detail.
type PartialRunFailure struct {
	Failed int
	Total  int
}

func (e *PartialRunFailure) Error() string {
	return fmt.Sprintf("%d of %d chunks failed", e.Failed, e.Total)
}
