package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	States map[string]string
}

// Service coordinates health checks.
type Service struct {
	store   StorePinger
	indexes IndexObserver
}

// New creates a Service. indexes can be nil.
func New(store StorePinger, indexes IndexObserver) *Service {
	return &Service{store: store, indexes: indexes}
}

// Check runs health checks against the row store and the index
// controllers. An index with a broken or removed controller degrades
// the report; its per-table state says which one.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
	} else {
		checks["store"] = CheckOK
	}

	var states map[string]string
	if s.indexes != nil {
		states = s.indexes.States()
		checks["indexes"] = CheckOK
		for _, state := range states {
			if state != "ready" {
				checks["indexes"] = CheckError
				break
			}
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, States: states}
}
