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
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	models ModelRegistry
}

// New creates a Service. models can be nil.
func New(db DBPinger, models ModelRegistry) *Service {
	return &Service{db: db, models: models}
}

// Check runs health checks against the database and every registered
// embedding provider.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.models != nil {
		for _, desc := range s.models.Models() {
			provider, _ := s.models.Resolve(desc.Name)
			if err := provider.HealthCheck(ctx); err != nil {
				checks["model:"+desc.Name] = CheckError
			} else {
				checks["model:"+desc.Name] = CheckOK
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

	return Report{Status: status, Checks: checks}
}
