package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the record store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentRecords   = "records"
	ComponentCache     = "cache"
	ComponentSuggester = "suggester"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	records   Pinger
	cache     Pinger
	suggester Pinger
}

// New creates a Service. cache and suggester can be nil.
func New(records, cache, suggester Pinger) *Service {
	return &Service{records: records, cache: cache, suggester: suggester}
}

// Check runs health checks against all components. Search results cannot be
// mapped without the record store, so its failure makes the service unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{ComponentRecords: ping(ctx, s.records)}
	if s.cache != nil {
		checks[ComponentCache] = ping(ctx, s.cache)
	}
	if s.suggester != nil {
		checks[ComponentSuggester] = ping(ctx, s.suggester)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentRecords] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func ping(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
