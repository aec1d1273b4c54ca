package health

import (
	"context"
	"time"
)

type ReadinessCheck interface {
	IsReady(ctx context.Context) error
	Name() string
}

type Result struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// RunChecks runs every check with its own timeout and reports whether all
// of them passed.
func RunChecks(ctx context.Context, checks []ReadinessCheck, timeout time.Duration) ([]Result, bool) {
	results := make([]Result, 0, len(checks))
	ok := true

	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := c.IsReady(cctx)
		cancel()

		r := Result{Name: c.Name(), Ready: err == nil}
		if err != nil {
			r.Error = err.Error()
			ok = false
		}
		results = append(results, r)
	}

	return results, ok
}
