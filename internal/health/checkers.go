// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/nfoscan/internal/library"
)

// PingChecker reports whether the media server answers.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker that calls ping on every check.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   err.Error(),
			Message: "media server unreachable",
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "media server reachable",
	}
}

// LastScanChecker checks the outcome of the most recent scan.
type LastScanChecker struct {
	last   func() (*library.Report, bool)
	maxAge func() time.Duration
	now    func() time.Time
}

// NewLastScanChecker creates a checker over last. maxAge is read on every
// check; a value > 0 marks reports older than it as degraded. A nil maxAge
// never reports staleness.
func NewLastScanChecker(last func() (*library.Report, bool), maxAge func() time.Duration) *LastScanChecker {
	return &LastScanChecker{last: last, maxAge: maxAge, now: time.Now}
}

func (c *LastScanChecker) Name() string {
	return "last_scan"
}

func (c *LastScanChecker) Check(_ context.Context) CheckResult {
	r, ok := c.last()
	if !ok {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "no scan yet",
		}
	}
	if r.ListingError != "" {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   r.ListingError,
			Message: "last scan could not list the library",
		}
	}
	if r.Failed > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last scan had %d failed items", r.Failed),
		}
	}
	if c.maxAge != nil {
		if maxAge := c.maxAge(); maxAge > 0 && c.now().Sub(r.Finished) > maxAge {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("last scan finished over %s ago", maxAge),
			}
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "last scan successful",
	}
}
