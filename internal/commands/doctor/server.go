package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/hay-kot/courier/internal/client"
)

// HealthChecker reports the health of a running broker.
type HealthChecker interface {
	BaseURL() string
	Health(ctx context.Context) (client.Health, error)
}

// ServerCheck verifies that the broker at the client's URL answers /healthz.
type ServerCheck struct {
	client  HealthChecker
	timeout time.Duration
}

// NewServerCheck creates a server reachability check.
func NewServerCheck(c HealthChecker) *ServerCheck {
	return &ServerCheck{client: c, timeout: 3 * time.Second}
}

func (c *ServerCheck) Name() string {
	return "Server"
}

func (c *ServerCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	health, err := c.client.Health(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  c.client.BaseURL(),
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  c.client.BaseURL(),
		Status: StatusPass,
		Detail: fmt.Sprintf("%s in %s", health.Status, time.Since(start).Round(time.Millisecond)),
	})

	result.Items = append(result.Items,
		CheckItem{
			Label:  "Queue",
			Status: StatusPass,
			Detail: fmt.Sprintf("%d message(s) waiting", health.QueueDepth),
		},
		CheckItem{
			Label:  "Topics",
			Status: StatusPass,
			Detail: fmt.Sprintf("%d known", health.Topics),
		},
	)

	return result
}
