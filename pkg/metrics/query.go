package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// RoleMetrics aggregates call behavior for one pipeline role.
type RoleMetrics struct {
	Role    string `json:"role"`
	Calls   int64  `json:"calls"`
	Retries int64  `json:"retries"`
}

// QueryService queries a Prometheus server for aggregated pipeline metrics.
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService creates a metrics query service for the given Prometheus URL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		queryAPI: v1.NewAPI(client),
	}, nil
}

// RoleTotals returns total calls and retries recorded for a role across all
// runs the Prometheus server has scraped.
func (q *QueryService) RoleTotals(ctx context.Context, role string) (*RoleMetrics, error) {
	totals := &RoleMetrics{Role: role}

	callsQuery := fmt.Sprintf(`sum(llm_calls_total{role=%q})`, role)
	callsResult, _, err := q.queryAPI.Query(ctx, callsQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query call totals: %w", err)
	}
	if vector, ok := callsResult.(model.Vector); ok && len(vector) > 0 {
		totals.Calls = int64(vector[0].Value)
	}

	retriesQuery := fmt.Sprintf(`sum(llm_retries_total{role=%q})`, role)
	retriesResult, _, err := q.queryAPI.Query(ctx, retriesQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query retry totals: %w", err)
	}
	if vector, ok := retriesResult.(model.Vector); ok && len(vector) > 0 {
		totals.Retries = int64(vector[0].Value)
	}

	return totals, nil
}
