package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// UsageSummary aggregates model usage and safety counters scraped by Prometheus.
type UsageSummary struct {
	Model              string `json:"model,omitempty"`
	PromptTokens       int64  `json:"prompt_tokens"`
	CompletionTokens   int64  `json:"completion_tokens"`
	TotalTokens        int64  `json:"total_tokens"`
	Requests           int64  `json:"requests"`
	FailedRequests     int64  `json:"failed_requests"`
	CrisisDetections   int64  `json:"crisis_detections,omitempty"`
	ExercisesCompleted int64  `json:"exercises_completed,omitempty"`
}

// QueryService provides methods to query metrics from Prometheus.
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{queryAPI: v1.NewAPI(client)}, nil
}

// scalar runs query and returns the first sample of the resulting vector, or 0.
func (q *QueryService) scalar(ctx context.Context, query string) (int64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", query, err)
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}

// GetUsageSummary retrieves totals across all models.
func (q *QueryService) GetUsageSummary(ctx context.Context) (*UsageSummary, error) {
	return q.summary(ctx, "", true)
}

// GetUsageByModel retrieves token and request totals broken down by model.
func (q *QueryService) GetUsageByModel(ctx context.Context) (map[string]*UsageSummary, error) {
	modelsResult, _, err := q.queryAPI.Query(ctx, `group by (model) (llm_requests_total)`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}

	result := make(map[string]*UsageSummary)
	vector, ok := modelsResult.(model.Vector)
	if !ok {
		return result, nil
	}
	for _, sample := range vector {
		name, ok := sample.Metric["model"]
		if !ok {
			continue
		}
		s, err := q.summary(ctx, string(name), false)
		if err != nil {
			return nil, err
		}
		result[string(name)] = s
	}
	return result, nil
}

type counterQuery struct {
	dst   *int64
	query string
}

func (q *QueryService) summary(ctx context.Context, modelName string, withSafety bool) (*UsageSummary, error) {
	sel := ""
	if modelName != "" {
		sel = fmt.Sprintf("model=%q, ", modelName)
	}

	s := &UsageSummary{Model: modelName}
	queries := []counterQuery{
		{&s.PromptTokens, fmt.Sprintf(`sum(llm_tokens_total{%stype="prompt"})`, sel)},
		{&s.CompletionTokens, fmt.Sprintf(`sum(llm_tokens_total{%stype="completion"})`, sel)},
		{&s.Requests, fmt.Sprintf(`sum(llm_requests_total{%sstatus=~".+"})`, sel)},
		{&s.FailedRequests, fmt.Sprintf(`sum(llm_requests_total{%sstatus="error"})`, sel)},
	}
	if withSafety {
		queries = append(queries,
			counterQuery{&s.CrisisDetections, `sum(crisis_detections_total)`},
			counterQuery{&s.ExercisesCompleted, fmt.Sprintf(`sum(exercise_events_total{event=%q})`, ExerciseCompleted)},
		)
	}

	for _, item := range queries {
		v, err := q.scalar(ctx, item.query)
		if err != nil {
			return nil, err
		}
		*item.dst = v
	}
	s.TotalTokens = s.PromptTokens + s.CompletionTokens
	return s, nil
}
