// audit/repository.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Repository interface {
	LogDecision(ctx context.Context, log DecisionLog) error
	QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a repository writing to index on the
// cluster at esURL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

func (r *ElasticsearchRepository) LogDecision(ctx context.Context, log DecisionLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: log.CorrelationID,
		Body:       bytes.NewReader(data),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing decision: %s", res.String())
	}
	return nil
}

func (r *ElasticsearchRepository) QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error) {
	body, err := json.Marshal(buildDecisionQuery(q))
	if err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching decisions: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source DecisionLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, err
	}

	logs := make([]DecisionLog, len(result.Hits.Hits))
	for i, hit := range result.Hits.Hits {
		logs[i] = hit.Source
	}
	return logs, nil
}

func buildDecisionQuery(q DecisionQuery) map[string]any {
	var must []any

	if !q.From.IsZero() || !q.To.IsZero() {
		window := map[string]any{}
		if !q.From.IsZero() {
			window["gte"] = q.From.UTC().Format(time.RFC3339)
		}
		if !q.To.IsZero() {
			window["lte"] = q.To.UTC().Format(time.RFC3339)
		}
		must = append(must, map[string]any{"range": map[string]any{"timestamp": window}})
	}
	terms := []struct{ field, value string }{
		{"tenant_id", q.TenantID},
		{"user_id", q.UserID},
		{"decision", q.Decision},
	}
	for _, t := range terms {
		if t.value != "" {
			must = append(must, map[string]any{"term": map[string]any{t.field: t.value}})
		}
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 {
		query = map[string]any{"bool": map[string]any{"must": must}}
	}
	return map[string]any{
		"query": query,
		"sort":  []any{map[string]any{"timestamp": map[string]any{"order": "desc"}}},
		"from":  q.Offset,
		"size":  q.Limit,
	}
}
