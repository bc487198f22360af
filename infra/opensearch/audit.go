package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/paybridge/paybridge/connector"
)

// Publisher indexes flow-invocation audit events into OpenSearch.
type Publisher struct {
	client *Client
}

var _ connector.AuditPublisher = (*Publisher)(nil)

// NewPublisher creates a new audit publisher
func NewPublisher(client *Client) *Publisher {
	return &Publisher{
		client: client,
	}
}

// Publish indexes one audit event. Publishing disabled is not an error.
func (p *Publisher) Publish(ctx context.Context, event connector.AuditEvent) error {
	if !p.client.IsEnabled() {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = uuid.New().String()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: p.client.AuditIndexName(),
		Body:  bytes.NewReader(eventJSON),
	}

	res, err := req.Do(ctx, p.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index audit event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

// SearchEvents queries recent audit events for one merchant, optionally
// filtered by connector. It exists for the analytics endpoint.
func (p *Publisher) SearchEvents(ctx context.Context, merchantID, connectorName string, size int) ([]connector.AuditEvent, error) {
	if !p.client.IsEnabled() {
		return nil, nil
	}
	if size <= 0 || size > 1000 {
		size = 100
	}

	filters := []map[string]any{
		{"term": map[string]any{"merchant_id": merchantID}},
	}
	if connectorName != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"connector": connectorName}})
	}

	query := map[string]any{
		"size": size,
		"sort": []map[string]any{
			{"timestamp": map[string]any{"order": "desc"}},
		},
		"query": map[string]any{
			"bool": map[string]any{"filter": filters},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{p.client.AuditIndexName()},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, p.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("failed to search audit events: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source connector.AuditEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	events := make([]connector.AuditEvent, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		events = append(events, hit.Source)
	}
	return events, nil
}
