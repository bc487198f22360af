package opensearch

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/paybridge/paybridge/infra/config"
)

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config *config.AppConfig
}

// NewClient creates a new OpenSearch client
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // For development/testing
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	// Add authentication if configured
	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	osClient := &Client{
		client: client,
		config: cfg,
	}

	if err := osClient.setupIndex(); err != nil {
		log.Printf("Warning: Failed to setup OpenSearch audit index: %v", err)
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// setupIndex creates the audit index if it does not exist yet
func (c *Client) setupIndex() error {
	indexName := c.AuditIndexName()

	exists, err := c.indexExists(indexName)
	if err != nil {
		return fmt.Errorf("checking index %s: %w", indexName, err)
	}
	if exists {
		return nil
	}

	if err := c.createAuditIndex(indexName); err != nil {
		return fmt.Errorf("creating index %s: %w", indexName, err)
	}
	log.Printf("Created OpenSearch index: %s", indexName)
	return nil
}

// indexExists checks if an index exists
func (c *Client) indexExists(indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(nil, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == 200, nil
}

// createAuditIndex creates the audit index with the flow-invocation mapping
func (c *Client) createAuditIndex(indexName string) error {
	mapping := `{
		"mappings": {
			"properties": {
				"timestamp": {
					"type": "date",
					"format": "strict_date_optional_time||epoch_millis"
				},
				"request_id": {
					"type": "keyword"
				},
				"merchant_id": {
					"type": "keyword"
				},
				"connector": {
					"type": "keyword"
				},
				"flow_type": {
					"type": "keyword"
				},
				"status": {
					"type": "keyword"
				},
				"error_code": {
					"type": "keyword"
				},
				"latency_ms": {
					"type": "integer"
				}
			}
		},
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 0
		}
	}`

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(nil, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	return nil
}

// AuditIndexName returns the configured audit index name
func (c *Client) AuditIndexName() string {
	if c.config.AuditIndex == "" {
		return "paybridge-audit"
	}
	return c.config.AuditIndex
}

// IsEnabled returns whether audit publishing is enabled
func (c *Client) IsEnabled() bool {
	return c.config.EnableAudit
}
