package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"example.com/ticketing/services/booking/config"
	"example.com/ticketing/services/booking/internal/messaging"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexBookingAudit writes the audit record for a booking fact. The
// document id is the booking id, so reprocessing the same fact
// overwrites the document instead of duplicating it.
func (c *ElasticClient) IndexBookingAudit(ctx context.Context, event *messaging.BookingEvent) error {
	doc := map[string]interface{}{
		"booking_id": event.Data.ID,
		"event_id":   event.Data.EventID,
		"event_name": event.Data.EventName,
		"user_id":    event.Data.UserID,
		"booked_at":  event.Data.CreatedAt,
		"fact_time":  event.Timestamp,
		"fact_type":  event.Type,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: strconv.FormatInt(event.Data.ID, 10),
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().Int64("booking_id", event.Data.ID).Msg("Booking audit record indexed")
	return nil
}
