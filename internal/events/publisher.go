// Package events publishes catalog audit events over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/ecrimah/tshirts/internal/models"
)

const (
	SubjectImportCompleted = "catalog.import.completed"
	SubjectProductCreated  = "catalog.product.created"
)

// ImportCompletedEvent is the audit record emitted after a bulk import run
// finishes, whether or not individual rows failed.
type ImportCompletedEvent struct {
	EventID         string    `json:"eventId"`
	EventType       string    `json:"eventType"`
	Timestamp       time.Time `json:"timestamp"`
	UserID          string    `json:"userId"`
	Filename        string    `json:"filename"`
	TotalRows       int       `json:"totalRows"`
	ProductsCreated int       `json:"productsCreated"`
	ProductsUpdated int       `json:"productsUpdated"`
	VariantsCreated int       `json:"variantsCreated"`
	ImagesUploaded  int       `json:"imagesUploaded"`
	Errors          int       `json:"errors"`
	Duration        string    `json:"duration"`
}

// Publisher sends catalog events to NATS. All publishing is best-effort;
// a failed publish is logged and never surfaces to the API caller.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS using NATS_URL from the environment.
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}
	entry := logger.WithField("component", "catalog-events")

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("tshirts-catalog"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("NATS disconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{conn: conn, logger: entry}, nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishImportCompleted emits the import audit event.
func (p *Publisher) PublishImportCompleted(ctx context.Context, userID, filename string, summary *models.RunSummary) {
	event := ImportCompletedEvent{
		EventID:         uuid.New().String(),
		EventType:       SubjectImportCompleted,
		Timestamp:       time.Now().UTC(),
		UserID:          userID,
		Filename:        filename,
		TotalRows:       summary.TotalRows,
		ProductsCreated: summary.ProductsCreated,
		ProductsUpdated: summary.ProductsUpdated,
		VariantsCreated: summary.VariantsCreated,
		ImagesUploaded:  summary.ImagesUploaded,
		Errors:          summary.Errors,
		Duration:        summary.Duration,
	}
	p.publish(SubjectImportCompleted, event)
}

func (p *Publisher) publish(subject string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
		return
	}
	p.logger.WithField("subject", subject).Debug("Event published")
}
