package telemetry

import (
	"context"
	"fmt"

	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/option"
)

// FirestoreSink publishes scan events as documents of a Firestore collection
type FirestoreSink struct {
	documents  *firestore.ProjectsDatabasesDocumentsService
	parent     string
	collection string
	logger     *zap.Logger
}

// NewFirestoreSink creates a sink writing to collection in the default database of projectID
func NewFirestoreSink(ctx context.Context, projectID, collection string, logger *zap.Logger, opts ...option.ClientOption) (*FirestoreSink, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}

	svc, err := firestore.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreSink{
		documents:  svc.Projects.Databases.Documents,
		parent:     fmt.Sprintf("projects/%s/databases/(default)/documents", projectID),
		collection: collection,
		logger:     logger,
	}, nil
}

// Publish creates one document for the event
func (s *FirestoreSink) Publish(ctx context.Context, event *core.TelemetryEvent) error {
	doc, err := s.documents.CreateDocument(s.parent, s.collection, EventDocument(event)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create dashboard document: %w", err)
	}
	s.logger.Debug("Created dashboard document", zap.String("name", doc.Name))
	return nil
}

// EventDocument converts an event to a Firestore document with typed fields
func EventDocument(event *core.TelemetryEvent) *firestore.Document {
	reasons := make([]*firestore.Value, 0, len(event.Reasons))
	for _, r := range event.Reasons {
		reasons = append(reasons, stringValue(r))
	}

	return &firestore.Document{
		Fields: map[string]firestore.Value{
			"timestamp":      integerValue(event.Timestamp.UnixMilli()),
			"user":           *stringValue(event.User),
			"from":           *stringValue(event.From),
			"subject":        *stringValue(event.Subject),
			"score":          integerValue(int64(event.Score)),
			"isPhishing":     {BooleanValue: event.IsPhishing, ForceSendFields: []string{"BooleanValue"}},
			"reasons":        {ArrayValue: &firestore.ArrayValue{Values: reasons, ForceSendFields: []string{"Values"}}},
			"recommendation": *stringValue(event.Recommendation),
		},
	}
}

func stringValue(s string) *firestore.Value {
	return &firestore.Value{StringValue: s, ForceSendFields: []string{"StringValue"}}
}

func integerValue(n int64) firestore.Value {
	return firestore.Value{IntegerValue: n, ForceSendFields: []string{"IntegerValue"}}
}
