package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const transcriptsCollection = "transcripts"

type TranscriptRepository struct {
	collection *mongo.Collection
}

// NewTranscriptRepository creates a new MongoDB transcript repository
func NewTranscriptRepository(db *mongo.Database) *TranscriptRepository {
	return &TranscriptRepository{
		collection: db.Collection(transcriptsCollection),
	}
}

var _ repositories.TranscriptRepository = (*TranscriptRepository)(nil)

// EnsureIndexes creates the client/created_at index used by listing
func (r *TranscriptRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create transcript index: %w", err)
	}
	return nil
}

// Save implements repositories.TranscriptRepository
func (r *TranscriptRepository) Save(ctx context.Context, transcript *entities.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}
	if err := transcript.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, transcript); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// ListByClientID returns up to limit transcripts, newest first
func (r *TranscriptRepository) ListByClientID(ctx context.Context, clientID string, limit int) ([]*entities.Transcript, error) {
	if clientID == "" {
		return nil, errors.New("client ID cannot be empty")
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"client_id": clientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts for client %s: %w", clientID, err)
	}
	defer cursor.Close(ctx)

	transcripts := []*entities.Transcript{}
	if err := cursor.All(ctx, &transcripts); err != nil {
		return nil, fmt.Errorf("failed to decode transcripts: %w", err)
	}
	return transcripts, nil
}
