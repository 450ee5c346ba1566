package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/entities"
	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// sessionTTL prunes stale history without a cleanup loop.
const sessionTTL = 90 * 24 * time.Hour

// SessionRepository persists conversation history in the "sessions"
// collection, one document per session with embedded turns.
type SessionRepository struct {
	collection *mongo.Collection
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates the repository and ensures its indexes.
func NewSessionRepository(ctx context.Context, db *mongo.Database) (*SessionRepository, error) {
	collection := db.Collection("sessions")

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "started_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "started_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(sessionTTL.Seconds())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure session indexes: %w", err)
	}

	return &SessionRepository{collection: collection}, nil
}

// Create upserts the session record. Called once at teardown with the full
// record, it also covers sessions whose turns were never appended
// individually.
func (r *SessionRepository) Create(ctx context.Context, session *entities.SessionRecord) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// AppendTurn pushes one finished turn onto the session document, creating it
// on first write.
func (r *SessionRepository) AppendTurn(ctx context.Context, sessionID string, turn entities.Turn) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	update := bson.M{
		"$push": bson.M{"turns": turn},
		"$set":  bson.M{"last_turn_at": turn.Timestamp},
		"$setOnInsert": bson.M{
			"started_at": turn.Timestamp,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to append turn to session %s: %w", sessionID, err)
	}
	return nil
}

// GetByID fetches one session record, nil when absent.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*entities.SessionRecord, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	var record entities.SessionRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return &record, nil
}

// ListByUser returns the user's most recent sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entities.SessionRecord, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.M{"started_at": -1}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var records []entities.SessionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return records, nil
}
