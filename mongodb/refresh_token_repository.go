package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
)

// RefreshTokenRepository implements domain.RefreshTokenRepository on MongoDB.
// It is the durable default; single-node deployments may prefer the redis or
// in-memory stores.
type RefreshTokenRepository struct {
	tokens *mongo.Collection
}

// NewRefreshTokenRepository creates a refresh-token repository and ensures
// its indexes.
func NewRefreshTokenRepository(ctx context.Context, db *mongo.Database) (domain.RefreshTokenRepository, error) {
	repo := &RefreshTokenRepository{
		tokens: db.Collection(RefreshTokensCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create refresh token indexes")
	}
	return repo, nil
}

func (r *RefreshTokenRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(false),
		},
		{
			// TTL index: Mongo purges dead records on its own; the
			// expires_at filter in GetByValue covers the purge lag.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := r.tokens.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for refresh tokens collection: %w", err)
	}
	return nil
}

// Store persists a new refresh-token record.
func (r *RefreshTokenRepository) Store(ctx context.Context, token *domain.RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	if _, err := r.tokens.InsertOne(ctx, token); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.NewConflict("refresh token value already exists")
		}
		log.Error().Err(err).Str("userID", token.UserID).Msg("Error storing refresh token")
		return err
	}
	return nil
}

// GetByValue returns the live record for the value. Expired records still
// awaiting the TTL monitor are filtered out here.
func (r *RefreshTokenRepository) GetByValue(ctx context.Context, value string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := r.tokens.FindOne(ctx, bson.M{
		"token":      value,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&token)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NewNotFound("refresh token not found")
		}
		log.Error().Err(err).Msg("Error getting refresh token from MongoDB")
		return nil, err
	}
	return &token, nil
}

// DeleteByValue removes the record. DeletedCount makes the delete the
// serialization point for concurrent rotations of the same value.
func (r *RefreshTokenRepository) DeleteByValue(ctx context.Context, value string) (bool, error) {
	result, err := r.tokens.DeleteOne(ctx, bson.M{"token": value})
	if err != nil {
		log.Error().Err(err).Msg("Error deleting refresh token from MongoDB")
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// DeleteAllForUser removes every record owned by the user.
func (r *RefreshTokenRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.tokens.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// DeleteExpired purges expired records that the TTL monitor has not yet
// collected.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.tokens.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	return err
}
