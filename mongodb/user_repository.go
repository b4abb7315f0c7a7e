package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
)

// UserRepository implements domain.UserRepository on MongoDB.
type UserRepository struct {
	db    *mongo.Database
	users *mongo.Collection
	roles *mongo.Collection
}

// NewUserRepository creates a user repository and ensures its indexes.
func NewUserRepository(ctx context.Context, db *mongo.Database) (domain.UserRepository, error) {
	repo := &UserRepository{
		db:    db,
		users: db.Collection(UsersCollection),
		roles: db.Collection(RolesCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		// Index creation fails when compatible indexes already exist; the
		// repository is still usable.
		log.Warn().Err(err).Msg("Failed to create user indexes")
	}
	return repo, nil
}

func (r *UserRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// Case-insensitive unique email via strength-2 collation.
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}},
			Options: options.Index().SetUnique(false),
		},
	}
	if _, err := r.users.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for users collection: %w", err)
	}
	log.Info().Msg("Indexes for users collection ensured.")
	return nil
}

// CreateUser creates a new user. A duplicate email is a conflict.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Roles == nil {
		user.Roles = []string{}
	}

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.NewConflict("user with this email already exists")
		}
		log.Error().Err(err).Str("email", user.Email).Msg("Error creating user in MongoDB")
		return err
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NewNotFound("user not found")
		}
		log.Error().Err(err).Str("id", id).Msg("Error getting user by ID from MongoDB")
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email. The lookup runs under the same
// collation as the unique index, so it is case-insensitive.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	err := r.users.FindOne(ctx, bson.M{"email": email}, opts).Decode(&user)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NewNotFound("user not found")
		}
		log.Error().Err(err).Str("email", email).Msg("Error getting user by email from MongoDB")
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces an existing user document.
func (r *UserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return errors.NewValidation("user ID is required for update")
	}
	user.UpdatedAt = time.Now().UTC()

	result, err := r.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("Error updating user in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return errors.NewNotFound("user not found")
	}
	return nil
}

// AssignRole grants a role to the user. The role must exist; assigning a
// role the user already holds is a conflict.
func (r *UserRepository) AssignRole(ctx context.Context, userID, roleName string) error {
	if err := r.roleExists(ctx, roleName); err != nil {
		return err
	}

	result, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID, "roles": bson.M{"$ne": roleName}},
		bson.M{
			"$push": bson.M{"roles": roleName},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Str("role", roleName).Msg("Error assigning role")
		return err
	}
	if result.MatchedCount == 0 {
		// Either the user is missing or they already hold the role.
		count, err := r.users.CountDocuments(ctx, bson.M{"_id": userID})
		if err != nil {
			return err
		}
		if count == 0 {
			return errors.NewNotFound("user not found")
		}
		return errors.NewConflict("user already has this role")
	}
	return nil
}

// RemoveRole revokes a role from the user.
func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleName string) error {
	result, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID, "roles": roleName},
		bson.M{
			"$pull": bson.M{"roles": roleName},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Str("role", roleName).Msg("Error removing role")
		return err
	}
	if result.MatchedCount == 0 {
		return errors.NewNotFound("user does not hold this role")
	}
	return nil
}

func (r *UserRepository) roleExists(ctx context.Context, roleName string) error {
	count, err := r.roles.CountDocuments(ctx, bson.M{"name": roleName})
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.NewNotFound("role not found")
	}
	return nil
}
