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

// RoleRepository implements domain.RoleRepository on MongoDB.
type RoleRepository struct {
	roles *mongo.Collection
}

// NewRoleRepository creates a role repository and ensures its indexes.
func NewRoleRepository(ctx context.Context, db *mongo.Database) (domain.RoleRepository, error) {
	repo := &RoleRepository{
		roles: db.Collection(RolesCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create role indexes")
	}
	return repo, nil
}

func (r *RoleRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := r.roles.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for roles collection: %w", err)
	}
	return nil
}

// CreateRole creates a new role. A duplicate name is a conflict.
func (r *RoleRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	if _, err := r.roles.InsertOne(ctx, role); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.NewConflict("role with this name already exists")
		}
		log.Error().Err(err).Str("name", role.Name).Msg("Error creating role in MongoDB")
		return err
	}
	return nil
}

// GetRoleByID retrieves a role by its ID.
func (r *RoleRepository) GetRoleByID(ctx context.Context, id string) (*domain.Role, error) {
	var role domain.Role
	err := r.roles.FindOne(ctx, bson.M{"_id": id}).Decode(&role)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NewNotFound("role not found")
		}
		return nil, err
	}
	return &role, nil
}

// GetRoleByName retrieves a role by its unique name.
func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.roles.FindOne(ctx, bson.M{"name": name}).Decode(&role)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NewNotFound("role not found")
		}
		return nil, err
	}
	return &role, nil
}

// SeedDefaultRoles creates any default roles that do not exist yet.
func (r *RoleRepository) SeedDefaultRoles(ctx context.Context) error {
	for _, role := range domain.DefaultRoles() {
		role := role
		err := r.CreateRole(ctx, &role)
		if err != nil && !errors.IsConflict(err) {
			return err
		}
		if err == nil {
			log.Info().Str("role", role.Name).Msg("Seeded default role")
		}
	}
	return nil
}
