package repository

import (
	"context"
	"time"

	"healthpulse/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthConcernRepo reads health concerns. Writes belong to the CRUD module;
// Create exists for seeding.
type HealthConcernRepo interface {
	Create(ctx context.Context, hc *model.HealthConcern) error
	GetByID(ctx context.Context, id string) (*model.HealthConcern, error)
}

type healthConcernRepo struct {
	collection *mongo.Collection
}

func NewHealthConcernRepo(db *mongo.Database) HealthConcernRepo {
	return &healthConcernRepo{
		collection: db.Collection(collHealthConcerns),
	}
}

func (r *healthConcernRepo) Create(ctx context.Context, hc *model.HealthConcern) error {
	if hc.ID == "" {
		hc.ID = primitive.NewObjectID().Hex()
	}
	hc.CreatedAt = time.Now().UTC()
	hc.UpdatedAt = hc.CreatedAt

	_, err := r.collection.InsertOne(ctx, hc)
	return err
}

func (r *healthConcernRepo) GetByID(ctx context.Context, id string) (*model.HealthConcern, error) {
	var hc model.HealthConcern
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&hc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hc, nil
}
