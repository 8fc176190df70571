package repository

import (
	"context"
	"time"

	"healthpulse/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HistoryFilter selects a page of a user's active assessments.
type HistoryFilter struct {
	UserID          string
	HealthConcernID string
	Skip            int64
	Limit           int64
}

// AssessmentRepo handles MongoDB operations for assessments
type AssessmentRepo interface {
	Create(ctx context.Context, a *model.Assessment) error
	GetByID(ctx context.Context, id string) (*model.Assessment, error)
	LatestActive(ctx context.Context, userID, healthConcernID string) (*model.Assessment, error)
	Recent(ctx context.Context, userID, healthConcernID string, limit int64) ([]*model.Assessment, error)
	History(ctx context.Context, f HistoryFilter) ([]*model.Assessment, int64, error)
	Deactivate(ctx context.Context, id string) (bool, error)
}

type assessmentRepo struct {
	collection *mongo.Collection
}

// NewAssessmentRepo creates a new assessment repository
func NewAssessmentRepo(db *mongo.Database) AssessmentRepo {
	return &assessmentRepo{
		collection: db.Collection(collAssessments),
	}
}

func (r *assessmentRepo) Create(ctx context.Context, a *model.Assessment) error {
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, a)
	return err
}

func (r *assessmentRepo) GetByID(ctx context.Context, id string) (*model.Assessment, error) {
	var a model.Assessment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepo) LatestActive(ctx context.Context, userID, healthConcernID string) (*model.Assessment, error) {
	filter := bson.M{"userId": userID, "healthConcernId": healthConcernID, "isActive": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var a model.Assessment
	err := r.collection.FindOne(ctx, filter, opts).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepo) Recent(ctx context.Context, userID, healthConcernID string, limit int64) ([]*model.Assessment, error) {
	filter := bson.M{"userId": userID, "healthConcernId": healthConcernID, "isActive": true}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.Assessment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assessmentRepo) History(ctx context.Context, f HistoryFilter) ([]*model.Assessment, int64, error) {
	filter := bson.M{"userId": f.UserID, "isActive": true}
	if f.HealthConcernID != "" {
		filter["healthConcernId"] = f.HealthConcernID
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(f.Skip).
		SetLimit(f.Limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var out []*model.Assessment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Deactivate soft-deletes an assessment. It reports whether a document changed.
func (r *assessmentRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
