package repository

import (
	"context"
	"errors"
	"time"

	"healthpulse/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateResponse is returned when an assessment already has a response.
var ErrDuplicateResponse = errors.New("assessment already has a response")

// ResponseRepo handles MongoDB operations for assessment responses
type ResponseRepo interface {
	Create(ctx context.Context, resp *model.AssessmentResponse) error
	GetByID(ctx context.Context, id string) (*model.AssessmentResponse, error)
	GetByAssessmentID(ctx context.Context, assessmentID string) (*model.AssessmentResponse, error)
	ListByAssessmentIDs(ctx context.Context, assessmentIDs []string) ([]*model.AssessmentResponse, error)
	UpdateReport(ctx context.Context, id string, status model.ReportStatus, report map[string]interface{}) error
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection(collResponses),
	}
}

// Create inserts the response. The unique index on assessmentId turns a
// second insert for the same assessment into ErrDuplicateResponse.
func (r *responseRepo) Create(ctx context.Context, resp *model.AssessmentResponse) error {
	if resp.ID == "" {
		resp.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	resp.CompletedAt = now
	resp.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, resp)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateResponse
	}
	return err
}

func (r *responseRepo) GetByID(ctx context.Context, id string) (*model.AssessmentResponse, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *responseRepo) GetByAssessmentID(ctx context.Context, assessmentID string) (*model.AssessmentResponse, error) {
	return r.findOne(ctx, bson.M{"assessmentId": assessmentID})
}

func (r *responseRepo) findOne(ctx context.Context, filter bson.M) (*model.AssessmentResponse, error) {
	var resp model.AssessmentResponse
	err := r.collection.FindOne(ctx, filter).Decode(&resp)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *responseRepo) ListByAssessmentIDs(ctx context.Context, assessmentIDs []string) ([]*model.AssessmentResponse, error) {
	if len(assessmentIDs) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"assessmentId": bson.M{"$in": assessmentIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.AssessmentResponse
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseRepo) UpdateReport(ctx context.Context, id string, status model.ReportStatus, report map[string]interface{}) error {
	set := bson.M{"reportStatus": status, "updatedAt": time.Now().UTC()}
	if report != nil {
		set["report"] = report
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}
