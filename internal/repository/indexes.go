package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collAssessments       = "assessments"
	collResponses         = "assessment_responses"
	collHealthConcerns    = "health_concerns"
	collUsers             = "users"
	collPatientProfiles   = "patient_profiles"
	collAllergies         = "allergies"
	collChronicConditions = "chronic_conditions"
)

type indexSpec struct {
	collection string
	keys       bson.D
	unique     bool
}

var indexSpecs = []indexSpec{
	// cooldown lookup and per-concern history
	{collAssessments, bson.D{{Key: "userId", Value: 1}, {Key: "healthConcernId", Value: 1}, {Key: "createdAt", Value: -1}}, false},
	{collAssessments, bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, false},

	// one response per assessment
	{collResponses, bson.D{{Key: "assessmentId", Value: 1}}, true},
	{collResponses, bson.D{{Key: "userId", Value: 1}}, false},

	{collHealthConcerns, bson.D{{Key: "userId", Value: 1}}, false},
	{collUsers, bson.D{{Key: "email", Value: 1}}, true},
	{collPatientProfiles, bson.D{{Key: "userId", Value: 1}}, true},
	{collAllergies, bson.D{{Key: "userId", Value: 1}}, false},
	{collChronicConditions, bson.D{{Key: "userId", Value: 1}}, false},
}

// EnsureIndexes creates every index the repositories rely on. The unique
// response index is what makes double submission impossible, so any failure
// is returned rather than logged.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, spec := range indexSpecs {
		if err := createIndex(ctx, db.Collection(spec.collection), spec.keys, spec.unique); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.collection, err)
		}
	}
	return nil
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) error {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	return err
}
