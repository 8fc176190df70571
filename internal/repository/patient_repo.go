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

// PatientRepo reads the patient records used to build generation context.
type PatientRepo interface {
	CreateUser(ctx context.Context, u *model.User) error
	UpsertProfile(ctx context.Context, p *model.PatientProfile) error
	AddAllergy(ctx context.Context, a *model.Allergy) error
	AddChronicCondition(ctx context.Context, c *model.ChronicCondition) error

	GetProfile(ctx context.Context, userID string) (*model.PatientProfile, error)
	ActiveAllergies(ctx context.Context, userID string) ([]*model.Allergy, error)
	ActiveChronicConditions(ctx context.Context, userID string) ([]*model.ChronicCondition, error)
}

type patientRepo struct {
	users      *mongo.Collection
	profiles   *mongo.Collection
	allergies  *mongo.Collection
	conditions *mongo.Collection
}

func NewPatientRepo(db *mongo.Database) PatientRepo {
	return &patientRepo{
		users:      db.Collection(collUsers),
		profiles:   db.Collection(collPatientProfiles),
		allergies:  db.Collection(collAllergies),
		conditions: db.Collection(collChronicConditions),
	}
}

func (r *patientRepo) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.users.InsertOne(ctx, u)
	return err
}

// UpsertProfile writes the profile for p.UserID. An existing profile keeps
// its _id; p is refreshed from the stored document.
func (r *patientRepo) UpsertProfile(ctx context.Context, p *model.PatientProfile) error {
	filter, update := profileUpsert(p, primitive.NewObjectID().Hex())
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	return r.profiles.FindOneAndUpdate(ctx, filter, update, opts).Decode(p)
}

// profileUpsert builds the filter and update for UpsertProfile. _id is only
// written on insert because Mongo rejects changes to it.
func profileUpsert(p *model.PatientProfile, newID string) (bson.M, bson.M) {
	if p.ID != "" {
		newID = p.ID
	}
	filter := bson.M{"userId": p.UserID}
	update := bson.M{
		"$set": bson.M{
			"birthDate":      p.BirthDate,
			"gender":         p.Gender,
			"medicalHistory": p.MedicalHistory,
		},
		"$setOnInsert": bson.M{"_id": newID, "userId": p.UserID},
		"$inc":         bson.M{"__v": 1},
	}
	return filter, update
}

func (r *patientRepo) AddAllergy(ctx context.Context, a *model.Allergy) error {
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.allergies.InsertOne(ctx, a)
	return err
}

func (r *patientRepo) AddChronicCondition(ctx context.Context, c *model.ChronicCondition) error {
	if c.ID == "" {
		c.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.conditions.InsertOne(ctx, c)
	return err
}

func (r *patientRepo) GetProfile(ctx context.Context, userID string) (*model.PatientProfile, error) {
	var p model.PatientProfile
	err := r.profiles.FindOne(ctx, bson.M{"userId": userID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepo) ActiveAllergies(ctx context.Context, userID string) ([]*model.Allergy, error) {
	cursor, err := r.allergies.Find(ctx, bson.M{"userId": userID, "isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.Allergy
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *patientRepo) ActiveChronicConditions(ctx context.Context, userID string) ([]*model.ChronicCondition, error) {
	cursor, err := r.conditions.Find(ctx, bson.M{"userId": userID, "isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.ChronicCondition
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
