package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"healthpulse/internal/config"
	"healthpulse/internal/model"
	"healthpulse/internal/repository"
	"healthpulse/internal/service"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// seed creates one demo patient with a profile, history and an open health
// concern, then prints a bearer token for that patient.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	patients := repository.NewPatientRepo(db)
	concerns := repository.NewHealthConcernRepo(db)

	now := time.Now().UTC()
	userID := primitive.NewObjectID().Hex()
	birth := now.AddDate(-42, -3, 0)
	diagnosed := now.AddDate(-6, 0, 0)

	user := &model.User{
		ID:        userID,
		Email:     fmt.Sprintf("patient+%s@example.com", userID[len(userID)-6:]),
		Role:      model.RolePatient,
		CreatedAt: now,
	}
	if err := patients.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	profile := &model.PatientProfile{
		ID:             primitive.NewObjectID().Hex(),
		UserID:         userID,
		BirthDate:      &birth,
		Gender:         "female",
		MedicalHistory: []string{"Appendectomy (2009)", "Seasonal asthma in childhood"},
	}
	if err := patients.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	allergies := []*model.Allergy{
		{ID: primitive.NewObjectID().Hex(), UserID: userID, Allergen: "Penicillin", Reaction: "Hives", Severity: "moderate", IsActive: true},
		{ID: primitive.NewObjectID().Hex(), UserID: userID, Allergen: "Peanuts", Reaction: "Swelling", Severity: "severe", IsActive: true},
	}
	for _, a := range allergies {
		if err := patients.AddAllergy(ctx, a); err != nil {
			return fmt.Errorf("add allergy: %w", err)
		}
	}

	condition := &model.ChronicCondition{
		ID:          primitive.NewObjectID().Hex(),
		UserID:      userID,
		Name:        "Hypertension",
		DiagnosedAt: &diagnosed,
		Status:      "controlled",
		Medications: []string{"Lisinopril 10mg"},
		IsActive:    true,
	}
	if err := patients.AddChronicCondition(ctx, condition); err != nil {
		return fmt.Errorf("add chronic condition: %w", err)
	}

	concern := &model.HealthConcern{
		ID:             primitive.NewObjectID().Hex(),
		UserID:         userID,
		Title:          "Recurring headaches",
		ChiefComplaint: "Throbbing headaches behind the eyes most afternoons",
		Symptoms:       []string{"headache", "light sensitivity", "nausea"},
		Onset:          "3 weeks ago",
		Severity:       "moderate",
		Status:         model.ConcernActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := concerns.Create(ctx, concern); err != nil {
		return fmt.Errorf("create health concern: %w", err)
	}

	token, err := service.NewAuthService(cfg.SigningSecret(), 24*time.Hour).IssueToken(userID, model.RolePatient)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Printf("user:           %s\n", userID)
	fmt.Printf("health concern: %s\n", concern.ID)
	fmt.Printf("token:          %s\n", token)
	return nil
}
