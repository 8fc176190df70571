package model

import "time"

type Role string

const (
	RolePatient      Role = "patient"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

// User is owned by the user-management module; this service only reads it.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	RefreshToken string    `json:"-" bson:"refreshToken,omitempty"`
	Role         Role      `json:"role" bson:"role"`
	Version      int       `json:"-" bson:"__v"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

type PatientProfile struct {
	ID             string     `json:"id" bson:"_id"`
	UserID         string     `json:"userId" bson:"userId"`
	BirthDate      *time.Time `json:"birthDate,omitempty" bson:"birthDate,omitempty"`
	Gender         string     `json:"gender,omitempty" bson:"gender,omitempty"`
	MedicalHistory []string   `json:"medicalHistory,omitempty" bson:"medicalHistory,omitempty"`
	Version        int        `json:"-" bson:"__v"`
}

type Allergy struct {
	ID       string `json:"id" bson:"_id"`
	UserID   string `json:"userId" bson:"userId"`
	Allergen string `json:"allergen" bson:"allergen"`
	Reaction string `json:"reaction,omitempty" bson:"reaction,omitempty"`
	Severity string `json:"severity,omitempty" bson:"severity,omitempty"`
	IsActive bool   `json:"isActive" bson:"isActive"`
	Version  int    `json:"-" bson:"__v"`
}

type ChronicCondition struct {
	ID          string     `json:"id" bson:"_id"`
	UserID      string     `json:"userId" bson:"userId"`
	Name        string     `json:"name" bson:"name"`
	DiagnosedAt *time.Time `json:"diagnosedAt,omitempty" bson:"diagnosedAt,omitempty"`
	Status      string     `json:"status,omitempty" bson:"status,omitempty"`
	Medications []string   `json:"medications,omitempty" bson:"medications,omitempty"`
	IsActive    bool       `json:"isActive" bson:"isActive"`
	Version     int        `json:"-" bson:"__v"`
}

type HealthConcernStatus string

const (
	ConcernActive    HealthConcernStatus = "active"
	ConcernResolved  HealthConcernStatus = "resolved"
	ConcernMonitored HealthConcernStatus = "monitoring"
)

type HealthConcern struct {
	ID             string              `json:"id" bson:"_id"`
	UserID         string              `json:"userId" bson:"userId"`
	Title          string              `json:"title" bson:"title"`
	ChiefComplaint string              `json:"chiefComplaint,omitempty" bson:"chiefComplaint,omitempty"`
	Symptoms       []string            `json:"symptoms,omitempty" bson:"symptoms,omitempty"`
	Onset          string              `json:"onset,omitempty" bson:"onset,omitempty"`
	Severity       string              `json:"severity,omitempty" bson:"severity,omitempty"`
	Status         HealthConcernStatus `json:"status" bson:"status"`
	Notes          string              `json:"notes,omitempty" bson:"notes,omitempty"`
	Version        int                 `json:"-" bson:"__v"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// OwnedBy reports whether userID owns the health concern.
func (h *HealthConcern) OwnedBy(userID string) bool {
	return h != nil && userID != "" && h.UserID == userID
}
