package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	FullName     string `gorm:"not null"`
	CRM          string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	Phone        string
	Specialty    string
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

// PatientModel carries a non-unique composite index on (owner_id, full_name,
// birth_date): the identity match is best-effort, duplicates are allowed.
type PatientModel struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"not null;index;index:idx_patients_identity"`
	FullName       string `gorm:"not null;index:idx_patients_identity"`
	BirthDate      string `gorm:"not null;index:idx_patients_identity"`
	Gender         string `gorm:"not null"`
	MedicalHistory string `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (PatientModel) TableName() string { return "patients" }

type CaseModel struct {
	ID         string         `gorm:"primaryKey"`
	PatientID  string         `gorm:"not null;index"`
	OwnerID    string         `gorm:"not null;index"`
	Symptoms   string         `gorm:"type:text;not null"`
	ExamsInput string         `gorm:"type:text"`
	Analysis   datatypes.JSON `gorm:"type:jsonb"`
	Status     string         `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}

func (CaseModel) TableName() string { return "cases" }
