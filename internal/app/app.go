package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ainurse/internal/store"
	"ainurse/internal/util"
	"ainurse/pkg/ai"
	"ainurse/pkg/auth"
	"ainurse/pkg/domain"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store
	Generator   ai.TextGenerator
}

// App wires together storage, the AI client, and the triage domain logic.
type App struct {
	store     store.Store
	generator ai.TextGenerator
}

// New constructs the application. When no Store is injected, a Postgres
// store is opened from DatabaseURL.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator required")
	}
	return &App{
		store:     dataStore,
		generator: cfg.Generator,
	}, nil
}

// RegisterUserInput carries the clinician signup fields.
type RegisterUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	CRM      string `json:"crm"`
}

// RegisterUser creates a clinician account. The password is stored as a
// bcrypt hash, never as plaintext.
func (a *App) RegisterUser(input RegisterUserInput) (domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" || strings.TrimSpace(input.FullName) == "" {
		return domain.User{}, ErrInvalidInput
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		CRM:          strings.TrimSpace(input.CRM),
		PasswordHash: hash,
		Specialty:    domain.DefaultSpecialty,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login validates credentials and returns the clinician record. Unknown
// email and wrong password produce the same error.
func (a *App) Login(email, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns a clinician by id.
func (a *App) GetUser(id string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// UpdateUserInput carries the optional profile fields; nil means unchanged.
type UpdateUserInput struct {
	FullName  *string `json:"full_name"`
	Email     *string `json:"email"`
	CRM       *string `json:"crm"`
	Phone     *string `json:"phone"`
	Specialty *string `json:"specialty"`
}

// UpdateUser applies a partial profile update.
func (a *App) UpdateUser(id string, input UpdateUserInput) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	if input.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*input.Email))
		if email != "" && email != user.Email {
			exists, err := a.store.HasUserEmail(email)
			if err != nil {
				return domain.User{}, fmt.Errorf("check email: %w", err)
			}
			if exists {
				return domain.User{}, ErrEmailAlreadyExists
			}
			user.Email = email
		}
	}
	if input.FullName != nil && strings.TrimSpace(*input.FullName) != "" {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.CRM != nil {
		user.CRM = strings.TrimSpace(*input.CRM)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Specialty != nil {
		user.Specialty = strings.TrimSpace(*input.Specialty)
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// ListPatients returns the owner's registered patients.
func (a *App) ListPatients(ownerID string) ([]domain.Patient, error) {
	patients, err := a.store.ListPatientsByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

// PatientData is the candidate patient record sent with a case submission.
type PatientData struct {
	FullName       string `json:"full_name"`
	BirthDate      string `json:"birth_date"`
	Gender         string `json:"gender"`
	MedicalHistory string `json:"medical_history"`
}

// CaseInput is a triage submission.
type CaseInput struct {
	PatientID   string       `json:"patient_id,omitempty"`
	PatientData *PatientData `json:"patient_data,omitempty"`
	Symptoms    string       `json:"symptoms"`
	Exams       string       `json:"exams,omitempty"`
}

// resolvePatient finds or creates the patient for a submission: explicit id
// first, then owner-scoped (name, birth date) match, then create. The
// lookup-then-create is not atomic, so concurrent identical submissions can
// still produce duplicate patients.
func (a *App) resolvePatient(ctx context.Context, ownerID string, input CaseInput) (domain.Patient, error) {
	if input.PatientID != "" {
		patient, ok, err := a.store.GetPatientByID(input.PatientID)
		if err != nil {
			return domain.Patient{}, fmt.Errorf("get patient: %w", err)
		}
		if ok {
			// The supplied id is trusted without an ownership check, matching
			// the existing client contract. Logged for traceability.
			if patient.OwnerID != ownerID {
				util.LoggerFromContext(ctx).Warn("patient_owner_mismatch",
					"patient_id", patient.ID, "patient_owner", patient.OwnerID, "request_owner", ownerID)
			}
			return patient, nil
		}
	}
	if input.PatientData == nil {
		return domain.Patient{}, ErrMissingPatientData
	}
	data := *input.PatientData
	fullName := strings.TrimSpace(data.FullName)
	birthDate := strings.TrimSpace(data.BirthDate)
	if fullName == "" || birthDate == "" {
		return domain.Patient{}, ErrMissingPatientData
	}
	patient, ok, err := a.store.FindPatientByIdentity(ownerID, fullName, birthDate)
	if err != nil {
		return domain.Patient{}, fmt.Errorf("find patient: %w", err)
	}
	if ok {
		return patient, nil
	}
	patient = domain.Patient{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		FullName:       fullName,
		BirthDate:      birthDate,
		Gender:         strings.TrimSpace(data.Gender),
		MedicalHistory: data.MedicalHistory,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.SavePatient(patient); err != nil {
		return domain.Patient{}, fmt.Errorf("save patient: %w", err)
	}
	return patient, nil
}

// SubmitCase runs the full triage pipeline: resolve the patient, build the
// prompt, call the model once (no retry), normalize the reply, and persist
// the case. The case is stored as "Analisado" whether the analysis came from
// the model or from the fallback document.
func (a *App) SubmitCase(ctx context.Context, ownerID string, input CaseInput) (domain.Case, error) {
	if strings.TrimSpace(input.Symptoms) == "" {
		return domain.Case{}, ErrSymptomsRequired
	}
	patient, err := a.resolvePatient(ctx, ownerID, input)
	if err != nil {
		return domain.Case{}, err
	}

	age := ageLabel(patient.BirthDate, time.Now())
	prompt := buildTriagePrompt(patient, age, input.Symptoms, input.Exams)
	analysis, degraded := a.analyze(ctx, prompt)
	if degraded {
		util.LoggerFromContext(ctx).Warn("triage_fallback_applied", "patient_id", patient.ID)
	}

	newCase := domain.Case{
		ID:         uuid.NewString(),
		PatientID:  patient.ID,
		OwnerID:    ownerID,
		Symptoms:   input.Symptoms,
		ExamsInput: input.Exams,
		Analysis:   &analysis,
		Status:     domain.StatusAnalisado,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.SaveCase(newCase); err != nil {
		return domain.Case{}, fmt.Errorf("save case: %w", err)
	}
	newCase.PatientName = patient.FullName
	return newCase, nil
}

// ListCases returns the owner's cases newest first with patient names joined.
func (a *App) ListCases(ownerID string) ([]domain.Case, error) {
	cases, err := a.store.ListCasesByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// GetCaseDetail returns a case with the linked patient's fields. A missing
// patient yields placeholder fields rather than an error.
func (a *App) GetCaseDetail(id string) (domain.CaseDetail, error) {
	c, ok, err := a.store.GetCaseByID(id)
	if err != nil {
		return domain.CaseDetail{}, fmt.Errorf("get case: %w", err)
	}
	if !ok {
		return domain.CaseDetail{}, ErrCaseNotFound
	}
	detail := domain.CaseDetail{Case: c}
	patient, ok, err := a.store.GetPatientByID(c.PatientID)
	if err != nil {
		return domain.CaseDetail{}, fmt.Errorf("get patient: %w", err)
	}
	if ok {
		detail.PatientName = patient.FullName
		detail.BirthDate = patient.BirthDate
		detail.Gender = patient.Gender
		detail.MedicalHistory = patient.MedicalHistory
	} else {
		detail.PatientName = "Desconhecido"
		detail.Gender = "N/A"
		detail.MedicalHistory = "N/A"
	}
	return detail, nil
}

// DeleteCase removes a case scoped to its owner. A case belonging to a
// different owner reports not-found, never forbidden.
func (a *App) DeleteCase(id, ownerID string) error {
	deleted, err := a.store.DeleteCaseOwned(id, ownerID)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	if !deleted {
		return ErrCaseNotFound
	}
	return nil
}
