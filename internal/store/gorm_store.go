package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ainurse/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &PatientModel{}, &CaseModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a clinician.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "crm", "password_hash", "phone", "specialty", "is_active"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a clinician by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a clinician by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SavePatient stores a patient record.
func (s *GormStore) SavePatient(p domain.Patient) error {
	model := patientToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "birth_date", "gender", "medical_history"}),
	}).Create(&model).Error
}

// GetPatientByID retrieves a patient.
func (s *GormStore) GetPatientByID(id string) (domain.Patient, bool, error) {
	var model PatientModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Patient{}, false, nil
		}
		return domain.Patient{}, false, err
	}
	return patientFromModel(model), true, nil
}

// FindPatientByIdentity matches a patient by exact name and birth date within
// the owner's records. This lookup is not serialized against concurrent
// creates, so identical submissions can still race into duplicates.
func (s *GormStore) FindPatientByIdentity(ownerID, fullName, birthDate string) (domain.Patient, bool, error) {
	var model PatientModel
	err := s.db.
		Where("owner_id = ? AND full_name = ? AND birth_date = ?", ownerID, fullName, birthDate).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Patient{}, false, nil
		}
		return domain.Patient{}, false, err
	}
	return patientFromModel(model), true, nil
}

// ListPatientsByOwner returns the owner's patients ordered by created_at.
func (s *GormStore) ListPatientsByOwner(ownerID string) ([]domain.Patient, error) {
	var models []PatientModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Patient, 0, len(models))
	for _, m := range models {
		res = append(res, patientFromModel(m))
	}
	return res, nil
}

// DeletePatient removes the patient and all of its cases in one transaction.
func (s *GormStore) DeletePatient(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&CaseModel{}, "patient_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&PatientModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		return nil
	})
}

// SaveCase stores a triage case.
func (s *GormStore) SaveCase(c domain.Case) error {
	model, err := caseToModel(c)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// GetCaseByID retrieves a case.
func (s *GormStore) GetCaseByID(id string) (domain.Case, bool, error) {
	var model CaseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Case{}, false, nil
		}
		return domain.Case{}, false, err
	}
	c, err := caseFromModel(model)
	if err != nil {
		return domain.Case{}, false, err
	}
	return c, true, nil
}

type caseRow struct {
	CaseModel
	PatientName string
}

// ListCasesByOwner returns the owner's cases newest first, with the linked
// patient's name joined in.
func (s *GormStore) ListCasesByOwner(ownerID string) ([]domain.Case, error) {
	var rows []caseRow
	err := s.db.Table("cases").
		Select("cases.*, patients.full_name AS patient_name").
		Joins("LEFT JOIN patients ON patients.id = cases.patient_id").
		Where("cases.owner_id = ?", ownerID).
		Order("cases.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Case, 0, len(rows))
	for _, row := range rows {
		c, err := caseFromModel(row.CaseModel)
		if err != nil {
			return nil, err
		}
		c.PatientName = row.PatientName
		res = append(res, c)
	}
	return res, nil
}

// DeleteCaseOwned removes a case only when it belongs to the owner. It
// reports whether a row was deleted; a cross-owner id looks like "not found".
func (s *GormStore) DeleteCaseOwned(id, ownerID string) (bool, error) {
	tx := s.db.Delete(&CaseModel{}, "id = ? AND owner_id = ?", id, ownerID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		CRM:          u.CRM,
		PasswordHash: u.PasswordHash,
		Phone:        u.Phone,
		Specialty:    u.Specialty,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		FullName:     m.FullName,
		CRM:          m.CRM,
		PasswordHash: m.PasswordHash,
		Phone:        m.Phone,
		Specialty:    m.Specialty,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
	}
}

func patientToModel(p domain.Patient) PatientModel {
	return PatientModel{
		ID:             p.ID,
		OwnerID:        p.OwnerID,
		FullName:       p.FullName,
		BirthDate:      p.BirthDate,
		Gender:         p.Gender,
		MedicalHistory: p.MedicalHistory,
		CreatedAt:      p.CreatedAt,
	}
}

func patientFromModel(m PatientModel) domain.Patient {
	return domain.Patient{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		FullName:       m.FullName,
		BirthDate:      m.BirthDate,
		Gender:         m.Gender,
		MedicalHistory: m.MedicalHistory,
		CreatedAt:      m.CreatedAt,
	}
}

func caseToModel(c domain.Case) (CaseModel, error) {
	model := CaseModel{
		ID:         c.ID,
		PatientID:  c.PatientID,
		OwnerID:    c.OwnerID,
		Symptoms:   c.Symptoms,
		ExamsInput: c.ExamsInput,
		Status:     string(c.Status),
		CreatedAt:  c.CreatedAt,
	}
	if c.Analysis != nil {
		raw, err := json.Marshal(c.Analysis)
		if err != nil {
			return CaseModel{}, fmt.Errorf("marshal analysis: %w", err)
		}
		model.Analysis = datatypes.JSON(raw)
	}
	return model, nil
}

func caseFromModel(m CaseModel) (domain.Case, error) {
	c := domain.Case{
		ID:         m.ID,
		PatientID:  m.PatientID,
		OwnerID:    m.OwnerID,
		Symptoms:   m.Symptoms,
		ExamsInput: m.ExamsInput,
		Status:     domain.CaseStatus(m.Status),
		CreatedAt:  m.CreatedAt,
	}
	if len(m.Analysis) > 0 {
		var analysis domain.Analysis
		if err := json.Unmarshal(m.Analysis, &analysis); err != nil {
			return domain.Case{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
		c.Analysis = &analysis
	}
	return c, nil
}
