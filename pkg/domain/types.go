package domain

import "time"

type CaseStatus string

const (
	StatusPendente  CaseStatus = "Pendente"
	StatusAnalisado CaseStatus = "Analisado"
)

type Urgency string

const (
	UrgencyAlta       Urgency = "Alta"
	UrgencyMedia      Urgency = "Média"
	UrgencyBaixa      Urgency = "Baixa"
	UrgencyIndefinida Urgency = "Indefinida"
)

// DefaultSpecialty is assigned to clinicians that register without one.
const DefaultSpecialty = "Clínico Geral"

// User is a clinician account. JSON field names follow the snake_case wire
// format expected by the existing web client.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	CRM          string    `json:"crm"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	Specialty    string    `json:"specialty,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Patient is owned by exactly one clinician. Within an owner's records the
// pair (FullName, BirthDate) acts as a best-effort identity key; it is not
// backed by a uniqueness constraint.
type Patient struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	FullName       string    `json:"full_name"`
	BirthDate      string    `json:"birth_date"`
	Gender         string    `json:"gender"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Case is a single triage submission. PatientID never changes after creation.
// PatientName is joined in for presentation and not stored on the case row.
type Case struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patient_id"`
	OwnerID     string     `json:"owner_id"`
	PatientName string     `json:"patient_name"`
	Symptoms    string     `json:"symptoms"`
	ExamsInput  string     `json:"exams_input,omitempty"`
	Analysis    *Analysis  `json:"ai_analysis_json"`
	Status      CaseStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CaseDetail adds the linked patient's fields to a case for the detail view.
type CaseDetail struct {
	Case
	BirthDate      string `json:"birth_date"`
	Gender         string `json:"gender"`
	MedicalHistory string `json:"medical_history"`
}

type Diagnosis struct {
	Name        string `json:"name"`
	Probability string `json:"probability"`
}

// Analysis is the triage document persisted with every case. Whether it came
// from the model or from the local fallback, the shape is identical.
type Analysis struct {
	Referral      string      `json:"referral"`
	Urgency       Urgency     `json:"urgency"`
	Justification string      `json:"justification"`
	Diagnoses     []Diagnosis `json:"diagnoses"`
	Exams         []string    `json:"exams"`
	Medications   []string    `json:"medications"`
}
