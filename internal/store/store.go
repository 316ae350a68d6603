package store

import "ainurse/pkg/domain"

// Store defines persistence operations for users, patients, and cases.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// patients
	SavePatient(domain.Patient) error
	GetPatientByID(id string) (domain.Patient, bool, error)
	FindPatientByIdentity(ownerID, fullName, birthDate string) (domain.Patient, bool, error)
	ListPatientsByOwner(ownerID string) ([]domain.Patient, error)
	DeletePatient(id string) error

	// cases
	SaveCase(domain.Case) error
	GetCaseByID(id string) (domain.Case, bool, error)
	ListCasesByOwner(ownerID string) ([]domain.Case, error)
	DeleteCaseOwned(id, ownerID string) (bool, error)
}
