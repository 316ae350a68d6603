package app

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// the API deliberately does not distinguish the two.
	ErrInvalidCredentials = errors.New("Credenciais incorretas")

	// ErrInvalidInput marks a request whose required fields are missing or
	// blank; it maps to a client error, never a server one.
	ErrInvalidInput = errors.New("Email, senha e nome são obrigatórios")

	ErrEmailAlreadyExists = errors.New("Email já cadastrado")
	ErrUserNotFound       = errors.New("Usuário não encontrado")

	// ErrMissingPatientData indicates a case submission carried neither a
	// resolvable patient id nor candidate patient data.
	ErrMissingPatientData = errors.New("Dados do paciente não encontrados ou incompletos.")

	ErrSymptomsRequired = errors.New("Sintomas são obrigatórios")
	ErrCaseNotFound     = errors.New("Caso não encontrado")
)
