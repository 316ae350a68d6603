package app

import (
	"fmt"

	"ainurse/pkg/domain"
)

// buildTriagePrompt assembles the instruction sent to the model. The output
// is deterministic for a given patient and submission, and it demands a bare
// JSON object because some models wrap replies in markdown fences anyway.
func buildTriagePrompt(patient domain.Patient, age, symptoms, exams string) string {
	return fmt.Sprintf(`Atue como um médico especialista sênior. Realize a triagem:
Paciente: %s, %s anos, Sexo: %s.
Histórico Base (Condições Preexistentes): %s
Sintomas Atuais da Consulta: %s
Exames Informados: %s

Retorne ESTRITAMENTE um JSON com as chaves: referral, urgency (Alta/Média/Baixa), justification, diagnoses (lista com name e probability), exams (lista de strings), medications (lista de strings).
Não envolva a resposta em cercas de markdown nem adicione texto fora do JSON.`,
		patient.FullName, age, patient.Gender, patient.MedicalHistory, symptoms, exams)
}
