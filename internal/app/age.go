package app

import (
	"strconv"
	"strings"
	"time"
)

const birthDateLayout = "2006-01-02"

// unknownAgeLabel is embedded into the prompt when the birth date cannot be
// parsed; a bad date degrades the prompt but never fails the submission.
const unknownAgeLabel = "não identificada"

// ageInYears computes age in whole years at the given reference time,
// decrementing by one when the birthday has not yet been reached this year.
func ageInYears(birthDate string, now time.Time) (int, bool) {
	born, err := time.Parse(birthDateLayout, strings.TrimSpace(birthDate))
	if err != nil {
		return 0, false
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, true
}

// ageLabel renders the age for the prompt, falling back to the unknown label.
func ageLabel(birthDate string, now time.Time) string {
	age, ok := ageInYears(birthDate, now)
	if !ok {
		return unknownAgeLabel
	}
	return strconv.Itoa(age)
}
