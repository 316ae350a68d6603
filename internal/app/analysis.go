package app

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ainurse/internal/util"
	"ainurse/pkg/domain"
)

// Models sometimes fence the reply despite the prompt forbidding it. Markers
// are removed wherever they appear, not only at the edges.
var fenceMarkers = regexp.MustCompile("```json|```")

// normalizeAnalysis parses raw model output into an Analysis document.
// A missing diagnoses key becomes an empty list; the remaining keys are
// trusted as the prompt mandates them. Parse failures are reported so the
// caller can substitute the fallback document.
func normalizeAnalysis(raw string) (domain.Analysis, error) {
	cleaned := strings.TrimSpace(fenceMarkers.ReplaceAllString(raw, ""))
	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return domain.Analysis{}, fmt.Errorf("parse analysis: %w", err)
	}
	if analysis.Diagnoses == nil {
		analysis.Diagnoses = []domain.Diagnosis{}
	}
	return analysis, nil
}

// fallbackAnalysis is the fixed document persisted when the model cannot be
// reached or its reply cannot be parsed. Downstream code and the client see
// the same shape either way.
func fallbackAnalysis() domain.Analysis {
	return domain.Analysis{
		Referral:      "Clínico Geral",
		Urgency:       domain.UrgencyIndefinida,
		Justification: "Erro no processamento da IA. Avaliação manual necessária.",
		Diagnoses:     []domain.Diagnosis{},
		Exams:         []string{},
		Medications:   []string{},
	}
}

// analyze runs the single blocking generation call and normalizes the reply.
// Network errors, timeouts, and malformed replies all collapse into the
// fallback document; the degraded flag is logged, never surfaced to callers.
func (a *App) analyze(ctx context.Context, prompt string) (domain.Analysis, bool) {
	raw, err := a.generator.Generate(ctx, prompt)
	if err == nil {
		analysis, perr := normalizeAnalysis(raw)
		if perr == nil {
			return analysis, false
		}
		err = perr
	}
	util.LoggerFromContext(ctx).Warn("ai_unavailable", "err", err)
	return fallbackAnalysis(), true
}
