package guardrails

import (
	"fmt"
	"sort"

	"github.com/catalogue-assistant/server/internal/agent/model"
)

// Info keys read from guardrail results.
const (
	InfoGuardrailName          = "guardrail_name"
	InfoCheckedText            = "checked_text"
	InfoAnonymizedText         = "anonymized_text"
	InfoDetectedEntities       = "detected_entities"
	InfoFlaggedCategories      = "flagged_categories"
	InfoReasoning              = "reasoning"
	InfoHallucinationType      = "hallucination_type"
	InfoHallucinatedStatements = "hallucinated_statements"
	InfoVerifiedStatements     = "verified_statements"
	InfoError                  = "error"
)

// HasTripwire reports whether any result tripped its tripwire.
func HasTripwire(results []model.GuardrailResult) bool {
	for _, r := range results {
		if r.TripwireTriggered {
			return true
		}
	}
	return false
}

// SafeText picks the text downstream stages may treat as sanitized. The
// first checked_text wins over any anonymized_text, regardless of which
// result came first; fallback is used when neither is present.
func SafeText(results []model.GuardrailResult, fallback string) string {
	for _, r := range results {
		if v, ok := r.Info[InfoCheckedText]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			return fallback
		}
	}
	for _, r := range results {
		if v, ok := r.Info[InfoAnonymizedText]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			return fallback
		}
	}
	return fallback
}

// BuildFailureReport aggregates results into the per-category report
// returned to the caller when the gate blocks an input.
func BuildFailureReport(results []model.GuardrailResult) model.GuardrailReport {
	pii := find(results, model.GuardrailPII)
	mod := find(results, model.GuardrailModeration)
	jb := find(results, model.GuardrailJailbreak)
	hal := find(results, model.GuardrailHallucination)

	var report model.GuardrailReport

	if pii != nil {
		counts := detectedCounts(pii.Info[InfoDetectedEntities])
		report.PII.Failed = len(counts) > 0 || pii.TripwireTriggered
		report.PII.DetectedCounts = counts
		report.PII.Error = executionError(pii)
	}

	if mod != nil {
		flagged, _ := stringList(mod.Info[InfoFlaggedCategories])
		report.Moderation.Failed = mod.TripwireTriggered || len(flagged) > 0
		report.Moderation.FlaggedCategories = nonEmpty(flagged)
		report.Moderation.Error = executionError(mod)
	}

	if jb != nil {
		report.Jailbreak.Failed = jb.TripwireTriggered
		report.Jailbreak.Error = executionError(jb)
	}

	if hal != nil {
		report.Hallucination.Failed = hal.TripwireTriggered
		report.Hallucination.Reasoning = optionalString(hal.Info[InfoReasoning])
		report.Hallucination.HallucinationType = optionalString(hal.Info[InfoHallucinationType])
		stmts, _ := stringList(hal.Info[InfoHallucinatedStatements])
		report.Hallucination.HallucinatedStatements = nonEmpty(stmts)
		verified, _ := stringList(hal.Info[InfoVerifiedStatements])
		report.Hallucination.VerifiedStatements = nonEmpty(verified)
		report.Hallucination.Error = executionError(hal)
	}

	return report
}

// CategoryOf returns the declared category name of a result. The name
// recorded in info wins over the result's own name.
func CategoryOf(r model.GuardrailResult) string {
	for _, key := range []string{InfoGuardrailName, "guardrailName"} {
		if s, ok := r.Info[key].(string); ok {
			return s
		}
	}
	return r.Name
}

func find(results []model.GuardrailResult, category string) *model.GuardrailResult {
	for i := range results {
		if CategoryOf(results[i]) == category {
			return &results[i]
		}
	}
	return nil
}

// detectedCounts renders "TYPE:n" for every non-empty entity list, sorted by
// entity type.
func detectedCounts(v any) []string {
	var counts []string
	add := func(k string, n int) {
		if n > 0 {
			counts = append(counts, fmt.Sprintf("%s:%d", k, n))
		}
	}
	switch m := v.(type) {
	case map[string][]string:
		for k, list := range m {
			add(k, len(list))
		}
	case map[string]any:
		for k, raw := range m {
			if list, ok := stringList(raw); ok {
				add(k, len(list))
			} else if anyList, ok := raw.([]any); ok {
				add(k, len(anyList))
			}
		}
	}
	sort.Strings(counts)
	return counts
}

func executionError(r *model.GuardrailResult) *string {
	if !r.ExecutionFailed {
		return nil
	}
	return optionalString(r.Info[InfoError])
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// stringList accepts both typed string slices and decoded JSON arrays.
func stringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, it := range list {
			s, ok := it.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func nonEmpty(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	return list
}
