package guardrails

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogue-assistant/server/internal/agent/model"
)

func result(name string, tripwire bool, info map[string]any) model.GuardrailResult {
	if info == nil {
		info = map[string]any{}
	}
	info[InfoGuardrailName] = name
	return model.GuardrailResult{Name: name, TripwireTriggered: tripwire, Info: info}
}

func TestHasTripwire(t *testing.T) {
	assert.False(t, HasTripwire(nil))
	assert.False(t, HasTripwire([]model.GuardrailResult{}))
	assert.False(t, HasTripwire([]model.GuardrailResult{result("Jailbreak", false, nil)}))
	assert.True(t, HasTripwire([]model.GuardrailResult{
		result("Moderation", false, nil),
		result("Jailbreak", true, nil),
	}))
}

func TestHasTripwire_ExecutionFailureAloneDoesNotTrip(t *testing.T) {
	r := result("Jailbreak", false, map[string]any{InfoError: "boom"})
	r.ExecutionFailed = true
	assert.False(t, HasTripwire([]model.GuardrailResult{r}))
}

func TestSafeText(t *testing.T) {
	t.Run("checked text wins over earlier anonymized text", func(t *testing.T) {
		results := []model.GuardrailResult{
			{Info: map[string]any{InfoAnonymizedText: "A"}},
			{Info: map[string]any{InfoCheckedText: "B"}},
		}
		assert.Equal(t, "B", SafeText(results, "fallback"))
	})
	t.Run("first checked text wins", func(t *testing.T) {
		results := []model.GuardrailResult{
			{Info: map[string]any{InfoCheckedText: "first"}},
			{Info: map[string]any{InfoCheckedText: "second"}},
		}
		assert.Equal(t, "first", SafeText(results, "fallback"))
	})
	t.Run("empty checked text is used", func(t *testing.T) {
		results := []model.GuardrailResult{
			{Info: map[string]any{InfoAnonymizedText: "A"}},
			{Info: map[string]any{InfoCheckedText: ""}},
		}
		assert.Equal(t, "", SafeText(results, "fallback"))
	})
	t.Run("anonymized text when no checked text", func(t *testing.T) {
		results := []model.GuardrailResult{
			{Info: map[string]any{"other": 1}},
			{Info: map[string]any{InfoAnonymizedText: "A"}},
		}
		assert.Equal(t, "A", SafeText(results, "fallback"))
	})
	t.Run("fallback", func(t *testing.T) {
		assert.Equal(t, "fallback", SafeText(nil, "fallback"))
		assert.Equal(t, "fallback", SafeText([]model.GuardrailResult{}, "fallback"))
		assert.Equal(t, "fallback", SafeText([]model.GuardrailResult{{}}, "fallback"))
	})
}

func TestBuildFailureReport_JailbreakOnly(t *testing.T) {
	report := BuildFailureReport([]model.GuardrailResult{
		result(model.GuardrailJailbreak, true, map[string]any{"confidence": 0.93}),
	})

	assert.True(t, report.Jailbreak.Failed)
	assert.False(t, report.PII.Failed)
	assert.False(t, report.Moderation.Failed)
	assert.False(t, report.Hallucination.Failed)

	b, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"pii": {"failed": false},
		"moderation": {"failed": false},
		"jailbreak": {"failed": true},
		"hallucination": {"failed": false}
	}`, string(b))
}

func TestBuildFailureReport_PII(t *testing.T) {
	t.Run("non-empty entities fail even without tripwire", func(t *testing.T) {
		report := BuildFailureReport([]model.GuardrailResult{
			result(model.GuardrailPII, false, map[string]any{
				InfoDetectedEntities: map[string][]string{
					"PHONE_NUMBER":  {"555 1234"},
					"EMAIL_ADDRESS": {"a@b.io", "c@d.io"},
					"US_SSN":        {},
				},
			}),
		})
		assert.True(t, report.PII.Failed)
		assert.Equal(t, []string{"EMAIL_ADDRESS:2", "PHONE_NUMBER:1"}, report.PII.DetectedCounts)
	})
	t.Run("decoded json entities", func(t *testing.T) {
		var info map[string]any
		require.NoError(t, json.Unmarshal([]byte(`{"detected_entities":{"CREDIT_CARD":["4111"]}}`), &info))
		report := BuildFailureReport([]model.GuardrailResult{result(model.GuardrailPII, false, info)})
		assert.True(t, report.PII.Failed)
		assert.Equal(t, []string{"CREDIT_CARD:1"}, report.PII.DetectedCounts)
	})
	t.Run("tripwire without entities", func(t *testing.T) {
		report := BuildFailureReport([]model.GuardrailResult{result(model.GuardrailPII, true, nil)})
		assert.True(t, report.PII.Failed)
		assert.Nil(t, report.PII.DetectedCounts)
	})
}

func TestBuildFailureReport_Moderation(t *testing.T) {
	report := BuildFailureReport([]model.GuardrailResult{
		result(model.GuardrailModeration, false, map[string]any{
			InfoFlaggedCategories: []any{"hate"},
		}),
	})
	assert.True(t, report.Moderation.Failed)
	assert.Equal(t, []string{"hate"}, report.Moderation.FlaggedCategories)

	report = BuildFailureReport([]model.GuardrailResult{
		result(model.GuardrailModeration, true, map[string]any{InfoFlaggedCategories: []string{}}),
	})
	assert.True(t, report.Moderation.Failed)
	assert.Nil(t, report.Moderation.FlaggedCategories)
}

func TestBuildFailureReport_Hallucination(t *testing.T) {
	report := BuildFailureReport([]model.GuardrailResult{
		result(model.GuardrailHallucination, true, map[string]any{
			InfoReasoning:              "claims a grade not in the catalogue",
			InfoHallucinationType:      "unsupported_claim",
			InfoHallucinatedStatements: []string{"SS 999 is available"},
		}),
	})

	b, err := json.Marshal(report.Hallucination)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"failed": true,
		"reasoning": "claims a grade not in the catalogue",
		"hallucination_type": "unsupported_claim",
		"hallucinated_statements": ["SS 999 is available"]
	}`, string(b))
}

func TestBuildFailureReport_ErrorIsSeparateFromFailed(t *testing.T) {
	jb := result(model.GuardrailJailbreak, false, map[string]any{InfoError: "model unavailable"})
	jb.ExecutionFailed = true
	mod := result(model.GuardrailModeration, true, map[string]any{InfoError: "ignored without execution failure"})

	report := BuildFailureReport([]model.GuardrailResult{jb, mod})

	assert.False(t, report.Jailbreak.Failed)
	require.NotNil(t, report.Jailbreak.Error)
	assert.Equal(t, "model unavailable", *report.Jailbreak.Error)
	assert.True(t, report.Moderation.Failed)
	assert.Nil(t, report.Moderation.Error)
}

func TestBuildFailureReport_NeverEmitsAbsentFields(t *testing.T) {
	report := BuildFailureReport([]model.GuardrailResult{
		result(model.GuardrailPII, true, nil),
		result(model.GuardrailModeration, false, nil),
		result(model.GuardrailJailbreak, false, nil),
		result(model.GuardrailHallucination, false, map[string]any{InfoReasoning: ""}),
	})

	b, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	for category, fields := range decoded {
		assert.Equal(t, []string{"failed"}, keys(fields), "category %s", category)
	}
}

func TestBuildFailureReport_CategoryMatchIsExact(t *testing.T) {
	report := BuildFailureReport([]model.GuardrailResult{
		{Name: "x", TripwireTriggered: true, Info: map[string]any{InfoGuardrailName: "jailbreak"}},
		{Name: model.GuardrailModeration, TripwireTriggered: true},
	})
	assert.False(t, report.Jailbreak.Failed)
	assert.True(t, report.Moderation.Failed)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
