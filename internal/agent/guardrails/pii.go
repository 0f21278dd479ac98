package guardrails

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/catalogue-assistant/server/internal/agent/model"
)

// PII entity types detected locally.
const (
	EntityEmail      = "EMAIL_ADDRESS"
	EntityPhone      = "PHONE_NUMBER"
	EntityCreditCard = "CREDIT_CARD"
	EntityIPAddress  = "IP_ADDRESS"
	EntitySSN        = "US_SSN"
)

type piiDetector struct {
	entity string
	re     *regexp.Regexp
	valid  func(string) bool
}

// Order matters: card numbers are masked before phone numbers so a card is
// never reported as a phone.
var piiDetectors = []piiDetector{
	{entity: EntityEmail, re: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{entity: EntityCreditCard, re: regexp.MustCompile(`\b(?:\d[ \-]?){12,18}\d\b`), valid: luhnValid},
	{entity: EntitySSN, re: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{entity: EntityIPAddress, re: regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`)},
	{entity: EntityPhone, re: regexp.MustCompile(`(?:\+\d{1,3}[ \-]?)?(?:\(\d{2,4}\)[ \-]?)?\d{3,4}[ \-]\d{3,4}(?:[ \-]\d{2,4})?`)},
}

type piiCheck struct{}

func (piiCheck) Name() string { return model.GuardrailPII }

// Run detects PII entities and masks them with <ENTITY> placeholders. The
// tripwire fires only when the check is configured to block.
func (piiCheck) Run(_ context.Context, text string, settings CheckSettings, _ SharedContext) (Outcome, error) {
	detected, anonymized := DetectPII(text, settings.Entities)
	info := map[string]any{
		InfoDetectedEntities: detected,
		InfoAnonymizedText:   anonymized,
		InfoCheckedText:      anonymized,
	}
	return Outcome{Tripwire: settings.Block && len(detected) > 0, Info: info}, nil
}

// DetectPII returns the matches per entity type and text with every match
// replaced. An empty entities list enables all detectors.
func DetectPII(text string, entities []string) (map[string][]string, string) {
	detected := map[string][]string{}
	out := text
	for _, d := range piiDetectors {
		if len(entities) > 0 && !slices.Contains(entities, d.entity) {
			continue
		}
		placeholder := "<" + d.entity + ">"
		out = d.re.ReplaceAllStringFunc(out, func(m string) string {
			if d.valid != nil && !d.valid(m) {
				return m
			}
			detected[d.entity] = append(detected[d.entity], strings.TrimSpace(m))
			return placeholder
		})
	}
	return detected, out
}

func luhnValid(s string) bool {
	sum := 0
	double := false
	digits := 0
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		n := int(c - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
		digits++
	}
	return digits >= 13 && sum%10 == 0
}
