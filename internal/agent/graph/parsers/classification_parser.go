package parsers

import (
	"fmt"
	"strings"

	"github.com/catalogue-assistant/server/internal/agent/model"
)

// ParseClassification decodes a classifier completion into a ClassifierOutput.
// The label must be one of labels; an exact match is preferred, otherwise a
// case-insensitive match is accepted and normalised to the declared spelling.
func ParseClassification(content string, labels model.LabelSet) (*model.ClassifierOutput, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty classifier output")
	}

	var out model.ClassifierOutput
	if err := DecodeJSONObject(content, &out); err != nil {
		return nil, err
	}

	got := model.Label(strings.TrimSpace(string(out.Classification)))
	if got == "" {
		return nil, fmt.Errorf("classifier output has no classification")
	}
	if labels.Contains(got) {
		return &model.ClassifierOutput{Classification: got}, nil
	}
	for _, l := range labels {
		if strings.EqualFold(string(l), string(got)) {
			return &model.ClassifierOutput{Classification: l}, nil
		}
	}
	return nil, fmt.Errorf("classification %q is not one of %v", safeSnippet(string(got)), labels.Strings())
}
