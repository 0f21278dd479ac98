package model

import "slices"

// Label is one value of the classifier's closed enumeration.
type Label string

// LabelSet is the ordered, closed set of labels a classifier may emit.
type LabelSet []Label

// Contains reports whether l is part of the set.
func (s LabelSet) Contains(l Label) bool {
	return slices.Contains(s, l)
}

// Strings returns the labels as plain strings, in order.
func (s LabelSet) Strings() []string {
	out := make([]string, len(s))
	for i, l := range s {
		out[i] = string(l)
	}
	return out
}

// ClassifierOutput is the structured output the classifier must produce.
type ClassifierOutput struct {
	Classification Label `json:"classification"`
}

// ClassificationResult carries the raw classifier text and its parsed label.
type ClassificationResult struct {
	RawText string           `json:"output_text"`
	Parsed  ClassifierOutput `json:"output_parsed"`
}

// Label returns the selected label.
func (c *ClassificationResult) Label() Label {
	if c == nil {
		return ""
	}
	return c.Parsed.Classification
}
