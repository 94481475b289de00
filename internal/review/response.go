package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ClassificationResponse is the exact JSON object the model must return.
type ClassificationResponse struct {
	Status                    string   `json:"status"`
	Explanation               string   `json:"explanation"`
	ZedgeViolationStatus      string   `json:"zedgeViolationStatus"`
	ZedgeViolationExplanation string   `json:"zedgeViolationExplanation"`
	WomenPolicyStatus         string   `json:"womenPolicyStatus"`
	WomenPolicyExplanation    string   `json:"womenPolicyExplanation"`
	KidsViolationStatus       string   `json:"kidsViolationStatus"`
	KidsViolationExplanation  string   `json:"kidsViolationExplanation"`
	Title                     *string  `json:"title,omitempty"`
	Description               *string  `json:"description,omitempty"`
	Tags                      []string `json:"tags,omitempty"`
}

// ParseClassification decodes payload strictly: unknown fields, trailing data
// and any status other than "pass" or "found" are errors.
func ParseClassification(payload []byte) (*ClassificationResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var resp ClassificationResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode classification: trailing data after object")
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"status", resp.Status},
		{"zedgeViolationStatus", resp.ZedgeViolationStatus},
		{"womenPolicyStatus", resp.WomenPolicyStatus},
		{"kidsViolationStatus", resp.KidsViolationStatus},
	} {
		if Verdict(field.value) != Pass && Verdict(field.value) != Found {
			return nil, fmt.Errorf("decode classification: %s must be \"pass\" or \"found\", got %q", field.name, field.value)
		}
	}
	return &resp, nil
}

// Outcome maps a parsed response onto the four verdicts and, only when all of
// them pass, the catalogue metadata. Missing tags become an empty list.
func Outcome(resp *ClassificationResponse) (Verdicts, *ContentMetadata) {
	if resp == nil {
		return UnevaluatedVerdicts(), nil
	}

	verdicts := Verdicts{
		Copyright: PolicyVerdict{Verdict: Verdict(resp.Status), Explanation: resp.Explanation},
		Platform:  PolicyVerdict{Verdict: Verdict(resp.ZedgeViolationStatus), Explanation: resp.ZedgeViolationExplanation},
		Persons:   PolicyVerdict{Verdict: Verdict(resp.WomenPolicyStatus), Explanation: resp.WomenPolicyExplanation},
		Minors:    PolicyVerdict{Verdict: Verdict(resp.KidsViolationStatus), Explanation: resp.KidsViolationExplanation},
	}
	if !verdicts.AllPass() {
		return verdicts, nil
	}

	meta := &ContentMetadata{Tags: []string{}}
	if resp.Title != nil {
		meta.Title = *resp.Title
	}
	if resp.Description != nil {
		meta.Description = *resp.Description
	}
	if resp.Tags != nil {
		meta.Tags = append(meta.Tags, resp.Tags...)
	}
	return verdicts, meta
}
