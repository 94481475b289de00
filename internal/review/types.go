package review

import (
	"fmt"
	"unicode/utf8"
)

// Verdict is the outcome of one policy check.
type Verdict string

const (
	Unevaluated Verdict = "unevaluated"
	Pass        Verdict = "pass"
	Found       Verdict = "found"
)

// PolicyKind names one of the four independent checks.
type PolicyKind string

const (
	PolicyCopyright PolicyKind = "copyright"
	PolicyPlatform  PolicyKind = "platform"
	PolicyPersons   PolicyKind = "persons"
	PolicyMinors    PolicyKind = "minors"
)

// Policies lists the checks in display order.
var Policies = []PolicyKind{PolicyCopyright, PolicyPlatform, PolicyPersons, PolicyMinors}

// PolicyVerdict pairs a verdict with the model's explanation. The explanation
// is empty while the verdict is Unevaluated.
type PolicyVerdict struct {
	Verdict     Verdict `json:"verdict"`
	Explanation string  `json:"explanation,omitempty"`
}

// Verdicts holds all four outcomes. They are always set together.
type Verdicts struct {
	Copyright PolicyVerdict `json:"copyright"`
	Platform  PolicyVerdict `json:"platform"`
	Persons   PolicyVerdict `json:"persons"`
	Minors    PolicyVerdict `json:"minors"`
}

// UnevaluatedVerdicts is the state before (and after a failed) analysis.
func UnevaluatedVerdicts() Verdicts {
	u := PolicyVerdict{Verdict: Unevaluated}
	return Verdicts{Copyright: u, Platform: u, Persons: u, Minors: u}
}

// Get returns the verdict for kind.
func (v Verdicts) Get(kind PolicyKind) PolicyVerdict {
	switch kind {
	case PolicyCopyright:
		return v.Copyright
	case PolicyPlatform:
		return v.Platform
	case PolicyPersons:
		return v.Persons
	case PolicyMinors:
		return v.Minors
	default:
		return PolicyVerdict{Verdict: Unevaluated}
	}
}

// AllPass reports whether every check passed.
func (v Verdicts) AllPass() bool {
	for _, kind := range Policies {
		if v.Get(kind).Verdict != Pass {
			return false
		}
	}
	return true
}

// Violations lists the checks that found a problem.
func (v Verdicts) Violations() []PolicyKind {
	var out []PolicyKind
	for _, kind := range Policies {
		if v.Get(kind).Verdict == Found {
			out = append(out, kind)
		}
	}
	return out
}

// Metadata limits requested from the model.
const (
	MaxTitleLength       = 60
	MaxDescriptionLength = 170
	TagCount             = 8
	MaxTagLength         = 24
)

// ContentMetadata is the stock catalogue entry generated for a clean image.
type ContentMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Problems lists where the metadata departs from the requested limits.
// The metadata is still usable; callers show these as advisories.
func (m *ContentMetadata) Problems() []string {
	if m == nil {
		return nil
	}
	var out []string
	if n := utf8.RuneCountInString(m.Title); n > MaxTitleLength {
		out = append(out, fmt.Sprintf("title is %d characters (max %d)", n, MaxTitleLength))
	}
	if n := utf8.RuneCountInString(m.Description); n > MaxDescriptionLength {
		out = append(out, fmt.Sprintf("description is %d characters (max %d)", n, MaxDescriptionLength))
	}
	if len(m.Tags) != TagCount {
		out = append(out, fmt.Sprintf("%d tags (want %d)", len(m.Tags), TagCount))
	}
	for _, tag := range m.Tags {
		if !validTag(tag) {
			out = append(out, fmt.Sprintf("tag %q is not lowercase_underscore under %d characters", tag, MaxTagLength+1))
		}
	}
	return out
}

func validTag(tag string) bool {
	if tag == "" || utf8.RuneCountInString(tag) > MaxTagLength {
		return false
	}
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
