package session

import (
	"github.com/stocklens/stocklens/internal/imaging"
	"github.com/stocklens/stocklens/internal/review"
)

// State is everything a user sees for one session. Values returned to callers
// are copies; the session owns the original.
type State struct {
	Image      *imaging.Asset          `json:"image,omitempty"`
	Loading    bool                    `json:"loading"`
	Verdicts   review.Verdicts         `json:"verdicts"`
	Metadata   *review.ContentMetadata `json:"metadata,omitempty"`
	Advisories []string                `json:"advisories,omitempty"`
	Speaking   bool                    `json:"speaking"`
	Error      string                  `json:"error,omitempty"`
}

// Initial returns the state of a fresh session.
func Initial() State {
	return State{Verdicts: review.UnevaluatedVerdicts()}
}

// Action is an input to Reduce.
type Action interface {
	apply(State) State
}

// ImageSelected replaces the current image and clears previous results.
type ImageSelected struct{ Asset *imaging.Asset }

// ImageCleared removes the current image and its results.
type ImageCleared struct{}

// AnalysisStarted resets verdicts and metadata before a request is sent.
type AnalysisStarted struct{}

// AnalysisSucceeded records a completed analysis.
type AnalysisSucceeded struct{ Result *review.Result }

// AnalysisFailed records a failed analysis. Verdicts stay unevaluated.
type AnalysisFailed struct{ Err error }

// AnalysisDiscarded ends a load whose image was replaced or cleared before
// the result arrived. Only the loading flag changes.
type AnalysisDiscarded struct{}

// SpeechStarted marks a playback in flight.
type SpeechStarted struct{}

// SpeechFinished marks a playback as ended.
type SpeechFinished struct{}

// SpeechFailed records a speech error and clears the speaking flag.
type SpeechFailed struct{ Err error }

// Reduce returns the state that follows s after action.
func Reduce(s State, action Action) State {
	if action == nil {
		return s
	}
	return action.apply(s)
}

func (a ImageSelected) apply(s State) State {
	s.Image = a.Asset
	s.Verdicts = review.UnevaluatedVerdicts()
	s.Metadata = nil
	s.Advisories = nil
	s.Error = ""
	return s
}

func (ImageCleared) apply(s State) State {
	s.Image = nil
	s.Verdicts = review.UnevaluatedVerdicts()
	s.Metadata = nil
	s.Advisories = nil
	s.Error = ""
	return s
}

func (AnalysisStarted) apply(s State) State {
	s.Loading = true
	s.Verdicts = review.UnevaluatedVerdicts()
	s.Metadata = nil
	s.Advisories = nil
	s.Error = ""
	return s
}

func (a AnalysisSucceeded) apply(s State) State {
	s.Loading = false
	if a.Result == nil {
		return s
	}
	s.Verdicts = a.Result.Verdicts
	s.Metadata = a.Result.Metadata
	s.Advisories = append([]string(nil), a.Result.Advisories...)
	return s
}

func (a AnalysisFailed) apply(s State) State {
	s.Loading = false
	s.Verdicts = review.UnevaluatedVerdicts()
	s.Metadata = nil
	if a.Err != nil {
		s.Error = a.Err.Error()
	}
	return s
}

func (AnalysisDiscarded) apply(s State) State {
	s.Loading = false
	return s
}

func (SpeechStarted) apply(s State) State {
	s.Speaking = true
	return s
}

func (SpeechFinished) apply(s State) State {
	s.Speaking = false
	return s
}

func (a SpeechFailed) apply(s State) State {
	s.Speaking = false
	if a.Err != nil {
		s.Error = a.Err.Error()
	}
	return s
}

// clone copies the slices and pointers a caller could mutate.
func (s State) clone() State {
	if s.Metadata != nil {
		m := *s.Metadata
		m.Tags = append([]string{}, s.Metadata.Tags...)
		s.Metadata = &m
	}
	if s.Image != nil {
		img := *s.Image
		s.Image = &img
	}
	s.Advisories = append([]string(nil), s.Advisories...)
	return s
}
