package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/imaging"
	"github.com/stocklens/stocklens/internal/review"
	"github.com/stocklens/stocklens/internal/speech"
)

var (
	// ErrNoImage is returned by Analyze when no image is selected.
	ErrNoImage = review.ErrNoImage
	// ErrBusy is returned by Analyze while a previous analysis is loading.
	ErrBusy = errors.New("analysis already in progress")
	// ErrImageChanged is returned by Analyze when the image was replaced or
	// cleared while the request was in flight. The result is discarded.
	ErrImageChanged = errors.New("image changed during analysis")
)

// Analyzer classifies an image.
type Analyzer interface {
	Analyze(ctx context.Context, asset *imaging.Asset) (*review.Result, error)
}

// Speaker plays text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) (*speech.Playback, error)
}

// Session holds one user's state and serialises its updates.
type Session struct {
	ID string

	analyzer Analyzer
	speaker  Speaker
	logger   *logging.Logger

	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

// New returns a session in the initial state.
func New(id string, analyzer Analyzer, speaker Speaker, logger *logging.Logger) *Session {
	return &Session{
		ID:       id,
		analyzer: analyzer,
		speaker:  speaker,
		logger:   logger,
		state:    Initial(),
		lastSeen: time.Now(),
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Session) dispatch(action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	s.lastSeen = time.Now()
	return s.state.clone()
}

// Select makes asset the current image.
func (s *Session) Select(asset *imaging.Asset) State {
	s.mu.Lock()
	prev := s.state.Image
	s.mu.Unlock()

	if s.logger != nil && prev != nil && asset != nil && prev.Fingerprint != "" && asset.Fingerprint != "" {
		if d, err := imaging.Distance(prev.Fingerprint, asset.Fingerprint); err == nil && d == 0 {
			s.logger.Debug("Selected image matches previous selection",
				zap.String("session_id", s.ID),
				zap.String("fingerprint", asset.Fingerprint))
		}
	}
	return s.dispatch(ImageSelected{Asset: asset})
}

// Clear removes the current image.
func (s *Session) Clear() State {
	return s.dispatch(ImageCleared{})
}

// Analyze runs one analysis of the selected image. Only one analysis runs at a
// time; a second call while loading returns ErrBusy without contacting the
// remote service.
func (s *Session) Analyze(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state.Image == nil {
		s.mu.Unlock()
		return s.Snapshot(), ErrNoImage
	}
	if s.state.Loading {
		s.mu.Unlock()
		return s.Snapshot(), ErrBusy
	}
	s.state = Reduce(s.state, AnalysisStarted{})
	asset := s.state.Image
	s.mu.Unlock()

	result, err := s.analyzer.Analyze(ctx, asset)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	if s.state.Image != asset {
		s.state = Reduce(s.state, AnalysisDiscarded{})
		if s.logger != nil {
			s.logger.Debug("Discarding analysis of replaced image",
				zap.String("session_id", s.ID),
				zap.String("image", asset.Name))
		}
		return s.state.clone(), ErrImageChanged
	}
	if err != nil {
		s.state = Reduce(s.state, AnalysisFailed{Err: err})
		return s.state.clone(), err
	}
	s.state = Reduce(s.state, AnalysisSucceeded{Result: result})
	return s.state.clone(), nil
}

// Speak reads text aloud. A nil playback with a nil error means the request
// was ignored (blank text or playback already in flight).
func (s *Session) Speak(ctx context.Context, text string) (*speech.Playback, error) {
	if s.speaker == nil {
		return nil, errors.New("speech is not configured")
	}
	playback, err := s.speaker.Speak(ctx, text)
	if err != nil {
		s.dispatch(SpeechFailed{Err: err})
		return nil, err
	}
	if playback == nil {
		return nil, nil
	}

	s.dispatch(SpeechStarted{})
	go func() {
		<-playback.Done()
		s.dispatch(SpeechFinished{})
	}()
	return playback, nil
}

// LastSeen reports when the session was last updated.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}
