package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/audio"
	"github.com/stocklens/stocklens/internal/metrics"
)

const (
	// DeliveryPrefix is prepended to every text sent for synthesis.
	DeliveryPrefix = "say cheerfully: "
	// DefaultVoice is the preset voice used when none is configured.
	DefaultVoice = "Kore"
)

var (
	// ErrMissingCredential is returned when no API key is configured for speech.
	ErrMissingCredential = ailink.ErrMissingCredential
	// ErrSynthesisFailed wraps remote failures and unusable audio payloads.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// Synthesizer produces audio for text.
type Synthesizer interface {
	Synthesize(ctx context.Context, req ailink.SpeechRequest) (*driver.SpeechResponse, error)
	CredentialConfigured(role string) bool
}

// Orchestrator turns text into one playback at a time.
type Orchestrator struct {
	Synth  Synthesizer
	Player Player
	Voice  string
	Model  string
	Logger *logging.Logger

	inFlight atomic.Bool
}

// Playback describes a started playback.
type Playback struct {
	Text       string        `json:"text"`
	Location   string        `json:"location,omitempty"`
	SampleRate int           `json:"sample_rate"`
	Samples    int           `json:"samples"`
	Duration   time.Duration `json:"duration"`

	done chan struct{}
	err  error
}

// Done is closed when playback has ended and its resource was released.
func (p *Playback) Done() <-chan struct{} { return p.done }

// Wait blocks until playback ends and returns its result.
func (p *Playback) Wait() error {
	<-p.done
	return p.err
}

// InFlight reports whether a playback is in progress.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Speak synthesizes text and starts playing it.
//
// It returns (nil, nil) without doing anything when text is blank or another
// playback is in flight. Every error path clears the in-flight flag, including
// a player that fails to start.
func (o *Orchestrator) Speak(ctx context.Context, text string) (*Playback, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		metrics.RecordSpeech("skipped", 0)
		return nil, nil
	}

	start := time.Now()
	playback, err := o.start(ctx, text)
	if err != nil {
		o.inFlight.Store(false)
		metrics.RecordSpeech("failure", time.Since(start))
		o.warn("Speech failed", err)
		return nil, err
	}
	return playback, nil
}

func (o *Orchestrator) start(ctx context.Context, text string) (*Playback, error) {
	if o.Synth == nil || o.Player == nil {
		return nil, errors.New("speech is not configured")
	}
	if !o.Synth.CredentialConfigured(ailink.RoleSpeech) {
		return nil, ErrMissingCredential
	}

	voice := strings.TrimSpace(o.Voice)
	if voice == "" {
		voice = DefaultVoice
	}
	resp, err := o.Synth.Synthesize(ctx, ailink.SpeechRequest{
		Role:  ailink.RoleSpeech,
		Model: o.Model,
		Voice: voice,
		Text:  DeliveryPrefix + text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	if resp == nil || len(resp.Audio.Data) == 0 {
		return nil, fmt.Errorf("%w: response has no audio", ErrSynthesisFailed)
	}
	if !resp.Audio.Type.IsAudio() {
		return nil, fmt.Errorf("%w: media type %q is not audio", ErrSynthesisFailed, resp.Audio.Type)
	}
	rate, err := audio.ParseSampleRate(string(resp.Audio.Type))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	samples := audio.SamplesFromPCM(resp.Audio.Data)
	clip := Clip{WAV: audio.BuildWAV(samples, rate), SampleRate: rate, Samples: len(samples)}

	// Playback outlives the request that triggered it.
	stream, err := o.Player.Start(context.WithoutCancel(ctx), clip)
	if err != nil {
		return nil, fmt.Errorf("playback failed to start: %w", err)
	}

	playback := &Playback{
		Text:       text,
		Location:   stream.Location(),
		SampleRate: rate,
		Samples:    len(samples),
		Duration:   clip.Duration(),
		done:       make(chan struct{}),
	}
	go o.finish(playback, stream, time.Now())

	if o.Logger != nil {
		o.Logger.Debug("Playback started",
			zap.String("location", playback.Location),
			zap.Int("sample_rate", rate),
			zap.Duration("duration", playback.Duration))
	}
	return playback, nil
}

func (o *Orchestrator) finish(p *Playback, stream Stream, started time.Time) {
	p.err = stream.Wait()
	if err := stream.Release(); err != nil && p.err == nil {
		p.err = fmt.Errorf("release playback: %w", err)
	}
	o.inFlight.Store(false)

	status := "played"
	if p.err != nil {
		status = "failure"
		o.warn("Playback ended with error", p.err)
	}
	metrics.RecordSpeech(status, time.Since(started))
	close(p.done)
}

func (o *Orchestrator) warn(msg string, err error) {
	if o.Logger == nil {
		return
	}
	o.Logger.Warn(msg, zap.Error(err))
}
