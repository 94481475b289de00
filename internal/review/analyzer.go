package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/imaging"
	"github.com/stocklens/stocklens/internal/metrics"
)

var (
	// ErrNoImage is returned when analysis is requested without a selected image.
	ErrNoImage = errors.New("no image selected")
	// ErrAnalysisFailed wraps every failure of the remote exchange or its parsing.
	ErrAnalysisFailed = errors.New("analysis failed")
)

// Classifier performs the remote classification exchange.
type Classifier interface {
	Classify(ctx context.Context, req ailink.ClassifyRequest) (*ailink.ClassifyResponse, error)
}

// Result is the outcome of one successful analysis.
type Result struct {
	Verdicts      Verdicts         `json:"verdicts"`
	Metadata      *ContentMetadata `json:"metadata,omitempty"`
	Advisories    []string         `json:"advisories,omitempty"`
	Model         string           `json:"model,omitempty"`
	PromptVersion string           `json:"prompt_version,omitempty"`
}

// Analyzer drives one classification exchange per call.
type Analyzer struct {
	Classifier Classifier
	PromptSlug string
	Model      string
	Logger     *logging.Logger
}

// Analyze classifies asset. Failures after the pre-flight check are wrapped in
// ErrAnalysisFailed with the cause attached.
func (a *Analyzer) Analyze(ctx context.Context, asset *imaging.Asset) (*Result, error) {
	if asset == nil || len(asset.Data) == 0 {
		return nil, ErrNoImage
	}
	if a == nil || a.Classifier == nil {
		return nil, fmt.Errorf("%w: classifier not configured", ErrAnalysisFailed)
	}

	start := time.Now()
	resp, err := a.Classifier.Classify(ctx, ailink.ClassifyRequest{
		Role:       ailink.RoleReview,
		PromptSlug: a.PromptSlug,
		Model:      a.Model,
		FileName:   asset.Name,
		Image:      content.ContentBlock{Type: content.ContentType(asset.MIMEType), Data: asset.Data},
	})
	if err != nil {
		return nil, a.fail(asset, start, err)
	}

	parsed, err := ParseClassification(resp.Payload)
	if err != nil {
		return nil, a.fail(asset, start, err)
	}

	verdicts, meta := Outcome(parsed)
	result := &Result{
		Verdicts:      verdicts,
		Metadata:      meta,
		Model:         resp.Model,
		PromptVersion: resp.PromptVersion,
	}
	result.Advisories = append(result.Advisories, meta.Problems()...)
	if agency := asset.Rights.StockAgency(); agency != "" {
		result.Advisories = append(result.Advisories, fmt.Sprintf("embedded metadata names stock agency %q", agency))
	} else if asset.Rights.Claimed() {
		result.Advisories = append(result.Advisories, "embedded metadata asserts a copyright owner")
	}

	status := "success"
	if !verdicts.AllPass() {
		status = "violation"
	}
	metrics.RecordAnalysis(status, time.Since(start))
	for _, kind := range Policies {
		metrics.RecordVerdict(string(kind), string(verdicts.Get(kind).Verdict))
	}
	if a.Logger != nil {
		violations := make([]string, 0, 4)
		for _, kind := range verdicts.Violations() {
			violations = append(violations, string(kind))
		}
		a.Logger.Info("Image analyzed",
			zap.String("image", asset.Name),
			zap.String("fingerprint", asset.Fingerprint),
			zap.String("model", resp.Model),
			zap.Bool("all_pass", verdicts.AllPass()),
			zap.String("violations", strings.Join(violations, ",")),
			zap.Duration("duration", time.Since(start)))
	}
	return result, nil
}

func (a *Analyzer) fail(asset *imaging.Asset, start time.Time, cause error) error {
	metrics.RecordAnalysis("failure", time.Since(start))
	if a.Logger != nil {
		fields := []zap.Field{
			zap.String("image", asset.Name),
			zap.Error(cause),
		}
		if f := ailink.MapError(cause); f != nil {
			fields = append(fields, zap.String("code", f.Code))
		}
		a.Logger.Warn("Image analysis failed", fields...)
	}
	return fmt.Errorf("%w: %w", ErrAnalysisFailed, cause)
}
