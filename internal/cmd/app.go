package cmd

import (
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/viper"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/ailink/prompt"
	"github.com/stocklens/stocklens/internal/config"
	"github.com/stocklens/stocklens/internal/review"
	"github.com/stocklens/stocklens/internal/speech"
)

// services bundles the collaborators shared by analyze, speak and serve.
type services struct {
	cfg     *config.Config
	prompts prompt.Registry
	ai      *ailink.Service
}

func currentConfig() (*config.Config, error) {
	if cfg := config.GetConfig(); cfg != nil {
		return cfg, nil
	}
	return config.Load(viper.GetViper(), config.Options{ConfigFile: cfgFile, Identity: appIdentity})
}

func newServices(cfg *config.Config) (*services, error) {
	prompts, err := prompt.RegistryWithOverrides(cfg.AILink.PromptsDir)
	if err != nil {
		return nil, err
	}
	return &services{
		cfg:     cfg,
		prompts: prompts,
		ai:      &ailink.Service{Providers: ailink.NewRegistry(cfg.AILink), Prompts: prompts},
	}, nil
}

func (s *services) analyzer(promptSlug, model string, logger *logging.Logger) *review.Analyzer {
	if promptSlug == "" {
		promptSlug = prompt.DefaultSlug
	}
	return &review.Analyzer{Classifier: s.ai, PromptSlug: promptSlug, Model: model, Logger: logger}
}

func (s *services) orchestrator(player speech.Player, voice string, logger *logging.Logger) *speech.Orchestrator {
	if voice == "" {
		voice = s.cfg.Speech.Voice
	}
	return &speech.Orchestrator{
		Synth:  s.ai,
		Player: player,
		Voice:  voice,
		Model:  s.cfg.Speech.Model,
		Logger: logger,
	}
}
