package cmd

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/ailink/prompt"
	"github.com/stocklens/stocklens/internal/config"
	errwrap "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/speech"
)

const doctorChecks = 6

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check configuration, credentials, prompts and audio playback, and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		log.Info("=== " + appIdentity.BinaryName + " doctor ===")
		log.Info("")

		ok := true
		step := func(n int, name string) string { return fmt.Sprintf("[%d/%d] Checking %s...", n, doctorChecks, name) }

		goVersion := runtime.Version()
		log.Info(fmt.Sprintf("%s ✅ %s (%s/%s)", step(1, "Go runtime"), goVersion, runtime.GOOS, runtime.GOARCH),
			zap.String("go_version", goVersion))

		version := crucible.GetVersion()
		if version.Gofulmen != "" {
			log.Info(fmt.Sprintf("%s ✅ gofulmen %s, crucible %s", step(2, "Gofulmen"), version.Gofulmen, version.Crucible))
		} else {
			log.Warn(step(2, "Gofulmen") + " ⚠️  version unavailable")
			ok = false
		}

		if path := config.DefaultConfigPath(appIdentity); path != "" {
			log.Info(fmt.Sprintf("%s ✅ %s", step(3, "config directory"), filepath.Dir(path)), zap.String("config_path", path))
		} else {
			log.Warn(step(3, "config directory") + " ⚠️  cannot resolve XDG config directory")
		}

		cfg, err := currentConfig()
		if err != nil {
			log.Error(step(4, "configuration")+" ❌ invalid", zap.Error(err))
			ExitWithCode(log, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid"))
			return
		}
		svc, err := newServices(cfg)
		if err != nil {
			log.Error(step(4, "prompts")+" ❌ cannot load", zap.Error(err))
			ok = false
		} else if p, err := svc.prompts.Get(prompt.DefaultSlug); err != nil {
			log.Error(step(4, "prompts")+" ❌ "+prompt.DefaultSlug+" missing", zap.Error(err))
			ok = false
		} else {
			log.Info(fmt.Sprintf("%s ✅ %s v%s (%s)", step(4, "prompts"), p.Config.Slug, p.Config.Version, p.Source))
		}

		if svc != nil && svc.ai.CredentialConfigured(ailink.RoleReview) {
			log.Info(step(5, "API credential") + " ✅ configured")
		} else {
			log.Warn(fmt.Sprintf("%s ⚠️  not configured (set %s)", step(5, "API credential"), strings.Join(config.APIKeyEnvVars, " or ")))
			ok = false
		}

		player := cfg.Speech.Player
		if player == "" {
			player = speech.DefaultCommand()
		}
		fields := strings.Fields(player)
		if len(fields) == 0 {
			log.Warn(step(6, "audio player") + " ⚠️  none known for " + runtime.GOOS + " (use speak --out)")
		} else if resolved, err := exec.LookPath(fields[0]); err != nil {
			log.Warn(fmt.Sprintf("%s ⚠️  %s not found on PATH (use speak --out or set speech.player)", step(6, "audio player"), fields[0]))
		} else {
			log.Info(fmt.Sprintf("%s ✅ %s", step(6, "audio player"), resolved))
		}

		log.Info("")
		if ok {
			log.Info("✅ All checks passed")
		} else {
			log.Warn("⚠️  Some checks need attention")
		}
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
