package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stocklens/stocklens/internal/audio"
	"github.com/stocklens/stocklens/internal/config"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/speech"
)

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Read text aloud with the configured voice",
	Long: `Synthesize speech for text and play it, or write it as a WAV file.

Examples:
  stocklens speak "Fishing boats in a quiet harbor"
  stocklens speak "Fishing boats in a quiet harbor" --out title.wav
  stocklens speak "Hello" --player paplay --voice Puck`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpeak,
}

func init() {
	rootCmd.AddCommand(speakCmd)

	speakCmd.Flags().String("out", "", "Write the clip to a WAV file instead of playing it")
	speakCmd.Flags().String("player", "", "Audio player command (default from config, then aplay/afplay)")
	speakCmd.Flags().String("voice", "", "Preset voice name (default from config)")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("out")
	player, _ := cmd.Flags().GetString("player")
	voice, _ := cmd.Flags().GetString("voice")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	return speakText(cmd.Context(), cfg, strings.Join(args, " "), speakOptions{
		outPath: outPath,
		player:  player,
		voice:   voice,
	}, cmd.OutOrStdout())
}

type speakOptions struct {
	outPath string
	player  string
	voice   string
}

func (o speakOptions) newPlayer(cfg *config.Config) speech.Player {
	if strings.TrimSpace(o.outPath) != "" {
		return &speech.FilePlayer{Path: o.outPath}
	}
	command := o.player
	if command == "" {
		command = cfg.Speech.Player
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return &speech.CommandPlayer{}
	}
	return &speech.CommandPlayer{Command: fields[0], Args: fields[1:]}
}

func speakText(ctx context.Context, cfg *config.Config, text string, opts speakOptions, w io.Writer) error {
	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	orch := svc.orchestrator(opts.newPlayer(cfg), opts.voice, observability.CLILogger)

	playback, err := orch.Speak(ctx, text)
	if err != nil {
		return err
	}
	if playback == nil {
		_, err := fmt.Fprintln(w, "nothing to say")
		return err
	}
	if err := playback.Wait(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}

	if opts.outPath == "" {
		_, err = fmt.Fprintf(w, "played %.1fs at %d Hz\n", playback.Duration.Seconds(), playback.SampleRate)
		return err
	}

	data, err := os.ReadFile(opts.outPath) // #nosec G304 -- path was just written by this command
	if err != nil {
		return err
	}
	info, err := audio.InspectWAV(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "wrote %s: %.1fs, %d Hz, %d-bit, %d samples\n",
		opts.outPath, info.Duration, info.SampleRate, info.BitsPerSample, info.NumSamples)
	return err
}
