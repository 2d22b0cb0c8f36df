package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/opd-ai/audioanalysis/analyser"
	"github.com/opd-ai/audioanalysis/analysis"
	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/config"
	"github.com/opd-ai/audioanalysis/content"
	"github.com/opd-ai/audioanalysis/job"
	"github.com/opd-ai/audioanalysis/player"
	"github.com/opd-ai/audioanalysis/timeline"
)

// progressSteps is the resolution of the progress bar.
const progressSteps = 1000

// CLIConfig holds the flags that are not part of the configuration file.
type CLIConfig struct {
	configPath string
	length     float64
	noProgress bool
}

// contentArg is a parsed content argument.
type contentArg struct {
	path     string
	position float64 // seconds
	gain     float64 // dB
}

// parseContentArg parses path[@seconds[:gainDB]]. An @ suffix that is not a
// valid position is taken to be part of the path.
func parseContentArg(arg string) (contentArg, error) {
	out := contentArg{path: arg}
	at := strings.LastIndex(arg, "@")
	if at < 0 {
		return out, nil
	}

	suffix := arg[at+1:]
	posText, gainText, hasGain := strings.Cut(suffix, ":")
	position, err := strconv.ParseFloat(posText, 64)
	if err != nil {
		return out, nil
	}
	if position < 0 || math.IsInf(position, 0) || math.IsNaN(position) {
		return contentArg{}, fmt.Errorf("invalid position in %q", arg)
	}
	out.path = arg[:at]
	out.position = position

	if hasGain {
		gain, err := strconv.ParseFloat(gainText, 64)
		if err != nil {
			return contentArg{}, fmt.Errorf("invalid gain in %q: %w", arg, err)
		}
		out.gain = gain
	}

	if out.path == "" {
		return contentArg{}, fmt.Errorf("missing path in %q", arg)
	}
	return out, nil
}

// validateCLIConfig validates the settings that are not checked by config.
func validateCLIConfig(cli *CLIConfig) error {
	if cli.length < 0 {
		return fmt.Errorf("length cannot be negative")
	}
	return nil
}

// setupLogging configures logrus. The returned closer, if any, closes the log
// file.
func setupLogging(level, file string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if file == "" {
		logrus.SetOutput(os.Stderr)
		return nil, nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logrus.SetOutput(f)
	return f, nil
}

// setupSignalHandling cancels the run on an interrupt.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling analysis...\n", sig)
		cancel()
	}()
}

// buildPlaylist creates a playlist of args mixed as cfg describes.
func buildPlaylist(cfg *config.Config, args []contentArg, length float64) (*player.Playlist, error) {
	playlist, err := player.NewPlaylist(cfg.Channels, cfg.FrameRate)
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		c, err := content.New(a.path, timeline.FromSeconds(a.position), a.gain)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", a.path, err)
		}
		playlist.Add(c)
	}
	if length > 0 {
		playlist.SetLength(timeline.FromSeconds(length))
	}
	return playlist, nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	set := func(name string, f func() error) {
		if err == nil && flags.Changed(name) {
			err = f()
		}
	}
	set("points", func() (e error) { cfg.Points, e = flags.GetInt("points"); return })
	set("from-zero", func() (e error) { cfg.FromZero, e = flags.GetBool("from-zero"); return })
	set("loudness", func() (e error) { cfg.AnalyseLoudness, e = flags.GetBool("loudness"); return })
	set("channels", func() (e error) { cfg.Channels, e = flags.GetInt("channels"); return })
	set("rate", func() (e error) { cfg.FrameRate, e = flags.GetInt("rate"); return })
	set("block-frames", func() (e error) { cfg.BlockFrames, e = flags.GetInt("block-frames"); return })
	set("analysis-dir", func() (e error) { cfg.AnalysisDir, e = flags.GetString("analysis-dir"); return })
	set("log-level", func() (e error) { cfg.LogLevel, e = flags.GetString("log-level"); return })
	set("log-file", func() (e error) { cfg.LogFile, e = flags.GetString("log-file"); return })
	return err
}

// trackProgress renders the job's progress until done is closed.
func trackProgress(j *job.Job, done <-chan struct{}) {
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := p.AddBar(progressSteps,
		mpb.PrependDecorators(
			decor.Name(j.Name()+": "),
			decor.Percentage(),
		),
		mpb.AppendDecorators(
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if progress, ok := j.Progress(); ok {
				bar.SetCurrent(int64(progress * progressSteps))
			}
		case <-done:
			if j.State() == job.StateFinished {
				bar.SetTotal(-1, true)
			} else {
				bar.Abort(false)
			}
			p.Wait()
			return
		}
	}
}

// printSummary prints the main figures of the artifact at path.
func printSummary(w io.Writer, path string) error {
	a, err := analysis.Read(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Analysis written to %s\n", path)
	if peak, ch := a.OverallSamplePeak(); ch >= 0 {
		fmt.Fprintf(w, "  Sample peak: %.2f dBFS (channel %d at %v)\n",
			audio.LinearToDB(float64(peak.Peak)), ch+1, peak.Time)
	}
	if peak, ok := a.OverallTruePeak(); ok {
		fmt.Fprintf(w, "  True peak: %.2f dBTP\n", audio.LinearToDB(float64(peak)))
	}
	if lufs, ok := a.IntegratedLoudness(); ok {
		fmt.Fprintf(w, "  Integrated loudness: %.1f LUFS\n", lufs)
	}
	if lra, ok := a.LoudnessRange(); ok {
		fmt.Fprintf(w, "  Loudness range: %.1f LU\n", lra)
	}
	return nil
}

func run(cmd *cobra.Command, cli *CLIConfig, rawArgs []string) error {
	if err := validateCLIConfig(cli); err != nil {
		return err
	}

	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	closer, err := setupLogging(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	args := make([]contentArg, 0, len(rawArgs))
	for _, raw := range rawArgs {
		a, err := parseContentArg(raw)
		if err != nil {
			return err
		}
		args = append(args, a)
	}

	playlist, err := buildPlaylist(cfg, args, cli.length)
	if err != nil {
		return err
	}
	path, err := analyser.PathFor(cfg.AnalysisDir, playlist)
	if err != nil {
		return err
	}
	driver, err := player.New(playlist, cfg.BlockFrames)
	if err != nil {
		return err
	}
	defer driver.Close()

	analysisJob, err := analyser.NewJob(analyser.JobParams{
		Playlist: playlist,
		Driver:   driver,
		Writer:   analysis.FileWriter{},
		Path:     path,
		Config:   cfg.Analyser(),
	})
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	setupSignalHandling(cancel)

	manager := job.NewManager()
	id := manager.Add(ctx, analysisJob)

	done := make(chan struct{})
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		if cli.noProgress {
			<-done
			return
		}
		trackProgress(analysisJob.Job(), done)
	}()

	runErr := manager.Wait(context.Background(), id)
	close(done)
	<-progressDone

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return errors.New("analysis cancelled")
		}
		if summary := analysisJob.Job().ErrorSummary(); summary != "" {
			return fmt.Errorf("%s: %w", summary, runErr)
		}
		return runErr
	}

	return printSummary(cmd.OutOrStdout(), path)
}

func newRootCommand() *cobra.Command {
	cli := &CLIConfig{}
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "analyse-audio [flags] file[@seconds[:gainDB]]...",
		Short: "Analyse the levels and loudness of a mix of audio files",
		Long: `analyse-audio mixes audio files onto a timeline and writes an analysis of
the result: a decimated envelope of RMS and peak levels per channel, the
sample peak of each channel with its position, and optionally the true peak,
integrated loudness and loudness range (ITU-R BS.1770 / EBU R128).

Supported formats are WAV, FLAC and Ogg Opus.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cli, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cli.configPath, "config", "c", config.FileName, "Configuration file")
	flags.Float64Var(&cli.length, "length", 0, "Pad the timeline with silence to this many seconds")
	flags.BoolVar(&cli.noProgress, "no-progress", false, "Do not show a progress bar")

	flags.IntP("points", "p", defaults.Points, "Number of envelope points per channel")
	flags.Bool("from-zero", defaults.FromZero, "Analyse from the start of the timeline rather than the first audio")
	flags.Bool("loudness", defaults.AnalyseLoudness, "Measure true peak, integrated loudness and loudness range")
	flags.Int("channels", defaults.Channels, "Channel count of the mix")
	flags.Int("rate", defaults.FrameRate, "Sample rate of the mix")
	flags.Int("block-frames", defaults.BlockFrames, "Frames decoded per content per pass")
	flags.StringP("analysis-dir", "o", defaults.AnalysisDir, "Directory for analysis artifacts")
	flags.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Log file path (default: stderr)")

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
