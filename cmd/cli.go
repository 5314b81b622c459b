// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pitchtrack/internal/capture"
	"pitchtrack/internal/config"
	"pitchtrack/internal/log"
	"pitchtrack/internal/source"
	"pitchtrack/internal/tracker"
	"pitchtrack/pkg/build"
)

var logger = log.Named("CLI")

// options holds the command line flags. Flags override the configuration
// file only when they are set explicitly.
type options struct {
	configPath  string
	logLevel    string
	algorithm   string
	threshold   float64
	window      int
	overlap     int
	gate        float64
	pitchedOnly bool
	spectrum    bool
	json        bool

	// file
	skip time.Duration

	// listen
	device          int
	sampleRate      float64
	channels        int
	framesPerBuffer int
	lowLatency      bool
	watch           bool
}

// Execute parses args and runs the selected command. Results are written to
// stdout; logs go to the global logger.
func Execute(ctx context.Context, args []string, stdout io.Writer) error {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetOut(stdout)
	rootCmd.SetContext(ctx)

	// Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "",
		"Configuration file. Defaults to pitchtrack.yaml or config.yaml in the working directory")
	pf.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")

	// Detection
	pf.StringVarP(&opts.algorithm, "algorithm", "a", config.DefaultAlgorithm,
		"Pitch detector: yin, fastyin or mpm")
	pf.Float64VarP(&opts.threshold, "threshold", "t", config.DefaultThreshold,
		"YIN threshold, lower is stricter")
	pf.IntVarP(&opts.window, "window", "w", config.DefaultWindowSize,
		"Analysis window in samples")
	pf.IntVarP(&opts.overlap, "overlap", "o", config.DefaultOverlap,
		"Samples shared by consecutive windows")
	pf.Float64Var(&opts.gate, "gate", config.DefaultGateThreshold,
		"Enable the silence gate with this threshold in dB SPL")
	pf.BoolVar(&opts.pitchedOnly, "pitched-only", false,
		"Only print windows with a pitch")
	pf.BoolVar(&opts.spectrum, "spectrum", false,
		"Add the strongest spectral peak to every result")

	// Output
	pf.BoolVar(&opts.json, "json", false,
		"Print newline-delimited JSON instead of text")

	fileCmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Track the pitch of an audio file",
		Long: "Track the pitch of an audio file. Supported extensions: " +
			strings.Join(source.Extensions(), ", ") +
			". Files ending in .raw or .pcm are read as headerless PCM described by the raw section of the configuration.",
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runFile(c, opts, args[0])
		},
	}
	fileCmd.Flags().DurationVar(&opts.skip, "skip", 0,
		"Audio to skip at the start of the file")
	rootCmd.AddCommand(fileCmd)

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Track the pitch of an input device in real time",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runListen(c, opts)
		},
	}
	lf := listenCmd.Flags()
	lf.IntVarP(&opts.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'devices' command to see available devices")
	lf.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	lf.IntVar(&opts.channels, "channels", config.DefaultChannels,
		"Number of channels to capture, mixed down to mono")
	lf.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	lf.BoolVarP(&opts.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	lf.BoolVar(&opts.watch, "watch", false,
		"Reload the configuration file when it changes")
	rootCmd.AddCommand(listenCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if err := capture.Initialize(); err != nil {
				return err
			}
			defer capture.Terminate()
			return capture.ListDevices(c.OutOrStdout())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintln(c.OutOrStdout(), buildInfo)
		},
	})

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the configuration and applies the flags set on c.
func (o *options) loadConfig(c *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := o.override(c.Flags(), cfg); err != nil {
		return nil, err
	}
	setLogLevel(cfg.LogLevel)
	return cfg, nil
}

// override copies explicitly set flags into cfg and validates the result.
func (o *options) override(flags *pflag.FlagSet, cfg *config.Config) error {
	set := flags.Changed

	if set("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if set("algorithm") {
		cfg.Pitch.Algorithm = o.algorithm
	}
	if set("threshold") {
		cfg.Pitch.Threshold = o.threshold
	}
	if set("window") {
		cfg.Dispatch.WindowSize = o.window
		if !set("overlap") && cfg.Dispatch.Overlap >= o.window {
			cfg.Dispatch.Overlap = o.window / 2
		}
	}
	if set("overlap") {
		cfg.Dispatch.Overlap = o.overlap
	}
	if set("gate") {
		cfg.Gate.Enabled = true
		cfg.Gate.Threshold = o.gate
	}
	if set("pitched-only") {
		cfg.Pitch.PitchedOnly = o.pitchedOnly
	}
	if set("spectrum") {
		cfg.Spectrum.Enabled = o.spectrum
	}
	if set("json") && o.json {
		cfg.Output.Format = config.OutputJSON
	}

	if set("skip") {
		cfg.Dispatch.Skip = o.skip
	}

	if set("device") {
		cfg.Audio.InputDevice = o.device
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if set("channels") {
		cfg.Audio.InputChannels = o.channels
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = o.framesPerBuffer
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}

	return cfg.Validate()
}

func setLogLevel(name string) {
	if level, ok := log.ParseLevel(name); ok {
		log.SetLevel(level)
	}
}

func runFile(c *cobra.Command, opts *options, path string) error {
	cfg, err := opts.loadConfig(c)
	if err != nil {
		return err
	}

	src, err := openFile(path, cfg)
	if err != nil {
		return err
	}

	out, err := tracker.OpenSink(cfg.Output, c.OutOrStdout())
	if err != nil {
		src.Close()
		return err
	}

	tr, err := tracker.New(cfg, src, out)
	if err != nil {
		src.Close()
		out.Close()
		return err
	}
	runErr := tr.Run(c.Context())
	if err := tr.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func openFile(path string, cfg *config.Config) (*source.Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".raw", ".pcm":
		format, err := cfg.RawFormat()
		if err != nil {
			return nil, err
		}
		return source.OpenRaw(path, format)
	default:
		return source.Open(path)
	}
}

func runListen(c *cobra.Command, opts *options) error {
	cfg, err := opts.loadConfig(c)
	if err != nil {
		return err
	}

	if err := capture.Initialize(); err != nil {
		return err
	}
	defer capture.Terminate()

	src, err := capture.Open(capture.Config{
		DeviceID:        cfg.Audio.InputDevice,
		SampleRate:      cfg.Audio.SampleRate,
		Channels:        cfg.Audio.InputChannels,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		LowLatency:      cfg.Audio.LowLatency,
		BufferDuration:  cfg.Audio.BufferDuration,
	})
	if err != nil {
		return err
	}

	out, err := tracker.OpenSink(cfg.Output, c.OutOrStdout())
	if err != nil {
		src.Close()
		return err
	}
	tr, err := tracker.New(cfg, src, out)
	if err != nil {
		src.Close()
		out.Close()
		return err
	}

	ctx, cancel := context.WithCancel(c.Context())
	defer cancel()

	if opts.watch {
		if cfg.Path == "" {
			logger.Warnf("--watch needs a configuration file, none was loaded")
		} else {
			go watchConfig(ctx, c.Flags(), opts, cfg.Path, tr)
		}
	}

	logger.Infof("listening, press Ctrl+C to stop")
	runErr := tr.Run(ctx)
	if n := src.Dropped(); n > 0 {
		logger.Warnf("%d frames were lost to buffer overruns", n)
	}
	if err := tr.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// watchConfig hands every valid edit of path, with the command line flags
// reapplied, to the running tracker.
func watchConfig(ctx context.Context, flags *pflag.FlagSet, opts *options, path string, tr *tracker.Tracker) {
	err := config.Watch(ctx, path, func(next *config.Config) {
		if err := opts.override(flags, next); err != nil {
			logger.Warnf("ignoring configuration change: %v", err)
			return
		}
		setLogLevel(next.LogLevel)
		tr.Reconfigure(next)
	})
	if err != nil {
		logger.Warnf("%v", err)
	}
}
