// Package main provides the CLI entry point for framemark.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/user/framemark/pkg/adapters/logger"
	"github.com/user/framemark/pkg/config"
	"github.com/user/framemark/pkg/framemark"
	"github.com/user/framemark/pkg/ports"
	"github.com/user/framemark/pkg/summarizer"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "framemark",
		Usage:   l10n.T("Frame-accurate video marking"),
		Version: version,
		Description: l10n.T("framemark steps through videos frame by frame, records start and end markers, " +
			"and compares marker files side by side."),
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    l10n.T("YAML configuration file"),
				EnvVars:  []string{"FRAMEMARK_CONFIG"},
				Category: l10n.T("Configuration"),
			},
			&cli.StringFlag{
				Name:     "log-level",
				Usage:    l10n.T("Log level (debug, info, warn, error)"),
				Category: l10n.T("Logging"),
			},
			&cli.BoolFlag{
				Name:     "quiet",
				Aliases:  []string{"q"},
				Usage:    l10n.T("Suppress all log output"),
				Category: l10n.T("Logging"),
			},
			&cli.PathFlag{
				Name:     "ffmpeg",
				Usage:    l10n.T("Path to the ffmpeg executable"),
				Category: l10n.T("Tools"),
			},
			&cli.PathFlag{
				Name:     "ffprobe",
				Usage:    l10n.T("Path to the ffprobe executable"),
				Category: l10n.T("Tools"),
			},
			&cli.BoolFlag{
				Name:     "no-probe",
				Usage:    l10n.T("Do not run ffprobe, use demuxer metadata only"),
				Category: l10n.T("Tools"),
			},
		},
		Commands: []*cli.Command{
			probeCommand(),
			frameCommand(),
			playCommand(),
			sheetCommand(),
			markersCommand(),
			compareCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Println(l10n.F("framemark version %s", version))
			return nil
		},
	}
}

// env holds what every command needs.
type env struct {
	cfg config.Config
	fm  *framemark.Framemark
	log ports.Logger
}

// setup loads the configuration, applies the global flags and creates the
// logger. customize may override options from command flags.
func setup(c *cli.Context, customize func(config.Config, *framemark.OptionsBuilder)) (*env, error) {
	cfg := config.Defaults()
	if path := c.Path("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	var log ports.Logger
	switch {
	case c.Bool("quiet"):
		log = logger.NewNoop()
	case c.IsSet("log-level"):
		log = logger.NewConsole(ports.ParseLogLevel(c.String("log-level")))
	default:
		log = logger.NewConsole(cfg.Level())
	}

	b, err := cfg.ToOptionsBuilder()
	if err != nil {
		return nil, err
	}
	if c.IsSet("ffmpeg") {
		b.WithFFmpegPath(c.Path("ffmpeg"))
	}
	if c.IsSet("ffprobe") {
		b.WithFFprobePath(c.Path("ffprobe"))
	}
	if c.Bool("no-probe") {
		b.WithProbe(false)
	}
	if customize != nil {
		customize(cfg, b)
	}

	return &env{cfg: cfg, fm: framemark.New(b.Build(), log), log: log}, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// newProgressBar returns a progress bar on stderr, hidden when stderr is
// not a terminal.
func newProgressBar(total int64, description string) *progressbar.ProgressBar {
	visible := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// writeSummary writes a Markdown summary with translated labels.
func writeSummary(e *env, path string, s *summarizer.Summary) error {
	err := e.fm.WriteSummary(path, s,
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("%s", l10n.F("Failed to write summary: %s", err))
	}
	return nil
}

// requireArgs checks the number of positional arguments.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return cli.Exit(l10n.F("Expected %d arguments: %s", n, c.Command.ArgsUsage), 2)
	}
	return nil
}
