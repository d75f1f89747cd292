package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framemark/pkg/config"
	"github.com/user/framemark/pkg/framemark"
	"github.com/user/framemark/pkg/juxtapose"
	"github.com/user/framemark/pkg/player"
	"github.com/user/framemark/pkg/seek"
	"github.com/user/framemark/pkg/summarizer"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show stream information of a video"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:  "summary",
				Usage: l10n.T("Output summary to file (Markdown format)"),
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			e, err := setup(c, nil)
			if err != nil {
				return err
			}

			info, stats, err := e.fm.Probe(c.Args().First())
			if err != nil {
				return err
			}
			printVideo(info)

			if path := c.Path("summary"); path != "" {
				s := summarizer.NewBuilder().
					WithVideo(*info).
					WithSeek(framemark.SeekInfo(stats)).
					Build()
				return writeSummary(e, path, s)
			}
			return nil
		},
	}
}

func printVideo(v *summarizer.VideoInfo) {
	fmt.Println(l10n.F("File: %s", v.Path))
	fmt.Println(l10n.F("Container: %s (%s timing)", v.Container, v.Timing))
	fmt.Println(l10n.F("Codec: %s, %dx%d", v.Codec, v.Width, v.Height))
	fmt.Println(l10n.F("Frame rate: %.3f fps, time base %s", v.FrameRate, v.TimeBase))
	fmt.Println(l10n.F("Duration: %s, %d frames", formatMs(v.DurationMs), v.FrameCount))
	for i, ch := range v.Chapters {
		fmt.Println(l10n.F("Chapter %d: %s (%s - %s)", i+1, ch.Title, formatMs(ch.StartMs), formatMs(ch.EndMs)))
	}
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func frameCommand() *cli.Command {
	return &cli.Command{
		Name:      "frame",
		Usage:     l10n.T("Export one frame as an image"),
		ArgsUsage: "<video> <frame>",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output image path (.png or .jpg)"),
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "ms",
				Usage: l10n.T("Interpret the position as milliseconds instead of a frame number"),
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: l10n.T("Resize the frame to this width"),
			},
			&cli.IntFlag{
				Name:  "quality",
				Usage: l10n.T("JPEG quality (1-100)"),
			},
			&cli.PathFlag{
				Name:  "beside",
				Usage: l10n.T("Place a frame of another video to the right"),
			},
			&cli.Int64Flag{
				Name:  "beside-frame",
				Usage: l10n.T("Frame of the --beside video (default: same position)"),
				Value: -1,
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			e, err := setup(c, func(_ config.Config, b *framemark.OptionsBuilder) {
				if c.IsSet("width") {
					b.WithFrameWidth(c.Int("width"))
				}
				if c.IsSet("quality") {
					b.WithQuality(c.Int("quality"))
				}
			})
			if err != nil {
				return err
			}

			path := c.Args().Get(0)
			frame, err := resolveFrame(e, path, c.Args().Get(1), c.Bool("ms"))
			if err != nil {
				return err
			}
			out := c.Path("output")

			if other := c.Path("beside"); other != "" {
				otherFrame := c.Int64("beside-frame")
				if otherFrame < 0 {
					otherFrame = frame
				}
				ctx, cancel := signalContext(e.log)
				defer cancel()
				res, err := e.fm.Juxtapose(ctx, juxtapose.Input{
					LeftPath:   path,
					LeftFrame:  frame,
					RightPath:  other,
					RightFrame: otherFrame,
					OutputPath: out,
				})
				if err != nil {
					return err
				}
				fmt.Println(l10n.F("Saved %dx%d image to %s", res.Width, res.Height, out))
				return nil
			}

			res, err := e.fm.ExportFrame(path, frame, out)
			if err != nil {
				return err
			}
			fmt.Println(l10n.F("Frame %d at %s saved to %s (%dx%d)", res.Frame.Number, formatMs(res.Frame.TimeMs), out, res.Width, res.Height))
			return nil
		},
	}
}

// resolveFrame parses a frame number, or a time in milliseconds that is
// mapped to the nearest frame of the video.
func resolveFrame(e *env, path, arg string, ms bool) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return 0, cli.Exit(l10n.F("Invalid position: %s", arg), 2)
	}
	if !ms {
		return n, nil
	}
	eng, err := e.fm.Open(path)
	if err != nil {
		return 0, err
	}
	defer eng.Close()
	return eng.FrameNumberForTime(n), nil
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Play a video frame by frame at its frame rate"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "speed",
				Usage: l10n.T("Playback speed multiplier"),
			},
			&cli.Int64Flag{
				Name:  "from",
				Usage: l10n.T("Start at this frame"),
			},
			&cli.Int64Flag{
				Name:  "until",
				Usage: l10n.T("Stop after this frame"),
			},
			&cli.PathFlag{
				Name:  "summary",
				Usage: l10n.T("Output summary to file (Markdown format)"),
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			e, err := setup(c, func(_ config.Config, b *framemark.OptionsBuilder) {
				if c.IsSet("speed") {
					b.WithSpeed(c.Float64("speed"))
				}
			})
			if err != nil {
				return err
			}

			path := c.Args().First()
			eng, err := e.fm.Open(path)
			if err != nil {
				return err
			}
			defer eng.Close()
			if from := c.Int64("from"); from > 0 {
				if _, err := eng.SeekToFrame(from); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(e.log)
			defer cancel()

			bar := newProgressBar(eng.FrameCount(), l10n.T("Playing"))
			p := e.fm.Player(eng, player.Options{
				Until: c.Int64("until"),
				OnFrame: func(f *seek.DecodedFrame) {
					bar.Set64(f.Number + 1)
				},
			})
			bar.Set64(eng.CurrentFrameNumber() + 1)

			err = p.Play(ctx)
			bar.Finish()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			fmt.Println(l10n.F("Stopped at frame %d (%s)", eng.CurrentFrameNumber(), formatMs(eng.CurrentFrameTimeMs())))
			st := eng.Stats()
			e.log.Debug("%d seeks, %d packets read, %d frames decoded, %d cache hits",
				st.Seeks, st.PacketsRead, st.FramesDecoded, st.CacheHits)

			if path := c.Path("summary"); path != "" {
				s := summarizer.NewBuilder().
					WithVideo(e.fm.VideoInfo(eng.Info())).
					WithSeek(framemark.SeekInfo(st)).
					Build()
				return writeSummary(e, path, s)
			}
			return nil
		},
	}
}

func sheetCommand() *cli.Command {
	return &cli.Command{
		Name:      "sheet",
		Usage:     l10n.T("Draw evenly spaced frames of a video on one image"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output image path (.png or .jpg)"),
				Required: true,
			},
			&cli.IntFlag{
				Name:  "frames",
				Usage: l10n.T("Number of frames to show"),
			},
			&cli.IntFlag{
				Name:  "columns",
				Usage: l10n.T("Number of columns (min: 1)"),
			},
			&cli.IntFlag{
				Name:  "thumb-width",
				Usage: l10n.T("Width of each thumbnail in pixels"),
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: l10n.T("Number of scaling workers (0 = one per CPU)"),
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			e, err := setup(c, func(cfg config.Config, b *framemark.OptionsBuilder) {
				cols, width := cfg.Sheet.Columns, cfg.Sheet.ThumbWidth
				if c.IsSet("columns") {
					cols = c.Int("columns")
				}
				if c.IsSet("thumb-width") {
					width = c.Int("thumb-width")
				}
				b.WithSheet(cols, width, cfg.Sheet.Gap)
				if c.IsSet("workers") {
					b.WithWorkers(c.Int("workers"))
				}
			})
			if err != nil {
				return err
			}

			count := e.cfg.Sheet.Frames
			if c.IsSet("frames") {
				count = c.Int("frames")
			}

			ctx, cancel := signalContext(e.log)
			defer cancel()

			bar := newProgressBar(int64(count), l10n.T("Decoding"))
			res, err := e.fm.ContactSheet(ctx, c.Args().First(), count, c.Path("output"), func(done, total int) {
				bar.ChangeMax(total)
				bar.Set(done)
			})
			bar.Finish()
			if err != nil {
				return err
			}
			fmt.Println(l10n.F("Saved %d frames (%dx%d) to %s", len(res.Frames), res.Width, res.Height, c.Path("output")))
			return nil
		},
	}
}
