package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framemark/pkg/framemark"
	"github.com/user/framemark/pkg/markers"
	"github.com/user/framemark/pkg/summarizer"
)

func markersCommand() *cli.Command {
	return &cli.Command{
		Name:  "markers",
		Usage: l10n.T("Check and edit marker files"),
		Subcommands: []*cli.Command{
			{
				Name:      "check",
				Usage:     l10n.T("Load marker files and report malformed or out-of-order lines"),
				ArgsUsage: "<file>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: l10n.T("Exit with status 1 when a file has issues"),
					},
				},
				Action: checkMarkers,
			},
			{
				Name:      "mark",
				Usage:     l10n.T("End the open marker and start a new one"),
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "end",
						Usage: l10n.T("Frame that ends the open marker"),
						Value: markers.Open,
					},
					&cli.Int64Flag{
						Name:  "start",
						Usage: l10n.T("Frame that starts a new marker"),
						Value: markers.Open,
					},
				},
				Action: func(c *cli.Context) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					if c.Int64("end") == markers.Open && c.Int64("start") == markers.Open {
						return cli.Exit(l10n.T("Nothing to do: give --end, --start or both"), 2)
					}
					return editMarkers(c, func(l *markers.List) error {
						return l.EndAndStart(c.Int64("end"), c.Int64("start"))
					})
				},
			},
			{
				Name:      "set",
				Usage:     l10n.T("Change the start (column 0) or end (column 1) of a marker"),
				ArgsUsage: "<file> <row> <column> <frame>",
				Action: func(c *cli.Context) error {
					if err := requireArgs(c, 4); err != nil {
						return err
					}
					nums, err := parseInts(c.Args().Slice()[1:])
					if err != nil {
						return err
					}
					return editMarkers(c, func(l *markers.List) error {
						return l.SetCell(int(nums[0]), int(nums[1]), nums[2])
					})
				},
			},
			{
				Name:      "remove",
				Usage:     l10n.T("Remove a marker"),
				ArgsUsage: "<file> <row>",
				Action: func(c *cli.Context) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					nums, err := parseInts(c.Args().Slice()[1:])
					if err != nil {
						return err
					}
					return editMarkers(c, func(l *markers.List) error {
						return l.Remove(int(nums[0]))
					})
				},
			},
			{
				Name:      "clear",
				Usage:     l10n.T("Remove all markers"),
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					return editMarkers(c, func(l *markers.List) error {
						l.Clear()
						return nil
					})
				},
			},
		},
	}
}

func parseInts(args []string) ([]int64, error) {
	out := make([]int64, len(args))
	for i, a := range args {
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, cli.Exit(l10n.F("Invalid number: %s", a), 2)
		}
		out[i] = n
	}
	return out, nil
}

func editMarkers(c *cli.Context, edit func(*markers.List) error) error {
	e, err := setup(c, nil)
	if err != nil {
		return err
	}
	list, err := e.fm.EditMarkers(c.Args().First(), edit)
	if err != nil {
		return err
	}
	printMarkers(list)
	return nil
}

func printMarkers(l *markers.List) {
	for i, m := range l.Markers() {
		fmt.Printf("%4d  %s\n", i, m)
	}
}

func checkMarkers(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit(l10n.F("Expected at least one argument: %s", c.Command.ArgsUsage), 2)
	}
	e, err := setup(c, nil)
	if err != nil {
		return err
	}

	dirty := false
	for _, path := range c.Args().Slice() {
		list, rep, err := e.fm.LoadMarkers(path)
		if err != nil {
			return err
		}
		info := framemark.MarkerInfo(path, list, rep)
		fmt.Println(l10n.F("%s: %d markers, %d open, %d skipped lines, %d out of order",
			path, info.Count, info.Open, info.Skipped, info.OutOfOrder))
		for _, issue := range rep.Skipped {
			fmt.Println(l10n.F("  line %d skipped: %s", issue.Line, issue.Text))
		}
		for _, issue := range rep.OutOfOrder {
			fmt.Println(l10n.F("  line %d out of order: %s", issue.Line, issue.Text))
		}
		if !rep.Clean() {
			dirty = true
		}
	}
	if dirty && c.Bool("strict") {
		return cli.Exit("", 1)
	}
	return nil
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     l10n.T("Align two marker files and highlight the differences"),
		ArgsUsage: "<file-a> <file-b>",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:  "image",
				Usage: l10n.T("Also draw the comparison as an image (.png or .jpg)"),
			},
			&cli.PathFlag{
				Name:  "summary",
				Usage: l10n.T("Output summary to file (Markdown format)"),
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: l10n.T("Do not color highlighted rows"),
			},
			&cli.BoolFlag{
				Name:  "fail-on-diff",
				Usage: l10n.T("Exit with status 1 when the files differ"),
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			e, err := setup(c, nil)
			if err != nil {
				return err
			}

			cmp, err := e.fm.Compare(c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}

			tw := markers.TextWriter{Colorize: !color.NoColor && !c.Bool("no-color")}
			if err := tw.Write(os.Stdout, cmp.Rows); err != nil {
				return err
			}
			fmt.Println(cmp.Summary())

			if path := c.Path("image"); path != "" {
				if err := e.fm.RenderComparison(cmp, path); err != nil {
					return err
				}
			}
			if path := c.Path("summary"); path != "" {
				s := summarizer.NewBuilder().
					WithMarkers(framemark.MarkerInfo(cmp.PathA, cmp.A, cmp.ReportA)).
					WithMarkers(framemark.MarkerInfo(cmp.PathB, cmp.B, cmp.ReportB)).
					WithComparison(framemark.ComparisonInfo(cmp)).
					Build()
				if err := writeSummary(e, path, s); err != nil {
					return err
				}
			}

			if c.Bool("fail-on-diff") && !cmp.Identical() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
