// Package config loads framemark settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/user/framemark/pkg/framemark"
	"github.com/user/framemark/pkg/ports"
	"github.com/user/framemark/pkg/report"
	"gopkg.in/yaml.v3"
)

// ErrInvalidColor is returned for a color that is not #rgb, #rrggbb or
// #rrggbbaa.
var ErrInvalidColor = errors.New("config: invalid color")

// Config represents a framemark configuration file.
type Config struct {
	// Tools
	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`
	Probe        bool   `yaml:"probe"`
	OutputWaitMs int    `yaml:"output_wait_ms"`

	// Seeking
	MatroskaRetreat int64 `yaml:"matroska_retreat"`

	LogLevel string `yaml:"log_level"`

	Frame     FrameConfig     `yaml:"frame"`
	Juxtapose JuxtaposeConfig `yaml:"juxtapose"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Font      FontConfig      `yaml:"font"`
	Table     TableConfig     `yaml:"table"`
	Sheet     SheetConfig     `yaml:"sheet"`
	Theme     ThemeConfig     `yaml:"theme"`
}

// FrameConfig controls exported frames.
type FrameConfig struct {
	Format  string `yaml:"format"` // png or jpeg
	Quality int    `yaml:"quality"`
	Width   int    `yaml:"width"`
}

// JuxtaposeConfig controls side-by-side images.
type JuxtaposeConfig struct {
	Gap        int    `yaml:"gap"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
}

// PlaybackConfig controls the player.
type PlaybackConfig struct {
	Speed float64 `yaml:"speed"`
}

// FontConfig selects the report font.
type FontConfig struct {
	Path string  `yaml:"path"`
	Size float64 `yaml:"size"`
}

// TableConfig controls the comparison table image.
type TableConfig struct {
	CellWidth int `yaml:"cell_width"`
	RowHeight int `yaml:"row_height"`
}

// SheetConfig controls contact sheets.
type SheetConfig struct {
	Frames     int `yaml:"frames"`
	Columns    int `yaml:"columns"`
	ThumbWidth int `yaml:"thumb_width"`
	Gap        int `yaml:"gap"`
	Workers    int `yaml:"workers"`
}

// ThemeConfig holds report colors as hex strings.
type ThemeConfig struct {
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
	Grid       string `yaml:"grid"`
	Header     string `yaml:"header"`
	Blank      string `yaml:"blank"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Probe:        true,
		OutputWaitMs: 2000,

		MatroskaRetreat: 3000,

		LogLevel: "info",

		Frame: FrameConfig{
			Format:  "png",
			Quality: 90,
		},
		Juxtapose: JuxtaposeConfig{
			Gap:        10,
			Background: "#000000",
		},
		Playback: PlaybackConfig{
			Speed: 1,
		},
		Font: FontConfig{
			Size: 13,
		},
		Table: TableConfig{
			CellWidth: 140,
			RowHeight: 20,
		},
		Sheet: SheetConfig{
			Frames:     12,
			Columns:    4,
			ThumbWidth: 240,
			Gap:        8,
		},
		Theme: ThemeConfig{
			Background: "#ffffff",
			Text:       "#000000",
			Grid:       "#b4b4b4",
			Header:     "#dcdcdc",
			Blank:      "#f4f4f4",
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Level returns the configured log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(strings.ToLower(c.LogLevel))
}

// FrameFormat returns the configured image format of exported frames.
func (c Config) FrameFormat() (ports.ImageFormat, error) {
	switch strings.ToLower(c.Frame.Format) {
	case "", "png":
		return ports.FormatPNG, nil
	case "jpg", "jpeg":
		return ports.FormatJPEG, nil
	default:
		return 0, fmt.Errorf("config: unknown frame format %q", c.Frame.Format)
	}
}

// ReportTheme parses the theme colors.
func (c Config) ReportTheme() (report.Theme, error) {
	var t report.Theme
	fields := []struct {
		name string
		hex  string
		dst  *color.Color
	}{
		{"background", c.Theme.Background, &t.Background},
		{"text", c.Theme.Text, &t.Text},
		{"grid", c.Theme.Grid, &t.Grid},
		{"header", c.Theme.Header, &t.Header},
		{"blank", c.Theme.Blank, &t.Blank},
	}
	for _, f := range fields {
		col, err := ParseColor(f.hex)
		if err != nil {
			return t, fmt.Errorf("theme %s: %w", f.name, err)
		}
		*f.dst = col
	}
	return t, nil
}

// ToOptionsBuilder converts the configuration to a framemark options
// builder, so command line flags can override single values.
func (c Config) ToOptionsBuilder() (*framemark.OptionsBuilder, error) {
	format, err := c.FrameFormat()
	if err != nil {
		return nil, err
	}
	theme, err := c.ReportTheme()
	if err != nil {
		return nil, err
	}
	bg, err := ParseColor(c.Juxtapose.Background)
	if err != nil {
		return nil, fmt.Errorf("juxtapose background: %w", err)
	}

	return framemark.NewOptionsBuilder().
		WithFFmpegPath(c.FFmpegPath).
		WithFFprobePath(c.FFprobePath).
		WithProbe(c.Probe).
		WithOutputWait(time.Duration(c.OutputWaitMs) * time.Millisecond).
		WithMatroskaRetreat(c.MatroskaRetreat).
		WithFrameFormat(format).
		WithQuality(c.Frame.Quality).
		WithFrameWidth(c.Frame.Width).
		WithJuxtaposeGap(c.Juxtapose.Gap).
		WithJuxtaposeHeight(c.Juxtapose.Height).
		WithBackground(bg).
		WithSpeed(c.Playback.Speed).
		WithTheme(theme).
		WithFont(c.Font.Path, c.Font.Size).
		WithTableSize(c.Table.CellWidth, c.Table.RowHeight).
		WithSheet(c.Sheet.Columns, c.Sheet.ThumbWidth, c.Sheet.Gap).
		WithWorkers(c.Sheet.Workers), nil
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa". The leading '#' is
// optional.
func ParseColor(hex string) (color.Color, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
