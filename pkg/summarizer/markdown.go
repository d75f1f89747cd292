package summarizer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MarkdownFormatter renders a Summary as Markdown tables.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = t
	}
}

// WithVersion adds a "Generated by framemark <version>" footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a Markdown formatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{translate: func(s string) string { return s }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder
	t := f.translate

	fmt.Fprintf(&b, "# %s\n\n", t("framemark Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", t("Generated"), s.GeneratedAt.Format("2006-01-02 15:04:05"))

	if v := s.Video; v != nil {
		f.section(&b, "Video")
		f.row(&b, "File", fmt.Sprintf("`%s`", filepath.Base(v.Path)))
		if v.FileSize > 0 {
			f.row(&b, "File Size", formatBytes(v.FileSize))
		}
		f.row(&b, "Container", v.Container)
		f.row(&b, "Timing Model", v.Timing)
		f.row(&b, "Codec", v.Codec)
		f.row(&b, "Resolution", fmt.Sprintf("%dx%d", v.Width, v.Height))
		f.row(&b, "Frame Rate", fmt.Sprintf("%.3f fps", v.FrameRate))
		f.row(&b, "Frame Count", fmt.Sprintf("%d", v.FrameCount))
		f.row(&b, "Duration", formatDuration(v.DurationMs))
		if v.BitRate > 0 {
			f.row(&b, "Bit Rate", formatBitRate(v.BitRate))
		}
		f.row(&b, "Time Base", v.TimeBase)
		b.WriteString("\n")

		if len(v.Chapters) > 0 {
			fmt.Fprintf(&b, "## %s\n\n", t("Chapters"))
			fmt.Fprintf(&b, "| # | %s | %s | %s |\n", t("Title"), t("Start"), t("End"))
			b.WriteString("|---|------|------|------|\n")
			for i, c := range v.Chapters {
				fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, escape(c.Title), formatDuration(c.StartMs), formatDuration(c.EndMs))
			}
			b.WriteString("\n")
		}
	}

	if st := s.Seek; st != nil {
		f.section(&b, "Seeking")
		f.row(&b, "Container Seeks", fmt.Sprintf("%d", st.Seeks))
		if st.Retreats > 0 {
			f.row(&b, "Retreats", fmt.Sprintf("%d", st.Retreats))
		}
		f.row(&b, "Packets Read", fmt.Sprintf("%d", st.PacketsRead))
		f.row(&b, "Frames Decoded", fmt.Sprintf("%d", st.FramesDecoded))
		f.row(&b, "Cache Hits", fmt.Sprintf("%d", st.CacheHits))
		if st.DecodeErrors > 0 {
			f.row(&b, "Decode Errors", fmt.Sprintf("%d", st.DecodeErrors))
		}
		b.WriteString("\n")
	}

	if len(s.Markers) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Marker Files"))
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", t("File"), t("Markers"), t("Open"), t("Skipped Lines"), t("Out of Order"))
		b.WriteString("|------|---------|------|---------------|--------------|\n")
		for _, m := range s.Markers {
			fmt.Fprintf(&b, "| `%s` | %d | %d | %d | %d |\n", filepath.Base(m.Path), m.Count, m.Open, m.Skipped, m.OutOfOrder)
		}
		b.WriteString("\n")
	}

	if c := s.Comparison; c != nil {
		f.section(&b, "Comparison")
		f.row(&b, "Left", fmt.Sprintf("`%s`", filepath.Base(c.PathA)))
		f.row(&b, "Right", fmt.Sprintf("`%s`", filepath.Base(c.PathB)))
		f.row(&b, "Rows", fmt.Sprintf("%d", c.Rows))
		f.row(&b, "Highlighted Rows", fmt.Sprintf("%d", c.Highlighted))
		result := t("Different")
		if c.Identical() {
			result = t("Identical")
		}
		f.row(&b, "Result", result)
		b.WriteString("\n")
	}

	if f.version != "" {
		fmt.Fprintf(&b, "---\n\n%s framemark %s\n", t("Generated by"), f.version)
	}
	return b.String()
}

func (f *MarkdownFormatter) section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "## %s\n\n", f.translate(title))
	fmt.Fprintf(b, "| %s | %s |\n", f.translate("Item"), f.translate("Value"))
	b.WriteString("|------|-------|\n")
}

func (f *MarkdownFormatter) row(b *strings.Builder, label, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(b, "| %s | %s |\n", f.translate(label), escape(value))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// formatBytes formats a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit && exp < 3; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGT"[exp])
}

func formatBitRate(bps int64) string {
	switch {
	case bps >= 1000000:
		return fmt.Sprintf("%.2f Mbps", float64(bps)/1e6)
	case bps >= 1000:
		return fmt.Sprintf("%.1f kbps", float64(bps)/1e3)
	default:
		return fmt.Sprintf("%d bps", bps)
	}
}

// formatDuration formats milliseconds as h:mm:ss.mmm.
func formatDuration(ms int64) string {
	if ms < 0 {
		return "-"
	}
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms%1000)
}
