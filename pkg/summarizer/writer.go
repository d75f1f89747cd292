package summarizer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/user/framemark/pkg/ports"
)

// Formatter turns a Summary into text.
type Formatter interface {
	Format(summary *Summary) string
}

// StdoutPath makes Writer print the summary instead of saving it.
const StdoutPath = "-"

// Writer saves formatted summaries.
type Writer struct {
	formatter Formatter
	fs        ports.FileSystem
	stdout    io.Writer
}

func NewWriter(formatter Formatter, fs ports.FileSystem) *Writer {
	return &Writer{formatter: formatter, fs: fs, stdout: os.Stdout}
}

// Write formats the summary and writes it to path, or to stdout when path
// is StdoutPath. The text always ends with a newline.
func (w *Writer) Write(path string, summary *Summary) error {
	content := w.formatter.Format(summary)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	if path == StdoutPath {
		_, err := io.WriteString(w.stdout, content)
		return err
	}
	if err := w.fs.WriteFile(path, []byte(content)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
