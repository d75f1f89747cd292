package markers

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/framemark/pkg/ports"
)

// LineIssue is a marker file line that was skipped or flagged.
type LineIssue struct {
	Line   int // 1-based
	Text   string
	Reason string
}

// ParseReport lists what a lenient parse skipped or noticed.
type ParseReport struct {
	Skipped    []LineIssue
	OutOfOrder []LineIssue
}

// Clean reports whether the file parsed without remarks.
func (r ParseReport) Clean() bool {
	return len(r.Skipped) == 0 && len(r.OutOfOrder) == 0
}

// Parse reads marker lines of the form "<start>, <end>". An open marker may
// be written "<start>, -1", "<start>," or "<start>". Blank lines are
// ignored, malformed lines are skipped and listed in the report, and lines
// whose start precedes the previous start are kept and flagged.
func Parse(data []byte) (*List, ParseReport) {
	var report ParseReport
	list := &List{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		m, err := parseLine(text)
		if err != nil {
			report.Skipped = append(report.Skipped, LineIssue{Line: lineNo, Text: text, Reason: err.Error()})
			continue
		}
		if n := len(list.markers); n > 0 && m.Start < list.markers[n-1].Start {
			report.OutOfOrder = append(report.OutOfOrder, LineIssue{
				Line:   lineNo,
				Text:   text,
				Reason: fmt.Sprintf("starts before %d", list.markers[n-1].Start),
			})
		}
		list.markers = append(list.markers, m)
	}
	return list, report
}

func parseLine(text string) (Marker, error) {
	fields := strings.Split(text, ",")
	if len(fields) > 2 {
		return Marker{}, fmt.Errorf("expected two values, got %d", len(fields))
	}

	start, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Marker{}, fmt.Errorf("bad start %q", strings.TrimSpace(fields[0]))
	}

	end := Open
	if len(fields) == 2 {
		if s := strings.TrimSpace(fields[1]); s != "" {
			end, err = strconv.ParseInt(s, 10, 64)
			if err != nil {
				return Marker{}, fmt.Errorf("bad end %q", s)
			}
		}
	}

	m := Marker{Start: start, End: end}
	if err := m.Validate(); err != nil {
		return Marker{}, err
	}
	return m, nil
}

// Format writes one "<start>, <end>" line per marker.
func Format(l *List) []byte {
	var buf bytes.Buffer
	for _, m := range l.markers {
		buf.WriteString(m.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Store loads and saves marker files through a ports.FileSystem.
type Store struct {
	fs     ports.FileSystem
	logger ports.Logger
}

// NewStore creates a marker file store.
func NewStore(fs ports.FileSystem, logger ports.Logger) *Store {
	return &Store{fs: fs, logger: logger.WithComponent("markers")}
}

// Load reads a marker file. Skipped and out-of-order lines are logged as
// warnings and returned in the report.
func (s *Store) Load(path string) (*List, ParseReport, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, ParseReport{}, fmt.Errorf("read markers %s: %w", path, err)
	}

	list, report := Parse(data)
	for _, issue := range report.Skipped {
		s.logger.Warn("Skipped line %d of %s: %s (%s)", issue.Line, path, issue.Text, issue.Reason)
	}
	for _, issue := range report.OutOfOrder {
		s.logger.Warn("Line %d of %s is out of order: %s", issue.Line, path, issue.Text)
	}
	s.logger.Debug("Loaded %d markers from %s", list.Len(), path)
	return list, report, nil
}

// Save writes the list to path.
func (s *Store) Save(path string, l *List) error {
	if err := s.fs.WriteFile(path, Format(l)); err != nil {
		return fmt.Errorf("write markers %s: %w", path, err)
	}
	s.logger.Debug("Saved %d markers to %s", l.Len(), path)
	return nil
}
