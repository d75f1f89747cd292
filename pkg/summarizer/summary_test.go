package summarizer

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/framemark/pkg/mocks"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
	if summary.Video != nil || summary.Comparison != nil {
		t.Error("expected empty sections")
	}
}

func TestBuilder_FullChain(t *testing.T) {
	summary := NewBuilder().
		WithVideo(VideoInfo{Path: "clip.mkv", Width: 1920, Height: 1080}).
		WithSeek(SeekInfo{Seeks: 3, FramesDecoded: 40}).
		WithMarkers(MarkerFileInfo{Path: "a.txt", Count: 4}).
		WithMarkers(MarkerFileInfo{Path: "b.txt", Count: 5, Skipped: 1}).
		WithComparison(ComparisonInfo{PathA: "a.txt", PathB: "b.txt", Rows: 6, Highlighted: 2}).
		Build()

	if summary.Video == nil || summary.Video.Width != 1920 {
		t.Errorf("unexpected video: %+v", summary.Video)
	}
	if summary.Seek == nil || summary.Seek.Seeks != 3 {
		t.Errorf("unexpected seek info: %+v", summary.Seek)
	}
	if len(summary.Markers) != 2 || summary.Markers[1].Skipped != 1 {
		t.Errorf("unexpected markers: %+v", summary.Markers)
	}
	if summary.Comparison == nil || summary.Comparison.Identical() {
		t.Errorf("expected a differing comparison, got %+v", summary.Comparison)
	}
}

func TestComparisonInfo_Identical(t *testing.T) {
	if !(ComparisonInfo{Rows: 3}).Identical() {
		t.Error("expected comparison without highlights to be identical")
	}
}

type fixedFormatter string

func (f fixedFormatter) Format(*Summary) string { return string(f) }

func TestWriter_Stdout(t *testing.T) {
	var buf bytes.Buffer
	fs := mocks.NewFileSystem()
	w := NewWriter(fixedFormatter("custom"), fs)
	w.stdout = &buf

	if err := w.Write(StdoutPath, NewSummary()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := buf.String(); got != "custom\n" {
		t.Errorf("stdout = %q, want %q", got, "custom\n")
	}
	if len(fs.GetAllFiles()) != 0 {
		t.Error("expected no files to be written")
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(string, []byte) error { return errors.New("disk full") }
	err := NewWriter(fixedFormatter("x"), fs).Write("s.md", NewSummary())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(NewMarkdownFormatter(), fs)

	summary := NewBuilder().WithMarkers(MarkerFileInfo{Path: "a.txt", Count: 2}).Build()
	if err := w.Write("reports/summary.md", summary); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if ok, _ := fs.Exists("reports"); !ok {
		t.Error("expected parent directory to be created")
	}
	data, ok := fs.GetFile("reports/summary.md")
	if !ok {
		t.Fatal("expected summary file to be written")
	}
	if !strings.Contains(string(data), "`a.txt`") {
		t.Errorf("expected marker file in summary, got:\n%s", data)
	}
}
