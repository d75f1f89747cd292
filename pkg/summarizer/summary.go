// Package summarizer builds Markdown summaries of probed videos, marker
// files and marker comparisons.
package summarizer

import "time"

// Summary contains what framemark learned about a video and its markers.
type Summary struct {
	GeneratedAt time.Time

	// Video is nil when no video was opened.
	Video *VideoInfo

	// Seek is nil when no frames were decoded.
	Seek *SeekInfo

	Markers []MarkerFileInfo

	// Comparison is nil unless two marker files were compared.
	Comparison *ComparisonInfo
}

// VideoInfo describes the opened video stream.
type VideoInfo struct {
	Path       string
	FileSize   int64
	Container  string // container format name
	Timing     string // timing model used for seeking
	Codec      string
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int64
	DurationMs int64
	BitRate    int64
	TimeBase   string
	Chapters   []Chapter
}

// Chapter is one chapter of the video.
type Chapter struct {
	Title   string
	StartMs int64
	EndMs   int64
}

// SeekInfo contains the seek engine counters.
type SeekInfo struct {
	Seeks         int
	Retreats      int
	PacketsRead   int
	FramesDecoded int
	CacheHits     int
	DecodeErrors  int
}

// MarkerFileInfo describes one loaded marker file.
type MarkerFileInfo struct {
	Path       string
	Count      int
	Open       int // markers without an end
	Skipped    int // malformed lines
	OutOfOrder int
}

// ComparisonInfo contains the result of comparing two marker files.
type ComparisonInfo struct {
	PathA       string
	PathB       string
	Rows        int
	Highlighted int
}

// Identical reports whether no row was highlighted.
func (c ComparisonInfo) Identical() bool {
	return c.Highlighted == 0
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithVideo sets the video information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = &video
	return b
}

// WithSeek sets the seek engine counters.
func (b *Builder) WithSeek(seek SeekInfo) *Builder {
	b.summary.Seek = &seek
	return b
}

// WithMarkers adds a marker file.
func (b *Builder) WithMarkers(info MarkerFileInfo) *Builder {
	b.summary.Markers = append(b.summary.Markers, info)
	return b
}

// WithComparison sets the comparison result.
func (b *Builder) WithComparison(c ComparisonInfo) *Builder {
	b.summary.Comparison = &c
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
