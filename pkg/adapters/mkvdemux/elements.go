package mkvdemux

import "github.com/at-wat/ebml-go"

// Element layout of the parts of a Matroska file the demuxer reads.
// Field names follow the Matroska element names.

type container struct {
	Header  ebmlHeader `ebml:"EBML"`
	Segment segment
}

type ebmlHeader struct {
	EBMLVersion            uint64
	EBMLReadVersion        uint64
	EBMLMaxIDLength        uint64
	EBMLMaxSizeLength      uint64
	EBMLDocType            string
	EBMLDocTypeVersion     uint64
	EBMLDocTypeReadVersion uint64
}

type segment struct {
	Info     info
	Tracks   tracks
	Cluster  []cluster
	Chapters chapters `ebml:",omitempty"`
	Tags     tags     `ebml:",omitempty"`
}

type info struct {
	TimecodeScale uint64
	Duration      float64 `ebml:",omitempty"`
	Title         string  `ebml:",omitempty"`
	MuxingApp     string  `ebml:",omitempty"`
	WritingApp    string  `ebml:",omitempty"`
}

type tracks struct {
	TrackEntry []trackEntry
}

type trackEntry struct {
	Name            string `ebml:",omitempty"`
	TrackNumber     uint64
	TrackUID        uint64 `ebml:",omitempty"`
	TrackType       uint64
	CodecID         string
	CodecPrivate    []byte `ebml:",omitempty"`
	DefaultDuration uint64 `ebml:",omitempty"`
	Video           video  `ebml:",omitempty"`
}

type video struct {
	PixelWidth  uint64
	PixelHeight uint64
}

type cluster struct {
	Timecode    uint64
	SimpleBlock []ebml.Block `ebml:",omitempty"`
	BlockGroup  []blockGroup `ebml:",omitempty"`
}

type blockGroup struct {
	Block          ebml.Block
	BlockDuration  uint64  `ebml:",omitempty"`
	ReferenceBlock []int64 `ebml:",omitempty"`
}

type chapters struct {
	EditionEntry []editionEntry `ebml:",omitempty"`
}

type editionEntry struct {
	ChapterAtom []chapterAtom `ebml:",omitempty"`
}

type chapterAtom struct {
	ChapterUID       uint64
	ChapterTimeStart uint64
	ChapterTimeEnd   uint64           `ebml:",omitempty"`
	ChapterDisplay   []chapterDisplay `ebml:",omitempty"`
}

type chapterDisplay struct {
	ChapString string
}

type tags struct {
	Tag []tag `ebml:",omitempty"`
}

type tag struct {
	SimpleTag []simpleTag
}

type simpleTag struct {
	TagName   string
	TagString string `ebml:",omitempty"`
}

const trackTypeVideo = 1
