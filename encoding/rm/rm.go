// Package rm encodes ink in the reMarkable .lines binary format, version 5,
// and reads versions 3 and 5.
package rm

// Version is the .lines format version.
type Version int

const (
	V3 Version = iota
	V5
)

const (
	HeaderV3  = "reMarkable .lines file, version=3          "
	HeaderV5  = "reMarkable .lines file, version=5          "
	HeaderLen = 43
)

// BrushType is the tool used for a line.
type BrushType uint32

const (
	BallPoint     BrushType = 2
	Marker        BrushType = 3
	Fineliner     BrushType = 4
	SharpPencil   BrushType = 7
	TiltPencil    BrushType = 1
	Brush         BrushType = 0
	Highlighter   BrushType = 5
	Eraser        BrushType = 6
	EraseArea     BrushType = 8
	BallPointV5   BrushType = 15
	MarkerV5      BrushType = 16
	FinelinerV5   BrushType = 17
	SharpPencilV5 BrushType = 13
	TiltPencilV5  BrushType = 14
	BrushV5       BrushType = 12
	HighlighterV5 BrushType = 18
)

type BrushColor uint32

const (
	Black BrushColor = 0
	Grey  BrushColor = 1
	White BrushColor = 2
)

type BrushSize float32

const (
	Small  BrushSize = 1.875
	Medium BrushSize = 2.0
	Large  BrushSize = 2.125
)

// Rm is one page of lines.
type Rm struct {
	Version Version
	Layers  []Layer
}

type Layer struct {
	Lines []Line
}

type Line struct {
	BrushType  BrushType
	BrushColor BrushColor
	Padding    uint32
	BrushSize  BrushSize
	Unknown    float32
	Points     []Point
}

// Point is a sample of a line. Speed is in pixels per millisecond and
// Direction in radians.
type Point struct {
	X         float32
	Y         float32
	Speed     float32
	Direction float32
	Width     float32
	Pressure  float32
}
