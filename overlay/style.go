package overlay

// Color is a non premultiplied 8 bit RGBA color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

var (
	Black     = Color{0, 0, 0, 255}
	White     = Color{255, 255, 255, 255}
	Red       = Color{255, 0, 0, 255}
	Green     = Color{0, 255, 0, 255}
	Blue      = Color{0, 0, 255, 255}
	Yellow    = Color{255, 255, 0, 255}
	Cyan      = Color{0, 255, 255, 255}
	Magenta   = Color{255, 0, 255, 255}
	LightGray = Color{204, 204, 204, 255}
	DarkGray  = Color{68, 68, 68, 255}
)

// Style is how a command is drawn.
type Style struct {
	Color       Color   `json:"color"`
	TextColor   Color   `json:"text_color"`
	StrokeWidth float64 `json:"stroke_width"`
	TextSize    float64 `json:"text_size"`
	Font        string  `json:"font,omitempty"`
}

// DefaultStyle is a red 4px outline with 54pt black labels.
func DefaultStyle() Style {
	return Style{
		Color:       Red,
		TextColor:   Black,
		StrokeWidth: 4,
		TextSize:    54,
		Font:        "Helvetica",
	}
}

// LineHeight is the vertical distance between two label lines.
func (s Style) LineHeight() float64 {
	return s.TextSize + s.StrokeWidth
}

// ColorPair is a text color and the box color it is readable on.
type ColorPair struct {
	Text Color
	Box  Color
}

// Palette assigns colors to tracked objects.
type Palette []ColorPair

// DefaultPalette has ten pairs so neighbouring tracking ids differ.
var DefaultPalette = Palette{
	{Black, White},
	{White, Magenta},
	{Black, LightGray},
	{White, Red},
	{White, Blue},
	{White, DarkGray},
	{Black, Cyan},
	{Black, Yellow},
	{White, Black},
	{Black, Green},
}

// For returns the pair for a tracking id, the first one for untracked
// objects.
func (p Palette) For(id *int64) ColorPair {
	if len(p) == 0 {
		return ColorPair{Black, Red}
	}
	if id == nil {
		return p[0]
	}
	i := *id % int64(len(p))
	if i < 0 {
		i = -i
	}
	return p[i]
}
