// Package chart places labeled tokens on the fixed 4x4 South Indian chart
// grid. Placement is pure table lookup; all astronomy happens upstream.
package chart

import "fmt"

// Signs in zodiacal order. Index 0 is Aries.
var SignNames = [12]struct {
	EN string
	TA string
}{
	{"Aries", "மேஷம்"},
	{"Taurus", "ரிஷபம்"},
	{"Gemini", "மிதுனம்"},
	{"Cancer", "கடகம்"},
	{"Leo", "சிம்மம்"},
	{"Virgo", "கன்னி"},
	{"Libra", "துலாம்"},
	{"Scorpio", "விருச்சிகம்"},
	{"Sagittarius", "தனுசு"},
	{"Capricorn", "மகரம்"},
	{"Aquarius", "கும்பம்"},
	{"Pisces", "மீனம்"},
}

// layoutRing maps grid position (row-major, 4x4) to sign index. The walk is
// circular: it starts at Pisces in the top-left corner and proceeds around
// the four edges, skipping the merged center. -1 marks a center cell.
var layoutRing = [16]int{
	11, 0, 1, 2,
	10, -1, -1, 3,
	9, -1, -1, 4,
	8, 7, 6, 5,
}

// MarkerLabel is the reference-point label, always listed before any
// celestial-body token sharing its cell.
const MarkerLabel = "ASC"

var shortNames = map[string]string{
	"Sun":     "Su",
	"Moon":    "Mo",
	"Mars":    "Ma",
	"Mercury": "Me",
	"Jupiter": "Ju",
	"Venus":   "Ve",
	"Saturn":  "Sa",
	"Rahu":    "Ra",
	"Ketu":    "Ke",
}

// ShortName abbreviates a known celestial-body name; unknown names pass
// through unchanged.
func ShortName(name string) string {
	if s, ok := shortNames[name]; ok {
		return s
	}
	return name
}

// RangeError reports a sign index outside [0,11].
type RangeError struct {
	Index int
}

func (e RangeError) Error() string {
	return fmt.Sprintf("sign index %d outside [0,11]", e.Index)
}

// Token is one labeled body with its sign index.
type Token struct {
	Name      string `json:"name"`
	SignIndex int    `json:"sign_index"`
}

// Cell is one of the 16 grid cells. Sign is -1 for the four center cells,
// which render as a single merged region.
type Cell struct {
	Sign   int      `json:"sign"`
	Tokens []string `json:"tokens,omitempty"`
}

// Grid is the laid-out chart, row-major.
type Grid struct {
	Cells [16]Cell `json:"cells"`
}

// positionOf maps sign index to grid position.
var positionOf [12]int

func init() {
	for pos, sign := range layoutRing {
		if sign >= 0 {
			positionOf[sign] = pos
		}
	}
}

// Layout places the marker and tokens onto the grid. It is total over valid
// indices and deterministic: same inputs, same grid.
func Layout(markerIdx int, tokens []Token) (Grid, error) {
	var g Grid
	if markerIdx < 0 || markerIdx > 11 {
		return g, RangeError{Index: markerIdx}
	}
	for _, t := range tokens {
		if t.SignIndex < 0 || t.SignIndex > 11 {
			return g, RangeError{Index: t.SignIndex}
		}
	}
	for pos, sign := range layoutRing {
		g.Cells[pos].Sign = sign
	}
	markerPos := positionOf[markerIdx]
	g.Cells[markerPos].Tokens = append(g.Cells[markerPos].Tokens, MarkerLabel)
	for _, t := range tokens {
		pos := positionOf[t.SignIndex]
		g.Cells[pos].Tokens = append(g.Cells[pos].Tokens, ShortName(t.Name))
	}
	return g, nil
}
