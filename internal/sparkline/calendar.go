package sparkline

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/christophergentle/mooddiary/internal/stats"
	"github.com/fogleman/gg"
)

// CalendarConfig holds configuration for the year-in-moods grid
type CalendarConfig struct {
	CellSize   int
	Gap        int
	Padding    int
	LabelWidth int
	Background color.RGBA
	EmptyCell  color.RGBA
	LowMood    color.RGBA
	MidMood    color.RGBA
	HighMood   color.RGBA
	TextColor  color.RGBA
}

// DefaultCalendarConfig returns a default calendar configuration
func DefaultCalendarConfig() *CalendarConfig {
	return &CalendarConfig{
		CellSize:   14,
		Gap:        2,
		Padding:    20,
		LabelWidth: 30,
		Background: color.RGBA{248, 249, 250, 255},
		EmptyCell:  color.RGBA{230, 232, 235, 255},
		LowMood:    color.RGBA{220, 53, 69, 255},
		MidMood:    color.RGBA{255, 193, 7, 255},
		HighMood:   color.RGBA{40, 167, 69, 255},
		TextColor:  color.RGBA{33, 37, 41, 255},
	}
}

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// CalendarGenerator renders one cell per day of a year, one row per month
type CalendarGenerator struct {
	config *CalendarConfig
}

// NewCalendarGenerator creates a new calendar generator
func NewCalendarGenerator(config *CalendarConfig) *CalendarGenerator {
	if config == nil {
		config = DefaultCalendarConfig()
	}
	return &CalendarGenerator{config: config}
}

// Size returns the image dimensions in pixels
func (cg *CalendarGenerator) Size() (int, int) {
	step := cg.config.CellSize + cg.config.Gap
	width := 2*cg.config.Padding + cg.config.LabelWidth + 31*step
	height := 2*cg.config.Padding + 12*step + cg.config.CellSize
	return width, height
}

// GenerateYearCalendar colors each day of year by its average mood rank. Days without
// entries are drawn as empty cells, so an empty points slice still yields an image.
func (cg *CalendarGenerator) GenerateYearCalendar(year int, points []stats.DayPoint) ([]byte, error) {
	byDate := make(map[string]stats.DayPoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}

	width, height := cg.Size()
	dc := gg.NewContext(width, height)
	dc.SetColor(cg.config.Background)
	dc.Clear()

	step := float64(cg.config.CellSize + cg.config.Gap)
	size := float64(cg.config.CellSize)
	originX := float64(cg.config.Padding + cg.config.LabelWidth)
	originY := float64(cg.config.Padding + cg.config.CellSize)

	dc.SetColor(cg.config.TextColor)
	dc.DrawStringAnchored(fmt.Sprintf("%d", year), float64(cg.config.Padding), float64(cg.config.Padding), 0, 0.5)

	for m := time.January; m <= time.December; m++ {
		rowY := originY + float64(m-1)*step
		dc.SetColor(cg.config.TextColor)
		dc.DrawStringAnchored(monthLabels[m-1], float64(cg.config.Padding), rowY+size/2, 0, 0.5)

		days := daysIn(year, m)
		for d := 1; d <= days; d++ {
			key := time.Date(year, m, d, 0, 0, 0, 0, time.UTC).Format(dateLayout)
			fill := cg.config.EmptyCell
			if p, ok := byDate[key]; ok && p.Entries > 0 {
				fill = cg.colorFor(p.AverageRank)
			}
			dc.SetColor(fill)
			dc.DrawRectangle(originX+float64(d-1)*step, rowY, size, size)
			dc.Fill()
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// colorFor blends low→mid for ranks 1..4 and mid→high for ranks 4..7
func (cg *CalendarGenerator) colorFor(rank float64) color.RGBA {
	switch {
	case rank <= 1:
		return cg.config.LowMood
	case rank >= 7:
		return cg.config.HighMood
	case rank < 4:
		return blend(cg.config.LowMood, cg.config.MidMood, (rank-1)/3)
	default:
		return blend(cg.config.MidMood, cg.config.HighMood, (rank-4)/3)
	}
}

func blend(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

const dateLayout = "2006-01-02"
