package sparkline

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/stats"
	"github.com/fogleman/gg"
)

// ErrNoData is returned when there is nothing to plot
var ErrNoData = errors.New("no data points provided")

// SparklineConfig holds configuration for sparkline generation
type SparklineConfig struct {
	Width         int
	Height        int
	Padding       int
	LineWidth     float64
	PointRadius   float64
	Background    color.RGBA
	PositiveLine  color.RGBA
	NegativeLine  color.RGBA
	NeutralLine   color.RGBA
	SentimentLine color.RGBA
	GridColor     color.RGBA
	TextColor     color.RGBA
	Title         string
}

// DefaultConfig returns a default sparkline configuration
func DefaultConfig() *SparklineConfig {
	return &SparklineConfig{
		Width:         600,
		Height:        240,
		Padding:       30,
		LineWidth:     2.0,
		PointRadius:   3.0,
		Background:    color.RGBA{248, 249, 250, 255}, // Light gray
		PositiveLine:  color.RGBA{40, 167, 69, 255},   // Green
		NegativeLine:  color.RGBA{220, 53, 69, 255},   // Red
		NeutralLine:   color.RGBA{108, 117, 125, 255}, // Gray
		SentimentLine: color.RGBA{0, 123, 255, 160},   // Translucent blue
		GridColor:     color.RGBA{200, 200, 200, 255},
		TextColor:     color.RGBA{33, 37, 41, 255},
		Title:         "Mood trend",
	}
}

// SparklineGenerator renders mood trend images
type SparklineGenerator struct {
	config *SparklineConfig
}

// NewSparklineGenerator creates a new sparkline generator
func NewSparklineGenerator(config *SparklineConfig) *SparklineGenerator {
	if config == nil {
		config = DefaultConfig()
	}
	return &SparklineGenerator{config: config}
}

// area is the plotting rectangle inside the padding
type area struct {
	x, y, width, height float64
}

// GenerateMoodSparkline draws the daily average mood rank (1..7) and the daily average
// sentiment (-1..1) on a shared time axis and returns PNG bytes.
func (sg *SparklineGenerator) GenerateMoodSparkline(points []stats.DayPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	dc := gg.NewContext(sg.config.Width, sg.config.Height)
	dc.SetColor(sg.config.Background)
	dc.Clear()

	a := area{
		x:      float64(sg.config.Padding),
		y:      float64(sg.config.Padding),
		width:  float64(sg.config.Width - 2*sg.config.Padding),
		height: float64(sg.config.Height - 2*sg.config.Padding),
	}

	sg.drawGrid(dc, a)
	sg.drawSentimentLine(dc, points, a)
	sg.drawMoodLine(dc, points, a)
	sg.drawLabels(dc, points, a)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode sparkline: %w", err)
	}
	return buf.Bytes(), nil
}

// rankY maps a mood rank onto the plot, 1 at the bottom and 7 at the top
func rankY(rank float64, a area) float64 {
	lowest, highest := float64(mood.VerySad.Rank), float64(mood.VeryHappy.Rank)
	return a.y + a.height - (rank-lowest)/(highest-lowest)*a.height
}

// sentimentY maps a score in [-1, 1] onto the plot with 0 in the middle
func sentimentY(score float64, a area) float64 {
	return a.y + a.height/2 - score*(a.height/2)
}

// pointX spreads points over the width by time; a single point sits in the middle
func pointX(points []stats.DayPoint, i int, a area) float64 {
	if len(points) == 1 {
		return a.x + a.width/2
	}
	start := points[0].Timestamp
	span := points[len(points)-1].Timestamp.Sub(start).Seconds()
	if span <= 0 {
		return a.x + a.width*float64(i)/float64(len(points)-1)
	}
	return a.x + (points[i].Timestamp.Sub(start).Seconds()/span)*a.width
}

// drawGrid draws one horizontal line per mood rank and a stronger neutral line
func (sg *SparklineGenerator) drawGrid(dc *gg.Context, a area) {
	dc.SetColor(sg.config.GridColor)
	dc.SetLineWidth(0.5)
	for _, c := range mood.All() {
		yPos := rankY(float64(c.Rank), a)
		dc.DrawLine(a.x, yPos, a.x+a.width, yPos)
		dc.Stroke()
	}

	dc.SetLineWidth(1.0)
	neutral := rankY(float64(mood.Neutral.Rank), a)
	dc.DrawLine(a.x, neutral, a.x+a.width, neutral)
	dc.Stroke()
}

func (sg *SparklineGenerator) drawSentimentLine(dc *gg.Context, points []stats.DayPoint, a area) {
	if len(points) < 2 {
		return
	}
	dc.SetColor(sg.config.SentimentLine)
	dc.SetLineWidth(sg.config.LineWidth / 2)
	for i := 0; i < len(points)-1; i++ {
		dc.DrawLine(
			pointX(points, i, a), sentimentY(points[i].AverageSentiment, a),
			pointX(points, i+1, a), sentimentY(points[i+1].AverageSentiment, a),
		)
		dc.Stroke()
	}
}

// drawMoodLine colors each segment by the mood at its start
func (sg *SparklineGenerator) drawMoodLine(dc *gg.Context, points []stats.DayPoint, a area) {
	for i := range points {
		x1, y1 := pointX(points, i, a), rankY(points[i].AverageRank, a)
		lineColor := sg.colorFor(points[i].AverageRank)

		if i < len(points)-1 {
			dc.SetColor(lineColor)
			dc.SetLineWidth(sg.config.LineWidth)
			dc.DrawLine(x1, y1, pointX(points, i+1, a), rankY(points[i+1].AverageRank, a))
			dc.Stroke()
		}

		dc.SetColor(lineColor)
		dc.DrawCircle(x1, y1, sg.config.PointRadius)
		dc.Fill()
	}
}

func (sg *SparklineGenerator) colorFor(rank float64) color.RGBA {
	switch {
	case rank > float64(mood.Neutral.Rank)+0.5:
		return sg.config.PositiveLine
	case rank < float64(mood.Neutral.Rank)-0.5:
		return sg.config.NegativeLine
	default:
		return sg.config.NeutralLine
	}
}

// drawLabels uses gg's built-in face; no font file is needed
func (sg *SparklineGenerator) drawLabels(dc *gg.Context, points []stats.DayPoint, a area) {
	dc.SetColor(sg.config.TextColor)

	for _, c := range []mood.Category{mood.VerySad, mood.Neutral, mood.VeryHappy} {
		dc.DrawStringAnchored(fmt.Sprintf("%d", c.Rank), a.x-5, rankY(float64(c.Rank), a), 1, 0.5)
	}

	dc.DrawStringAnchored(points[0].Date, a.x, a.y+a.height+15, 0, 0)
	if len(points) > 1 {
		dc.DrawStringAnchored(points[len(points)-1].Date, a.x+a.width, a.y+a.height+15, 1, 0)
	}

	if sg.config.Title != "" {
		dc.DrawStringAnchored(sg.config.Title, a.x+a.width/2, a.y-10, 0.5, 0)
	}
}
