package render

import (
	"bytes"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ticketbot/models"
)

// ErrEmptySeries guards the renderer contract: providers must short-circuit
// on empty windows before reaching this point.
var ErrEmptySeries = errors.New("cannot render an empty series")

const (
	chartWidth  = 1000
	chartHeight = 800
)

var (
	lineColor  = drawing.Color{R: 0xFF, G: 0x8C, B: 0x00, A: 0xFF} // dark orange
	textColor  = drawing.ColorWhite
	themeColor = drawing.Color{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}
)

// Chart renders daily ticket series into PNG bytes, optionally composited
// over one of a fixed pool of decorative backgrounds.
type Chart struct {
	backgrounds []string
	pick        func(n int) int
}

type ChartOption func(*Chart)

// WithPick replaces the random background selection, for deterministic tests.
func WithPick(pick func(n int) int) ChartOption {
	return func(c *Chart) { c.pick = pick }
}

func NewChart(backgrounds []string, opts ...ChartOption) *Chart {
	c := &Chart{
		backgrounds: backgrounds,
		pick:        rand.Intn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Render draws the time-series line chart: one marker per day, the value
// annotated above each point, day labels on the x-axis, no y-axis.
func (c *Chart) Render(series models.DailySeries, lookbackDays int) ([]byte, error) {
	if len(series.Points) == 0 {
		return nil, ErrEmptySeries
	}

	xs := make([]float64, len(series.Points))
	ys := make([]float64, len(series.Points))
	ticks := make([]chart.Tick, len(series.Points))
	notes := make([]chart.Value2, len(series.Points))
	minY, maxY := float64(series.Points[0].Tickets), float64(series.Points[0].Tickets)
	for i, p := range series.Points {
		xs[i] = chart.TimeToFloat64(p.Date)
		ys[i] = float64(p.Tickets)
		ticks[i] = chart.Tick{Value: xs[i], Label: p.Date.Format("01/02")}
		notes[i] = chart.Value2{XValue: xs[i], YValue: ys[i], Label: strconv.Itoa(p.Tickets)}
		if ys[i] < minY {
			minY = ys[i]
		}
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}

	graph := chart.Chart{
		Width:  chartWidth,
		Height: chartHeight,
		Title:  fmt.Sprintf("%s Tickets (Last %d days)", series.GuildName, lookbackDays),
		TitleStyle: chart.Style{
			FontColor: textColor,
			FontSize:  28,
		},
		Background: chart.Style{FillColor: drawing.ColorTransparent},
		Canvas:     chart.Style{FillColor: drawing.ColorTransparent},
		XAxis: chart.XAxis{
			Style: chart.Style{
				FontColor:   textColor,
				FontSize:    14,
				StrokeColor: textColor,
			},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Style: chart.Hidden(),
			Range: &chart.ContinuousRange{
				Min: minY - minY*0.1,
				Max: maxY + maxY*0.1,
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					DotColor:    lineColor,
					DotWidth:    5,
				},
			},
			chart.AnnotationSeries{
				Annotations: notes,
				Style: chart.Style{
					FontColor:   textColor,
					FontSize:    12,
					StrokeColor: drawing.ColorTransparent,
					FillColor:   drawing.ColorTransparent,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "chart render")
	}

	return c.compose(buf.Bytes())
}
