// Package chart rasterises dashboard line charts onto go-chart renderers.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/golang/freetype/truetype"
	gochart "github.com/wcharczuk/go-chart/v2"

	"OrderFlowDash/internal/format"
)

const (
	fontSize     = 12
	yTicks       = 4
	maxXTicks    = 6
	maxMarkers   = 80
	markerRadius = 3
	lineWidth    = 2
	labelGap     = 6
)

// Surface is the CSS-pixel size of a chart and its device pixel ratio.
type Surface struct {
	Width  int
	Height int
	DPR    float64
}

// Pixels returns the backing bitmap size: floor(css * dpr).
func (s Surface) Pixels() (w, h int) {
	dpr := s.dpr()
	return int(math.Floor(float64(s.Width) * dpr)), int(math.Floor(float64(s.Height) * dpr))
}

func (s Surface) dpr() float64 {
	if s.DPR <= 0 {
		return 1
	}
	return s.DPR
}

// Series is a pair of parallel label and value sequences.
type Series struct {
	Labels []string
	Values []float64
}

// Len returns min(len(labels), len(values)).
func (s Series) Len() int {
	if len(s.Labels) < len(s.Values) {
		return len(s.Labels)
	}
	return len(s.Values)
}

// canvas scales CSS-pixel drawing calls to device pixels.
type canvas struct {
	r   gochart.Renderer
	dpr float64
}

func (c canvas) px(v float64) int { return int(math.Round(v * c.dpr)) }

func (c canvas) moveTo(x, y float64) { c.r.MoveTo(c.px(x), c.px(y)) }
func (c canvas) lineTo(x, y float64) { c.r.LineTo(c.px(x), c.px(y)) }

func (c canvas) rect(x, y, w, h float64) {
	c.moveTo(x, y)
	c.lineTo(x+w, y)
	c.lineTo(x+w, y+h)
	c.lineTo(x, y+h)
	c.r.Close()
}

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

func (c canvas) text(body string, x, y float64, a align) {
	px := c.px(x)
	switch a {
	case alignCenter:
		px -= c.r.MeasureText(body).Width() / 2
	case alignRight:
		px -= c.r.MeasureText(body).Width()
	}
	c.r.Text(body, px, c.px(y))
}

// Draw paints series onto r. The renderer must already be sized to
// surface.Pixels(). Degenerate input draws a placeholder or stops after
// the frame; it never fails.
func Draw(r gochart.Renderer, font *truetype.Font, surface Surface, s Series, th Theme) {
	c := canvas{r: r, dpr: surface.dpr()}
	width, height := float64(surface.Width), float64(surface.Height)

	r.SetDPI(72 * c.dpr)
	if font != nil {
		r.SetFont(font)
	}
	r.SetFontSize(fontSize)

	r.SetFillColor(th.Background)
	c.rect(0, 0, width, height)
	r.Fill()

	r.SetStrokeColor(th.Stroke)
	r.SetStrokeWidth(1 * c.dpr)
	c.rect(0.5, 0.5, width-1, height-1)
	r.Stroke()

	n := s.Len()
	if n < 2 {
		r.SetFontColor(th.Muted)
		c.text("no data", 12, 20, alignLeft)
		return
	}
	values := s.Values[:n]
	minY, maxY, err := PaddedRange(values)
	if err != nil {
		return
	}
	f := frame{pad: DefaultPadding, width: width, height: height, n: n, minY: minY, maxY: maxY}

	// gridlines and value labels
	r.SetFontColor(th.Muted)
	r.SetStrokeColor(th.Grid)
	r.SetStrokeWidth(1 * c.dpr)
	for t := 0; t <= yTicks; t++ {
		p := float64(t) / yTicks
		y := f.pad.Top + p*f.plotHeight()
		c.moveTo(f.pad.Left, y)
		c.lineTo(f.pad.Left+f.plotWidth(), y)
		r.Stroke()
		c.text(format.Money(maxY-p*(maxY-minY)), f.pad.Left-labelGap, y+4, alignRight)
	}

	// x baseline and tick labels
	r.SetStrokeColor(th.Stroke)
	baseline := f.pad.Top + f.plotHeight()
	c.moveTo(f.pad.Left, baseline)
	c.lineTo(f.pad.Left+f.plotWidth(), baseline)
	r.Stroke()

	xTicks := n
	if xTicks > maxXTicks {
		xTicks = maxXTicks
	}
	for t := 0; t < xTicks; t++ {
		idx := int(math.Round(float64(t) / float64(xTicks-1) * float64(n-1)))
		a := alignCenter
		if t == 0 {
			a = alignLeft
		} else if t == xTicks-1 {
			a = alignRight
		}
		c.text(s.Labels[idx], f.x(idx), height-10, a)
	}

	// the line breaks at non-finite values and resumes at the next finite one
	r.SetStrokeColor(th.Accent)
	r.SetStrokeWidth(lineWidth * c.dpr)
	penDown := false
	for i, v := range values {
		if !finite(v) {
			penDown = false
			continue
		}
		if penDown {
			c.lineTo(f.x(i), f.y(v))
		} else {
			c.moveTo(f.x(i), f.y(v))
			penDown = true
		}
	}
	r.Stroke()

	r.SetFillColor(th.Background)
	for i := 0; i < n; i += MarkerStride(n) {
		v := values[i]
		if !finite(v) {
			continue
		}
		r.Circle(markerRadius*c.dpr, c.px(f.x(i)), c.px(f.y(v)))
		r.FillStroke()
	}
}

// MarkerStride keeps the number of point markers at or below about 80.
func MarkerStride(n int) int {
	if s := n / maxMarkers; s > 1 {
		return s
	}
	return 1
}

var (
	fontOnce sync.Once
	fontVal  *truetype.Font
	fontErr  error
)

// DefaultFont returns the bundled go-chart font, loaded once.
func DefaultFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontVal, fontErr = gochart.GetDefaultFont()
	})
	return fontVal, fontErr
}

// RenderPNG draws series on a fresh PNG surface and returns the encoded image.
func RenderPNG(surface Surface, s Series, th Theme) ([]byte, error) {
	w, h := surface.Pixels()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid surface %dx%d", w, h)
	}
	font, err := DefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	r, err := gochart.PNG(w, h)
	if err != nil {
		return nil, fmt.Errorf("png renderer: %w", err)
	}
	Draw(r, font, surface, s, th)

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
