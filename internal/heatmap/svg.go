package heatmap

import (
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// Layout of the rendered calendar, in pixels.
const (
	BlockSize   = 12
	BlockMargin = 4
	FontSize    = 12

	labelWidth  = 30
	headerSpace = 20
	footerSpace = 26
)

// TotalLabel is the caption under the calendar; {{count}} is replaced with
// the yearly total.
const TotalLabel = "{{count}} contributions in the last year"

const labelFill = `fill="rgba(15,23,42,0.62)"`

var weekdayLabels = []struct {
	row   int
	label string
}{{1, "Mon"}, {3, "Wed"}, {5, "Fri"}}

// RenderSVG draws the calendar as an inline SVG element.
func RenderSVG(cal Calendar, palette Palette) template.HTML {
	weeks := cal.Weeks()
	step := BlockSize + BlockMargin
	width := labelWidth + len(weeks)*step
	height := headerSpace + 7*step + footerSpace
	total := totalText(cal.Total)

	var b strings.Builder
	canvas := svg.New(&b)
	canvas.Start(width, height,
		`class="heatmap"`,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, width, height),
		`role="img"`,
		`aria-label="`+html.EscapeString(total)+`"`,
		fmt.Sprintf(`font-size="%d"`, FontSize))

	lastMonth := -1
	for col, week := range weeks {
		for _, d := range week {
			if d == nil {
				continue
			}
			if m := int(d.Date.Month()); m != lastMonth && d.Date.Day() <= 7 {
				canvas.Text(labelWidth+col*step, FontSize, d.Date.Format("Jan"), labelFill)
				lastMonth = m
			}
			break
		}
	}

	for _, wl := range weekdayLabels {
		canvas.Text(0, headerSpace+wl.row*step+BlockSize-1, wl.label, labelFill)
	}

	for col, week := range weeks {
		for row, d := range week {
			if d == nil {
				continue
			}
			canvas.Group(
				`data-date="`+d.Date.Format(dateLayout)+`"`,
				`data-level="`+strconv.Itoa(d.Level)+`"`)
			canvas.Title(dayTitle(*d))
			canvas.Roundrect(labelWidth+col*step, headerSpace+row*step, BlockSize, BlockSize, 2, 2,
				`fill="`+html.EscapeString(palette.Color(d.Level))+`"`)
			canvas.Gend()
		}
	}

	canvas.Text(labelWidth, height-8, total, `fill="rgba(15,23,42,0.70)"`)
	canvas.End()

	// svgo writes an XML prolog, which has no place inside an HTML page.
	out := b.String()
	if i := strings.Index(out, "<svg"); i > 0 {
		out = out[i:]
	}
	return template.HTML(out)
}

func totalText(total int) string {
	return strings.ReplaceAll(TotalLabel, "{{count}}", strconv.Itoa(total))
}

func dayTitle(d Day) string {
	date := d.Date.Format("January 2, 2006")
	switch d.Count {
	case 0:
		return "No contributions on " + date
	case 1:
		return "1 contribution on " + date
	default:
		return strconv.Itoa(d.Count) + " contributions on " + date
	}
}
