package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// The charts are small self-contained SVG documents so reports render in any
// browser without an image pipeline. Scores are on a 0..100 scale.

const (
	chartSize   = 420.0
	chartMargin = 60.0
)

func svgHeader(w, h float64, title string) string {
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f" font-family="sans-serif">`+"\n"+
			`<text x="%.0f" y="24" font-size="16" text-anchor="middle">%s</text>`+"\n",
		w, h, w, h, w/2, escape(title))
}

// radarSVG draws competency averages as a filled polygon over axis spokes.
func radarSVG(compAvgs map[string]float64) string {
	names := sortedKeys(compAvgs)
	var b strings.Builder
	b.WriteString(svgHeader(chartSize, chartSize, "Competency Radar"))

	cx, cy := chartSize/2, chartSize/2+10
	radius := chartSize/2 - chartMargin

	if len(names) >= 3 {
		// concentric guides at 25/50/75/100
		for _, frac := range []float64{0.25, 0.5, 0.75, 1.0} {
			b.WriteString(ringPath(cx, cy, radius*frac, len(names)))
		}
		var points []string
		for i, name := range names {
			angle := 2*math.Pi*float64(i)/float64(len(names)) - math.Pi/2
			ax := cx + radius*math.Cos(angle)
			ay := cy + radius*math.Sin(angle)
			fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#ccc"/>`+"\n", cx, cy, ax, ay)

			lx := cx + (radius+18)*math.Cos(angle)
			ly := cy + (radius+18)*math.Sin(angle)
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="11" text-anchor="middle">%s</text>`+"\n", lx, ly, escape(name))

			frac := clamp01(compAvgs[name] / 100)
			px := cx + radius*frac*math.Cos(angle)
			py := cy + radius*frac*math.Sin(angle)
			points = append(points, fmt.Sprintf("%.1f,%.1f", px, py))
		}
		fmt.Fprintf(&b, `<polygon points="%s" fill="#4f86f7" fill-opacity="0.35" stroke="#4f86f7" stroke-width="2"/>`+"\n",
			strings.Join(points, " "))
	} else {
		b.WriteString(emptyNote(cx, cy))
	}

	b.WriteString("</svg>\n")
	return b.String()
}

// lineSVG draws per-question overall scores over the interview.
func lineSVG(scores []float64) string {
	w, h := chartSize+80, chartSize*0.7
	var b strings.Builder
	b.WriteString(svgHeader(w, h, "Score Over Time"))

	left, right := chartMargin, w-30
	top, bottom := 50.0, h-50

	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", left, bottom, right, bottom)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", left, top, left, bottom)
	for _, v := range []float64{0, 25, 50, 75, 100} {
		y := bottom - (bottom-top)*v/100
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="10" text-anchor="end">%.0f</text>`+"\n", left-6, y+3, v)
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#eee"/>`+"\n", left, y, right, y)
	}

	if len(scores) > 0 {
		step := 0.0
		if len(scores) > 1 {
			step = (right - left - 20) / float64(len(scores)-1)
		}
		var points []string
		for i, score := range scores {
			x := left + 10 + step*float64(i)
			y := bottom - (bottom-top)*clamp01(score/100)
			points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
			fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="4" fill="#4f86f7"/>`+"\n", x, y)
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="10" text-anchor="middle">Q%d</text>`+"\n", x, bottom+16, i+1)
		}
		if len(points) > 1 {
			fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="#4f86f7" stroke-width="2"/>`+"\n",
				strings.Join(points, " "))
		}
	} else {
		b.WriteString(emptyNote(w/2, (top+bottom)/2))
	}

	b.WriteString("</svg>\n")
	return b.String()
}

// barSVG compares persona averages side by side.
func barSVG(personaAvgs map[string]float64) string {
	names := sortedKeys(personaAvgs)
	w, h := chartSize, chartSize*0.7
	var b strings.Builder
	b.WriteString(svgHeader(w, h, "Persona Comparison"))

	left := chartMargin
	top, bottom := 50.0, h-50

	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", left, bottom, w-30, bottom)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", left, top, left, bottom)

	if len(names) > 0 {
		slot := (w - left - 40) / float64(len(names))
		barW := slot * 0.6
		for i, name := range names {
			val := clamp01(personaAvgs[name] / 100)
			x := left + slot*float64(i) + (slot-barW)/2
			barH := (bottom - top) * val
			fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="#4f86f7"/>`+"\n",
				x, bottom-barH, barW, barH)
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="11" text-anchor="middle">%s</text>`+"\n",
				x+barW/2, bottom+16, escape(name))
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="11" text-anchor="middle">%.0f</text>`+"\n",
				x+barW/2, bottom-barH-6, personaAvgs[name])
		}
	} else {
		b.WriteString(emptyNote(w/2, (top+bottom)/2))
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func ringPath(cx, cy, r float64, sides int) string {
	var points []string
	for i := 0; i < sides; i++ {
		angle := 2*math.Pi*float64(i)/float64(sides) - math.Pi/2
		points = append(points, fmt.Sprintf("%.1f,%.1f", cx+r*math.Cos(angle), cy+r*math.Sin(angle)))
	}
	return fmt.Sprintf(`<polygon points="%s" fill="none" stroke="#ddd"/>`+"\n", strings.Join(points, " "))
}

func emptyNote(x, y float64) string {
	return fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="12" text-anchor="middle" fill="#888">no data</text>`+"\n", x, y)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
