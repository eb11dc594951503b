package render

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mileusna/useragent"
)

// Breakpoint names a viewport width class
type Breakpoint string

const (
	Compact Breakpoint = "compact"
	Wide    Breakpoint = "wide"
)

// WideMinWidth is the first viewport width (CSS px, 48em) rendered as Wide
const WideMinWidth = 768

// Direction is the stacking direction of the info panel
type Direction string

const (
	Vertical   Direction = "column"
	Horizontal Direction = "row"
)

// Layout holds the breakpoint dependent presentation values
type Layout struct {
	Breakpoint Breakpoint `json:"breakpoint"`
	PanelWidth string     `json:"panel_width"`
	HeroHeight string     `json:"hero_height"`
	Direction  Direction  `json:"direction"`
	InfoHeight string     `json:"info_height"`
	Background string     `json:"background"`
}

var layouts = map[Breakpoint]Layout{
	Compact: {
		Breakpoint: Compact,
		PanelWidth: "80%",
		HeroHeight: "25rem",
		Direction:  Vertical,
		InfoHeight: "25rem",
		Background: "/static/images/pattern-bg-mobile.svg",
	},
	Wide: {
		Breakpoint: Wide,
		PanelWidth: "800px",
		HeroHeight: "15rem",
		Direction:  Horizontal,
		InfoHeight: "6rem",
		Background: "/static/images/pattern-bg-desktop.svg",
	},
}

// LayoutFor returns the layout of a breakpoint. Unknown values get Wide.
func LayoutFor(bp Breakpoint) Layout {
	if l, ok := layouts[bp]; ok {
		return l
	}
	return layouts[Wide]
}

// ParseBreakpoint validates a breakpoint name
func ParseBreakpoint(s string) (Breakpoint, error) {
	switch bp := Breakpoint(strings.ToLower(strings.TrimSpace(s))); bp {
	case Compact, Wide:
		return bp, nil
	default:
		return "", fmt.Errorf("unknown breakpoint %q", s)
	}
}

// BreakpointForWidth classifies a viewport width in CSS pixels
func BreakpointForWidth(width int) Breakpoint {
	if width < WideMinWidth {
		return Compact
	}
	return Wide
}

// BreakpointFromRequest picks the breakpoint for a page request.
// An explicit vw query parameter wins, then the viewport width client
// hints, then the device class from the User-Agent.
func BreakpointFromRequest(r *http.Request) Breakpoint {
	if w, ok := parseWidth(r.URL.Query().Get("vw")); ok {
		return BreakpointForWidth(w)
	}

	for _, h := range []string{"Sec-CH-Viewport-Width", "Viewport-Width"} {
		if w, ok := parseWidth(r.Header.Get(h)); ok {
			return BreakpointForWidth(w)
		}
	}

	if ua := r.Header.Get("User-Agent"); ua != "" {
		if useragent.Parse(ua).Mobile {
			return Compact
		}
	}

	return Wide
}

func parseWidth(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	w, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || w <= 0 {
		return 0, false
	}
	return w, true
}
