package cmdshell

import (
	"fmt"
	"strings"
)

// ColorScheme defines the colors of the prompt line.
type ColorScheme struct {
	Name   string `json:"name"`
	Prefix Color  `json:"prefix"` // Delimiter in front of the input
	Input  Color  `json:"input"`  // Typed text
}

// Color is a true-color foreground, optionally bold.
type Color struct {
	R    uint8 `json:"r"`
	G    uint8 `json:"g"`
	B    uint8 `json:"b"`
	Bold bool  `json:"bold"`
}

// ThemeDefault paints the delimiter green.
var ThemeDefault = &ColorScheme{
	Name:   "default",
	Prefix: Color{R: 0, G: 255, B: 0, Bold: true},
	Input:  Color{R: 255, G: 255, B: 255, Bold: true},
}

// ThemeDark suits dark backgrounds.
var ThemeDark = &ColorScheme{
	Name:   "Dark",
	Prefix: Color{R: 102, G: 217, B: 239, Bold: true},
	Input:  Color{R: 248, G: 248, B: 242, Bold: false},
}

// ThemeLight suits light backgrounds.
var ThemeLight = &ColorScheme{
	Name:   "Light",
	Prefix: Color{R: 0, G: 119, B: 187, Bold: true},
	Input:  Color{R: 36, G: 41, B: 46, Bold: false},
}

// ThemeAccessible uses a colorblind-safe blue.
var ThemeAccessible = &ColorScheme{
	Name:   "Accessible",
	Prefix: Color{R: 0, G: 114, B: 178, Bold: true},
	Input:  Color{R: 255, G: 255, B: 255, Bold: false},
}

// ThemeByName returns the built-in theme with the given name, matched case-insensitively.
func ThemeByName(name string) (*ColorScheme, bool) {
	for _, theme := range []*ColorScheme{ThemeDefault, ThemeDark, ThemeLight, ThemeAccessible} {
		if strings.EqualFold(theme.Name, name) {
			return theme, true
		}
	}
	return nil, false
}

// ToANSI returns the SGR sequence selecting the color as a 24-bit foreground.
func (c Color) ToANSI() string {
	weight := ""
	if c.Bold {
		weight = "1;"
	}
	return fmt.Sprintf("\x1b[%s38;2;%d;%d;%dm", weight, c.R, c.G, c.B)
}

// Paint wraps s in the color, followed by a reset.
func (c Color) Paint(s string) string {
	if s == "" {
		return ""
	}
	return c.ToANSI() + s + Reset()
}

// Reset returns the ANSI reset sequence.
func Reset() string {
	return "\x1b[0m"
}
