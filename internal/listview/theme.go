package listview

import (
	"github.com/fatih/color"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// RGB is a 24-bit colour.
type RGB struct{ R, G, B int }

// Theme is the palette used for headings and accents. System leaves the
// terminal's own colours alone.
type Theme struct {
	Name       string
	Primary    *RGB
	Background *RGB
}

var (
	lightTheme  = Theme{Name: types.ThemeLight, Primary: &RGB{212, 160, 23}, Background: &RGB{245, 240, 225}}
	darkTheme   = Theme{Name: types.ThemeDark, Primary: &RGB{138, 104, 0}, Background: &RGB{15, 27, 24}}
	systemTheme = Theme{Name: types.ThemeSystem}
)

// ThemeFor returns the palette for a configured theme name. Unknown or
// empty names fall back to system.
func ThemeFor(name string) Theme {
	switch name {
	case types.ThemeLight:
		return lightTheme
	case types.ThemeDark:
		return darkTheme
	}
	return systemTheme
}

func (t Theme) heading() *color.Color {
	if t.Primary == nil {
		return color.New(color.Bold)
	}
	return color.RGB(t.Primary.R, t.Primary.G, t.Primary.B).Add(color.Bold)
}

func (t Theme) muted() *color.Color {
	return color.New(color.Faint)
}

// avatarPalette is indexed by the code point sum of a name.
var avatarPalette = []RGB{
	{0xF0, 0xD9, 0xFF},
	{0xD8, 0xFF, 0xD8},
	{0xFF, 0xD8, 0xD8},
	{0xD8, 0xF0, 0xFF},
	{0xFF, 0xE8, 0xD8},
	{0xFF, 0xFF, 0xD8},
}

// AvatarColor picks the avatar background for name.
func AvatarColor(name string) RGB {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return avatarPalette[sum%len(avatarPalette)]
}
