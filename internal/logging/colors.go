package logging

import (
	"github.com/fatih/color"
)

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorWarn  = color.New(color.FgRed)
	colorInfo  = color.New(color.Reset)
	colorDebug = color.New(color.FgGreen)
	colorTrace = color.New(color.FgYellow)
	colorStamp = color.New(color.FgWhite)
)

// paint renders s in c, unless colour output is disabled for this logger.
func paint(c *color.Color, noColor bool, s string) string {
	if noColor || color.NoColor {
		return s
	}
	return c.Sprint(s)
}
