package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	infoPrefix    = color.New(color.FgBlue)
	successPrefix = color.New(color.FgGreen)
	warnPrefix    = color.New(color.FgYellow)
	errorPrefix   = color.New(color.FgRed)
)

// printer writes prefixed status lines to stderr. Results go to stdout
// untouched so they can be piped.
type printer struct {
	w       io.Writer
	noColor bool
}

func (rt *runtime) printer() printer {
	return printer{w: rt.stderr, noColor: rt.noColor}
}

func (p printer) line(c *color.Color, prefix, msg string) {
	if p.noColor {
		fmt.Fprintln(p.w, prefix+" "+msg)
		return
	}
	fmt.Fprintln(p.w, c.Sprint(prefix)+" "+msg)
}

func (p printer) Info(msg string)    { p.line(infoPrefix, "[INFO]", msg) }
func (p printer) Success(msg string) { p.line(successPrefix, "[OK]", msg) }
func (p printer) Warn(msg string)    { p.line(warnPrefix, "[WARN]", msg) }
func (p printer) Error(msg string)   { p.line(errorPrefix, "[ERROR]", msg) }

// statusColor picks the color for a journal status.
func statusColor(status string) *color.Color {
	switch status {
	case "ok":
		return successPrefix
	case "canceled":
		return warnPrefix
	default:
		return errorPrefix
	}
}
