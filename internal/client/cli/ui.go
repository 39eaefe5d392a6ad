package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// formatter colors a message unless color output is disabled.
type formatter struct {
	color  *color.Color
	prefix string
}

func (f formatter) Sprintf(format string, a ...any) string {
	text := fmt.Sprintf(format, a...)
	if noColor() {
		return f.prefix + text
	}
	return f.color.Sprint(text)
}

func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	successText = formatter{color.New(color.FgGreen), ""}
	errorText   = formatter{color.New(color.FgRed), "error: "}
	warningText = formatter{color.New(color.FgYellow), "warning: "}
	dimText     = formatter{color.New(color.Faint), ""}
	titleText   = formatter{color.New(color.Bold), ""}
)

// withSpinner shows a spinner on w while fn runs. Nothing is drawn when w
// is not a terminal.
func withSpinner(w io.Writer, msg string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + msg
	s.Start()
	err := fn()
	s.Stop()
	return err
}
