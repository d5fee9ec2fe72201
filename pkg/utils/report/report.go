// Package report wraps operations with human-readable console output: a
// separator line before and after, and the elapsed time once done.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// SeparatorWidth is the number of symbols in a separator line
const SeparatorWidth = 42

var (
	separatorColor = color.New(color.FgHiBlack)
	elapsedColor   = color.New(color.FgCyan)
)

// Separate prints a line of symbol before and after fn runs.
// The closing line is printed even if fn fails.
func Separate(w io.Writer, symbol string, fn func() error) error {
	line := strings.Repeat(symbol, SeparatorWidth)

	_, _ = separatorColor.Fprintln(w, line)
	defer func() {
		_, _ = separatorColor.Fprintln(w, line)
	}()

	return fn()
}

// MeasureTime runs fn and prints how long it took in milliseconds
func MeasureTime(w io.Writer, name string, fn func() error) error {
	elapsed, err := Elapsed(fn)
	_, _ = elapsedColor.Fprintf(w, "%s has been executed in %s ms\n", name, FormatMillis(elapsed))
	return err
}

// Elapsed runs fn and returns its wall-clock duration
func Elapsed(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}

// FormatMillis renders d in milliseconds with at most two decimals
func FormatMillis(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	return fmt.Sprintf("%.2f", ms)
}
