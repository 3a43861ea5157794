// Package ui provides terminal helpers for the command line client.
package ui

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

var (
	okMark   = color.New(color.FgGreen)
	failMark = color.New(color.FgRed)
)

// Spinner animates on the meta writer while a provider call is in flight.
type Spinner struct {
	s *spinner.Spinner
	w io.Writer
}

// NewSpinner prepares a spinner labelled msg. It writes to stderr when w is
// nil and does nothing until Start.
func NewSpinner(w io.Writer, msg string) *Spinner {
	if w == nil {
		w = os.Stderr
	}
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	_ = s.Color("cyan")
	return &Spinner{s: s, w: w}
}

// Start begins the animation.
func (sp *Spinner) Start() { sp.s.Start() }

// Stop clears the spinner line without printing a result.
func (sp *Spinner) Stop() { sp.s.Stop() }

// Success stops the spinner and reports msg with a check mark.
func (sp *Spinner) Success(msg string) { sp.finish(okMark, "✓", msg) }

// Fail stops the spinner and reports msg with a cross.
func (sp *Spinner) Fail(msg string) { sp.finish(failMark, "✗", msg) }

func (sp *Spinner) finish(c *color.Color, mark, msg string) {
	sp.s.Stop()
	c.Fprintf(sp.w, "  %s %s\n", mark, msg)
}
