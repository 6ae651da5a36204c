// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/myhttpd/myhttpd/internal/issue"

	"github.com/charmbracelet/log"
)

// formatErrorForDisplay formats an error for user display.
// ActionableErrors use their Format method; verbose adds the error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError prints err and, when it links a catalog issue, the issue's
// help text.
func renderError(w io.Writer, err error, verbose bool) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("✗"), formatErrorForDisplay(err, verbose))

	id := issue.IssueOf(err)
	if id == 0 {
		return
	}
	if entry := issue.Get(id); entry != nil {
		rendered, renderErr := entry.Render(issueStyle(w))
		if renderErr != nil {
			log.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// issueStyle picks the glamour style: "dark" on a terminal, "notty" otherwise.
func issueStyle(w io.Writer) string {
	f, ok := w.(*os.File)
	if !ok {
		return "notty"
	}
	info, err := f.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return "notty"
	}
	return "dark"
}
