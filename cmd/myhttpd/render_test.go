// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/myhttpd/myhttpd/internal/issue"
)

func TestRenderError_Nil(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderError(&buf, nil, false)
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestRenderError_PlainError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderError(&buf, errors.New("boom"), false)
	if got := buf.String(); !strings.HasSuffix(got, "boom\n") || strings.Count(got, "\n") != 1 {
		t.Errorf("output = %q, want one line ending in boom", got)
	}
}

func TestRenderError_WithIssue(t *testing.T) {
	t.Parallel()

	err := issue.NewErrorContext().
		WithOperation("start server").
		WithIssue(issue.ListenFailedId).
		WithSuggestion("Pick a free port with --port").
		Wrap(errors.New("address already in use")).
		BuildError()

	var buf bytes.Buffer
	renderError(&buf, err, false)

	out := buf.String()
	for _, want := range []string{"failed to start server", "Pick a free port", "Could not listen"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestIssueStyle_NonTerminal(t *testing.T) {
	t.Parallel()

	if got := issueStyle(&bytes.Buffer{}); got != "notty" {
		t.Errorf("issueStyle(buffer) = %q, want notty", got)
	}
}
