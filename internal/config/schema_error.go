// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// fieldLabels maps #Config fields to what the user typed.
var fieldLabels = map[string]string{
	"docroot": "document root",
	"host":    "--" + FlagHost,
	"port":    "--" + FlagPort,
	"chroot":  "--" + FlagChroot,
	"user":    "--" + FlagUser,
	"group":   "--" + FlagGroup,
	"debug":   "--" + FlagDebug,
}

// formatSchemaError flattens a CUE validation error into one line per
// failing field, labelled with the flag that set it.
func formatSchemaError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	var lines []string
	for _, e := range errs {
		path := strings.Join(cueerrors.Path(e), ".")
		path = strings.TrimPrefix(path, "#Config.")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)

		switch label, ok := fieldLabels[path]; {
		case ok:
			lines = append(lines, label+": "+msg)
		case path != "":
			lines = append(lines, path+": "+msg)
		default:
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s", lines[0])
	}
	return fmt.Errorf("%d problems:\n  %s", len(lines), strings.Join(lines, "\n  "))
}
