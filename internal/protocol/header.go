// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"strings"

	"golang.org/x/exp/slices"
)

type (
	// Field is a single request header line split at its first colon.
	// Name keeps the case the client sent.
	Field struct {
		Name  string
		Value string
	}

	// Header is the ordered field store of one request.
	// Fields are kept in arrival order and lookups are case-insensitive on the name;
	// with duplicate names the earliest field wins.
	Header struct {
		fields []Field
	}
)

// Add appends a field after all previously added fields.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Get returns the value of the first field whose name matches name case-insensitively.
func (h *Header) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns every value sent under name, in arrival order.
func (h *Header) Values(name string) []string {
	var values []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// Len returns the number of fields, duplicates included.
func (h *Header) Len() int { return len(h.fields) }

// Fields returns a copy of the fields in arrival order.
func (h *Header) Fields() []Field { return slices.Clone(h.fields) }
