// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

func parse(raw string) (*Request, error) {
	return ReadRequest(bufio.NewReader(strings.NewReader(raw)))
}

func TestReadRequest_RequestLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		method    string
		path      string
		minor     int
		headerLen int
	}{
		{"crlf", "GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n", "GET", "/index.html", 1, 1},
		{"bare_lf", "HEAD /a.txt HTTP/1.0\n\n", "HEAD", "/a.txt", 0, 0},
		{"lowercase_method_and_proto", "get / http/1.0\r\n\r\n", "GET", "/", 0, 0},
		{"mixed_case_method", "pOsT /form HTTP/1.1\r\n\r\n", "POST", "/form", 1, 0},
		{"raw_path_untouched", "GET /a%20b/../c HTTP/1.0\r\n\r\n", "GET", "/a%20b/../c", 0, 0},
		{"missing_minor_digits", "GET / HTTP/1.\r\n\r\n", "GET", "/", 0, 0},
		{"extra_spaces_stay_in_proto_split", "GET / HTTP/1.1 trailing\r\n\r\n", "GET", "/", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, err := parse(tt.raw)
			if err != nil {
				t.Fatalf("ReadRequest() error = %v", err)
			}
			if req.Method != tt.method {
				t.Errorf("Method = %q, want %q", req.Method, tt.method)
			}
			if req.Path != tt.path {
				t.Errorf("Path = %q, want %q", req.Path, tt.path)
			}
			if req.ProtocolMinor != tt.minor {
				t.Errorf("ProtocolMinor = %d, want %d", req.ProtocolMinor, tt.minor)
			}
			if req.Header.Len() != tt.headerLen {
				t.Errorf("Header.Len() = %d, want %d", req.Header.Len(), tt.headerLen)
			}
			if req.Body != nil || req.Length != 0 {
				t.Errorf("expected no body, got Length=%d Body=%q", req.Length, req.Body)
			}
		})
	}
}

func TestReadRequest_HeaderFields(t *testing.T) {
	t.Parallel()

	req, err := parse("GET / HTTP/1.0\r\nHost:example.com\r\nUser-Agent: \t curl/8\r\nX-Empty:\r\nX-Colon: a:b\r\n\r\n")
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}

	want := []Field{
		{"Host", "example.com"},
		{"User-Agent", "curl/8"},
		{"X-Empty", ""},
		{"X-Colon", "a:b"},
	}
	got := req.Header.Fields()
	if len(got) != len(want) {
		t.Fatalf("got %d fields, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadRequest_Body(t *testing.T) {
	t.Parallel()

	req, err := parse("POST /submit HTTP/1.1\r\ncontent-length: 5\r\n\r\nhelloEXTRA")
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if req.Length != 5 {
		t.Errorf("Length = %d, want 5", req.Length)
	}
	if string(req.Body) != "hello" {
		t.Errorf("Body = %q, want %q", req.Body, "hello")
	}
}

func TestReadRequest_BodyAtCap(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("x", MaxBodyLength)
	req, err := parse("POST / HTTP/1.0\r\nContent-Length: 1024\r\n\r\n" + body)
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if len(req.Body) != MaxBodyLength {
		t.Errorf("len(Body) = %d, want %d", len(req.Body), MaxBodyLength)
	}
}

func TestReadRequest_ZeroContentLength(t *testing.T) {
	t.Parallel()

	req, err := parse("POST / HTTP/1.0\r\nContent-Length: 0\r\n\r\n")
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if req.Body != nil {
		t.Errorf("Body = %q, want nil", req.Body)
	}
}

func TestReadRequest_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty_stream", "", ErrNoRequestLine},
		{"no_space", "GET\r\n\r\n", ErrMalformedRequestLine},
		{"one_space", "GET /\r\n\r\n", ErrMalformedRequestLine},
		{"wrong_protocol", "GET / HTTP/2.0\r\n\r\n", ErrMalformedRequestLine},
		{"short_protocol", "GET / HTTP\r\n\r\n", ErrMalformedRequestLine},
		{"header_without_colon", "GET / HTTP/1.0\r\nBroken header\r\n\r\n", ErrMalformedHeader},
		{"eof_in_headers", "GET / HTTP/1.0\r\nHost: x\r\n", ErrHeaderRead},
		{"negative_length", "POST / HTTP/1.0\r\nContent-Length: -1\r\n\r\n", ErrNegativeContentLength},
		{"garbage_length", "POST / HTTP/1.0\r\nContent-Length: ten\r\n\r\n", ErrInvalidContentLength},
		{"oversized_body", "POST / HTTP/1.0\r\nContent-Length: 2000\r\n\r\n", ErrBodyTooLong},
		{"truncated_body", "POST / HTTP/1.0\r\nContent-Length: 10\r\n\r\nshort", ErrTruncatedBody},
		{"request_line_too_long", "GET /" + strings.Repeat("a", MaxLineLength) + " HTTP/1.0\r\n\r\n", ErrLineTooLong},
		{"header_line_too_long", "GET / HTTP/1.0\r\nX: " + strings.Repeat("b", MaxLineLength) + "\r\n\r\n", ErrLineTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, err := parse(tt.raw)
			if err == nil {
				t.Fatalf("ReadRequest() = %+v, want error %v", req, tt.want)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want errors.Is(%v)", err, tt.want)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error should be *ParseError, got %T", err)
			}
		})
	}
}

func TestReadRequest_NegativeAndOversizedAreDistinct(t *testing.T) {
	t.Parallel()

	_, negErr := parse("POST / HTTP/1.0\r\nContent-Length: -5\r\n\r\n")
	_, bigErr := parse("POST / HTTP/1.0\r\nContent-Length: 2000\r\n\r\n")

	if errors.Is(negErr, ErrBodyTooLong) {
		t.Error("negative length should not be reported as too long")
	}
	if errors.Is(bigErr, ErrNegativeContentLength) {
		t.Error("oversized length should not be reported as negative")
	}
}

func TestParseError_Message(t *testing.T) {
	t.Parallel()

	_, err := parse("BROKEN\r\n\r\n")
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "malformed request line") || !strings.Contains(msg, "BROKEN") {
		t.Errorf("error message %q should name the failure and the offending line", msg)
	}
}
