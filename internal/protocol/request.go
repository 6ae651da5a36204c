// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

const (
	// MaxLineLength caps the request line and each header line, terminator included.
	MaxLineLength = 1024
	// MaxBodyLength caps Content-Length. Larger declared bodies are rejected before any byte is read.
	MaxBodyLength = 1024

	// HeaderContentLength is the only header the parser itself interprets.
	HeaderContentLength = "Content-Length"

	protocolPrefix = "HTTP/1."
)

// Request methods the Responder dispatches on. Anything else is answered with 400.
const (
	MethodGet  = "GET"
	MethodHead = "HEAD"
	MethodPost = "POST"
)

// Request is one parsed HTTP/1.x request.
type Request struct {
	// Method is upper-cased regardless of what the client sent.
	Method string
	// Path is the raw request target: no percent-decoding, no cleaning.
	Path string
	// ProtocolMinor is the digit(s) after "HTTP/1.".
	ProtocolMinor int
	Header        Header
	// Body holds exactly Length bytes, or is nil when Length is 0.
	Body   []byte
	Length int64
}

// ReadRequest reads one request off r: the request line, header fields up to the
// empty line, then Content-Length bytes of body if declared.
// Any error is a *ParseError and leaves r at an unspecified position.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		if errors.Is(err, ErrLineTooLong) {
			return nil, parseError(ErrLineTooLong, truncate(line), nil)
		}
		return nil, parseError(ErrNoRequestLine, "", err)
	}

	req := &Request{}
	if err := req.parseRequestLine(line); err != nil {
		return nil, err
	}

	for {
		line, err := readLine(r)
		if err != nil {
			if errors.Is(err, ErrLineTooLong) {
				return nil, parseError(ErrLineTooLong, truncate(line), nil)
			}
			return nil, parseError(ErrHeaderRead, "", err)
		}
		if line == "\n" || line == "\r\n" {
			break
		}
		name, value, err := parseHeaderField(line)
		if err != nil {
			return nil, err
		}
		req.Header.Add(name, value)
	}

	length, err := req.ContentLength()
	if err != nil {
		return nil, err
	}
	req.Length = length
	if length == 0 {
		return req, nil
	}
	if length > MaxBodyLength {
		return nil, parseError(ErrBodyTooLong, strconv.FormatInt(length, 10), nil)
	}

	req.Body = make([]byte, length)
	if _, err := io.ReadFull(r, req.Body); err != nil {
		return nil, parseError(ErrTruncatedBody, "", err)
	}
	return req, nil
}

// ContentLength returns the declared body length, or 0 when the header is absent.
func (req *Request) ContentLength() (int64, error) {
	raw, ok := req.Header.Get(HeaderContentLength)
	if !ok {
		return 0, nil
	}
	value := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, parseError(ErrInvalidContentLength, raw, nil)
	}
	if n < 0 {
		return 0, parseError(ErrNegativeContentLength, raw, nil)
	}
	return n, nil
}

// parseRequestLine splits on the first two spaces only: METHOD SP PATH SP HTTP/1.MINOR.
func (req *Request) parseRequestLine(line string) error {
	method, rest, ok := strings.Cut(line, " ")
	if !ok {
		return parseError(ErrMalformedRequestLine, trimEOL(line), nil)
	}
	path, proto, ok := strings.Cut(rest, " ")
	if !ok {
		return parseError(ErrMalformedRequestLine, trimEOL(line), nil)
	}
	if len(proto) < len(protocolPrefix) || !strings.EqualFold(proto[:len(protocolPrefix)], protocolPrefix) {
		return parseError(ErrMalformedRequestLine, trimEOL(line), nil)
	}
	minor, err := leadingInt(proto[len(protocolPrefix):])
	if err != nil {
		return parseError(ErrMalformedRequestLine, trimEOL(line), err)
	}

	req.Method = strings.ToUpper(method)
	req.Path = path
	req.ProtocolMinor = minor
	return nil
}

// parseHeaderField splits "Name: value" at the first colon and drops leading
// spaces and tabs from the value. The name is kept verbatim.
func parseHeaderField(line string) (string, string, error) {
	line = trimEOL(line)
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", parseError(ErrMalformedHeader, line, nil)
	}
	return name, strings.TrimLeft(value, " \t"), nil
}

// readLine returns the next line including its "\n". A final unterminated line
// is returned as-is; the following call then reports io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > MaxLineLength {
			return string(line), ErrLineTooLong
		}
		switch {
		case err == nil:
			return string(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0:
			return string(line), nil
		default:
			return "", err
		}
	}
}

// leadingInt parses the decimal digits at the start of s; no digits means 0.
func leadingInt(s string) (int, error) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, nil
	}
	return strconv.Atoi(s[:end])
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}

func truncate(s string) string {
	const keep = 64
	if len(s) <= keep {
		return s
	}
	return s[:keep] + "..."
}
