// SPDX-License-Identifier: MPL-2.0

// Package protocol implements the HTTP/1.x wire format spoken by myhttpd.
//
// ReadRequest parses exactly one request (request line, header fields and an
// optional Content-Length body) off a buffered byte stream. Responder writes
// exactly one response: the common header block (Date, Server,
// Connection: close), and for GET/HEAD of a regular file the Content-Length,
// Content-Type and, for GET, the file bytes.
//
// There is no keep-alive, no chunked encoding and no content sniffing: every
// file is reported as text/plain.
package protocol
