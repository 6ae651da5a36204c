// SPDX-License-Identifier: MPL-2.0

// Package docroot maps request paths onto files under a document root and
// streams their contents.
//
// Paths are joined as root + "/" + urlpath with no cleaning or decoding, so a
// "../" in the request is passed to the filesystem untouched; confining clients
// is left to the chroot privilege drop. Only regular files are servable, and the
// check does not follow a trailing symlink.
package docroot
