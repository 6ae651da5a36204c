// SPDX-License-Identifier: MPL-2.0

package docroot

import (
	"golang.org/x/sys/unix"
)

// FileInfo describes the filesystem entity behind one request path.
type FileInfo struct {
	// Path is the filesystem path, not the URL path.
	Path string
	Size int64
	// OK is true only when Path exists and is a regular file.
	OK bool
}

// BuildPath joins root and urlPath with a single slash.
// An empty root (the chrooted case) yields a path relative to "/".
func BuildPath(root, urlPath string) string {
	return root + "/" + urlPath
}

// Resolve lstats root/urlPath. Missing paths, directories, symlinks and
// devices all come back with OK false; no file descriptor is opened.
func Resolve(root, urlPath string) FileInfo {
	info := FileInfo{Path: BuildPath(root, urlPath)}

	var st unix.Stat_t
	if err := unix.Lstat(info.Path, &st); err != nil {
		return info
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		return info
	}

	info.OK = true
	info.Size = st.Size
	return info
}
