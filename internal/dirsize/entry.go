package dirsize

import (
	"fmt"
	"strings"
)

// Kind is the classification of a directory entry, resolved once at scan time.
type Kind int

const (
	// KindFile is a regular file; its size counts towards the total.
	KindFile Kind = iota
	// KindDir is a directory; it is measured as its own unit of work.
	KindDir
	// KindSymlink is a symbolic link. It is never followed and contributes 0 bytes.
	KindSymlink
	// KindOther covers devices, sockets and pipes. They contribute 0 bytes.
	KindOther
	// KindUnreadable is an entry whose metadata or contents could not be read.
	KindUnreadable
)

var kindNames = [...]string{"file", "dir", "symlink", "other", "unreadable"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if strings.EqualFold(name, string(text)) {
			*k = Kind(i)

			return nil
		}
	}

	return fmt.Errorf("unknown entry kind %q", text)
}

// PathEntry is one child of a scanned directory.
type PathEntry struct {
	// Path is the absolute path of the entry.
	Path string `json:"path"`
	// Name is the base name of the entry.
	Name string `json:"name"`
	// Kind is the entry classification.
	Kind Kind `json:"kind"`
	// Size is the byte size: the lstat size for files, the measured
	// total for directories once resolved, 0 otherwise.
	Size int64 `json:"size"`
	// Err is set for unreadable entries.
	Err *ScanError `json:"error,omitempty"`
}

// DirListing is the result of scanning a single directory without descending.
type DirListing struct {
	// Path is the scanned directory.
	Path string
	// Entries holds every immediate child, in name order.
	Entries []PathEntry
	// FileBytes is the sum of the sizes of the direct child files.
	FileBytes int64
	// Files is the number of direct child files that were measured.
	Files int64
	// Subdirs lists the paths of the direct child directories.
	Subdirs []string
	// Errors holds entries that vanished or could not be inspected.
	Errors []ScanError
}
