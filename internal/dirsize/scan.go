package dirsize

import (
	"io/fs"
	"os"
	"path/filepath"
)

// ScanDir lists the immediate children of path and sums the sizes of its
// direct child files. It never descends into subdirectories and never
// follows symlinks.
//
// A failure to list path itself is returned as an error; failures on
// individual entries are recorded in the listing.
func ScanDir(path string) (*DirListing, error) {
	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	listing := &DirListing{
		Path:    path,
		Entries: make([]PathEntry, 0, len(dirents)),
	}

	//nolint:varnamelen // d is standard for DirEntry
	for _, d := range dirents {
		entry := PathEntry{
			Path: filepath.Join(path, d.Name()),
			Name: d.Name(),
		}

		switch typ := d.Type(); {
		case typ.IsDir():
			entry.Kind = KindDir
			listing.Subdirs = append(listing.Subdirs, entry.Path)
		case typ&fs.ModeSymlink != 0:
			entry.Kind = KindSymlink
		case typ.IsRegular():
			info, err := d.Info()
			if err != nil {
				scanErr := subtreeError(entry.Path, err)
				entry.Kind = KindUnreadable
				entry.Err = &scanErr
				listing.Errors = append(listing.Errors, scanErr)

				break
			}

			entry.Kind = KindFile
			entry.Size = info.Size()
			listing.FileBytes += entry.Size
			listing.Files++
		default:
			entry.Kind = KindOther
		}

		listing.Entries = append(listing.Entries, entry)
	}

	return listing, nil
}
