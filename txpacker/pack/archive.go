package pack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	ManifestName = "manifest.json"
	PackIconName = "pack_icon.png"

	// maxManifestSize bounds how much of a manifest entry is read.
	maxManifestSize = 1 << 20
)

var (
	ErrInvalidArchive   = errors.New("pack: invalid archive")
	ErrManifestNotFound = errors.New("pack: manifest.json not found")
	ErrManifestInvalid  = errors.New("pack: invalid manifest.json")
)

// Archive is an opened pack.
type Archive struct {
	zr *zip.Reader
}

// NewArchive opens the zip archive held by r.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return &Archive{zr: zr}, nil
}

// OpenBytes opens an archive held in memory.
func OpenBytes(b []byte) (*Archive, error) {
	return NewArchive(bytes.NewReader(b), int64(len(b)))
}

// Files returns the archive entries in archive order.
func (a *Archive) Files() []*zip.File { return a.zr.File }

// ReadFile returns the contents of f, refusing anything larger than limit.
func ReadFile(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("pack: %s exceeds %d bytes", f.Name, limit)
	}
	return data, nil
}

// Manifest returns the path and contents of the pack manifest. When several
// entries qualify the last one wins.
func (a *Archive) Manifest() (string, []byte, error) {
	var found *zip.File
	for _, f := range a.zr.File {
		if IsManifest(f.Name) {
			found = f
		}
	}
	if found == nil {
		return "", nil, ErrManifestNotFound
	}
	data, err := ReadFile(found, maxManifestSize)
	if err != nil {
		return found.Name, nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}
	return found.Name, data, nil
}

// IsManifest reports whether an entry name is a manifest.json at any depth.
func IsManifest(name string) bool { return matchesBase(name, ManifestName) }

// IsPackIcon reports whether an entry name is a pack_icon.png at any depth.
func IsPackIcon(name string) bool { return matchesBase(name, PackIconName) }

func matchesBase(name, base string) bool {
	if strings.EqualFold(name, base) {
		return true
	}
	suffix := "/" + base
	return len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix)
}

// CopyEntry copies f into zw unchanged.
func CopyEntry(zw *zip.Writer, f *zip.File) error {
	hdr := f.FileHeader
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     hdr.Name,
		Comment:  hdr.Comment,
		Method:   hdr.Method,
		Modified: hdr.Modified,
	})
	if err != nil {
		return err
	}
	if strings.HasSuffix(hdr.Name, "/") {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}
