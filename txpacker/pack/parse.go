package pack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Info is the header of a pack manifest.
type Info struct {
	Name        string
	Description string
	Version     []int
	UUID        string
	WasFixed    bool // Info was read from a repaired copy of the archive
}

// SemVer renders the pack version as a semantic version. Missing components
// are zero; components past the third are ignored.
func (i Info) SemVer() (*semver.Version, error) {
	parts := []string{"0", "0", "0"}
	for n, v := range i.Version {
		if n == len(parts) {
			break
		}
		parts[n] = strconv.Itoa(v)
	}
	return semver.NewVersion(strings.Join(parts, "."))
}

type manifestHeader struct {
	Name        *string `json:"name"`
	Description string  `json:"description"`
	Version     []int   `json:"version"`
	UUID        *string `json:"uuid"`
}

// Parse extracts the pack header from the archive manifest.
func Parse(a *Archive) (Info, error) {
	_, data, err := a.Manifest()
	if err != nil {
		return Info{}, err
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (Info, error) {
	var m struct {
		Header *manifestHeader `json:"header"`
	}
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &m); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}
	h := m.Header
	switch {
	case h == nil:
		return Info{}, fmt.Errorf("%w: missing header", ErrManifestInvalid)
	case h.Name == nil:
		return Info{}, fmt.Errorf("%w: missing header name", ErrManifestInvalid)
	case h.Version == nil:
		return Info{}, fmt.Errorf("%w: missing header version", ErrManifestInvalid)
	case h.UUID == nil:
		return Info{}, fmt.Errorf("%w: missing header uuid", ErrManifestInvalid)
	}
	return Info{
		Name:        *h.Name,
		Description: h.Description,
		Version:     h.Version,
		UUID:        *h.UUID,
	}, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseOrFix parses the archive and, when that fails, repairs it in memory
// and parses the repaired copy. The returned archive is the one the info was
// read from.
func ParseOrFix(a *Archive) (Info, *Archive, error) {
	info, err := Parse(a)
	if err == nil {
		return info, a, nil
	}

	var buf bytes.Buffer
	fixed, ferr := Fix(a, &buf)
	if ferr != nil {
		return Info{}, nil, fmt.Errorf("pack: fix after parse failure (%v): %w", err, ferr)
	}
	if !fixed {
		return Info{}, nil, err
	}
	repaired, err := OpenBytes(buf.Bytes())
	if err != nil {
		return Info{}, nil, err
	}
	info, err = Parse(repaired)
	if err != nil {
		return Info{}, nil, err
	}
	info.WasFixed = true
	return info, repaired, nil
}
