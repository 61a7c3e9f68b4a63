package pack

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-uuid"
	"github.com/klauspost/compress/zip"
)

const (
	DefaultPackName          = "Fixed Texture Pack"
	DefaultPackDescription   = "Fixed texture pack"
	DefaultModuleDescription = "Texture pack resources"
	DefaultMinEngineVersion  = "1.20.0"

	manifestFormatVersion = 2
)

// Fix validates the archive and, if it is not valid, writes a copy to w with
// every manifest.json replaced by one repaired manifest at the archive root.
// Nothing is written for a valid archive and fixed is false.
func Fix(a *Archive, w io.Writer) (fixed bool, err error) {
	res, err := Validate(a)
	if err != nil {
		return false, err
	}
	if res.Valid {
		return false, nil
	}

	manifest, err := FixManifest(res.Manifest)
	if err != nil {
		return false, err
	}
	data, err := json.MarshalIndent(manifest, "", "    ")
	if err != nil {
		return false, err
	}

	zw := zip.NewWriter(w)
	for _, f := range a.Files() {
		if IsManifest(f.Name) {
			continue
		}
		if err := CopyEntry(zw, f); err != nil {
			return false, fmt.Errorf("pack: copy %s: %w", f.Name, err)
		}
	}
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: ManifestName, Method: zip.Deflate})
	if err != nil {
		return false, err
	}
	if _, err := mw.Write(data); err != nil {
		return false, err
	}
	if err := zw.Close(); err != nil {
		return false, err
	}
	return true, nil
}

// FixManifest builds a complete manifest, keeping whatever usable values old
// carries. old may be nil.
func FixManifest(old map[string]any) (map[string]any, error) {
	oldHeader := object(old, "header")

	headerUUID, _ := oldHeader["uuid"].(string)
	if !IsValidUUID(headerUUID) {
		var err error
		if headerUUID, err = uuid.GenerateUUID(); err != nil {
			return nil, err
		}
	}

	version := []any{1, 0, 0}
	if prev, ok := oldHeader["version"].([]any); ok && len(prev) > 0 {
		version = make([]any, 0, max(len(prev), 3))
		for _, v := range prev {
			version = append(version, intOr(v, 1))
		}
		for len(version) < 3 {
			version = append(version, 0)
		}
	}

	minEngine, err := defaultMinEngineVersion()
	if err != nil {
		return nil, err
	}
	if prev, ok := oldHeader["min_engine_version"].([]any); ok && len(prev) >= 3 {
		minEngine = make([]any, 0, len(prev))
		for _, v := range prev {
			minEngine = append(minEngine, intOr(v, 1))
		}
	}

	header := map[string]any{
		"name":               stringOr(oldHeader["name"], DefaultPackName),
		"description":        stringOr(oldHeader["description"], DefaultPackDescription),
		"uuid":               headerUUID,
		"version":            version,
		"min_engine_version": minEngine,
	}

	module := map[string]any{
		"type":        "resources",
		"version":     version,
		"description": DefaultModuleDescription,
	}
	var oldModule map[string]any
	if mods, ok := old["modules"].([]any); ok && len(mods) > 0 {
		oldModule, _ = mods[0].(map[string]any)
	}
	moduleUUID, _ := oldModule["uuid"].(string)
	if !IsValidUUID(moduleUUID) || moduleUUID == headerUUID {
		if moduleUUID, err = distinctUUID(headerUUID); err != nil {
			return nil, err
		}
	}
	module["uuid"] = moduleUUID
	if v, ok := oldModule["version"]; ok {
		module["version"] = v
	}
	if d, ok := oldModule["description"].(string); ok {
		module["description"] = d
	}

	return map[string]any{
		"format_version": manifestFormatVersion,
		"header":         header,
		"modules":        []any{module},
	}, nil
}

func defaultMinEngineVersion() ([]any, error) {
	v, err := semver.NewVersion(DefaultMinEngineVersion)
	if err != nil {
		return nil, err
	}
	return []any{int(v.Major()), int(v.Minor()), int(v.Patch())}, nil
}

func distinctUUID(other string) (string, error) {
	for {
		id, err := uuid.GenerateUUID()
		if err != nil {
			return "", err
		}
		if id != other {
			return id, nil
		}
	}
}

func object(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func intOr(v any, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return def
}
