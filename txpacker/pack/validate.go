package pack

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// ValidationResult lists what is wrong with a pack.
type ValidationResult struct {
	Valid         bool
	ManifestFound bool
	ManifestPath  string
	Manifest      map[string]any // last manifest that decoded, nil if none did
	Issues        []string
}

// Validate checks every manifest.json in the archive and the presence of a
// pack icon. It only fails when an entry cannot be read at all.
func Validate(a *Archive) (ValidationResult, error) {
	var res ValidationResult
	hasIcon := false

	for _, f := range a.Files() {
		if IsPackIcon(f.Name) {
			hasIcon = true
		}
		if !IsManifest(f.Name) {
			continue
		}
		res.ManifestFound = true
		res.ManifestPath = f.Name

		data, err := ReadFile(f, maxManifestSize)
		if err != nil {
			return res, fmt.Errorf("pack: read %s: %w", f.Name, err)
		}
		m, err := decodeManifest(data)
		if err != nil {
			res.Issues = append(res.Issues, "Invalid manifest.json format: "+err.Error())
			continue
		}
		res.Manifest = m
		res.Issues = append(res.Issues, validateManifest(m)...)
	}

	if !res.ManifestFound {
		res.Issues = append(res.Issues, "manifest.json not found in texture pack")
	}
	if !hasIcon {
		res.Issues = append(res.Issues, "pack_icon.png not found in texture pack")
	}
	res.Valid = res.ManifestFound && len(res.Issues) == 0
	return res, nil
}

func decodeManifest(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("manifest is not an object")
	}
	return m, nil
}

func validateManifest(m map[string]any) []string {
	var issues []string
	add := func(s string) { issues = append(issues, s) }

	if _, ok := m["format_version"]; !ok {
		add("Missing 'format_version' in manifest.json")
	}

	if raw, ok := m["header"]; !ok {
		add("Missing 'header' section in manifest.json")
	} else if header, ok := raw.(map[string]any); !ok {
		add("'header' section in manifest.json must be an object")
	} else {
		if _, ok := header["name"]; !ok {
			add("Missing 'name' in header section")
		}
		if raw, ok := header["uuid"]; !ok {
			add("Missing 'uuid' in header section")
		} else if !IsValidUUID(raw) {
			add("Invalid 'uuid' format in header section")
		}
		if raw, ok := header["version"]; !ok {
			add("Missing 'version' in header section")
		} else if version, ok := raw.([]any); !ok {
			add("'version' in header section must be an array")
		} else if len(version) < 1 {
			add("'version' array in header section must contain at least one element")
		}
		if _, ok := header["min_engine_version"]; !ok {
			add("Missing 'min_engine_version' in header section")
		}
	}

	raw, ok := m["modules"]
	if !ok {
		add("Missing 'modules' section in manifest.json")
		return issues
	}
	modules, ok := raw.([]any)
	if !ok {
		add("'modules' must be an array of module objects")
		return issues
	}
	if len(modules) == 0 {
		add("'modules' array must contain at least one module")
		return issues
	}
	module, ok := modules[0].(map[string]any)
	if !ok {
		add("'modules' must be an array of module objects")
		return issues
	}
	if raw, ok := module["type"]; !ok {
		add("Missing 'type' in module")
	} else if typ, _ := raw.(string); typ != "resources" {
		add(fmt.Sprintf("Module 'type' should be 'resources' for texture packs, found '%v'", raw))
	}
	if raw, ok := module["uuid"]; !ok {
		add("Missing 'uuid' in module")
	} else if !IsValidUUID(raw) {
		add("Invalid 'uuid' format in module")
	}
	if _, ok := module["version"]; !ok {
		add("Missing 'version' in module")
	}
	return issues
}

// IsValidUUID reports whether v is a canonical 8-4-4-4-12 hex UUID string.
func IsValidUUID(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := uuid.ParseUUID(s)
	return err == nil
}
