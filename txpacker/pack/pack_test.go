package pack

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	headerUUID = "0f3c2a1e-7b7d-4c55-9f0e-3d2f1a9b8c7d"
	moduleUUID = "5a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
)

const validManifest = `{
	"format_version": 2,
	"header": {
		"name": "Faithful",
		"description": "32x textures",
		"uuid": "` + headerUUID + `",
		"version": [1, 2, 3],
		"min_engine_version": [1, 20, 0]
	},
	"modules": [
		{"type": "resources", "uuid": "` + moduleUUID + `", "version": [1, 2, 3]}
	]
}`

type entry struct {
	name, body string
}

func buildArchive(t *testing.T, entries ...entry) *Archive {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	a, err := OpenBytes(buf.Bytes())
	require.NoError(t, err)
	return a
}

func TestParse(t *testing.T) {
	a := buildArchive(t,
		entry{"Faithful/pack_icon.png", "png"},
		entry{"Faithful/Manifest.JSON", validManifest},
	)

	info, err := Parse(a)
	require.NoError(t, err)
	assert.Equal(t, "Faithful", info.Name)
	assert.Equal(t, "32x textures", info.Description)
	assert.Equal(t, []int{1, 2, 3}, info.Version)
	assert.Equal(t, headerUUID, info.UUID)
	assert.False(t, info.WasFixed)

	v, err := info.SemVer()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.String())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		entries []entry
		wantErr error
	}{
		{name: "no manifest", entries: []entry{{"textures/a.png", "x"}}, wantErr: ErrManifestNotFound},
		{name: "not json", entries: []entry{{"manifest.json", "{nope"}}, wantErr: ErrManifestInvalid},
		{name: "no header", entries: []entry{{"manifest.json", `{"modules": []}`}}, wantErr: ErrManifestInvalid},
		{name: "no uuid", entries: []entry{{"manifest.json", `{"header": {"name": "a", "version": [1]}}`}}, wantErr: ErrManifestInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(buildArchive(t, tt.entries...))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpenBytesRejectsGarbage(t *testing.T) {
	_, err := OpenBytes([]byte("definitely not a zip"))
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

func TestMatchers(t *testing.T) {
	assert.True(t, IsManifest("manifest.json"))
	assert.True(t, IsManifest("a/b/MANIFEST.json"))
	assert.False(t, IsManifest("a/notmanifest.json"))
	assert.False(t, IsManifest("/manifest.json.bak"))
	assert.True(t, IsPackIcon("pack/pack_icon.png"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		entries    []entry
		wantValid  bool
		wantIssues []string
	}{
		{
			name:      "valid",
			entries:   []entry{{"manifest.json", validManifest}, {"pack_icon.png", "png"}},
			wantValid: true,
		},
		{
			name:       "missing everything",
			entries:    []entry{{"textures/blocks/stone.png", "png"}},
			wantIssues: []string{"manifest.json not found in texture pack", "pack_icon.png not found in texture pack"},
		},
		{
			name:       "broken json",
			entries:    []entry{{"manifest.json", "{"}, {"pack_icon.png", "png"}},
			wantIssues: []string{"Invalid manifest.json format: unexpected end of JSON input"},
		},
		{
			name: "bad fields",
			entries: []entry{{"manifest.json", `{
				"header": {"name": "x", "uuid": "not-a-uuid", "version": []},
				"modules": [{"type": "data", "uuid": "` + moduleUUID + `"}]
			}`}, {"pack_icon.png", "png"}},
			wantIssues: []string{
				"Missing 'format_version' in manifest.json",
				"Invalid 'uuid' format in header section",
				"'version' array in header section must contain at least one element",
				"Missing 'min_engine_version' in header section",
				"Module 'type' should be 'resources' for texture packs, found 'data'",
				"Missing 'version' in module",
			},
		},
		{
			name: "wrong shapes",
			entries: []entry{{"manifest.json", `{
				"format_version": 2,
				"header": {"name": "x", "uuid": "` + headerUUID + `", "version": "1.0.0", "min_engine_version": [1, 20, 0]},
				"modules": {}
			}`}, {"pack_icon.png", "png"}},
			wantIssues: []string{
				"'version' in header section must be an array",
				"'modules' must be an array of module objects",
			},
		},
		{
			name: "empty modules",
			entries: []entry{{"manifest.json", `{
				"format_version": 2,
				"header": {"name": "x", "uuid": "` + headerUUID + `", "version": [1], "min_engine_version": [1, 20, 0]},
				"modules": []
			}`}, {"pack_icon.png", "png"}},
			wantIssues: []string{"'modules' array must contain at least one module"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(buildArchive(t, tt.entries...))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Equal(t, tt.wantIssues, res.Issues)
		})
	}
}

func TestFixLeavesValidPackAlone(t *testing.T) {
	a := buildArchive(t, entry{"manifest.json", validManifest}, entry{"pack_icon.png", "png"})
	var out bytes.Buffer
	fixed, err := Fix(a, &out)
	require.NoError(t, err)
	assert.False(t, fixed)
	assert.Zero(t, out.Len())
}

func TestFixRewritesArchive(t *testing.T) {
	a := buildArchive(t,
		entry{"Pack/manifest.json", `{"header": {"name": "Broken", "version": [2]}}`},
		entry{"Pack/pack_icon.png", "icon"},
		entry{"Pack/textures/", ""},
		entry{"Pack/textures/blocks/stone.png", "stone"},
	)

	var out bytes.Buffer
	fixed, err := Fix(a, &out)
	require.NoError(t, err)
	require.True(t, fixed)

	repaired, err := OpenBytes(out.Bytes())
	require.NoError(t, err)

	names := map[string]string{}
	for _, f := range repaired.Files() {
		data, err := ReadFile(f, 1<<20)
		require.NoError(t, err)
		names[f.Name] = string(data)
	}
	assert.NotContains(t, names, "Pack/manifest.json")
	assert.Contains(t, names, ManifestName)
	assert.Contains(t, names, "Pack/textures/")
	assert.Equal(t, "stone", names["Pack/textures/blocks/stone.png"])
	assert.Equal(t, "icon", names["Pack/pack_icon.png"])

	res, err := Validate(repaired)
	require.NoError(t, err)
	assert.True(t, res.Valid, "issues: %v", res.Issues)

	info, err := Parse(repaired)
	require.NoError(t, err)
	assert.Equal(t, "Broken", info.Name)
	assert.Equal(t, []int{2, 0, 0}, info.Version)
}

func TestFixManifestDefaults(t *testing.T) {
	m, err := FixManifest(nil)
	require.NoError(t, err)

	header := m["header"].(map[string]any)
	assert.Equal(t, manifestFormatVersion, m["format_version"])
	assert.Equal(t, DefaultPackName, header["name"])
	assert.Equal(t, DefaultPackDescription, header["description"])
	assert.True(t, IsValidUUID(header["uuid"]))
	assert.Equal(t, []any{1, 0, 0}, header["version"])
	assert.Equal(t, []any{1, 20, 0}, header["min_engine_version"])

	modules := m["modules"].([]any)
	require.Len(t, modules, 1)
	module := modules[0].(map[string]any)
	assert.Equal(t, "resources", module["type"])
	assert.Equal(t, DefaultModuleDescription, module["description"])
	assert.True(t, IsValidUUID(module["uuid"]))
	assert.NotEqual(t, header["uuid"], module["uuid"])
}

func TestFixManifestKeepsUsableValues(t *testing.T) {
	var old map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"header": {
			"name": "Keep",
			"description": "mine",
			"uuid": "`+headerUUID+`",
			"version": [3, "x"],
			"min_engine_version": [1, 19, 80]
		},
		"modules": [{"type": "data", "uuid": "`+headerUUID+`", "version": [9, 9, 9], "description": "mod"}]
	}`), &old))

	m, err := FixManifest(old)
	require.NoError(t, err)

	header := m["header"].(map[string]any)
	assert.Equal(t, "Keep", header["name"])
	assert.Equal(t, "mine", header["description"])
	assert.Equal(t, headerUUID, header["uuid"])
	assert.Equal(t, []any{3, 1, 0}, header["version"])
	assert.Equal(t, []any{1, 19, 80}, header["min_engine_version"])

	module := m["modules"].([]any)[0].(map[string]any)
	assert.Equal(t, "resources", module["type"])
	assert.NotEqual(t, headerUUID, module["uuid"], "module uuid must differ from header uuid")
	assert.Equal(t, []any{9.0, 9.0, 9.0}, module["version"])
	assert.Equal(t, "mod", module["description"])
}

func TestParseOrFix(t *testing.T) {
	t.Run("valid pack is returned as is", func(t *testing.T) {
		a := buildArchive(t, entry{"manifest.json", validManifest}, entry{"pack_icon.png", "png"})
		info, got, err := ParseOrFix(a)
		require.NoError(t, err)
		assert.Same(t, a, got)
		assert.False(t, info.WasFixed)
	})

	t.Run("broken pack is repaired", func(t *testing.T) {
		a := buildArchive(t, entry{"manifest.json", "{"}, entry{"textures/a.png", "a"})
		info, got, err := ParseOrFix(a)
		require.NoError(t, err)
		assert.NotSame(t, a, got)
		assert.True(t, info.WasFixed)
		assert.Equal(t, DefaultPackName, info.Name)
		assert.Equal(t, []int{1, 0, 0}, info.Version)
	})
}
