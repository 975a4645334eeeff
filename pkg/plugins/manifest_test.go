package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDescriptor tests loading a valid descriptor from a file
func TestLoadDescriptor(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ManifestFile)

	desc := &Descriptor{
		ID:              "org.example.git",
		Name:            "Git",
		Version:         "2.1.0",
		Vendor:          "Example",
		Category:        "VCS",
		Depends:         []string{"core", "org.example.vcs"},
		OptionalDepends: []string{"org.example.github"},
		SinceBuild:      "200",
		UntilBuild:      "299",
		CodeRoots:       []string{"lib"},
		SharedLoader:    true,
	}

	require.NoError(t, SaveDescriptor(desc, path))

	loaded, err := LoadDescriptor(path)
	require.NoError(t, err)
	assert.Equal(t, "org.example.git", loaded.ID)
	assert.Equal(t, "Git", loaded.Name)
	assert.Equal(t, "2.1.0", loaded.Version)
	assert.Equal(t, "VCS", loaded.Category)
	assert.Equal(t, []string{"core", "org.example.vcs"}, loaded.Depends)
	assert.Equal(t, []string{"org.example.github"}, loaded.OptionalDepends)
	assert.Equal(t, "200", loaded.SinceBuild)
	assert.Equal(t, "299", loaded.UntilBuild)
	assert.Equal(t, []string{"lib"}, loaded.CodeRoots)
	assert.True(t, loaded.SharedLoader)
	assert.Empty(t, loaded.Path)
}

// TestLoadDescriptor_NonexistentFile tests loading from a non-existent file
func TestLoadDescriptor_NonexistentFile(t *testing.T) {
	loaded, err := LoadDescriptor("/nonexistent/path/plugin.yaml")
	assert.Error(t, err)
	assert.Nil(t, loaded)
	assert.Contains(t, err.Error(), "failed to read descriptor")
}

// TestLoadDescriptor_InvalidYAML tests loading invalid YAML content
func TestLoadDescriptor_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("invalid: yaml: content: ["), 0644))

	loaded, err := LoadDescriptor(path)
	assert.Error(t, err)
	assert.Nil(t, loaded)
	assert.Contains(t, err.Error(), "failed to parse descriptor")
}

func TestLoadDescriptorFromDir_ResolvesCodeRoots(t *testing.T) {
	dir := t.TempDir()
	manifest := "id: a\ncode_roots: [lib, /opt/shared]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0644))

	desc, err := LoadDescriptorFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, desc.Path)
	assert.Equal(t, []string{filepath.Join(dir, "lib"), "/opt/shared"}, desc.CodeRoots)
}

func TestLoadDescriptorFromDir_ConventionalRoots(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("id: a\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "lib"), 0755))

	desc, err := LoadDescriptorFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "lib")}, desc.CodeRoots)
}

func TestValidateDescriptor(t *testing.T) {
	tests := []struct {
		name      string
		desc      *Descriptor
		wantField string
		hasError  bool
	}{
		{
			name:     "valid descriptor",
			desc:     &Descriptor{ID: "org.example.a", Name: "A", Version: "1.0.0", SinceBuild: "100"},
			hasError: false,
		},
		{
			name:      "missing id",
			desc:      &Descriptor{Name: "A"},
			wantField: "id",
			hasError:  true,
		},
		{
			name:      "invalid id",
			desc:      &Descriptor{ID: "has spaces", Name: "A"},
			wantField: "id",
			hasError:  true,
		},
		{
			name:      "self dependency",
			desc:      &Descriptor{ID: "a", Name: "A", Depends: []string{"a"}},
			wantField: "depends",
			hasError:  true,
		},
		{
			name:      "non-numeric build bound is only a warning",
			desc:      &Descriptor{ID: "a", Name: "A", SinceBuild: "beta"},
			wantField: "since_build",
			hasError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := ValidateDescriptor(tt.desc)
			assert.Equal(t, tt.hasError, HasErrors(findings))

			if tt.wantField != "" {
				fields := make([]string, 0, len(findings))
				for _, f := range findings {
					fields = append(fields, f.Field)
				}
				assert.Contains(t, fields, tt.wantField)
			}
		})
	}
}

func TestNormalizeDescriptor(t *testing.T) {
	desc := &Descriptor{
		ID:              " org.example.git ",
		Depends:         []string{"core", "", "org.example.git", "vcs", " core"},
		OptionalDepends: []string{"vcs", "org.example.tasks "},
	}

	changes := NormalizeDescriptor(desc)

	assert.Equal(t, "org.example.git", desc.ID)
	assert.Equal(t, []string{"core", "vcs"}, desc.Depends)
	assert.Equal(t, []string{"org.example.tasks"}, desc.OptionalDepends)
	assert.Len(t, changes, 6)
	assert.False(t, HasErrors(ValidateDescriptor(desc)))

	assert.Empty(t, NormalizeDescriptor(desc))
}
