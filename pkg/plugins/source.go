package plugins

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
)

// DirSource discovers descriptors in plugin directories. Every immediate
// subdirectory holding a plugin.yaml is one plugin. Descriptors found under
// bundled directories are marked Bundled.
type DirSource struct {
	bundledDirs []string
	pluginDirs  []string
	log         *logrus.Logger
}

// NewDirSource creates a directory source. Bundled directories are scanned
// before user plugin directories so bundled plugins win duplicate ids.
func NewDirSource(bundledDirs, pluginDirs []string, log *logrus.Logger) *DirSource {
	if log == nil {
		log = logrus.New()
	}

	return &DirSource{
		bundledDirs: bundledDirs,
		pluginDirs:  pluginDirs,
		log:         log,
	}
}

// Descriptors scans all directories and returns descriptors in scan order.
// Unreadable directories and broken manifests are logged and skipped.
func (s *DirSource) Descriptors(ctx context.Context) ([]*Descriptor, error) {
	var descs []*Descriptor

	for _, dir := range s.bundledDirs {
		found, err := s.scan(ctx, dir, true)
		if err != nil {
			return nil, err
		}
		descs = append(descs, found...)
	}
	for _, dir := range s.pluginDirs {
		found, err := s.scan(ctx, dir, false)
		if err != nil {
			return nil, err
		}
		descs = append(descs, found...)
	}

	return descs, nil
}

func (s *DirSource) scan(ctx context.Context, dir string, bundled bool) ([]*Descriptor, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		s.log.Debugf("Plugin directory does not exist: %s", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warnf("Failed to read plugin directory %s: %v", dir, err)
		return nil, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var descs []*Descriptor
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(pluginDir, ManifestFile)); err != nil {
			continue
		}

		desc, err := LoadDescriptorFromDir(pluginDir)
		if err != nil {
			s.log.Warnf("Failed to load plugin descriptor from %s: %v", pluginDir, err)
			continue
		}
		desc.Bundled = bundled

		s.log.WithFields(logrus.Fields{
			"plugin":  desc.ID,
			"version": desc.Version,
			"bundled": bundled,
		}).Debug("Discovered plugin descriptor")
		descs = append(descs, desc)
	}

	return descs, nil
}

// DefaultPluginDirectories returns the default user plugin search directories
func DefaultPluginDirectories() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}

	return []string{
		filepath.Join(homeDir, ".pluginhost", "plugins"),
		"./plugins",
	}
}
