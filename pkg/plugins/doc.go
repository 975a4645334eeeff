// Package plugins defines plugin descriptors, resolution records and their lifecycle.
//
// # Overview
//
// A Descriptor is the static description of one plugin: identity, declared
// required and optional dependencies, the build range it supports and the
// code roots it ships. A Record wraps a descriptor for one resolution pass
// and carries its Status, which only ever moves forward:
//
//	discovered -> disabled-duplicate | disabled-missing-id | disabled-by-user
//	            | disabled-selection | incompatible
//	discovered -> candidate -> disabled-cascade
//	candidate  -> ordered -> loader-bound -> active
//	ordered    -> loader-failed
//
// # Sources
//
// Source supplies descriptors in discovery order. StaticSource serves an
// in-memory list; DirSource scans plugin directories for plugin.yaml files:
//
//	id: org.example.git
//	name: Git Integration
//	version: 2.1.0
//	depends: [core, org.example.vcs]
//	optional_depends: [org.example.github]
//	since_build: "200"
//	until_build: "299"
//	code_roots: [lib]
//
// # Usage Example
//
//	source := plugins.NewDirSource(bundledDirs, plugins.DefaultPluginDirectories(), log)
//	descs, err := source.Descriptors(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	records := plugins.NewRecords(descs)
//
// # Related Packages
//
//   - pkg/resolver: filtering, cascade disabling and ordering of records
//   - pkg/registry: runs the full pipeline once per process
package plugins
