package resolver

import "errors"

// Resolution problem kinds. Every non-fatal Problem unwraps to one of these.
var (
	// ErrDuplicateID is reported when a later descriptor repeats an id.
	ErrDuplicateID = errors.New("duplicate plugin id")

	// ErrMissingID is reported (once, as a count) for descriptors without id.
	ErrMissingID = errors.New("plugin descriptor without id")

	// ErrIncompatible is reported when the build range excludes the current build.
	ErrIncompatible = errors.New("plugin incompatible with current build")

	// ErrDisabledByUser is reported for ids in the persisted disabled set.
	ErrDisabledByUser = errors.New("plugin disabled by user")

	// ErrDisabledBySelection is reported for plugins outside an active selection override.
	ErrDisabledBySelection = errors.New("plugin disabled by selection")

	// ErrUnsatisfiedDependency is reported when a required dependency is unavailable.
	ErrUnsatisfiedDependency = errors.New("required plugin dependency unavailable")

	// ErrCycleTolerated is a warning: a dependency cycle was ordered by discovery.
	ErrCycleTolerated = errors.New("dependency cycle tolerated")

	// ErrLoaderConstruction is reported when a plugin's loading unit could not be built.
	ErrLoaderConstruction = errors.New("plugin loader construction failed")

	// ErrStoreWrite is reported when newly disabled ids could not be persisted.
	ErrStoreWrite = errors.New("failed to persist disabled plugins")

	// ErrStoreRead is reported when the persisted disabled set could not be loaded.
	ErrStoreRead = errors.New("failed to read disabled plugins")

	// ErrCoreMissing is fatal: without the core plugin nothing can load.
	ErrCoreMissing = errors.New("core plugin is missing or disabled")
)
