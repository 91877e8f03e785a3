package events

import "time"

// BuildStart is emitted when a finalization entry point begins.
type BuildStart struct {
	Kind string // "declaration", "composed" or "executable"
}

// BuildFinish is emitted when a finalization entry point returns.
type BuildFinish struct {
	Kind     string
	Err      error
	Duration time.Duration
}

// PipelineStart is emitted before the plugin pipeline body runs.
// It is not emitted when the pipeline has already been processed.
type PipelineStart struct {
	Plugins int
}

// PipelineFinish is emitted after the plugin pipeline body returns.
type PipelineFinish struct {
	Err      error
	Duration time.Duration
}

// PhaseStart is emitted before each pipeline phase.
type PhaseStart struct {
	Phase string
}

// PhaseFinish is emitted after each pipeline phase.
type PhaseFinish struct {
	Phase    string
	Err      error
	Duration time.Duration
}

// DuplicateDeclaration is an advisory emitted when a direct registration
// re-uses a name that is already present in its category. The registration
// still proceeds; the newer declaration wins.
type DuplicateDeclaration struct {
	Category string
	Name     string
}

// DuplicatePlugin is an advisory emitted when a plugin registration collides
// with an already registered plugin name. The newer plugin is ignored.
type DuplicatePlugin struct {
	Name string
}

// RemoteSourceWrapped is emitted after a remote source descriptor has been
// resolved and wrapped for the first time.
type RemoteSourceWrapped struct {
	Name     string
	Duration time.Duration
}
