package domain

// Stage names a step of a multi-step lifecycle operation. A failed operation
// always reports the stage it stopped at.
type Stage string

// Manifest-backed service stages.
const (
	StagePrepare       Stage = "prepare"
	StageWriteManifest Stage = "write-manifest"
	StageLoadManifest  Stage = "load-manifest"
	StageComposePull   Stage = "pull"
	StageComposeUp     Stage = "up"
)

// Standalone recreate stages.
const (
	StageInspect    Stage = "inspect"
	StagePull       Stage = "pull"
	StageStopRemove Stage = "stop-remove"
	StageRecreate   Stage = "recreate"
)
