package v1

type ExtractJob struct {
	Kind     string         `yaml:"kind" json:"kind" validate:"required,eq=ExtractJob"`
	Metadata Metadata       `yaml:"metadata" json:"metadata" validate:"required"`
	Spec     ExtractJobSpec `yaml:"spec" json:"spec" validate:"required"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type ExtractJobSpec struct {
	// Root is the directory scanned for archives.
	Root string `yaml:"root" json:"root" validate:"required"`

	// Recursive walks the whole tree under Root; otherwise only its top level.
	Recursive bool `yaml:"recursive" json:"recursive"`

	// OutputRoot, when set, receives extracted content mirroring each
	// archive's path relative to Root. When empty, archives extract into
	// a directory beside themselves.
	OutputRoot string `yaml:"output_root,omitempty" json:"output_root,omitempty"`

	// Engines configures the extraction executables. Both slots are
	// optional; missing engines are auto-discovered from PATH and common
	// install locations.
	Engines EngineSpec `yaml:"engines,omitempty" json:"engines,omitempty"`

	// Policy decides what happens when an output file already exists.
	Policy string `yaml:"policy,omitempty" json:"policy,omitempty" validate:"omitempty,oneof=skip rename overwrite"`

	// Pretest runs an integrity test before extracting.
	Pretest bool `yaml:"pretest" json:"pretest"`

	// CrossFallback retries a failed test or extraction with the other engine.
	CrossFallback bool `yaml:"cross_fallback" json:"cross_fallback"`

	// Nested extracts archives found inside extracted output.
	Nested bool `yaml:"nested" json:"nested"`

	// DeleteSource removes an archive (all multipart siblings) after a
	// successful extraction.
	DeleteSource bool `yaml:"delete_source" json:"delete_source"`

	// QuietSeconds is how long a subprocess may stay silent before a
	// heartbeat line is emitted. Clamped to a minimum of 10 at runtime.
	QuietSeconds int `yaml:"quiet_seconds,omitempty" json:"quiet_seconds,omitempty" validate:"omitempty,min=0"`

	// Workers bounds the pool used when extracting an explicit selection.
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty" validate:"omitempty,min=1,max=16"`

	// Filter is a CEL expression over archive attributes (name, dir,
	// size_mb, kind, password). Archives it rejects are not processed.
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`

	// EndAction runs after a batch that finished without cancellation.
	EndAction string `yaml:"end_action,omitempty" json:"end_action,omitempty" validate:"omitempty,oneof=none exit shutdown"`
}

// EngineSpec names the extraction executables. Bandizip-style engines
// take `-p:` / `-o:` arguments, 7-Zip-style engines take `-p` / `-o`.
type EngineSpec struct {
	Bandizip string `yaml:"bandizip,omitempty" json:"bandizip,omitempty"`
	SevenZip string `yaml:"sevenzip,omitempty" json:"sevenzip,omitempty"`
}
