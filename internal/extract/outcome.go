package extract

// State is the terminal phase an archive's processing reached.
type State string

const (
	// StateDone: extraction succeeded.
	StateDone State = "done"
	// StateFailed: extraction or both pretests failed conclusively.
	StateFailed State = "failed"
	// StateSkipped: not actually an archive (placeholder page/document).
	StateSkipped State = "skipped"
	// StateCancelled: the run was aborted while this archive was in
	// flight. Distinct from failure everywhere.
	StateCancelled State = "cancelled"
)

// Outcome reports how one archive ended up.
type Outcome struct {
	State  State
	Reason string
	// Nested counts archives extracted out of the output directory.
	Nested int
	// Deleted counts source fragments removed after success.
	Deleted int
}

// Summary aggregates a whole batch.
type Summary struct {
	Done      int
	Total     int
	Cancelled bool
}
