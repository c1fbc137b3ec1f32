package extract

// Sink receives the ordered event stream of a run: free-text log lines,
// aggregate progress, the item currently being worked on, and phase
// notices. Implementations must be safe for concurrent use; lines from
// one worker arrive in that worker's causal order.
type Sink interface {
	Log(line string)
	Progress(done, total int)
	Current(index, total int, name string)
	Phase(label string)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Log(string)               {}
func (NopSink) Progress(int, int)        {}
func (NopSink) Current(int, int, string) {}
func (NopSink) Phase(string)             {}
