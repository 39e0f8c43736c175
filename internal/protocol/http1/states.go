package http1

// State is the state of the Generator.
type State uint8

const (
	// StateStart means nothing was generated yet.
	StateStart State = iota
	// StateCommitted means the head is generated and the body may follow.
	StateCommitted
	// StateCompleting means no more content is expected, but the message isn't finalized.
	StateCompleting
	// StateEnd means the message is complete.
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateCommitted:
		return "COMMITTED"
	case StateCompleting:
		return "COMPLETING"
	case StateEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Result tells the caller of the Generator what to do next.
type Result uint8

const (
	// NeedInfo requests the message metadata.
	NeedInfo Result = iota + 1
	// NeedHeader requests a buffer to generate the head into.
	NeedHeader
	// NeedChunk requests a buffer to generate a chunk prefix or the terminating chunk into.
	NeedChunk
	// Flush means the generated frame must be encoded onto the session.
	Flush
	// Continue means the generator must be called again.
	Continue
	// Done means there's nothing to do until more content comes or the message is complete.
	Done
)

func (r Result) String() string {
	switch r {
	case NeedInfo:
		return "NEED_INFO"
	case NeedHeader:
		return "NEED_HEADER"
	case NeedChunk:
		return "NEED_CHUNK"
	case Flush:
		return "FLUSH"
	case Continue:
		return "CONTINUE"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}
