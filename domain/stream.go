package domain

// StreamPhase marks the position of a token inside a stream session.
// A session is the ordered sequence Start, Chunk*, End.
type StreamPhase string

const (
	PhaseStart StreamPhase = "start"
	PhaseChunk StreamPhase = "chunk"
	PhaseEnd   StreamPhase = "end"
)

// StreamEvent is what stream-bus subscribers receive. Text carries the
// accumulated response so far (empty on Start and End). Events are
// ephemeral and never persisted.
type StreamEvent struct {
	Phase StreamPhase
	Text  string
}
