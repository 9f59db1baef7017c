package engine

import "github.com/google/uuid"

// TraceIDGenerator generates the identifier stamped on each TraceResult.
// Implemented by UUIDv7Generator and ConstantGenerator.
type TraceIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 trace IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so archived
// traces sort by creation time without a separate column.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7, e.g.
// "018f3c1e-7b2a-7c4d-9e8f-0a1b2c3d4e5f". If the random source fails it
// returns a random (version 4) UUID instead, and the nil UUID when that
// fails too.
func (g UUIDv7Generator) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return uuid.Nil.String()
}

// ConstantGenerator returns the same ID forever. The scenario harness
// uses it so every golden trace carries a stable ID.
type ConstantGenerator string

// Generate returns the constant.
func (g ConstantGenerator) Generate() string { return string(g) }
