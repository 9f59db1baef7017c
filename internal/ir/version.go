package ir

// Version constants stamped on archived traces.
const (
	// FormatVersion is the TraceResult JSON format version. It changes
	// whenever a stored trace would no longer decode or hash the same.
	FormatVersion = "1"

	// EngineVersion is the stepwise engine version.
	EngineVersion = "0.1.0"
)
