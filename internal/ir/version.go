package ir

// Version constants for the record encoding and engine.
const (
	// RecordVersion is the encoding version of journaled records.
	RecordVersion = "1"

	// EngineVersion is the tasklog engine version.
	EngineVersion = "0.1.0"
)
