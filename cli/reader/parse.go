package reader

import "errors"

// ParseTranscriptRecord converts an archive record (map[string]any) to a
// TranscriptLine. Handles both int64 (direct writes) and float64 (JSON
// round-trips) for seq.
func ParseTranscriptRecord(record map[string]any) (*TranscriptLine, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	line := &TranscriptLine{
		Session:   toString(record["session"]),
		Seq:       toInt64(record["seq"]),
		Ts:        toString(record["ts"]),
		Window:    toString(record["window"]),
		Stream:    toString(record["stream"]),
		Character: toString(record["character"]),
		Text:      toString(record["text"]),
	}

	// The write path always populates these; missing values indicate a
	// malformed record.
	if line.Ts == "" {
		return nil, errors.New("transcript record missing required field: ts")
	}
	if line.Session == "" {
		return nil, errors.New("transcript record missing required field: session")
	}
	if line.Window == "" {
		return nil, errors.New("transcript record missing required field: window")
	}

	return line, nil
}

// toInt64 converts a value to int64, handling float64 from JSON and int64 from direct writes.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
