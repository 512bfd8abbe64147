package postgres

import "encoding/json"

// resultToJSON converts a result payload to a value for the JSONB column.
// Empty results are stored as NULL rather than empty strings so the column
// stays valid JSON.
func resultToJSON(result json.RawMessage) any {
	if len(result) == 0 {
		return nil
	}
	return string(result)
}

// resultFromJSON parses a stored JSONB value back into a raw result.
func resultFromJSON(s string) json.RawMessage {
	if s == "" || s == "null" {
		return nil
	}
	return json.RawMessage(s)
}
