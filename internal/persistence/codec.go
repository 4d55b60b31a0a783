package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/averho/stepflow/pkg/workflow"
)

// EncodeRun serializes a run for storage. Runs carry arbitrary output
// content, so the codec is JSON; values that are not JSON-encodable
// fail here rather than at query time.
func EncodeRun(run *workflow.RunResponse) ([]byte, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode run %s: %w", run.RunID, err)
	}
	return data, nil
}

// DecodeRun deserializes a stored run. Content values round-trip
// through JSON, so non-string content comes back as the generic JSON
// types (map[string]any, []any, float64).
func DecodeRun(data []byte) (*workflow.RunResponse, error) {
	var run workflow.RunResponse
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}
