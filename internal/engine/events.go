package engine

import "github.com/GoSim-25-26J-441/infra-scaler/pkg/models"

// NewEntries returns the log entries after appended by the operation that
// turned before into after.
func NewEntries(before, after models.State) []models.LogEntry {
	if len(after.Log) <= len(before.Log) {
		return nil
	}
	out := make([]models.LogEntry, len(after.Log)-len(before.Log))
	copy(out, after.Log[len(before.Log):])
	return out
}

// EntriesOfKind filters a log by kind
func EntriesOfKind(log []models.LogEntry, kinds ...models.LogKind) []models.LogEntry {
	var out []models.LogEntry
	for _, e := range log {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
