package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const fileVersion = 1

type envelope struct {
	Metadata metadata `json:"metadata"`
	Items    []Item   `json:"items"`
}

type metadata struct {
	SavedAt string `json:"saved_at"`
	Version int    `json:"version"`
}

// Save writes the queue to path as versioned JSON.
func Save(path string, items []Item) error {
	env := envelope{
		Metadata: metadata{
			SavedAt: time.Now().Format(time.RFC3339),
			Version: fileVersion,
		},
		Items: items,
	}
	data, err := json.MarshalIndent(&env, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a queue file, resetting every item to pending. Items that
// are structurally invalid are skipped; the count of skipped items is
// returned so the caller can report it.
func Load(path string) ([]Item, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, 0, fmt.Errorf("queue: %s is not a queue file: %w", path, err)
	}
	if env.Items == nil {
		return nil, 0, fmt.Errorf("queue: %s missing items list", path)
	}
	items := make([]Item, 0, len(env.Items))
	skipped := 0
	for _, it := range env.Items {
		if !valid(it) {
			skipped++
			continue
		}
		it.Status = StatusPending
		items = append(items, it)
	}
	return items, skipped, nil
}

func valid(it Item) bool {
	switch it.Kind {
	case KindPump:
		return it.Pump != nil && it.Pump.Op != ""
	case KindPause:
		return it.PauseSeconds >= 0
	case KindMeasurement:
		return it.ScriptPath != ""
	}
	return false
}
