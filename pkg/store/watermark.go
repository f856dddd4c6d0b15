package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Watermark is the time of the last completed push pass. Records modified
// at or before it are considered pushed.
type Watermark struct {
	Path string
}

type watermarkFile struct {
	LastSyncedTime *time.Time `json:"last_synced_time"`
}

// Load returns the watermark; ok is false when none was ever written.
func (w *Watermark) Load() (t time.Time, ok bool, err error) {
	data, err := os.ReadFile(w.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	var f watermarkFile
	if err := json.Unmarshal(data, &f); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to decode watermark: %w", err)
	}
	if f.LastSyncedTime == nil {
		return time.Time{}, false, nil
	}
	return *f.LastSyncedTime, true, nil
}

// Save advances the watermark to t.
func (w *Watermark) Save(t time.Time) error {
	data, err := json.Marshal(watermarkFile{LastSyncedTime: &t})
	if err != nil {
		return err
	}
	return writeFile(w.Path, append(data, '\n'))
}
