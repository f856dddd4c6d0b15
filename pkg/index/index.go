package index

import "github.com/harrisonrobin/tasksync/pkg/model"

// TaskIndex maps the ids one remote assigned to positions in a slice of local
// records. It is rebuilt at the start of every pass and kept current while the
// pass appends records, so it needs no locking.
type TaskIndex struct {
	Source   model.Source
	Mappings map[string]int
}

// New indexes every record that references the given remote.
func New(tasks []model.Task, source model.Source) *TaskIndex {
	idx := &TaskIndex{
		Source:   source,
		Mappings: make(map[string]int, len(tasks)),
	}
	for i := range tasks {
		idx.Set(tasks[i].RemoteID(source), i)
	}
	return idx
}

// Get returns the position of the record carrying remoteID.
func (idx *TaskIndex) Get(remoteID string) (int, bool) {
	if remoteID == "" {
		return 0, false
	}
	pos, ok := idx.Mappings[remoteID]
	return pos, ok
}

// Set maps remoteID to pos. The first record wins if two records claim the
// same id; Duplicates reports those.
func (idx *TaskIndex) Set(remoteID string, pos int) {
	if remoteID == "" {
		return
	}
	if _, exists := idx.Mappings[remoteID]; exists {
		return
	}
	idx.Mappings[remoteID] = pos
}

// Duplicates returns remote ids referenced by more than one record.
func Duplicates(tasks []model.Task, source model.Source) []string {
	seen := make(map[string]int)
	var dups []string
	for i := range tasks {
		id := tasks[i].RemoteID(source)
		if id == "" {
			continue
		}
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
