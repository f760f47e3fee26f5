// Package history records full copies of the scene for undo and redo.
//
// Every snapshot deep-clones all model geometry, and every undo or redo
// rebuilds the live models from a stored record. Both cost O(total vertex
// count) of the scene involved; there is no structural sharing between
// records or between a record and the live registry.
package history

import (
	"log/slog"

	"github.com/chazu/kerf/pkg/scene"
	"github.com/samber/lo"
)

// DefaultMaxRecords bounds the log; the oldest record is evicted first.
const DefaultMaxRecords = 30

// Record is an immutable copy of the scene state.
type Record struct {
	models    []*scene.Model
	selected  int
	secondary int
}

// Len returns the number of models in the record.
func (r Record) Len() int {
	return len(r.models)
}

func capture(reg *scene.Registry) Record {
	return Record{
		models:    lo.Map(reg.Models(), func(m *scene.Model, _ int) *scene.Model { return m.Clone() }),
		selected:  reg.Selected(),
		secondary: reg.Secondary(),
	}
}

// Manager is a bounded log of scene records with a cursor.
type Manager struct {
	reg     *scene.Registry
	records []Record
	cursor  int
	max     int
	logger  *slog.Logger
}

// New returns a Manager for reg holding at most maxRecords records.
func New(reg *scene.Registry, maxRecords int, logger *slog.Logger) *Manager {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{reg: reg, cursor: -1, max: maxRecords, logger: logger}
}

// Snapshot records the current scene. Records past the cursor are
// discarded first; the oldest record is evicted when the log is full.
func (h *Manager) Snapshot() {
	if h.cursor < len(h.records)-1 {
		h.logger.Debug("history: discarding redo branch", "records", len(h.records)-1-h.cursor)
		h.records = h.records[:h.cursor+1]
	}
	h.records = append(h.records, capture(h.reg))
	if len(h.records) > h.max {
		evict := len(h.records) - h.max
		h.records = append([]Record(nil), h.records[evict:]...)
	}
	h.cursor = len(h.records) - 1
}

// Undo restores the previous record. It is a logged no-op at the first
// record.
func (h *Manager) Undo() bool {
	if h.cursor <= 0 {
		h.logger.Info("history: nothing to undo", "cursor", h.cursor, "records", len(h.records))
		return false
	}
	h.cursor--
	h.restore(h.records[h.cursor])
	return true
}

// Redo restores the next record. It is a logged no-op at the last record.
func (h *Manager) Redo() bool {
	if h.cursor < 0 || h.cursor >= len(h.records)-1 {
		h.logger.Info("history: nothing to redo", "cursor", h.cursor, "records", len(h.records))
		return false
	}
	h.cursor++
	h.restore(h.records[h.cursor])
	return true
}

// restore rebuilds the live models from fresh clones so the record stays
// untouched by later edits.
func (h *Manager) restore(rec Record) {
	models := lo.Map(rec.models, func(m *scene.Model, _ int) *scene.Model { return m.Clone() })
	h.reg.Restore(models, rec.selected, rec.secondary)
	h.logger.Debug("history: restored", "cursor", h.cursor, "models", len(models))
}

// Len returns the number of stored records.
func (h *Manager) Len() int {
	return len(h.records)
}

// Cursor returns the index of the current record, or -1 when empty.
func (h *Manager) Cursor() int {
	return h.cursor
}

// CanUndo reports whether Undo would change the scene.
func (h *Manager) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether Redo would change the scene.
func (h *Manager) CanRedo() bool {
	return h.cursor >= 0 && h.cursor < len(h.records)-1
}

// Reset drops every record.
func (h *Manager) Reset() {
	h.records = nil
	h.cursor = -1
}
