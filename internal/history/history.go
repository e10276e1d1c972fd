// Package history records plan edits on undo and redo stacks.
package history

import (
	"fmt"

	"github.com/foxholetools/artyplanner/internal/plan"
)

// DefaultLimit is the number of edits kept on the undo stack.
const DefaultLimit = 50

// History owns a plan.Model and every edit made to it.
// Like the model, it is not safe for concurrent use.
type History struct {
	model *plan.Model
	undo  []Command
	redo  []Command
	limit int
}

// New wraps m. A limit <= 0 selects DefaultLimit.
func New(m *plan.Model, limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{model: m, limit: limit}
}

// Model returns the wrapped model. Mutate it only through Apply.
func (h *History) Model() *plan.Model {
	return h.model
}

// Apply runs c and records it. A failed command changes nothing and is not recorded.
func (h *History) Apply(c Command) error {
	if err := c.Apply(h.model); err != nil {
		return err
	}
	h.undo = append(h.undo, c)
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = h.redo[:0]
	return nil
}

// Undo reverts the most recent edit. It returns nil, nil when there is nothing to undo.
func (h *History) Undo() (Command, error) {
	if len(h.undo) == 0 {
		return nil, nil
	}
	c := h.undo[len(h.undo)-1]
	if err := c.Revert(h.model); err != nil {
		return nil, fmt.Errorf("undo %s: %w", c, err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, c)
	return c, nil
}

// Redo re-applies the most recently undone edit. It returns nil, nil when there is nothing to redo.
func (h *History) Redo() (Command, error) {
	if len(h.redo) == 0 {
		return nil, nil
	}
	c := h.redo[len(h.redo)-1]
	if err := c.Apply(h.model); err != nil {
		return nil, fmt.Errorf("redo %s: %w", c, err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, c)
	return c, nil
}

// CanUndo reports whether Undo would do anything.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo would do anything.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) { return len(h.undo), len(h.redo) }

// Clear forgets every recorded edit without touching the model.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
