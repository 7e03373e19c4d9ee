// Package undo provides command objects for layout edits and the stack that
// replays them. Every interactive mutation of a page layout goes through a
// Command so it can be reverted and reapplied.
package undo

import (
	"fmt"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/layout"
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Command is a reversible layout edit. Do and Undo must be exact inverses:
// applying Do then Undo leaves the layout in its prior state.
type Command interface {
	Do() error
	Undo() error
	Name() string
}

// AddBox inserts a box into the layout at the given index. An index of -1
// appends.
type AddBox struct {
	Layout *layout.PageLayout
	Box    *layout.Box
	Index  int
}

func (c *AddBox) Name() string { return "add box" }

func (c *AddBox) Do() error {
	if c.Index < 0 || c.Index >= c.Layout.Len() {
		c.Layout.AddBox(c.Box)
		return nil
	}
	c.Layout.InsertBox(c.Box, c.Index)
	return nil
}

func (c *AddBox) Undo() error {
	if !c.Layout.RemoveBoxByID(c.Box.ID) {
		return xerror.New(xerror.KindIndexOutOfRange, "box to remove not found").WithEntity(c.Box.ID)
	}
	return nil
}

// RemoveBox deletes a box. The box and its position are captured on Do so
// Undo can reinsert it unchanged.
type RemoveBox struct {
	Layout *layout.PageLayout
	ID     string

	snapshot *layout.Box
	index    int
}

func (c *RemoveBox) Name() string { return "remove box" }

func (c *RemoveBox) Do() error {
	box, index := c.Layout.BoxByID(c.ID)
	if box == nil {
		return xerror.New(xerror.KindIndexOutOfRange, "box to remove not found").WithEntity(c.ID)
	}
	c.snapshot = box.Clone()
	c.index = index
	return c.Layout.RemoveBox(index)
}

func (c *RemoveBox) Undo() error {
	if c.snapshot == nil {
		return xerror.New(xerror.KindInputMissing, "remove was never applied")
	}
	c.Layout.InsertBox(c.snapshot.Clone(), c.index)
	return nil
}

// MoveBox repositions a box. The previous position is captured on Do.
type MoveBox struct {
	Layout *layout.PageLayout
	ID     string
	X      int
	Y      int

	prevX int
	prevY int
}

func (c *MoveBox) Name() string { return "move box" }

func (c *MoveBox) Do() error {
	box, _ := c.Layout.BoxByID(c.ID)
	if box == nil {
		return xerror.New(xerror.KindIndexOutOfRange, "box to move not found").WithEntity(c.ID)
	}
	c.prevX, c.prevY = box.X, box.Y
	box.UpdatePosition(c.X, c.Y, layout.SourceGUI)
	return nil
}

func (c *MoveBox) Undo() error {
	box, _ := c.Layout.BoxByID(c.ID)
	if box == nil {
		return xerror.New(xerror.KindIndexOutOfRange, "box to move not found").WithEntity(c.ID)
	}
	box.UpdatePosition(c.prevX, c.prevY, layout.SourceGUI)
	return nil
}

// ResizeBox changes a box's size. Resizing discards recognition results, so
// the full box is snapshotted on Do and restored wholesale on Undo.
type ResizeBox struct {
	Layout *layout.PageLayout
	ID     string
	W      int
	H      int

	snapshot *layout.Box
}

func (c *ResizeBox) Name() string { return "resize box" }

func (c *ResizeBox) Do() error {
	box, _ := c.Layout.BoxByID(c.ID)
	if box == nil {
		return xerror.New(xerror.KindIndexOutOfRange, "box to resize not found").WithEntity(c.ID)
	}
	c.snapshot = box.Clone()
	return box.UpdateSize(c.W, c.H, layout.SourceGUI)
}

func (c *ResizeBox) Undo() error {
	_, index := c.Layout.BoxByID(c.ID)
	if index < 0 || c.snapshot == nil {
		return xerror.New(xerror.KindIndexOutOfRange, "box to resize not found").WithEntity(c.ID)
	}
	return c.Layout.ReplaceBox(index, c.snapshot.Clone())
}

// ChangeType converts a box to another type. Conversion across families can
// drop recognition state, so Undo restores a snapshot.
type ChangeType struct {
	Layout *layout.PageLayout
	ID     string
	Type   boxtype.Type

	snapshot *layout.Box
}

func (c *ChangeType) Name() string { return fmt.Sprintf("change type to %s", c.Type) }

func (c *ChangeType) Do() error {
	box, index := c.Layout.BoxByID(c.ID)
	if box == nil {
		return xerror.New(xerror.KindIndexOutOfRange, "box to convert not found").WithEntity(c.ID)
	}
	c.snapshot = box.Clone()
	return c.Layout.ReplaceBox(index, box.ConvertTo(c.Type))
}

func (c *ChangeType) Undo() error {
	_, index := c.Layout.BoxByID(c.ID)
	if index < 0 || c.snapshot == nil {
		return xerror.New(xerror.KindIndexOutOfRange, "box to convert not found").WithEntity(c.ID)
	}
	return c.Layout.ReplaceBox(index, c.snapshot.Clone())
}

// Composite groups several commands into one undoable step. Do applies them
// in order and rolls back on the first failure; Undo reverts in reverse
// order.
type Composite struct {
	Label    string
	Commands []Command
}

func (c *Composite) Name() string { return c.Label }

func (c *Composite) Do() error {
	for i, cmd := range c.Commands {
		if err := cmd.Do(); err != nil {
			for j := i - 1; j >= 0; j-- {
				// Rollback failures cannot be reported without losing the
				// original cause.
				_ = c.Commands[j].Undo()
			}
			return err
		}
	}
	return nil
}

func (c *Composite) Undo() error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(); err != nil {
			return err
		}
	}
	return nil
}
