package undo

import (
	"github.com/ocrdesk/ocrdesk/pkg/xerror"
)

// Stack tracks applied commands. Apply pushes onto the undo side and clears
// the redo side; Undo and Redo shuttle commands between the two.
type Stack struct {
	undo []Command
	redo []Command
}

// NewStack creates an empty command stack.
func NewStack() *Stack {
	return &Stack{}
}

// Apply executes the command and records it. A failed command is not
// recorded. Any pending redo history is discarded.
func (s *Stack) Apply(cmd Command) error {
	if err := cmd.Do(); err != nil {
		return err
	}
	s.undo = append(s.undo, cmd)
	s.redo = s.redo[:0]
	return nil
}

// Undo reverts the most recent command and moves it to the redo side.
func (s *Stack) Undo() error {
	if len(s.undo) == 0 {
		return xerror.New(xerror.KindInputMissing, "nothing to undo")
	}
	cmd := s.undo[len(s.undo)-1]
	if err := cmd.Undo(); err != nil {
		return err
	}
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, cmd)
	return nil
}

// Redo reapplies the most recently undone command.
func (s *Stack) Redo() error {
	if len(s.redo) == 0 {
		return xerror.New(xerror.KindInputMissing, "nothing to redo")
	}
	cmd := s.redo[len(s.redo)-1]
	if err := cmd.Do(); err != nil {
		return err
	}
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, cmd)
	return nil
}

// CanUndo reports whether Undo would succeed.
func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }

// CanRedo reports whether Redo would succeed.
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// UndoName returns the name of the command Undo would revert, or "".
func (s *Stack) UndoName() string {
	if len(s.undo) == 0 {
		return ""
	}
	return s.undo[len(s.undo)-1].Name()
}

// RedoName returns the name of the command Redo would reapply, or "".
func (s *Stack) RedoName() string {
	if len(s.redo) == 0 {
		return ""
	}
	return s.redo[len(s.redo)-1].Name()
}

// Clear drops all history, for example after loading a project.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
}
