package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
	"github.com/ocrdesk/ocrdesk/pkg/layout"
)

func testLayout(t *testing.T) (*layout.PageLayout, *layout.Box) {
	t.Helper()
	l := layout.NewPageLayout(layout.Rect{W: 1000, H: 1500})
	b := layout.New(boxtype.FlowingText, 100, 100, 200, 50)
	l.AddBox(b)
	return l, b
}

func TestAddBoxDoUndo(t *testing.T) {
	l, _ := testLayout(t)
	b := layout.New(boxtype.CaptionText, 100, 200, 200, 30)

	cmd := &AddBox{Layout: l, Box: b, Index: -1}
	require.NoError(t, cmd.Do())
	assert.Equal(t, 2, l.Len())

	require.NoError(t, cmd.Undo())
	assert.Equal(t, 1, l.Len())
	found, _ := l.BoxByID(b.ID)
	assert.Nil(t, found)
}

func TestRemoveBoxRestoresStateAndOrder(t *testing.T) {
	l, first := testLayout(t)
	second := layout.New(boxtype.FlowingText, 100, 200, 200, 50)
	second.UserText = "hand-corrected"
	l.AddBox(second)
	third := layout.New(boxtype.FlowingText, 100, 300, 200, 50)
	l.AddBox(third)

	cmd := &RemoveBox{Layout: l, ID: second.ID}
	require.NoError(t, cmd.Do())
	assert.Equal(t, 2, l.Len())

	require.NoError(t, cmd.Undo())
	require.Equal(t, 3, l.Len())
	restored, index := l.BoxByID(second.ID)
	require.NotNil(t, restored)
	assert.Equal(t, 1, index)
	assert.Equal(t, "hand-corrected", restored.UserText)
	_, firstIdx := l.BoxByID(first.ID)
	assert.Equal(t, 0, firstIdx)
}

func TestRemoveBoxMissing(t *testing.T) {
	l, _ := testLayout(t)
	cmd := &RemoveBox{Layout: l, ID: "no-such-box"}
	assert.Error(t, cmd.Do())
}

func TestMoveBoxDoUndo(t *testing.T) {
	l, b := testLayout(t)
	cmd := &MoveBox{Layout: l, ID: b.ID, X: 400, Y: 500}
	require.NoError(t, cmd.Do())
	assert.Equal(t, 400, b.X)
	assert.Equal(t, 500, b.Y)

	require.NoError(t, cmd.Undo())
	assert.Equal(t, 100, b.X)
	assert.Equal(t, 100, b.Y)
}

func TestResizeBoxUndoRestoresSnapshot(t *testing.T) {
	l, b := testLayout(t)
	b.UserText = "kept text"

	cmd := &ResizeBox{Layout: l, ID: b.ID, W: 300, H: 80}
	require.NoError(t, cmd.Do())
	resized, _ := l.BoxByID(b.ID)
	assert.Equal(t, 300, resized.W)

	require.NoError(t, cmd.Undo())
	restored, _ := l.BoxByID(b.ID)
	require.NotNil(t, restored)
	assert.Equal(t, 200, restored.W)
	assert.Equal(t, 50, restored.H)
	assert.Equal(t, "kept text", restored.UserText)
}

func TestResizeBoxRejectsNonPositiveSize(t *testing.T) {
	l, b := testLayout(t)
	cmd := &ResizeBox{Layout: l, ID: b.ID, W: 0, H: 80}
	assert.Error(t, cmd.Do())
}

func TestChangeTypeDoUndo(t *testing.T) {
	l, b := testLayout(t)
	cmd := &ChangeType{Layout: l, ID: b.ID, Type: boxtype.HeadingText}
	require.NoError(t, cmd.Do())
	converted, _ := l.BoxByID(b.ID)
	require.NotNil(t, converted)
	assert.Equal(t, boxtype.HeadingText, converted.Type)

	require.NoError(t, cmd.Undo())
	restored, _ := l.BoxByID(b.ID)
	require.NotNil(t, restored)
	assert.Equal(t, boxtype.FlowingText, restored.Type)
}

func TestCompositeRollsBackOnFailure(t *testing.T) {
	l, b := testLayout(t)
	cmd := &Composite{
		Label: "move and break",
		Commands: []Command{
			&MoveBox{Layout: l, ID: b.ID, X: 400, Y: 500},
			&MoveBox{Layout: l, ID: "no-such-box", X: 1, Y: 1},
		},
	}
	assert.Error(t, cmd.Do())
	assert.Equal(t, 100, b.X)
	assert.Equal(t, 100, b.Y)
}

func TestCompositeUndoReversesOrder(t *testing.T) {
	l, b := testLayout(t)
	cmd := &Composite{
		Label: "move twice",
		Commands: []Command{
			&MoveBox{Layout: l, ID: b.ID, X: 200, Y: 200},
			&MoveBox{Layout: l, ID: b.ID, X: 300, Y: 300},
		},
	}
	require.NoError(t, cmd.Do())
	assert.Equal(t, 300, b.X)

	require.NoError(t, cmd.Undo())
	assert.Equal(t, 100, b.X)
	assert.Equal(t, 100, b.Y)
}

func TestStackUndoRedo(t *testing.T) {
	l, b := testLayout(t)
	s := NewStack()
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.Error(t, s.Undo())
	assert.Error(t, s.Redo())

	require.NoError(t, s.Apply(&MoveBox{Layout: l, ID: b.ID, X: 200, Y: 200}))
	require.NoError(t, s.Apply(&MoveBox{Layout: l, ID: b.ID, X: 300, Y: 300}))
	assert.True(t, s.CanUndo())
	assert.Equal(t, "move box", s.UndoName())

	require.NoError(t, s.Undo())
	assert.Equal(t, 200, b.X)
	assert.True(t, s.CanRedo())

	require.NoError(t, s.Redo())
	assert.Equal(t, 300, b.X)
	assert.False(t, s.CanRedo())
}

func TestStackApplyClearsRedo(t *testing.T) {
	l, b := testLayout(t)
	s := NewStack()
	require.NoError(t, s.Apply(&MoveBox{Layout: l, ID: b.ID, X: 200, Y: 200}))
	require.NoError(t, s.Undo())
	require.True(t, s.CanRedo())

	require.NoError(t, s.Apply(&MoveBox{Layout: l, ID: b.ID, X: 250, Y: 250}))
	assert.False(t, s.CanRedo())
}

func TestStackFailedCommandNotRecorded(t *testing.T) {
	l, _ := testLayout(t)
	s := NewStack()
	assert.Error(t, s.Apply(&MoveBox{Layout: l, ID: "no-such-box", X: 1, Y: 1}))
	assert.False(t, s.CanUndo())
}
