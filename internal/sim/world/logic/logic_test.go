package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/entity"
)

func network(t *testing.T) (*Engine, *entity.Object, *entity.Object) {
	t.Helper()
	plate := entity.New("plate", entity.KindPlate, 0, 0, 10, 2)
	door := entity.New("door", entity.KindDoor, 50, 10, 4, 20)
	e := New()
	require.NoError(t, e.Add(&Node{ID: "a-plate", Op: OpPlate, Obj: plate}))
	require.NoError(t, e.Add(&Node{ID: "b-or", Op: OpOr, Inputs: []string{"a-plate"}}))
	require.NoError(t, e.Add(&Node{ID: "c-door", Op: OpDoor, Inputs: []string{"b-or"}, Obj: door}))
	require.NoError(t, e.Validate())
	return e, plate, door
}

func TestStep_PlateOpensDoorAfterPropagation(t *testing.T) {
	e, _, door := network(t)
	require.True(t, door.Solid)
	actor := entity.New("p", entity.KindPlayer, 0, 3, 10, 10)

	assert.Empty(t, e.Step([]*entity.Object{actor}))
	assert.True(t, e.Node("a-plate").Value)
	assert.Empty(t, e.Step([]*entity.Object{actor}))
	assert.Equal(t, []string{"door"}, e.Step([]*entity.Object{actor}))
	assert.False(t, door.Solid)

	assert.Empty(t, e.Step([]*entity.Object{actor}), "already open")
}

func TestStep_Clock(t *testing.T) {
	e := New()
	require.NoError(t, e.Add(&Node{ID: "clk", Op: OpClock, Period: 2}))
	var got []bool
	for i := 0; i < 6; i++ {
		e.Step(nil)
		got = append(got, e.Node("clk").Value)
	}
	assert.Equal(t, []bool{false, true, true, false, false, true}, got)
}

func TestCountdown(t *testing.T) {
	e := New()
	e.StartCountdown(2)
	e.Step(nil)
	assert.False(t, e.Expired)
	e.Step(nil)
	assert.True(t, e.Expired)
	e.Step(nil)
	assert.Equal(t, 0, e.Countdown)
}

func TestBackupRestore_OntoSameNodes(t *testing.T) {
	e, _, door := network(t)
	actor := entity.New("p", entity.KindPlayer, 0, 3, 10, 10)
	orNode := e.Node("b-or")
	snap := e.Backup()
	for i := 0; i < 3; i++ {
		e.Step([]*entity.Object{actor})
	}
	require.False(t, door.Solid)

	e.Restore(snap)
	assert.Same(t, orNode, e.Node("b-or"))
	assert.False(t, orNode.Value)
	assert.True(t, door.Solid)
	assert.Equal(t, snap, e.Backup())
}

func TestRestore_RejectsForeignSnapshot(t *testing.T) {
	e, _, _ := network(t)
	other := New()
	require.NoError(t, other.Add(&Node{ID: "x", Op: OpOr}))
	assert.Panics(t, func() { e.Restore(other.Backup()) })
}

func TestAdd_Errors(t *testing.T) {
	e := New()
	assert.Error(t, e.Add(&Node{ID: "d", Op: OpDoor}))
	assert.Error(t, e.Add(&Node{ID: "c", Op: OpClock}))
	assert.Error(t, e.Add(&Node{ID: "z", Op: "xor"}))
	require.NoError(t, e.Add(&Node{ID: "n", Op: OpNot, Inputs: []string{"missing"}}))
	assert.Error(t, e.Add(&Node{ID: "n", Op: OpOr}))
	assert.ErrorContains(t, e.Validate(), `unknown input "missing"`)
}
