package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/sim/geom"
)

type widget struct {
	noCopy NoCopy

	Name    string
	Count   int
	Tags    []string
	Attrs   map[string][]int
	Seen    map[string]struct{}
	Shape   geom.Outline
	Anchor  *geom.Point
	Partner *widget
	Any     any
	Back    *widget `snap:"-"`

	cached int
}

func (w *widget) Backup() Properties { return Capture(w) }

func (w *widget) Restore(p Properties) {
	Apply(w, p)
	w.cached = len(w.Tags)
}

func TestDup_CollectionsAreCopied(t *testing.T) {
	src := map[string][]int{"a": {1, 2}}
	dup := Dup(src)
	dup["a"][0] = 99
	dup["b"] = nil
	assert.Equal(t, map[string][]int{"a": {1, 2}}, src)

	nested := [][]geom.Point{{{X: 1}}}
	nd := Dup(nested)
	nd[0][0].X = 5
	assert.Equal(t, 1.0, nested[0][0].X)

	var none []int
	assert.Nil(t, Dup(none))
	assert.Nil(t, DupAny(nil))
}

func TestDup_DeepValuesAndSharedPointers(t *testing.T) {
	p := &geom.Point{X: 1, Y: 2}
	dp := Dup(p)
	require.NotSame(t, p, dp)
	assert.Equal(t, *p, *dp)

	partner := &widget{Name: "shared"}
	ws := []*widget{partner}
	dws := Dup(ws)
	assert.Same(t, partner, dws[0], "pointers to stateful objects are shared, not cloned")

	var iface any = []string{"x"}
	di := DupAny(iface).([]string)
	di[0] = "y"
	assert.Equal(t, []string{"x"}, iface)
}

func TestDup_StructFieldsAreCopied(t *testing.T) {
	type layer struct {
		Name   string
		Tiles  []int
		Shape  geom.Outline
		Owner  *widget
		hidden []int
	}
	owner := &widget{Name: "owner"}
	src := []layer{{
		Name:   "ground",
		Tiles:  []int{1, 2},
		Shape:  geom.Rect(2, 2),
		Owner:  owner,
		hidden: []int{7},
	}}

	dup := Dup(src)
	dup[0].Tiles[0] = 99
	dup[0].Shape[0].X = 50
	assert.Equal(t, []int{1, 2}, src[0].Tiles)
	assert.NotEqual(t, 50.0, src[0].Shape[0].X)
	assert.Same(t, owner, dup[0].Owner)

	dup[0].hidden[0] = 8
	assert.Equal(t, 8, src[0].hidden[0], "unexported fields are shared")
}

func TestCaptureApply_RoundTrip(t *testing.T) {
	partner := &widget{Name: "p"}
	w := &widget{
		Name:    "w",
		Count:   3,
		Tags:    []string{"a", "b"},
		Attrs:   map[string][]int{"hp": {10}},
		Seen:    map[string]struct{}{"door": {}},
		Shape:   geom.Rect(2, 2),
		Anchor:  &geom.Point{X: 4},
		Partner: partner,
		Any:     map[string]int{"k": 1},
		Back:    partner,
	}
	snap := w.Backup()
	assert.Equal(t, []string{"Name", "Count", "Tags", "Attrs", "Seen", "Shape", "Anchor", "Partner", "Any"}, snap.Keys())

	w.Name = "changed"
	w.Count = 7
	w.Tags[0] = "zzz"
	w.Tags = append(w.Tags, "c")
	w.Attrs["hp"][0] = 1
	delete(w.Seen, "door")
	w.Shape[0].X = 100
	w.Anchor.X = 100
	w.Partner = nil
	w.Any.(map[string]int)["k"] = 2
	w.Back = nil

	tags, ok := Lookup[[]string](snap, "Tags")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, tags, "mutating the live object must not alter the snapshot")

	w.Restore(snap)
	assert.Equal(t, "w", w.Name)
	assert.Equal(t, 3, w.Count)
	assert.Equal(t, []string{"a", "b"}, w.Tags)
	assert.Equal(t, map[string][]int{"hp": {10}}, w.Attrs)
	assert.Contains(t, w.Seen, "door")
	assert.Equal(t, geom.Rect(2, 2), w.Shape)
	assert.Equal(t, 4.0, w.Anchor.X)
	assert.Same(t, partner, w.Partner)
	assert.Equal(t, map[string]int{"k": 1}, w.Any)
	assert.Nil(t, w.Back, "excluded fields are left alone")
	assert.Equal(t, 2, w.cached, "derived fields are re-established")

	// Restoring does not make the live object alias the snapshot.
	w.Tags[0] = "live"
	again, _ := Lookup[[]string](snap, "Tags")
	assert.Equal(t, "a", again[0])
}

func TestApply_UnknownFieldPanics(t *testing.T) {
	w := &widget{}
	assert.PanicsWithError(t, `snapshot.widget: snapshot invariant violated: unknown captured field "Missing"`, func() {
		Apply(w, Properties{{Key: "Missing", Value: 1}})
	})
}

func TestHold_PreservesIdentity(t *testing.T) {
	w := &widget{Name: "a"}
	h := Hold[*widget, Properties](w)
	w.Name = "b"
	got := h.Restore()
	assert.Same(t, w, got)
	assert.Equal(t, "a", w.Name)

	var none *widget
	assert.Nil(t, Hold[*widget, Properties](none))
	var nilHeld *Held[*widget, Properties]
	assert.Nil(t, nilHeld.Restore())
}

func TestHoldAll_RestoreAllRepopulates(t *testing.T) {
	a, b := &widget{Count: 1}, &widget{Count: 2}
	live := []*widget{a, b}
	held := HoldAll[*widget, Properties](live)

	a.Count = 10
	live = live[:1]
	live = append(live, &widget{Count: 3}, &widget{Count: 4})

	live = RestoreAll(live, held)
	require.Len(t, live, 2)
	assert.Same(t, a, live[0])
	assert.Same(t, b, live[1])
	assert.Equal(t, 1, a.Count)
}

func TestMust(t *testing.T) {
	assert.NotPanics(t, func() { Must(true, "x", "fine") })
	defer func() {
		r := recover()
		ie, ok := r.(*InvariantError)
		require.True(t, ok)
		assert.Equal(t, "combat", ie.Subsystem)
		assert.Equal(t, "2 dangling", ie.Msg)
	}()
	Must(false, "combat", "%d dangling", 2)
}
