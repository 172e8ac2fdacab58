package mutaction

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
	"query-engine/internal/schema/schematest"
)

type relationFixture struct {
	tx       *memTx
	field    *schema.RelationField
	child    *schema.Model
	parentID query.ID
}

func newRelationFixture(t *testing.T, parent, child schematest.Cardinality) *relationFixture {
	t.Helper()
	g := schematest.ParentChild(t, parent, child)
	tx := newMemTx()
	f := &relationFixture{
		tx:       tx,
		field:    schematest.RelationField(t, g, "Parent", "children"),
		child:    schematest.Model(t, g, "Child"),
		parentID: tx.insert("Parent", "p1"),
	}
	tx.insert("Parent", "p2")
	for _, id := range []string{"c1", "c2", "c3"} {
		tx.insert("Child", id)
	}
	return f
}

func (f *relationFixture) where(id string) query.NodeSelector {
	return query.NodeSelector{Model: f.child, Field: f.child.IDField(), Value: id}
}

func allCardinalities() [][2]schematest.Cardinality {
	var out [][2]schematest.Cardinality
	for _, pl := range []bool{false, true} {
		for _, pr := range []bool{false, true} {
			for _, cl := range []bool{false, true} {
				for _, cr := range []bool{false, true} {
					out = append(out, [2]schematest.Cardinality{{List: pl, Required: pr}, {List: cl, Required: cr}})
				}
			}
		}
	}
	return out
}

func cardinalityName(c [2]schematest.Cardinality) string {
	return fmt.Sprintf("pL=%t pR=%t cL=%t cR=%t", c[0].List, c[0].Required, c[1].List, c[1].Required)
}

// checkedBeforeWrite reports whether a link lookup happened before the first write.
func checkedBeforeWrite(calls []string) bool {
	for _, call := range calls {
		switch {
		case call == "select children":
			return true
		case call == "link children", call == "unlink-parent children", call == "unlink-child children", call == "unlink children":
			return false
		}
	}
	return false
}

func TestConnect_RequiredCheckTable(t *testing.T) {
	for _, c := range allCardinalities() {
		t.Run(cardinalityName(c), func(t *testing.T) {
			f := newRelationFixture(t, c[0], c[1])
			err := Connect(context.Background(), f.tx, f.parentID, f.where("c1"), f.field)
			require.NoError(t, err)

			want := !c[0].List && c[0].Required && !c[1].List
			assert.Equal(t, want, checkedBeforeWrite(f.tx.calls), "calls: %v", f.tx.calls)
			assert.Equal(t, "find Child c1", f.tx.calls[0])
			assert.Equal(t, "link children", f.tx.calls[len(f.tx.calls)-1])
			assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
		})
	}
}

func TestConnect_RemovalOrder(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{}, schematest.Cardinality{})
	require.NoError(t, ConnectIDs(context.Background(), f.tx, f.parentID, query.StringID("c1"), f.field))
	assert.Equal(t, []string{"unlink-parent children", "unlink-child children", "link children"}, f.tx.calls)

	f = newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{List: true})
	require.NoError(t, ConnectIDs(context.Background(), f.tx, f.parentID, query.StringID("c1"), f.field))
	assert.Equal(t, []string{"link children"}, f.tx.calls)

	f = newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{})
	require.NoError(t, ConnectIDs(context.Background(), f.tx, f.parentID, query.StringID("c1"), f.field))
	assert.Equal(t, []string{"unlink-child children", "link children"}, f.tx.calls)
}

func TestConnect_MovesSingularChild(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{})
	p2 := query.StringID("p2")
	f.tx.connect(f.field, p2, query.StringID("c1"))

	require.NoError(t, Connect(context.Background(), f.tx, f.parentID, f.where("c1"), f.field))
	assert.False(t, f.tx.linked(f.field, p2, query.StringID("c1")))
	assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
}

func TestConnect_Violation(t *testing.T) {
	t.Run("child held by a parent that requires it", func(t *testing.T) {
		f := newRelationFixture(t, schematest.Cardinality{Required: true}, schematest.Cardinality{})
		f.tx.connect(f.field, query.StringID("p2"), query.StringID("c1"))

		err := Connect(context.Background(), f.tx, f.parentID, f.where("c1"), f.field)
		require.Error(t, err)
		assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation))
		assert.Equal(t, []string{"find Child c1", "select children"}, f.tx.calls)
	})

	t.Run("parent child requires its parent", func(t *testing.T) {
		f := newRelationFixture(t, schematest.Cardinality{Required: true}, schematest.Cardinality{Required: true})
		f.tx.connect(f.field, f.parentID, query.StringID("c2"))

		err := Connect(context.Background(), f.tx, f.parentID, f.where("c1"), f.field)
		assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation))
		assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c2")))
	})

	t.Run("reconnecting the same pair is allowed", func(t *testing.T) {
		f := newRelationFixture(t, schematest.Cardinality{Required: true}, schematest.Cardinality{Required: true})
		f.tx.connect(f.field, f.parentID, query.StringID("c1"))

		require.NoError(t, Connect(context.Background(), f.tx, f.parentID, f.where("c1"), f.field))
		assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
	})
}

func TestConnect_ChildNotFound(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{})
	err := Connect(context.Background(), f.tx, f.parentID, f.where("missing"), f.field)
	assert.True(t, coreerr.IsNotFound(err))
	assert.Equal(t, []string{"find Child missing"}, f.tx.calls)
}

func TestDisconnect_RequiredCheckTable(t *testing.T) {
	checked := [][4]bool{
		{false, true, false, true},
		{false, true, false, false},
		{false, false, false, true},
		{true, false, false, true},
		{false, true, true, false},
	}
	for _, c := range allCardinalities() {
		t.Run(cardinalityName(c), func(t *testing.T) {
			f := newRelationFixture(t, c[0], c[1])
			f.tx.connect(f.field, f.parentID, query.StringID("c1"))

			key := [4]bool{c[0].List, c[0].Required, c[1].List, c[1].Required}
			err := Disconnect(context.Background(), f.tx, f.parentID, nil, f.field)
			if slices.Contains(checked, key) {
				assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation), "err: %v", err)
				assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
				return
			}
			require.NoError(t, err)
			assert.False(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
		})
	}
}

func TestDisconnect_WithSelector(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{List: true})
	f.tx.connect(f.field, f.parentID, query.StringID("c1"))
	f.tx.connect(f.field, f.parentID, query.StringID("c2"))

	where := f.where("c1")
	require.NoError(t, Disconnect(context.Background(), f.tx, f.parentID, &where, f.field))
	assert.Equal(t, []string{"find Child c1", "select children", "unlink children"}, f.tx.calls)
	assert.False(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
	assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c2")))

	where = f.where("c3")
	err := Disconnect(context.Background(), f.tx, f.parentID, &where, f.field)
	assert.True(t, coreerr.IsNotFound(err))
}

func TestDisconnect_NotConnected(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{}, schematest.Cardinality{List: true})
	err := Disconnect(context.Background(), f.tx, f.parentID, nil, f.field)
	assert.True(t, coreerr.IsNotFound(err))
	assert.Equal(t, []string{"select children"}, f.tx.calls)
}

func TestDisconnect_RequiredWithoutLink(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{Required: true}, schematest.Cardinality{List: true})
	err := Disconnect(context.Background(), f.tx, f.parentID, nil, f.field)
	assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation), "err: %v", err)
	assert.Equal(t, []string{"select children", "select children"}, f.tx.calls)
}

func TestSet_ReplacesLinksInOrder(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{})
	f.tx.connect(f.field, f.parentID, query.StringID("c3"))
	f.tx.connect(f.field, query.StringID("p2"), query.StringID("c2"))

	err := Set(context.Background(), f.tx, f.parentID, []query.NodeSelector{f.where("c1"), f.where("c2")}, f.field)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"unlink-parent children",
		"find Child c1", "unlink-child children", "link children",
		"find Child c2", "unlink-child children", "link children",
	}, f.tx.calls)

	assert.False(t, f.tx.linked(f.field, f.parentID, query.StringID("c3")))
	assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
	assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c2")))
	assert.False(t, f.tx.linked(f.field, query.StringID("p2"), query.StringID("c2")))
}

func TestSet_ManyToManySkipsChildRemoval(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{List: true})
	f.tx.connect(f.field, query.StringID("p2"), query.StringID("c1"))

	require.NoError(t, Set(context.Background(), f.tx, f.parentID, []query.NodeSelector{f.where("c1")}, f.field))
	assert.Equal(t, []string{"unlink-parent children", "find Child c1", "link children"}, f.tx.calls)
	assert.True(t, f.tx.linked(f.field, query.StringID("p2"), query.StringID("c1")))
}

func TestSet_StopsAtFirstMissingChild(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{})
	f.tx.connect(f.field, f.parentID, query.StringID("c3"))

	err := Set(context.Background(), f.tx, f.parentID,
		[]query.NodeSelector{f.where("c1"), f.where("missing"), f.where("c2")}, f.field)
	assert.True(t, coreerr.IsNotFound(err))

	assert.Equal(t, "find Child missing", f.tx.calls[len(f.tx.calls)-1])
	assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
	assert.False(t, f.tx.linked(f.field, f.parentID, query.StringID("c2")))
	assert.False(t, f.tx.linked(f.field, f.parentID, query.StringID("c3")))
}

func TestSet_EmptyClearsLinks(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{})
	f.tx.connect(f.field, f.parentID, query.StringID("c1"))

	require.NoError(t, Set(context.Background(), f.tx, f.parentID, nil, f.field))
	assert.False(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))

	f = newRelationFixture(t, schematest.Cardinality{Required: true}, schematest.Cardinality{})
	err := Set(context.Background(), f.tx, f.parentID, nil, f.field)
	assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation))
	assert.Empty(t, f.tx.calls)
}

func TestSet_RequiredCheckRunsBeforeRemoval(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{Required: true}, schematest.Cardinality{})
	f.tx.connect(f.field, f.parentID, query.StringID("c1"))

	require.NoError(t, Set(context.Background(), f.tx, f.parentID, []query.NodeSelector{f.where("c2")}, f.field))
	assert.Equal(t, []string{
		"find Child c2", "select children",
		"unlink-parent children", "unlink-child children", "link children",
	}, f.tx.calls)
	assert.False(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
	assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c2")))
}

func TestSet_RequiredChildIsNotOrphaned(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{Required: true}, schematest.Cardinality{Required: true})
	f.tx.connect(f.field, f.parentID, query.StringID("c1"))

	err := Set(context.Background(), f.tx, f.parentID, []query.NodeSelector{f.where("c2")}, f.field)
	assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation))
	assert.Equal(t, []string{"find Child c2", "select children", "select children"}, f.tx.calls)
	assert.True(t, f.tx.linked(f.field, f.parentID, query.StringID("c1")))
}

func TestRelationWrites_PropagateStorageErrors(t *testing.T) {
	f := newRelationFixture(t, schematest.Cardinality{List: true}, schematest.Cardinality{})
	f.tx.failOn = "link children"

	err := Connect(context.Background(), f.tx, f.parentID, f.where("c1"), f.field)
	assert.True(t, coreerr.IsKind(err, coreerr.KindStorage))
}
