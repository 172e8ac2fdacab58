package mutaction

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-engine/internal/query"
	"query-engine/internal/schema"
	"query-engine/internal/schema/schematest"
)

func scalarField(t *testing.T, model *schema.Model, name string) *schema.ScalarField {
	t.Helper()
	f, err := model.FindScalarField(name)
	require.NoError(t, err)
	return f
}

func TestUpdateMany_Batches(t *testing.T) {
	g := schematest.Blog(t)
	post := schematest.Model(t, g, "Post")
	published := scalarField(t, post, "published")

	tx := newMemTx()
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		tx.insert("Post", id, "published", false)
	}
	tx.insert("Post", "p6", "published", true)

	filter := query.ScalarCondition{Field: published, Op: query.OpEquals, Value: false}
	args := query.Args{{Field: published, Value: true}}
	n, err := UpdateMany(context.Background(), tx, post, filter, args, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"filter Post", "update Post 2", "update Post 2", "update Post 1"}, tx.calls)

	v, _ := tx.rows["Post"][query.StringID("p3")].Get("published")
	assert.Equal(t, true, v)
}

func TestUpdateMany_NoMatchesWritesNothing(t *testing.T) {
	g := schematest.Blog(t)
	post := schematest.Model(t, g, "Post")
	views := scalarField(t, post, "views")

	tx := newMemTx()
	tx.insert("Post", "p1", "views", int64(3))

	filter := query.ScalarCondition{Field: views, Op: query.OpEquals, Value: int64(100)}
	n, err := UpdateMany(context.Background(), tx, post, filter, query.Args{{Field: views, Value: int64(0)}}, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"filter Post"}, tx.calls)
}

func TestUpdateMany_ListArgsOnly(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	tags := scalarField(t, user, "tags")

	tx := newMemTx()
	tx.insert("User", "u1")
	tx.insert("User", "u2")

	n, err := UpdateMany(context.Background(), tx, user, nil, nil, []query.ListArg{{Field: tags, Values: []any{"a"}}}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"filter User", "list tags"}, tx.calls)
	assert.Equal(t, []any{"a"}, tx.lists["tags"][query.StringID("u2")])
}

func TestUpdateMany_ListArgsRespectBatchSize(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	tags := scalarField(t, user, "tags")

	tx := newMemTx()
	for i := 1; i <= 5; i++ {
		tx.insert("User", fmt.Sprintf("u%d", i))
	}

	n, err := UpdateMany(context.Background(), tx, user, nil, nil, []query.ListArg{{Field: tags, Values: []any{"a"}}}, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"filter User", "list tags", "list tags", "list tags"}, tx.calls)
	assert.Equal(t, 2, tx.maxIDs)
	assert.Equal(t, []any{"a"}, tx.lists["tags"][query.StringID("u5")])
}

func TestUpdateManyNested_UsesRelatedModel(t *testing.T) {
	g := schematest.Blog(t)
	posts := schematest.RelationField(t, g, "User", "posts")
	post := schematest.Model(t, g, "Post")
	title := scalarField(t, post, "title")

	tx := newMemTx()
	u1 := tx.insert("User", "u1")
	p1 := tx.insert("Post", "p1")
	p2 := tx.insert("Post", "p2")
	tx.insert("Post", "p3")
	tx.connect(posts, u1, p1)
	tx.connect(posts, u1, p2)

	n, err := UpdateManyNested(context.Background(), tx, u1, nil, posts, query.Args{{Field: title, Value: "x"}}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"filter-by-parent posts", "update Post 2"}, tx.calls)

	_, touched := tx.rows["Post"][query.StringID("p3")].Get("title")
	assert.False(t, touched)
}

func TestChunk(t *testing.T) {
	ids := []query.ID{query.IntID(1), query.IntID(2), query.IntID(3)}
	assert.Len(t, chunk(ids, 2), 2)
	assert.Len(t, chunk(ids, 0), 1)
	assert.Empty(t, chunk(nil, 5))
}
