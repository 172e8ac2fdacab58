package mutaction

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
	"query-engine/internal/schema/schematest"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func sequentialExecutor(opts ...Option) *Executor {
	e := NewExecutor(opts...)
	e.newID = sequentialIDs()
	return e
}

func selector(t *testing.T, model *schema.Model, field string, value any) query.NodeSelector {
	t.Helper()
	return query.NodeSelector{Model: model, Field: scalarField(t, model, field), Value: value}
}

type recordedMutation struct {
	action, model string
	rows          int64
	err           error
}

type fakeRecorder struct {
	records []recordedMutation
}

func (r *fakeRecorder) RecordMutation(_ context.Context, action, model string, rows int64, _ time.Duration, err error) {
	r.records = append(r.records, recordedMutation{action: action, model: model, rows: rows, err: err})
}

func installSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)

	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(oldProvider)
	})
	return recorder
}

func TestExecute_CreateWithNestedWrites(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	post := schematest.Model(t, g, "Post")
	posts := schematest.RelationField(t, g, "User", "posts")

	tx := newMemTx()
	tx.insert("Post", "p9")

	create := &query.CreateNode{
		Name:  "createUser",
		Model: user,
		WriteData: query.WriteData{
			Args:     query.Args{{Field: scalarField(t, user, "email"), Value: "ada@example.com"}},
			ListArgs: []query.ListArg{{Field: scalarField(t, user, "tags"), Values: []any{"math"}}},
			Nested: []query.NestedMutation{
				&query.NestedCreate{Field: posts, Data: query.WriteData{
					Args: query.Args{{Field: scalarField(t, post, "title"), Value: "one"}},
				}},
				&query.NestedConnect{Field: posts, Where: selector(t, post, "id", "p9")},
			},
		},
	}

	res, err := sequentialExecutor().Execute(context.Background(), tx, create)
	require.NoError(t, err)
	require.NotNil(t, res.ID)
	assert.Equal(t, query.StringID("id-1"), *res.ID)

	assert.Equal(t, []string{
		"create User", "list tags",
		"create Post", "unlink-child posts", "link posts",
		"find Post p9", "unlink-child posts", "link posts",
	}, tx.calls)

	assert.True(t, tx.linked(posts, query.StringID("id-1"), query.StringID("id-2")))
	assert.True(t, tx.linked(posts, query.StringID("id-1"), query.StringID("p9")))
	assert.Equal(t, []any{"math"}, tx.lists["tags"][query.StringID("id-1")])

	email, _ := tx.rows["User"][query.StringID("id-1")].Get("email")
	assert.Equal(t, "ada@example.com", email)
}

func TestExecute_CreateKeepsExplicitID(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	tx := newMemTx()

	res, err := NewExecutor().Execute(context.Background(), tx, &query.CreateNode{
		Model:     user,
		WriteData: query.WriteData{Args: query.Args{{Field: user.IDField(), Value: "u-explicit"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, query.StringID("u-explicit"), *res.ID)
}

func TestExecute_UpdateSkipsEmptyScalarWrite(t *testing.T) {
	g := schematest.Blog(t)
	category := schematest.Model(t, g, "Category")
	post := schematest.Model(t, g, "Post")
	posts := schematest.RelationField(t, g, "Category", "posts")

	tx := newMemTx()
	c1 := tx.insert("Category", "c1", "name", "news")
	p1 := tx.insert("Post", "p1")
	tx.connect(posts, c1, p1)

	where := selector(t, post, "id", "p1")
	res, err := NewExecutor().Execute(context.Background(), tx, &query.UpdateNode{
		Selector: selector(t, category, "name", "news"),
		WriteData: query.WriteData{
			Nested: []query.NestedMutation{&query.NestedDisconnect{Field: posts, Where: &where}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, c1, *res.ID)
	assert.Equal(t, []string{"find Category news", "find Post p1", "select posts", "unlink posts"}, tx.calls)
	assert.False(t, tx.linked(posts, c1, p1))
}

func TestExecute_DisconnectRequiredProfile(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	profile := schematest.RelationField(t, g, "User", "profile")

	tx := newMemTx()
	u1 := tx.insert("User", "u1")
	pr := tx.insert("Profile", "pr1")
	tx.connect(profile, u1, pr)

	_, err := NewExecutor().Execute(context.Background(), tx, &query.UpdateNode{
		Selector: selector(t, user, "id", "u1"),
		WriteData: query.WriteData{
			Nested: []query.NestedMutation{&query.NestedDisconnect{Field: profile}},
		},
	})
	assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation))
	assert.True(t, tx.linked(profile, u1, pr))
}

func TestExecute_UpdateNotFound(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")

	_, err := NewExecutor().Execute(context.Background(), newMemTx(), &query.UpdateNode{
		Selector:  selector(t, user, "id", "nope"),
		WriteData: query.WriteData{Args: query.Args{{Field: scalarField(t, user, "name"), Value: "x"}}},
	})
	assert.True(t, coreerr.IsNotFound(err))
}

func TestExecute_DeleteRefusesRequiredLinks(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	posts := schematest.RelationField(t, g, "User", "posts")

	tx := newMemTx()
	u1 := tx.insert("User", "u1")
	tx.insert("User", "u2")
	tx.connect(posts, u1, tx.insert("Post", "p1"))

	_, err := NewExecutor().Execute(context.Background(), tx, &query.DeleteNode{Selector: selector(t, user, "id", "u1")})
	assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation))
	assert.NotContains(t, tx.calls, "delete User 1")

	res, err := NewExecutor().Execute(context.Background(), tx, &query.DeleteNode{Selector: selector(t, user, "id", "u2")})
	require.NoError(t, err)
	assert.Equal(t, query.StringID("u2"), *res.ID)
	assert.Contains(t, tx.calls, "delete User 1")
}

func TestExecute_DeleteManyInBatches(t *testing.T) {
	g := schematest.Blog(t)
	post := schematest.Model(t, g, "Post")

	tx := newMemTx()
	for i := 1; i <= 5; i++ {
		tx.insert("Post", fmt.Sprintf("p%d", i))
	}

	res, err := NewExecutor(WithBatchSize(2)).Execute(context.Background(), tx, &query.DeleteNodes{Model: post})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Count)
	assert.Nil(t, res.ID)
	assert.Equal(t, []string{"filter Post", "delete Post 2", "delete Post 2", "delete Post 1"}, tx.calls)
	assert.Empty(t, tx.rows["Post"])
}

func TestExecute_DeleteManyChecksHoldersInBatches(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")

	tx := newMemTx()
	for i := 1; i <= 5; i++ {
		tx.insert("User", fmt.Sprintf("u%d", i))
	}

	res, err := NewExecutor(WithBatchSize(2)).Execute(context.Background(), tx, &query.DeleteNodes{Model: user})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Count)
	assert.Equal(t, 2, tx.maxIDs)
	assert.Empty(t, tx.rows["User"])

	tx = newMemTx()
	for i := 1; i <= 5; i++ {
		tx.insert("User", fmt.Sprintf("u%d", i))
	}
	tx.connect(schematest.RelationField(t, g, "User", "profile"), query.StringID("u5"), tx.insert("Profile", "pr5"))

	_, err = NewExecutor(WithBatchSize(2)).Execute(context.Background(), tx, &query.DeleteNodes{Model: user})
	assert.True(t, coreerr.IsKind(err, coreerr.KindRelationViolation))
	assert.Equal(t, 2, tx.maxIDs)
	assert.Len(t, tx.rows["User"], 5)
}

func TestExecute_UpdateMany(t *testing.T) {
	g := schematest.Blog(t)
	post := schematest.Model(t, g, "Post")
	views := scalarField(t, post, "views")

	tx := newMemTx()
	tx.insert("Post", "p1")
	tx.insert("Post", "p2")

	res, err := NewExecutor().Execute(context.Background(), tx, &query.UpdateNodes{
		Model: post,
		Args:  query.Args{{Field: views, Value: int64(0)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
}

func TestExecute_Upsert(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	email := scalarField(t, user, "email")
	name := scalarField(t, user, "name")

	upsert := func() *query.UpsertNode {
		sel := selector(t, user, "email", "a@b.c")
		return &query.UpsertNode{
			Selector: sel,
			Create: query.CreateNode{Model: user, WriteData: query.WriteData{
				Args: query.Args{{Field: email, Value: "a@b.c"}, {Field: name, Value: "New"}},
			}},
			Update: query.UpdateNode{Selector: sel, WriteData: query.WriteData{
				Args: query.Args{{Field: name, Value: "Old"}},
			}},
		}
	}

	tx := newMemTx()
	exec := sequentialExecutor()

	res, err := exec.Execute(context.Background(), tx, upsert())
	require.NoError(t, err)
	assert.True(t, res.Created)
	created := *res.ID

	res, err = exec.Execute(context.Background(), tx, upsert())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, created, *res.ID)
	v, _ := tx.rows["User"][created].Get("name")
	assert.Equal(t, "Old", v)
}

func TestExecute_NestedUpdateRequiresLink(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	post := schematest.Model(t, g, "Post")
	posts := schematest.RelationField(t, g, "User", "posts")
	title := scalarField(t, post, "title")

	tx := newMemTx()
	u1 := tx.insert("User", "u1")
	tx.connect(posts, u1, tx.insert("Post", "p1"))
	tx.insert("Post", "p2")

	update := func(postID string) *query.UpdateNode {
		where := selector(t, post, "id", postID)
		return &query.UpdateNode{
			Selector: selector(t, user, "id", "u1"),
			WriteData: query.WriteData{Nested: []query.NestedMutation{
				&query.NestedUpdate{Field: posts, Where: &where, Data: query.WriteData{
					Args: query.Args{{Field: title, Value: "edited"}},
				}},
			}},
		}
	}

	_, err := NewExecutor().Execute(context.Background(), tx, update("p1"))
	require.NoError(t, err)
	v, _ := tx.rows["Post"][query.StringID("p1")].Get("title")
	assert.Equal(t, "edited", v)

	_, err = NewExecutor().Execute(context.Background(), tx, update("p2"))
	assert.True(t, coreerr.IsNotFound(err))
}

func TestExecute_NestedUpsertAndDeleteMany(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	profile := schematest.RelationField(t, g, "User", "profile")
	posts := schematest.RelationField(t, g, "User", "posts")
	bio := scalarField(t, schematest.Model(t, g, "Profile"), "bio")

	tx := newMemTx()
	u1 := tx.insert("User", "u1")
	tx.connect(posts, u1, tx.insert("Post", "p1"))
	tx.connect(posts, u1, tx.insert("Post", "p2"))
	tx.insert("Post", "p3")

	_, err := sequentialExecutor().Execute(context.Background(), tx, &query.UpdateNode{
		Selector: selector(t, user, "id", "u1"),
		WriteData: query.WriteData{Nested: []query.NestedMutation{
			&query.NestedUpsert{
				Field:  profile,
				Create: query.WriteData{Args: query.Args{{Field: bio, Value: "new"}}},
				Update: query.WriteData{Args: query.Args{{Field: bio, Value: "updated"}}},
			},
			&query.NestedDeleteMany{Field: posts},
		}},
	})
	require.NoError(t, err)

	assert.True(t, tx.linked(profile, u1, query.StringID("id-1")))
	assert.Contains(t, tx.calls, "delete Post 2")
	_, kept := tx.rows["Post"][query.StringID("p3")]
	assert.True(t, kept)
}

func TestExecute_RecordsSpansAndMetrics(t *testing.T) {
	spans := installSpanRecorder(t)
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")
	posts := schematest.RelationField(t, g, "User", "posts")
	post := schematest.Model(t, g, "Post")

	tx := newMemTx()
	tx.insert("User", "u1")
	recorder := &fakeRecorder{}
	exec := NewExecutor(WithRecorder(recorder))

	_, err := exec.Execute(context.Background(), tx, &query.UpdateNode{
		Name:     "updateUser",
		Selector: selector(t, user, "id", "u1"),
		WriteData: query.WriteData{Nested: []query.NestedMutation{
			&query.NestedConnect{Field: posts, Where: selector(t, post, "id", "missing")},
		}},
	})
	require.True(t, coreerr.IsNotFound(err))

	require.Len(t, recorder.records, 1)
	assert.Equal(t, "update", recorder.records[0].action)
	assert.Equal(t, "User", recorder.records[0].model)
	assert.Error(t, recorder.records[0].err)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	nested, top := ended[0], ended[1]
	assert.Equal(t, "mutaction.nested.connect", nested.Name())
	assert.Equal(t, "mutaction.update", top.Name())
	assert.Equal(t, top.SpanContext().SpanID(), nested.Parent().SpanID())
	assert.Contains(t, top.Attributes(), attribute.String("mutation.outcome", "error"))
	assert.Contains(t, nested.Attributes(), attribute.String("mutation.relation", "PostAuthor"))
	assert.Contains(t, nested.Attributes(), attribute.String("mutation.error.kind", "not_found"))
}
