package builder

import (
	"testing"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-engine/internal/coreerr"
	"query-engine/internal/naming"
	"query-engine/internal/query"
	"query-engine/internal/schema/schematest"
)

func parseField(t *testing.T, document string) *ast.Field {
	t.Helper()
	doc, err := ParseDocument(document)
	require.NoError(t, err)
	op, err := SelectOperation(doc, "")
	require.NoError(t, err)
	require.NotEmpty(t, op.SelectionSet.Selections)
	field, ok := op.SelectionSet.Selections[0].(*ast.Field)
	require.True(t, ok)
	return field
}

func assertKind(t *testing.T, err error, kind coreerr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, coreerr.KindOf(err), "unexpected error: %v", err)
}

func TestInfer_RootShapes(t *testing.T) {
	b := New(schematest.Blog(t))

	tests := []struct {
		field string
		shape Shape
		model string
	}{
		{"user", ShapeSingle, "User"},
		{"users", ShapeMany, "User"},
		{"category", ShapeSingle, "Category"},
		{"categories", ShapeMany, "Category"},
		{"aUser", ShapeSingle, "AUser"},
		{"aUsers", ShapeMany, "AUser"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			inf, ok := b.Infer(&ast.Field{Name: &ast.Name{Value: tt.field}}, nil)
			require.True(t, ok)
			assert.Equal(t, tt.shape, inf.Shape)
			assert.Equal(t, tt.model, inf.Model.Name)
		})
	}

	_, ok := b.Infer(&ast.Field{Name: &ast.Name{Value: "widgets"}}, nil)
	assert.False(t, ok)
}

func TestInfer_PluralOverride(t *testing.T) {
	namer := naming.New(naming.Config{PluralOverrides: map[string]string{"category": "categoryList"}}, nil)
	b := New(schematest.Blog(t), WithNamer(namer))

	inf, ok := b.Infer(&ast.Field{Name: &ast.Name{Value: "categoryList"}}, nil)
	require.True(t, ok)
	assert.Equal(t, ShapeMany, inf.Shape)
	assert.Equal(t, "Category", inf.Model.Name)

	_, ok = b.Infer(&ast.Field{Name: &ast.Name{Value: "categories"}}, nil)
	assert.False(t, ok)
}

func TestInfer_NestedFollowsParentCardinality(t *testing.T) {
	g := schematest.Blog(t)
	b := New(g)

	// The field name is irrelevant under a parent relation field.
	field := &ast.Field{Name: &ast.Name{Value: "user"}}

	inf, ok := b.Infer(field, schematest.RelationField(t, g, "User", "posts"))
	require.True(t, ok)
	assert.Equal(t, ShapeManyRelation, inf.Shape)
	assert.Equal(t, "Post", inf.Model.Name)

	inf, ok = b.Infer(field, schematest.RelationField(t, g, "Post", "author"))
	require.True(t, ok)
	assert.Equal(t, ShapeOneRelation, inf.Shape)
	assert.Equal(t, "User", inf.Model.Name)
}

func TestBuildRead_ManyWithArguments(t *testing.T) {
	b := New(schematest.Blog(t))

	rq, err := b.BuildRead(parseField(t, `{ users(first: 10, orderBy: name_ASC) { id name } }`))
	require.NoError(t, err)

	many, ok := rq.(*query.ManyRecordsQuery)
	require.True(t, ok)
	assert.Equal(t, "User", many.Model.Name)
	require.NotNil(t, many.Args.First)
	assert.Equal(t, uint32(10), *many.Args.First)
	require.NotNil(t, many.Args.OrderBy)
	assert.Equal(t, "name", many.Args.OrderBy.Field.Name)
	assert.Equal(t, query.Ascending, many.Args.OrderBy.SortOrder)
	assert.Nil(t, many.Args.Skip)
	assert.Equal(t, []string{"id", "name"}, many.Selected.Order())
}

func TestBuildRead_ArgumentErrors(t *testing.T) {
	b := New(schematest.Blog(t))

	tests := []struct {
		name     string
		document string
	}{
		{"unknown order field", `{ users(orderBy: bogus_ASC) { id } }`},
		{"bad sort direction", `{ users(orderBy: name_UP) { id } }`},
		{"order by relation", `{ users(orderBy: posts_ASC) { id } }`},
		{"unknown key", `{ users(unknownKey: 1) { id } }`},
		{"negative skip", `{ users(skip: -1) { id } }`},
		{"first as string", `{ users(first: "10") { id } }`},
		{"first too large", `{ users(first: 5000000000) { id } }`},
		{"where not object", `{ users(where: 3) { id } }`},
		{"cursor as boolean", `{ users(after: true) { id } }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.BuildRead(parseField(t, tt.document))
			assertKind(t, err, coreerr.KindValidation)
		})
	}
}

func TestBuildRead_Cursors(t *testing.T) {
	b := New(schematest.Blog(t))
	u := uuid.New()

	rq, err := b.BuildRead(parseField(t, `{ users(after: "`+u.String()+`", before: 7) { id } }`))
	require.NoError(t, err)
	args := rq.(*query.ManyRecordsQuery).Args

	require.NotNil(t, args.After)
	assert.Equal(t, query.UUIDID(u), *args.After)
	require.NotNil(t, args.Before)
	assert.Equal(t, query.IntID(7), *args.Before)

	rq, err = b.BuildRead(parseField(t, `{ users(after: "cursor-1") { id } }`))
	require.NoError(t, err)
	assert.Equal(t, query.StringID("cursor-1"), *rq.(*query.ManyRecordsQuery).Args.After)
}

func TestBuildRead_DuplicateKeyLastWins(t *testing.T) {
	b := New(schematest.Blog(t))

	rq, err := b.BuildRead(parseField(t, `{ users(first: 1, First: 5, skip: 2, skip: 0) { id } }`))
	require.NoError(t, err)
	args := rq.(*query.ManyRecordsQuery).Args
	assert.Equal(t, uint32(5), *args.First)
	assert.Equal(t, uint32(0), *args.Skip)
}

func TestBuildRead_NestedSelections(t *testing.T) {
	b := New(schematest.Blog(t))

	rq, err := b.BuildRead(parseField(t, `{
		users {
			id
			articles: posts(first: 2) { title author { email } }
			profile { bio }
			displayName: name
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "articles", "profile", "displayName"}, rq.Selection().Order())
	require.Len(t, rq.NestedQueries(), 2)

	posts, ok := rq.NestedQueries()[0].(*query.ManyRelatedRecordsQuery)
	require.True(t, ok)
	assert.Equal(t, "articles", posts.Alias)
	assert.Equal(t, "Post", posts.TargetModel().Name)
	assert.Equal(t, uint32(2), *posts.Args.First)

	author, ok := posts.Nested[0].(*query.RelatedRecordQuery)
	require.True(t, ok)
	assert.Equal(t, "User", author.TargetModel().Name)
	assert.Equal(t, []string{"email"}, author.Selected.Order())

	_, ok = rq.NestedQueries()[1].(*query.RelatedRecordQuery)
	assert.True(t, ok)
}

func TestBuildRead_SelectionErrors(t *testing.T) {
	b := New(schematest.Blog(t))

	_, err := b.BuildRead(parseField(t, `{ users { id nickname } }`))
	assertKind(t, err, coreerr.KindValidation)

	_, err = b.BuildRead(parseField(t, `{ users { id posts { bogus } } }`))
	assertKind(t, err, coreerr.KindValidation)

	_, err = b.BuildRead(parseField(t, `{ users { ...UserFields } } fragment UserFields on User { id }`))
	assertKind(t, err, coreerr.KindUnsupportedFeature)

	_, err = b.BuildRead(parseField(t, `{ users { ... on User { id } } }`))
	assertKind(t, err, coreerr.KindUnsupportedFeature)

	_, err = b.BuildRead(parseField(t, `{ widgets { id } }`))
	assertKind(t, err, coreerr.KindValidation)
}

func TestBuildRead_SingleRecord(t *testing.T) {
	b := New(schematest.Blog(t))

	rq, err := b.BuildRead(parseField(t, `{ user(where: {email: "ada@example.com"}) { id } }`))
	require.NoError(t, err)
	record, ok := rq.(*query.RecordQuery)
	require.True(t, ok)
	assert.Equal(t, "email", record.Selector.Field.Name)
	assert.Equal(t, "ada@example.com", record.Selector.Value)

	_, err = b.BuildRead(parseField(t, `{ user { id } }`))
	assertKind(t, err, coreerr.KindValidation)

	_, err = b.BuildRead(parseField(t, `{ user(where: {name: "Ada"}) { id } }`))
	assertKind(t, err, coreerr.KindValidation)
	assert.Contains(t, err.Error(), "expected one of id, email")

	_, err = b.BuildRead(parseField(t, `{ user(where: {id: "1", email: "a"}) { id } }`))
	assertKind(t, err, coreerr.KindValidation)
}

func TestBuildRead_Variables(t *testing.T) {
	g := schematest.Blog(t)

	b := New(g, WithVariables(map[string]any{"n": float64(4), "filter": map[string]any{"age_gte": float64(18)}}))
	rq, err := b.BuildRead(parseField(t, `query($n: Int, $filter: UserWhereInput) { users(first: $n, where: $filter) { id } }`))
	require.NoError(t, err)
	args := rq.(*query.ManyRecordsQuery).Args
	assert.Equal(t, uint32(4), *args.First)
	cond, ok := args.Filter.(query.ScalarCondition)
	require.True(t, ok)
	assert.Equal(t, query.OpGreaterThanOrEquals, cond.Op)
	assert.Equal(t, int64(18), cond.Value)

	_, err = New(g).BuildRead(parseField(t, `query($n: Int) { users(first: $n) { id } }`))
	assertKind(t, err, coreerr.KindValidation)
}
