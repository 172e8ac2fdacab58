package schema_test

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-engine/internal/coreerr"
	"query-engine/internal/naming"
	"query-engine/internal/schema"
	"query-engine/internal/schema/schematest"
)

func TestFindModel(t *testing.T) {
	g := schematest.Blog(t)

	user, err := g.FindModel("User")
	require.NoError(t, err)
	assert.Equal(t, "User", user.Name)
	assert.Same(t, g, user.Graph())

	for _, name := range []string{"user", "Users", "Use", ""} {
		_, err := g.FindModel(name)
		assert.True(t, coreerr.IsNotFound(err), "expected NotFound for %q", name)
	}
}

func TestFindRelation(t *testing.T) {
	g := schematest.Blog(t)

	rel, err := g.FindRelation("PostAuthor")
	require.NoError(t, err)
	assert.Equal(t, "Post", rel.ModelA().Name)
	assert.Equal(t, "User", rel.ModelB().Name)
	assert.Equal(t, "author", rel.FieldA().Name)
	assert.Equal(t, "posts", rel.FieldB().Name)
	assert.Equal(t, "_PostAuthor", rel.Table())

	_, err = g.FindRelation("postAuthor")
	assert.True(t, coreerr.IsNotFound(err))
}

func TestRelationFieldNavigation(t *testing.T) {
	g := schematest.Blog(t)

	posts := schematest.RelationField(t, g, "User", "posts")
	assert.True(t, posts.IsList)
	assert.Equal(t, "Post", posts.RelatedModel().Name)
	assert.Equal(t, "author", posts.RelatedField().Name)
	assert.Equal(t, "B", posts.Column())
	assert.Equal(t, "A", posts.OppositeColumn())
	assert.Same(t, posts, posts.RelatedField().RelatedField())
}

func TestModelFieldLookups(t *testing.T) {
	g := schematest.Blog(t)
	user := schematest.Model(t, g, "User")

	f, err := user.FindField("email")
	require.NoError(t, err)
	assert.Equal(t, "email", f.FieldName())

	_, err = user.FindScalarField("posts")
	assert.True(t, coreerr.IsNotFound(err))
	_, err = user.FindRelationField("email")
	assert.True(t, coreerr.IsNotFound(err))

	assert.Equal(t, "id", user.IDField().Name)
	var unique []string
	for _, sf := range user.UniqueFields() {
		unique = append(unique, sf.Name)
	}
	assert.Equal(t, []string{"id", "email"}, unique)

	tags, err := user.FindScalarField("tags")
	require.NoError(t, err)
	assert.Equal(t, "User_tags", tags.ListTable())
}

func TestRelationFields_ComputedOnce(t *testing.T) {
	g := schematest.Blog(t)

	var wg sync.WaitGroup
	results := make([][]*schema.RelationField, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.RelationFields()
		}(i)
	}
	wg.Wait()

	require.Len(t, results[0], 6)
	for _, r := range results[1:] {
		require.Len(t, r, 6)
		assert.Same(t, &results[0][0], &r[0], "every call shares one index")
	}
}

func TestFieldsRequiringModel(t *testing.T) {
	g := schematest.Blog(t)

	var names []string
	for _, rf := range g.FieldsRequiringModel(schematest.Model(t, g, "User")) {
		names = append(names, rf.Model().Name+"."+rf.Name)
	}
	assert.ElementsMatch(t, []string{"Post.author", "Profile.user"}, names)

	assert.Empty(t, g.FieldsRequiringModel(schematest.Model(t, g, "Post")))
}

func TestIsLegacy(t *testing.T) {
	g := schematest.Blog(t)
	assert.False(t, g.IsLegacy())
	assert.Equal(t, "v1", g.Version())

	tmpl := schematest.BlogTemplate()
	tmpl.Version = nil
	legacy, err := tmpl.Build(schema.BuildOptions{})
	require.NoError(t, err)
	assert.True(t, legacy.IsLegacy())
}

func TestBuild_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*schema.Template)
		msg    string
	}{
		{
			name:   "duplicate model",
			mutate: func(tmpl *schema.Template) { tmpl.Models = append(tmpl.Models, tmpl.Models[0]) },
			msg:    `duplicate model "User"`,
		},
		{
			name:   "duplicate relation",
			mutate: func(tmpl *schema.Template) { tmpl.Relations = append(tmpl.Relations, tmpl.Relations[0]) },
			msg:    `duplicate relation "PostAuthor"`,
		},
		{
			name:   "reserved model name",
			mutate: func(tmpl *schema.Template) { tmpl.Models[4].Name = "Query" },
			msg:    "reserved",
		},
		{
			name: "missing id",
			mutate: func(tmpl *schema.Template) {
				tmpl.Models[4].Fields = tmpl.Models[4].Fields[1:]
			},
			msg: "model AUser has no id field",
		},
		{
			name: "unknown relation",
			mutate: func(tmpl *schema.Template) {
				tmpl.Models[1].Fields[5].RelationName = "Nope"
			},
			msg: `unknown relation "Nope"`,
		},
		{
			name: "relation model missing",
			mutate: func(tmpl *schema.Template) {
				tmpl.Relations = append(tmpl.Relations, schema.RelationTemplate{Name: "Ghost", ModelA: "User", ModelB: "Ghost"})
			},
			msg: `unknown model "Ghost"`,
		},
		{
			name: "unknown enum",
			mutate: func(tmpl *schema.Template) {
				tmpl.Models[0].Fields[4].Enum = "Mood"
			},
			msg: `unknown enum "Mood"`,
		},
		{
			name: "unknown type",
			mutate: func(tmpl *schema.Template) {
				tmpl.Models[0].Fields[2].TypeIdentifier = "Text"
			},
			msg: `unknown type "Text"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := schematest.BlogTemplate()
			tt.mutate(tmpl)
			_, err := tmpl.Build(schema.BuildOptions{})
			require.Error(t, err)
			assert.True(t, coreerr.IsKind(err, coreerr.KindValidation), "got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestBuild_SelfRelation(t *testing.T) {
	tmpl := &schema.Template{
		Relations: []schema.RelationTemplate{{Name: "Mentorship", ModelA: "Person", ModelB: "Person"}},
		Models: []schema.ModelTemplate{{
			Name: "Person",
			Fields: []schema.FieldTemplate{
				{Name: "id", TypeIdentifier: schema.TypeGraphQLID, IsID: true},
				{Name: "mentor", TypeIdentifier: schema.TypeRelation, RelationName: "Mentorship", RelationSide: schema.SideA},
				{Name: "mentees", TypeIdentifier: schema.TypeRelation, RelationName: "Mentorship", RelationSide: schema.SideB, IsList: true},
			},
		}},
	}
	g, err := tmpl.Build(schema.BuildOptions{})
	require.NoError(t, err)

	rel, err := g.FindRelation("Mentorship")
	require.NoError(t, err)
	assert.Equal(t, rel.ModelAName, rel.ModelBName)
	mentor := schematest.RelationField(t, g, "Person", "mentor")
	assert.Equal(t, "mentees", mentor.RelatedField().Name)
	assert.Equal(t, "Person", mentor.RelatedModel().Name)
}

func TestBuild_LogsRootFieldCollision(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	tmpl := &schema.Template{
		Models: []schema.ModelTemplate{
			{Name: "News", Fields: []schema.FieldTemplate{{Name: "id", TypeIdentifier: schema.TypeGraphQLID, IsID: true}}},
			{Name: "news", Fields: []schema.FieldTemplate{{Name: "id", TypeIdentifier: schema.TypeGraphQLID, IsID: true}}},
		},
	}
	_, err := tmpl.Build(schema.BuildOptions{Namer: naming.Default(), Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "root field name collision")
}

func TestLoadTemplate_YAML(t *testing.T) {
	tmpl, err := schema.LoadTemplate("testdata/library.yaml")
	require.NoError(t, err)
	assert.Nil(t, tmpl.Version)

	g, err := tmpl.Build(schema.BuildOptions{DBName: "library"})
	require.NoError(t, err)
	assert.True(t, g.IsLegacy())

	author := schematest.Model(t, g, "Author")
	assert.Equal(t, "authors", author.TableName())
	rel, err := g.FindRelation("BookAuthor")
	require.NoError(t, err)
	assert.Equal(t, "book_authors", rel.Table())

	genre, err := g.FindEnum("Genre")
	require.NoError(t, err)
	assert.True(t, genre.Contains("HISTORY"))
	assert.False(t, genre.Contains("POETRY"))
}

func TestLoadTemplate_JSON(t *testing.T) {
	tmpl, err := schema.LoadTemplate("testdata/library.json")
	require.NoError(t, err)
	require.NotNil(t, tmpl.Version)
	assert.Equal(t, "2", *tmpl.Version)
	assert.Len(t, tmpl.Models, 1)
}

func TestParseTemplate_Errors(t *testing.T) {
	_, err := schema.ParseTemplate([]byte(`{"models": [], "extra": 1}`), "json")
	assert.Error(t, err)

	_, err = schema.ParseTemplate([]byte(`models: []`), "toml")
	assert.ErrorContains(t, err, "unsupported schema template format")

	_, err = schema.LoadTemplate("testdata/missing.yaml")
	assert.ErrorContains(t, err, "failed to read schema template")
}
