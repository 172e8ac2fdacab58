// Package schematest provides schema fixtures shared by package tests.
package schematest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"query-engine/internal/schema"
)

func strPtr(s string) *string { return &s }

func idField() schema.FieldTemplate {
	return schema.FieldTemplate{Name: "id", TypeIdentifier: schema.TypeGraphQLID, IsRequired: true, IsUnique: true, IsID: true}
}

func scalar(name string, typ schema.TypeIdentifier, required bool) schema.FieldTemplate {
	return schema.FieldTemplate{Name: name, TypeIdentifier: typ, IsRequired: required}
}

func relation(name, relationName string, side schema.RelationSide, list, required bool) schema.FieldTemplate {
	return schema.FieldTemplate{
		Name:           name,
		TypeIdentifier: schema.TypeRelation,
		RelationName:   relationName,
		RelationSide:   side,
		IsList:         list,
		IsRequired:     required,
	}
}

// BlogTemplate returns a small blog schema:
//
//	User 1-n Post       (PostAuthor, Post.author required)
//	User 1-1 Profile    (UserProfile, Profile.user required)
//	Category n-m Post   (CategoryPosts)
//	AUser               (irregular root field name)
func BlogTemplate() *schema.Template {
	return &schema.Template{
		Version: strPtr("v1"),
		Enums: []schema.EnumTemplate{
			{Name: "Role", Values: []string{"ADMIN", "EDITOR", "READER"}},
		},
		Relations: []schema.RelationTemplate{
			{Name: "PostAuthor", ModelA: "Post", ModelB: "User"},
			{Name: "UserProfile", ModelA: "User", ModelB: "Profile"},
			{Name: "CategoryPosts", ModelA: "Category", ModelB: "Post"},
		},
		Models: []schema.ModelTemplate{
			{
				Name: "User",
				Fields: []schema.FieldTemplate{
					idField(),
					{Name: "email", TypeIdentifier: schema.TypeString, IsRequired: true, IsUnique: true},
					scalar("name", schema.TypeString, false),
					scalar("age", schema.TypeInt, false),
					{Name: "role", TypeIdentifier: schema.TypeEnum, Enum: "Role"},
					{Name: "tags", TypeIdentifier: schema.TypeString, IsList: true},
					relation("posts", "PostAuthor", schema.SideB, true, false),
					relation("profile", "UserProfile", schema.SideA, false, false),
				},
			},
			{
				Name: "Post",
				Fields: []schema.FieldTemplate{
					idField(),
					scalar("title", schema.TypeString, true),
					scalar("published", schema.TypeBoolean, false),
					scalar("views", schema.TypeInt, false),
					scalar("rating", schema.TypeFloat, false),
					relation("author", "PostAuthor", schema.SideA, false, true),
					relation("categories", "CategoryPosts", schema.SideB, true, false),
				},
			},
			{
				Name: "Profile",
				Fields: []schema.FieldTemplate{
					idField(),
					scalar("bio", schema.TypeString, false),
					relation("user", "UserProfile", schema.SideB, false, true),
				},
			},
			{
				Name: "Category",
				Fields: []schema.FieldTemplate{
					idField(),
					{Name: "name", TypeIdentifier: schema.TypeString, IsRequired: true, IsUnique: true},
					relation("posts", "CategoryPosts", schema.SideA, true, false),
				},
			},
			{
				Name: "AUser",
				Fields: []schema.FieldTemplate{
					idField(),
					scalar("nickname", schema.TypeString, false),
				},
			},
		},
	}
}

// Blog builds the blog fixture graph.
func Blog(t testing.TB) *schema.Graph {
	t.Helper()
	g, err := BlogTemplate().Build(schema.BuildOptions{DBName: "blog"})
	require.NoError(t, err)
	return g
}

// Model returns the named model of g.
func Model(t testing.TB, g *schema.Graph, name string) *schema.Model {
	t.Helper()
	m, err := g.FindModel(name)
	require.NoError(t, err)
	return m
}

// RelationField returns model.field of g.
func RelationField(t testing.TB, g *schema.Graph, model, field string) *schema.RelationField {
	t.Helper()
	rf, err := Model(t, g, model).FindRelationField(field)
	require.NoError(t, err)
	return rf
}

// Cardinality describes one relation endpoint.
type Cardinality struct {
	List     bool
	Required bool
}

// ParentChild builds a two-model graph with a single relation "ParentChild"
// whose endpoints are Parent.children (side A) and Child.parent (side B) with
// the given cardinalities. Field names stay fixed whatever the cardinality.
func ParentChild(t testing.TB, parent, child Cardinality) *schema.Graph {
	t.Helper()
	tmpl := &schema.Template{
		Relations: []schema.RelationTemplate{{Name: "ParentChild", ModelA: "Parent", ModelB: "Child"}},
		Models: []schema.ModelTemplate{
			{Name: "Parent", Fields: []schema.FieldTemplate{
				idField(),
				relation("children", "ParentChild", schema.SideA, parent.List, parent.Required),
			}},
			{Name: "Child", Fields: []schema.FieldTemplate{
				idField(),
				scalar("name", schema.TypeString, false),
				relation("parent", "ParentChild", schema.SideB, child.List, child.Required),
			}},
		},
	}
	g, err := tmpl.Build(schema.BuildOptions{DBName: "test"})
	require.NoError(t, err)
	return g
}
