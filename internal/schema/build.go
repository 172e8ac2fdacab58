package schema

import (
	"log/slog"

	"query-engine/internal/coreerr"
	"query-engine/internal/naming"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// DBName is the database the graph is deployed to.
	DBName string
	// Namer derives root field names for collision reporting. Defaults to naming.Default().
	Namer  *naming.Namer
	Logger *slog.Logger
}

// Build validates the template and assembles the schema graph.
func (t *Template) Build(opts BuildOptions) (*Graph, error) {
	if opts.Namer == nil {
		opts.Namer = naming.Default()
	}
	if opts.Logger == nil {
		opts.Logger = opts.Namer.Logger()
	}
	g := newGraph(opts.DBName, t.Version)

	for _, et := range t.Enums {
		if et.Name == "" {
			return nil, coreerr.Validation("enum with empty name")
		}
		if _, dup := g.enumIndex[et.Name]; dup {
			return nil, coreerr.Validation("duplicate enum %q", et.Name)
		}
		g.enumIndex[et.Name] = len(g.enums)
		g.enums = append(g.enums, Enum{Name: et.Name, Values: append([]string(nil), et.Values...)})
	}

	for _, rt := range t.Relations {
		if rt.Name == "" {
			return nil, coreerr.Validation("relation with empty name")
		}
		if _, dup := g.relationIndex[rt.Name]; dup {
			return nil, coreerr.Validation("duplicate relation %q", rt.Name)
		}
		rel := &Relation{
			Name:       rt.Name,
			ModelAName: rt.ModelA,
			ModelBName: rt.ModelB,
			TableName:  rt.TableName,
			graph:      g,
		}
		g.relations = append(g.relations, rel)
		g.relationIndex[rt.Name] = rel
	}

	for _, mt := range t.Models {
		model, err := buildModel(g, mt)
		if err != nil {
			return nil, err
		}
		g.models = append(g.models, model)
		g.modelIndex[model.Name] = model
	}

	if err := linkRelations(g); err != nil {
		return nil, err
	}

	registry := naming.NewRootFieldRegistry(opts.Logger)
	for _, model := range g.models {
		registry.Register(opts.Namer.SingleQueryName(model.Name), model.Name)
		registry.Register(opts.Namer.ManyQueryName(model.Name), model.Name)
	}

	return g, nil
}

func buildModel(g *Graph, mt ModelTemplate) (*Model, error) {
	if mt.Name == "" {
		return nil, coreerr.Validation("model with empty name")
	}
	if naming.IsReservedTypeName(mt.Name) {
		return nil, coreerr.Validation("model name %q is reserved", mt.Name)
	}
	if _, dup := g.modelIndex[mt.Name]; dup {
		return nil, coreerr.Validation("duplicate model %q", mt.Name)
	}
	model := &Model{
		Name:       mt.Name,
		DBName:     mt.DBName,
		graph:      g,
		fieldIndex: make(map[string]Field, len(mt.Fields)),
	}

	hasID := false
	for _, ft := range mt.Fields {
		if ft.Name == "" {
			return nil, coreerr.Validation("model %s has a field with empty name", mt.Name)
		}
		if naming.IsReservedFieldName(ft.Name) {
			return nil, coreerr.Validation("field name %q on model %s is reserved", ft.Name, mt.Name)
		}
		if _, dup := model.fieldIndex[ft.Name]; dup {
			return nil, coreerr.Validation("duplicate field %q on model %s", ft.Name, mt.Name)
		}
		if !ft.TypeIdentifier.valid() {
			return nil, coreerr.Validation("field %s.%s has unknown type %q", mt.Name, ft.Name, ft.TypeIdentifier)
		}

		var f Field
		if ft.TypeIdentifier == TypeRelation {
			if ft.RelationSide != SideA && ft.RelationSide != SideB {
				return nil, coreerr.Validation("relation field %s.%s has invalid side %q", mt.Name, ft.Name, ft.RelationSide)
			}
			f = &RelationField{
				Name:         ft.Name,
				RelationName: ft.RelationName,
				RelationSide: ft.RelationSide,
				IsList:       ft.IsList,
				IsRequired:   ft.IsRequired,
				model:        model,
			}
		} else {
			if ft.TypeIdentifier == TypeEnum {
				if _, ok := g.enumIndex[ft.Enum]; !ok {
					return nil, coreerr.Validation("field %s.%s references unknown enum %q", mt.Name, ft.Name, ft.Enum)
				}
			}
			if ft.IsID {
				if hasID {
					return nil, coreerr.Validation("model %s declares more than one id field", mt.Name)
				}
				if ft.IsList {
					return nil, coreerr.Validation("id field %s.%s cannot be a list", mt.Name, ft.Name)
				}
				hasID = true
			}
			f = &ScalarField{
				Name:           ft.Name,
				TypeIdentifier: ft.TypeIdentifier,
				IsList:         ft.IsList,
				IsRequired:     ft.IsRequired,
				IsUnique:       ft.IsUnique,
				IsID:           ft.IsID,
				Enum:           ft.Enum,
				model:          model,
			}
		}
		model.Fields = append(model.Fields, f)
		model.fieldIndex[ft.Name] = f
	}
	if !hasID {
		return nil, coreerr.Validation("model %s has no id field", mt.Name)
	}
	return model, nil
}

// linkRelations attaches each relation field to its relation and checks that
// every relation has exactly one endpoint per side on the declared models.
func linkRelations(g *Graph) error {
	for _, model := range g.models {
		for _, rf := range model.RelationFields() {
			rel, ok := g.relationIndex[rf.RelationName]
			if !ok {
				return coreerr.Validation("relation field %s.%s references unknown relation %q", model.Name, rf.Name, rf.RelationName)
			}
			wantModel := rel.ModelAName
			if rf.RelationSide == SideB {
				wantModel = rel.ModelBName
			}
			if wantModel != model.Name {
				return coreerr.Validation("relation field %s.%s is on side %s of %q, which belongs to model %s",
					model.Name, rf.Name, rf.RelationSide, rel.Name, wantModel)
			}
			switch rf.RelationSide {
			case SideA:
				if rel.fieldA != nil {
					return coreerr.Validation("relation %q has more than one field on side A", rel.Name)
				}
				rel.fieldA = rf
			case SideB:
				if rel.fieldB != nil {
					return coreerr.Validation("relation %q has more than one field on side B", rel.Name)
				}
				rel.fieldB = rf
			}
		}
	}
	for _, rel := range g.relations {
		if _, ok := g.modelIndex[rel.ModelAName]; !ok {
			return coreerr.Validation("relation %q references unknown model %q", rel.Name, rel.ModelAName)
		}
		if _, ok := g.modelIndex[rel.ModelBName]; !ok {
			return coreerr.Validation("relation %q references unknown model %q", rel.Name, rel.ModelBName)
		}
		if rel.fieldA == nil || rel.fieldB == nil {
			return coreerr.Validation("relation %q must have one field on each side", rel.Name)
		}
	}
	return nil
}
