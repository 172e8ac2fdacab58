package builder

import (
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"

	"query-engine/internal/coreerr"
	"query-engine/internal/naming"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// Plan holds the operation trees for one GraphQL operation. Exactly one of
// Reads and Writes is populated, in root field order.
type Plan struct {
	Operation string
	Name      string
	Reads     []query.ReadQuery
	Writes    []query.WriteQuery
}

// IsMutation reports whether the plan holds write queries.
func (p *Plan) IsMutation() bool {
	return p.Operation == ast.OperationTypeMutation
}

// ParseDocument parses a GraphQL document.
func ParseDocument(document string) (*ast.Document, error) {
	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{
			Body: []byte(document),
			Name: "graphql",
		}),
	})
	if err != nil {
		return nil, coreerr.Validation("failed to parse document: %v", err)
	}
	return doc, nil
}

// SelectOperation picks the operation named operationName, or the only
// operation of the document when operationName is empty.
func SelectOperation(doc *ast.Document, operationName string) (*ast.OperationDefinition, error) {
	var first *ast.OperationDefinition
	ops := 0
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		ops++
		if first == nil {
			first = op
		}
		if operationName != "" && op.Name != nil && op.Name.Value == operationName {
			return op, nil
		}
	}
	if operationName != "" {
		return nil, coreerr.Validation("unknown operation named %q", operationName)
	}
	switch ops {
	case 0:
		return nil, coreerr.Validation("document contains no operation")
	case 1:
		return first, nil
	default:
		return nil, coreerr.Validation("operation name is required when the document contains %d operations", ops)
	}
}

// PlanDocument parses document, selects the operation and builds one read
// query per root field of a query, or one write query per root field of a
// mutation. Variable defaults declared by the operation fill in missing
// variables.
func PlanDocument(graph *schema.Graph, namer *naming.Namer, document, operationName string, vars map[string]any) (*Plan, error) {
	doc, err := ParseDocument(document)
	if err != nil {
		return nil, err
	}
	op, err := SelectOperation(doc, operationName)
	if err != nil {
		return nil, err
	}
	if op.Operation == ast.OperationTypeSubscription {
		return nil, coreerr.Unsupported("subscriptions are not supported")
	}

	resolved, err := applyVariableDefaults(op, vars)
	if err != nil {
		return nil, err
	}
	b := New(graph, WithNamer(namer), WithVariables(resolved))

	plan := &Plan{Operation: op.Operation}
	if op.Name != nil {
		plan.Name = op.Name.Value
	}
	if op.SelectionSet == nil {
		return plan, nil
	}
	for _, selection := range op.SelectionSet.Selections {
		field, ok := selection.(*ast.Field)
		if !ok {
			return nil, coreerr.Unsupported("fragments and inline fragment spreads are not supported")
		}
		if plan.IsMutation() {
			w, err := b.BuildWrite(field)
			if err != nil {
				return nil, err
			}
			plan.Writes = append(plan.Writes, w)
			continue
		}
		r, err := b.BuildRead(field)
		if err != nil {
			return nil, err
		}
		plan.Reads = append(plan.Reads, r)
	}
	return plan, nil
}

// applyVariableDefaults copies vars and adds declared defaults for variables
// the request left out. The defaults are kept in decoded form.
func applyVariableDefaults(op *ast.OperationDefinition, vars map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	defaults := New(nil)
	for _, def := range op.VariableDefinitions {
		if def == nil || def.Variable == nil || def.Variable.Name == nil || def.DefaultValue == nil {
			continue
		}
		name := def.Variable.Name.Value
		if _, ok := out[name]; ok {
			continue
		}
		v, err := defaults.evalValue(def.DefaultValue)
		if err != nil {
			return nil, err
		}
		out[name] = evaluated{v}
	}
	return out, nil
}

// evaluated marks a variable value that is already in builder form.
type evaluated struct {
	value any
}
