package hclgraph

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/kinds"
)

// typeExprToCtyType converts an HCL type expression such as `number` or
// `list(string)` into its cty.Type equivalent. The `shader` keyword maps to
// the opaque shader capsule type.
func typeExprToCtyType(expr hcl.Expression) (cty.Type, error) {
	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.NilType, fmt.Errorf("invalid type keyword: not a single identifier")
		}
		switch name := v.Traversal.RootName(); name {
		case "string":
			return cty.String, nil
		case "number":
			return cty.Number, nil
		case "bool":
			return cty.Bool, nil
		case "shader":
			return kinds.ShaderType, nil
		default:
			return cty.NilType, fmt.Errorf("unknown type keyword %q", name)
		}

	case *hclsyntax.FunctionCallExpr:
		if len(v.Args) != 1 {
			return cty.NilType, fmt.Errorf("type constructor %s requires exactly one argument, got %d", v.Name, len(v.Args))
		}
		if v.Name == "object" {
			objExpr, ok := v.Args[0].(*hclsyntax.ObjectConsExpr)
			if !ok {
				return cty.NilType, fmt.Errorf("the argument to object() must be an object literal like { key = type }, got %T", v.Args[0])
			}
			return objectType(objExpr)
		}
		elem, err := typeExprToCtyType(v.Args[0])
		if err != nil {
			return cty.NilType, err
		}
		switch v.Name {
		case "list":
			return cty.List(elem), nil
		case "map":
			return cty.Map(elem), nil
		case "set":
			return cty.Set(elem), nil
		default:
			return cty.NilType, fmt.Errorf("unknown type constructor %q", v.Name)
		}

	default:
		return cty.NilType, fmt.Errorf("unsupported type expression: %T", expr)
	}
}

// objectType builds a cty object type from an object literal whose values
// are type expressions.
func objectType(objExpr *hclsyntax.ObjectConsExpr) (cty.Type, error) {
	attrTypes := make(map[string]cty.Type, len(objExpr.Items))
	for _, item := range objExpr.Items {
		key, err := objectKey(item.KeyExpr)
		if err != nil {
			return cty.NilType, err
		}
		valueType, err := typeExprToCtyType(item.ValueExpr)
		if err != nil {
			return cty.NilType, fmt.Errorf("in object attribute %q: %w", key, err)
		}
		attrTypes[key] = valueType
	}
	return cty.Object(attrTypes), nil
}

// objectKey unwraps an object literal key, accepting bare identifiers and
// quoted string literals.
func objectKey(expr hcl.Expression) (string, error) {
	keyExpr, ok := expr.(*hclsyntax.ObjectConsKeyExpr)
	if !ok {
		return "", fmt.Errorf("invalid key in object type definition: %T", expr)
	}
	switch kexpr := keyExpr.Wrapped.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(kexpr.Traversal) == 1 {
			return kexpr.Traversal.RootName(), nil
		}
	case *hclsyntax.TemplateExpr:
		if len(kexpr.Parts) == 1 {
			if lit, isLit := kexpr.Parts[0].(*hclsyntax.LiteralValueExpr); isLit && lit.Val.Type().Equals(cty.String) {
				return lit.Val.AsString(), nil
			}
		}
	}
	return "", fmt.Errorf("invalid key in object type definition: keys must be simple identifiers or quoted strings")
}
