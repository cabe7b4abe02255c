package syncschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// variantKeyword bounds how many of a set of sibling properties may be
// present on one object. Kotlin serializers emit every alternative, absent
// ones as null, so null does not count as present.
const variantKeyword = "x-variant"

var variantMeta = jsonschema.MustCompileString("x-variant.json", `{
	"properties": {
		"x-variant": {
			"type": "object",
			"required": ["fields", "min", "max"],
			"properties": {
				"fields": {"type": "array", "items": {"type": "string"}, "minItems": 1},
				"min": {"type": "integer", "minimum": 0},
				"max": {"type": "integer", "minimum": 1}
			}
		}
	}
}`)

type variantCompiler struct{}

func (variantCompiler) Compile(ctx jsonschema.CompilerContext, m map[string]interface{}) (jsonschema.ExtSchema, error) {
	raw, ok := m[variantKeyword]
	if !ok {
		return nil, nil
	}
	obj := raw.(map[string]interface{})
	var s variantSchema
	for _, f := range obj["fields"].([]interface{}) {
		s.fields = append(s.fields, f.(string))
	}
	lo, err := obj["min"].(json.Number).Int64()
	if err != nil {
		return nil, err
	}
	hi, err := obj["max"].(json.Number).Int64()
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, fmt.Errorf("%s: min %d > max %d", variantKeyword, lo, hi)
	}
	s.min, s.max = int(lo), int(hi)
	return s, nil
}

type variantSchema struct {
	fields   []string
	min, max int
}

func (s variantSchema) Validate(ctx jsonschema.ValidationContext, v interface{}) error {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	var set []string
	for _, f := range s.fields {
		if val, ok := obj[f]; ok && val != nil {
			set = append(set, f)
		}
	}
	if len(set) >= s.min && len(set) <= s.max {
		return nil
	}
	want := "at most one of"
	if s.min == 1 && s.max == 1 {
		want = "exactly one of"
	}
	if len(set) == 0 {
		return ctx.Error(variantKeyword, "%s %s must be set, got none", want, strings.Join(s.fields, ", "))
	}
	return ctx.Error(variantKeyword, "%s %s must be set, got %s", want, strings.Join(s.fields, ", "), strings.Join(set, ", "))
}
