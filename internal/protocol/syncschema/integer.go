package syncschema

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// integerKeyword is never written in a schema. The compiler attaches it to
// every schema declaring "type": "integer" so that integral values spelled
// with a fraction or exponent, such as 1.0 or 2e1, fail validation: the
// draft accepts them but they cannot be decoded into a Go int.
const integerKeyword = "x-integer"

type integerCompiler struct{}

func (integerCompiler) Compile(ctx jsonschema.CompilerContext, m map[string]interface{}) (jsonschema.ExtSchema, error) {
	switch t := m["type"].(type) {
	case string:
		if t == "integer" {
			return integerSchema{}, nil
		}
	case []interface{}:
		for _, v := range t {
			if v == "integer" {
				return integerSchema{}, nil
			}
		}
	}
	return nil, nil
}

type integerSchema struct{}

func (integerSchema) Validate(ctx jsonschema.ValidationContext, v interface{}) error {
	n, ok := v.(json.Number)
	if !ok || !strings.ContainsAny(string(n), ".eE") {
		return nil
	}
	// Non-integral values already fail the "type" keyword.
	r, ok := new(big.Rat).SetString(string(n))
	if !ok || !r.IsInt() {
		return nil
	}
	return ctx.Error("type", "expected integer, but got %s", n)
}
