package syncschema

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Error types reported in FieldError.Type.
const (
	TypeMissing     = "missing"
	TypeTypeError   = "type_error"
	TypeEnum        = "enum"
	TypeVariant     = "variant"
	TypeJSONInvalid = "json_invalid"
	TypeValue       = "value_error"
)

// FieldError is one failed field. Loc starts with "body" and holds property
// names and array indices down to the offending value.
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// DecodeError lists every field that failed, not just the first.
type DecodeError struct {
	Errors []FieldError
}

func (e *DecodeError) Error() string {
	if len(e.Errors) == 0 {
		return "decode: invalid payload"
	}
	first := e.Errors[0]
	msg := fmt.Sprintf("decode: %s: %s", locString(first.Loc), first.Msg)
	if n := len(e.Errors) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func locString(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, p := range loc {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ".")
}

// fieldErrors flattens a validation tree into one entry per failing field.
// doc is the instance that was validated and schemaDoc the raw schema; both
// are needed to expand a "required" failure into its missing properties.
func fieldErrors(ve *jsonschema.ValidationError, doc any, schemaDoc any) []FieldError {
	var out []FieldError
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		out = append(out, leafErrors(e, doc, schemaDoc)...)
	}
	walk(ve)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := locString(out[i].Loc), locString(out[j].Loc)
		if a != b {
			return a < b
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func leafErrors(e *jsonschema.ValidationError, doc any, schemaDoc any) []FieldError {
	loc := instanceLoc(doc, e.InstanceLocation)
	keyword := e.KeywordLocation
	if i := strings.LastIndexByte(keyword, '/'); i >= 0 {
		keyword = keyword[i+1:]
	}
	switch keyword {
	case "required":
		missing := missingProperties(e, doc, schemaDoc)
		if len(missing) == 0 {
			return []FieldError{{Loc: loc, Msg: e.Message, Type: TypeMissing}}
		}
		out := make([]FieldError, 0, len(missing))
		for _, name := range missing {
			out = append(out, FieldError{Loc: appendLoc(loc, name), Msg: "field required", Type: TypeMissing})
		}
		return out
	case "type":
		return []FieldError{{Loc: loc, Msg: e.Message, Type: TypeTypeError}}
	case "enum":
		return []FieldError{{Loc: loc, Msg: e.Message, Type: TypeEnum}}
	case variantKeyword:
		return []FieldError{{Loc: loc, Msg: e.Message, Type: TypeVariant}}
	}
	return []FieldError{{Loc: loc, Msg: e.Message, Type: TypeValue + "." + keyword}}
}

func missingProperties(e *jsonschema.ValidationError, doc any, schemaDoc any) []string {
	loc := e.AbsoluteKeywordLocation
	i := strings.IndexByte(loc, '#')
	if i < 0 {
		return nil
	}
	required, ok := lookup(schemaDoc, loc[i+1:])
	if !ok {
		return nil
	}
	names, _ := required.([]any)
	inst, _ := lookup(doc, e.InstanceLocation)
	obj, _ := inst.(map[string]any)
	var missing []string
	for _, n := range names {
		name, _ := n.(string)
		if _, present := obj[name]; !present {
			missing = append(missing, name)
		}
	}
	return missing
}

func appendLoc(loc []any, name string) []any {
	out := make([]any, len(loc), len(loc)+1)
	copy(out, loc)
	return append(out, name)
}

// instanceLoc turns a JSON pointer into a loc rooted at "body". A segment
// becomes an int only where doc holds an array at that point, so object keys
// made of digits stay strings.
func instanceLoc(doc any, ptr string) []any {
	loc := []any{"body"}
	cur := doc
	for _, tok := range splitPtr(ptr) {
		switch v := cur.(type) {
		case []any:
			if n, err := strconv.Atoi(tok); err == nil && n >= 0 {
				loc = append(loc, n)
				if n < len(v) {
					cur = v[n]
				} else {
					cur = nil
				}
				continue
			}
			cur = nil
		case map[string]any:
			cur = v[tok]
		default:
			cur = nil
		}
		loc = append(loc, tok)
	}
	return loc
}

func splitPtr(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	toks := strings.Split(ptr, "/")
	for i, t := range toks {
		if u, err := url.PathUnescape(t); err == nil {
			t = u
		}
		t = strings.ReplaceAll(t, "~1", "/")
		toks[i] = strings.ReplaceAll(t, "~0", "~")
	}
	return toks
}

func lookup(doc any, ptr string) (any, bool) {
	cur := doc
	for _, tok := range splitPtr(ptr) {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			n, err := strconv.Atoi(tok)
			if err != nil || n < 0 || n >= len(v) {
				return nil, false
			}
			cur = v[n]
		default:
			return nil, false
		}
	}
	return cur, true
}
