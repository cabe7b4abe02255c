// Package syncschema validates sync payloads against the embedded JSON
// schemas before they are decoded into protocol types.
package syncschema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"botfarm.ai/internal/protocol"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	RequestSchema  = "agent_sync_request.schema.json"
	ResponseSchema = "agent_sync_response.schema.json"

	baseURL = "mem://botfarm/"
)

// Codec holds the compiled request and response schemas.
type Codec struct {
	request     *jsonschema.Schema
	response    *jsonschema.Schema
	requestDoc  any
	responseDoc any
}

// Compile builds a Codec from the embedded schemas.
func Compile() (*Codec, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.RegisterExtension(variantKeyword, variantMeta, variantCompiler{})
	c.RegisterExtension(integerKeyword, nil, integerCompiler{})

	docs := map[string]any{}
	for _, name := range []string{RequestSchema, ResponseSchema} {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(baseURL+name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
		doc, err := parse(b)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		docs[name] = doc
	}
	req, err := c.Compile(baseURL + RequestSchema)
	if err != nil {
		return nil, err
	}
	resp, err := c.Compile(baseURL + ResponseSchema)
	if err != nil {
		return nil, err
	}
	return &Codec{
		request:     req,
		response:    resp,
		requestDoc:  docs[RequestSchema],
		responseDoc: docs[ResponseSchema],
	}, nil
}

var defaultCodec = sync.OnceValue(func() *Codec {
	c, err := Compile()
	if err != nil {
		panic(fmt.Sprintf("syncschema: %v", err))
	}
	return c
})

// Default returns the process-wide Codec.
func Default() *Codec { return defaultCodec() }

// DecodeRequest validates raw with the default Codec and decodes it.
func DecodeRequest(raw []byte) (protocol.AgentSyncRequest, error) {
	return Default().DecodeRequest(raw)
}

// DecodeResponse validates raw with the default Codec and decodes it.
func DecodeResponse(raw []byte) (protocol.AgentSyncResponse, error) {
	return Default().DecodeResponse(raw)
}

// DecodeRequest checks raw against the request schema and returns a
// *DecodeError listing every failing field when it does not conform.
// Unknown fields are ignored and null is treated as absent.
func (c *Codec) DecodeRequest(raw []byte) (protocol.AgentSyncRequest, error) {
	var req protocol.AgentSyncRequest
	if err := c.decode(c.request, c.requestDoc, raw, &req); err != nil {
		return protocol.AgentSyncRequest{}, err
	}
	return req, nil
}

// DecodeResponse is DecodeRequest for the response direction.
func (c *Codec) DecodeResponse(raw []byte) (protocol.AgentSyncResponse, error) {
	var resp protocol.AgentSyncResponse
	if err := c.decode(c.response, c.responseDoc, raw, &resp); err != nil {
		return protocol.AgentSyncResponse{}, err
	}
	return resp, nil
}

// ValidateResponse checks an encoded response without decoding it.
func (c *Codec) ValidateResponse(raw []byte) error {
	doc, err := parse(raw)
	if err != nil {
		return jsonInvalid(err)
	}
	return c.validate(c.response, c.responseDoc, stripNulls(doc))
}

func (c *Codec) decode(s *jsonschema.Schema, schemaDoc any, raw []byte, dst any) error {
	doc, err := parse(raw)
	if err != nil {
		return jsonInvalid(err)
	}
	if err := c.validate(s, schemaDoc, stripNulls(doc)); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return unmarshalError(err)
	}
	return nil
}

func (c *Codec) validate(s *jsonschema.Schema, schemaDoc any, doc any) error {
	err := s.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return &DecodeError{Errors: fieldErrors(ve, doc, schemaDoc)}
	}
	return &DecodeError{Errors: []FieldError{{Loc: []any{"body"}, Msg: err.Error(), Type: TypeValue}}}
}

func parse(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("invalid character after top-level value")
	}
	return v, nil
}

// stripNulls drops object members whose value is null.
func stripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if val == nil {
				delete(t, k)
				continue
			}
			t[k] = stripNulls(val)
		}
	case []any:
		for i, val := range t {
			t[i] = stripNulls(val)
		}
	}
	return v
}

func jsonInvalid(err error) error {
	return &DecodeError{Errors: []FieldError{{Loc: []any{"body"}, Msg: err.Error(), Type: TypeJSONInvalid}}}
}

// unmarshalError covers what the schema pass lets through. Values it accepts
// should decode, so this is a last resort and carries only the field path
// encoding/json reports.
func unmarshalError(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		loc := []any{"body"}
		if te.Field != "" {
			for _, name := range strings.Split(te.Field, ".") {
				loc = append(loc, name)
			}
		}
		return &DecodeError{Errors: []FieldError{{Loc: loc, Msg: te.Error(), Type: TypeTypeError}}}
	}
	var vErr *protocol.VariantError
	if errors.As(err, &vErr) {
		return &DecodeError{Errors: []FieldError{{Loc: []any{"body"}, Msg: vErr.Error(), Type: TypeVariant}}}
	}
	return &DecodeError{Errors: []FieldError{{Loc: []any{"body"}, Msg: err.Error(), Type: TypeValue}}}
}
