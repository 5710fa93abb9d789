package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaByType = map[string]string{
	TypeHello:  "hello.schema.json",
	TypeInput:  "input.schema.json",
	TypeFinish: "command.schema.json",
	TypeReset:  "command.schema.json",
	TypeExit:   "command.schema.json",
	TypeChat:   "chat.schema.json",
}

// Validator checks inbound client messages against the embedded schemas.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	compiled := map[string]*jsonschema.Schema{}
	v := &Validator{byType: map[string]*jsonschema.Schema{}}
	for typ, name := range schemaByType {
		if s, ok := compiled[name]; ok {
			v.byType[typ] = s
			continue
		}
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		s, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		compiled[name] = s
		v.byType[typ] = s
	}
	return v, nil
}

// Validate checks raw against the schema registered for its type. Types
// without a schema are rejected; servers never accept them from clients.
func (v *Validator) Validate(raw []byte) (BaseMessage, error) {
	base, err := DecodeBase(raw)
	if err != nil {
		return base, fmt.Errorf("decode: %w", err)
	}
	s, ok := v.byType[base.Type]
	if !ok {
		return base, fmt.Errorf("unknown message type %q", base.Type)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return base, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return base, err
	}
	return base, nil
}
