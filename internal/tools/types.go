// Package tools implements the tool execution framework: the registry of
// available tools, the dispatcher that validates and authorizes calls, and
// the built-in file and shell tools.
package tools

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Parameter describes one entry of a tool's input schema. Type uses JSON
// schema type names; Items and Properties describe array elements and object
// fields.
type Parameter struct {
	Type        string
	Description string
	Enum        []string
	Items       *Parameter
	Properties  map[string]Parameter
}

// Definition is a tool's static metadata: identity, input schema, how its
// calls map to permissions, and output limits enforced by the dispatcher.
type Definition struct {
	ID          string
	Description string
	Parameters  map[string]Parameter
	Required    []string

	// Permission names the permission evaluated for each call. Empty means
	// the tool ID.
	Permission string
	// Subject extracts the permission subject (a path, a command line) from
	// the call arguments. Nil means the subject is empty.
	Subject func(args map[string]any) string
	// SubjectIsPath marks subjects that are filesystem paths, which enables
	// the external-directory escalation for paths outside the workspace.
	SubjectIsPath bool

	// Output limits applied by the dispatcher. Zero means the dispatcher
	// default.
	MaxOutputLines int
	MaxOutputBytes int
	// KeepFullOutput stores the untruncated output in the result metadata
	// when truncation occurs.
	KeepFullOutput bool
}

// PermissionName returns the permission evaluated for this tool's calls.
func (d Definition) PermissionName() string {
	if d.Permission != "" {
		return d.Permission
	}
	return d.ID
}

// Attachment is a non-text artifact produced by a tool, such as an image
// read from disk.
type Attachment struct {
	MIME string
	Data []byte
}

// Result is a successful tool outcome. Output is the text handed back to the
// model; Metadata carries structured side data like exit codes.
type Result struct {
	Title       string
	Output      string
	Metadata    map[string]any
	Attachments []Attachment
}

// Meta records a metadata key on a result being built.
func (r *Result) Meta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata[key] = value
}

// Tool is the interface every registered tool implements.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error)
}

// Validator is implemented by tools that check arguments beyond the schema,
// before the permission gate runs. Returning an error fails the call without
// executing it.
type Validator interface {
	Validate(args map[string]any, ec *ExecContext) error
}

// DecodeArgs maps loosely typed call arguments onto a tool's typed argument
// struct, matching fields by json tag and coercing compatible scalar types.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Validationf("build argument decoder: %v", err)
	}
	if err := dec.Decode(args); err != nil {
		return Validationf("invalid arguments: %v", err)
	}
	return nil
}

// ValidateArgs checks call arguments against a tool definition: required
// keys must be present and values must match their declared types. Unknown
// keys are tolerated.
func ValidateArgs(def Definition, args map[string]any) error {
	for _, name := range def.Required {
		if _, ok := args[name]; !ok {
			return Validationf("%s: missing required argument %q", def.ID, name)
		}
	}
	for name, val := range args {
		p, ok := def.Parameters[name]
		if !ok {
			continue
		}
		if err := checkType(name, p, val); err != nil {
			return Validationf("%s: %v", def.ID, err)
		}
	}
	return nil
}

func checkType(name string, p Parameter, val any) error {
	if val == nil {
		return nil
	}
	switch p.Type {
	case "string":
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
		if len(p.Enum) > 0 {
			for _, e := range p.Enum {
				if s == e {
					return nil
				}
			}
			return fmt.Errorf("argument %q must be one of %v", name, p.Enum)
		}
	case "integer", "number":
		switch val.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("argument %q must be a number", name)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", name)
		}
	case "array":
		items, ok := val.([]any)
		if !ok {
			return fmt.Errorf("argument %q must be an array", name)
		}
		if p.Items != nil {
			for i, item := range items {
				if err := checkType(fmt.Sprintf("%s[%d]", name, i), *p.Items, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := val.(map[string]any)
		if !ok {
			return fmt.Errorf("argument %q must be an object", name)
		}
		for k, v := range obj {
			if sub, ok := p.Properties[k]; ok {
				if err := checkType(name+"."+k, sub, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// StringArg returns the string value of an argument, or "" when absent or of
// another type. Subject extractors use it before schema validation has run.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
