package tools

import (
	"sort"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
)

// Registry stores available tools keyed by ID. It is safe for concurrent
// registration and lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry builds a registry and registers the given tools, panicking on
// a duplicate ID since that is a wiring bug.
func NewRegistry(items ...Tool) *Registry {
	reg := &Registry{tools: map[string]Tool{}}
	for _, item := range items {
		if err := reg.Register(item); err != nil {
			panic(err)
		}
	}
	return reg
}

// Register adds a tool. Registering an ID twice fails with a validation
// error so a plugin cannot silently shadow a built-in.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()
	if def.ID == "" {
		return Validationf("tool has empty ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.ID]; exists {
		return Validationf("tool %q is already registered", def.ID)
	}
	r.tools[def.ID] = tool
	return nil
}

// Get returns a tool by ID, or a not-found error.
func (r *Registry) Get(id string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[id]
	if !ok {
		return nil, NotFoundf("unknown tool %q", id)
	}
	return tool, nil
}

// IDs returns sorted tool IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Definitions returns the definitions of all registered tools, sorted by ID.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// OpenAITools converts tool definitions to the OpenAI tool schema.
func (r *Registry) OpenAITools() []openai.ChatCompletionToolUnionParam {
	var out []openai.ChatCompletionToolUnionParam
	for _, def := range r.Definitions() {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        def.ID,
					Description: param.NewOpt(def.Description),
					Parameters:  shared.FunctionParameters(Schema(def)),
				},
			},
		})
	}
	return out
}

// Schema renders a definition's parameters as a JSON schema object.
func Schema(def Definition) map[string]any {
	props := map[string]any{}
	for name, p := range def.Parameters {
		props[name] = paramSchema(p)
	}
	required := def.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func paramSchema(p Parameter) map[string]any {
	out := map[string]any{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Items != nil {
		out["items"] = paramSchema(*p.Items)
	}
	if len(p.Properties) > 0 {
		props := map[string]any{}
		for name, sub := range p.Properties {
			props[name] = paramSchema(sub)
		}
		out["properties"] = props
	}
	return out
}
