package models

// NodeField describes one configuration field of a node type.
type NodeField struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// NodeDefinition is the schema for a node type, supplied by the external
// node-schema collaborator. The registry uses it for structural validation
// before dispatch. ConfigSchema, when present, is a JSON Schema document for
// deeper validation of the node config.
type NodeDefinition struct {
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Provider     string         `json:"provider,omitempty"`
	Model        string         `json:"model,omitempty"`
	Fields       []NodeField    `json:"fields"`
	ConfigSchema map[string]any `json:"config_schema,omitempty"`
}

// RequiredFields returns the IDs of the definition's required fields.
func (d *NodeDefinition) RequiredFields() []string {
	var required []string

	for _, field := range d.Fields {
		if field.Required {
			required = append(required, field.ID)
		}
	}

	return required
}
