package loam

// TaskMetadata is the frontmatter of one task document.
// ID and Parent stay untyped so both YAML ints and quoted strings are accepted.
type TaskMetadata struct {
	ID     any            `json:"id" mapstructure:"id"`
	Parent any            `json:"parent" mapstructure:"parent"`
	Name   string         `json:"name" mapstructure:"name"`
	Action string         `json:"action" mapstructure:"action"`
	Config map[string]any `json:"config" mapstructure:"config"`
}
