package domain

import "fmt"

// TaskDescriptor describes one pipeline step.
// It is plain data: the executor resolves Action through a TaskFactory and
// passes Params verbatim to the resulting task instance.
type TaskDescriptor struct {
	ID     *int           `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Parent *int           `json:"parent,omitempty" yaml:"parent,omitempty" mapstructure:"parent"`
	Name   string         `json:"name" yaml:"name" mapstructure:"name"`
	Action string         `json:"action" yaml:"action" mapstructure:"action"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// IsRoot reports whether the descriptor declares no parent.
func (d TaskDescriptor) IsRoot() bool {
	return d.Parent == nil
}

// TaskID returns the descriptor id and whether it is set.
func (d TaskDescriptor) TaskID() (int, bool) {
	if d.ID == nil {
		return 0, false
	}
	return *d.ID, true
}

// ParentID returns the parent id and whether it is set.
func (d TaskDescriptor) ParentID() (int, bool) {
	if d.Parent == nil {
		return 0, false
	}
	return *d.Parent, true
}

// String renders the descriptor the way pipeline listings show it.
func (d TaskDescriptor) String() string {
	return fmt.Sprintf("%s - %s - %v", d.Action, d.Name, d.Params)
}

// Ref returns a pointer to v. It keeps descriptor literals short.
func Ref(v int) *int {
	return &v
}
