package actions

import (
	"context"
	"fmt"
)

type pushValuesParams struct {
	Elements []int `mapstructure:"elements"`
}

type pushValuesTask struct {
	base
}

func (t *pushValuesTask) Execute(ctx context.Context, params map[string]any) error {
	if _, ok := params["elements"]; !ok {
		return fmt.Errorf("%w: push_values requires 'elements'", errMissingParam)
	}

	var p pushValuesParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}

	t.cfg.logger.Info("Populating the list", "task", t.name, "elements", p.Elements)
	for _, v := range p.Elements {
		t.list.Push(v)
	}
	return nil
}

type printListTask struct {
	base
}

func (t *printListTask) Execute(ctx context.Context, params map[string]any) error {
	_, err := fmt.Fprintf(t.cfg.out, "the list is: %s\n", t.list)
	return err
}

type reverseListTask struct {
	base
}

// Execute rebinds the task to a reversed copy; the input list is left untouched.
func (t *reverseListTask) Execute(ctx context.Context, params map[string]any) error {
	t.cfg.logger.Info("Reversing the list", "task", t.name)
	reversed := t.list.Copy()
	reversed.Reverse()
	t.list = reversed
	return nil
}
