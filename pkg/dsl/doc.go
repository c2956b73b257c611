/*
Package dsl provides a fluent Go builder for arbor task trees.

It lets programs assemble pipelines without YAML or JSON files, which is
handy for generated pipelines and tests.

Example usage:

	b := dsl.New()

	b.Add(1).Name("populate").
		Do("push_values", map[string]any{"elements": []int{1, 2, 3}}).
		Then(2).Name("flip").Do("reverse_list", nil).
		Then(3).Name("show").Do("print_list", nil)

	b.Add(4).Name("show original").Do("print_list", nil).Under(1)

	source, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	record, err := engine.RunSource(ctx, "built", source)
*/
package dsl
