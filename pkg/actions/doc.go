/*
Package actions provides the built-in task variants operating on a linkedlist.List.

  - push_values: pushes every value of the "elements" param onto the head of the list.
  - print_list: writes "the list is: <values>" to the configured output.
  - reverse_list: replaces the bound list with a reversed copy.
  - lua: runs the "script" param against a table named "values" and replaces
    the list with the table the script returns (or with "values" if it returns nothing).

Register installs all of them into a registry:

	reg := registry.NewRegistry()
	actions.Register(reg, actions.WithOutput(os.Stdout))
*/
package actions
