package base

// Action is a mutation directive for Update. The set is closed: Increment,
// Append, Prepend and Trim. Any value that is not an Action is a plain set.
type Action interface {
	action()
}

// IncrementAction adds By to a numeric field.
type IncrementAction struct {
	By float64
}

// AppendAction appends Values (a single value or a slice) to a list field.
type AppendAction struct {
	Values any
}

// PrependAction prepends Values (a single value or a slice) to a list field.
type PrependAction struct {
	Values any
}

// TrimAction removes the field from the item.
type TrimAction struct{}

func (IncrementAction) action() {}
func (AppendAction) action()    {}
func (PrependAction) action()   {}
func (TrimAction) action()      {}

// Increment returns an Action adding by to the field.
func Increment(by float64) Action {
	return IncrementAction{By: by}
}

// IncrementOne returns an Action adding 1 to the field.
func IncrementOne() Action {
	return IncrementAction{By: 1}
}

// Append returns an Action appending values to the field.
func Append(values any) Action {
	return AppendAction{Values: values}
}

// Prepend returns an Action prepending values to the field.
func Prepend(values any) Action {
	return PrependAction{Values: values}
}

// Trim returns an Action removing the field.
func Trim() Action {
	return TrimAction{}
}
