package tree

// Op names a structural mutation.
type Op string

const (
	OpAddNode Op = "add_node"
	OpAddLink Op = "add_link"
	OpReorder Op = "reorder"
	OpMove    Op = "move"
	OpRemove  Op = "remove"
	OpCopy    Op = "copy"
	OpSetData Op = "set_data"
	OpPrune   Op = "prune"
)

// Event describes a mutation that has been applied to a tree.
type Event struct {
	Op     Op
	Handle Handle
	Parent Handle
	// Count is the number of elements created or destroyed by the mutation.
	Count int
}

// Observer receives events after each successful mutation.
type Observer func(Event)

func (t *Tree) emit(e Event) {
	if t.observer != nil {
		t.observer(e)
	}
}
