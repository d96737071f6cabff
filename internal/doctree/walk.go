package doctree

// WalkStatus tells Walk how to proceed after visiting a node.
type WalkStatus int

const (
	WalkContinue WalkStatus = iota
	WalkSkipChildren
	WalkStop
)

// Visitor is called for every node below the walk root. parent and index locate
// the node in its parent's child list; a visitor may replace parent.Children[index],
// in which case the walk descends into the replacement.
type Visitor func(n, parent *Node, index int) WalkStatus

// Walk visits every descendant of root pre-order, parent before child, children
// in their original order. The root itself is not passed to the visitor.
func Walk(root *Node, visit Visitor) {
	walk(root, visit)
}

func walk(parent *Node, visit Visitor) bool {
	for i := 0; i < len(parent.Children); i++ {
		switch visit(parent.Children[i], parent, i) {
		case WalkStop:
			return false
		case WalkSkipChildren:
			continue
		}
		if i >= len(parent.Children) {
			return true
		}
		if !walk(parent.Children[i], visit) {
			return false
		}
	}
	return true
}

// Splice replaces parent.Children[index] with the given nodes.
func Splice(parent *Node, index int, nodes ...*Node) {
	if parent == nil || index < 0 || index >= len(parent.Children) {
		return
	}
	tail := append([]*Node(nil), parent.Children[index+1:]...)
	parent.Children = append(append(parent.Children[:index], nodes...), tail...)
}

// Replace swaps parent.Children[index] for n.
func Replace(parent *Node, index int, n *Node) {
	if parent == nil || index < 0 || index >= len(parent.Children) {
		return
	}
	parent.Children[index] = n
}
