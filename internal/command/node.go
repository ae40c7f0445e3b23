// Package command defines the instruction tree shared by every subsystem
// that describes or executes device actions. A node names an operation
// kind, carries named arguments (which may themselves be nested nodes),
// and an ordered body of child nodes.
package command

// Node is one element of an instruction tree.
//
// Kind and Args are never empty/nil on a parsed node; Body is always a
// slice, never nil. Comment is free text and empty by default.
type Node struct {
	Kind    string         `json:"kind"`
	Args    map[string]any `json:"args"`
	Body    []Node         `json:"body"`
	Comment string         `json:"comment,omitempty"`
}

// normalized returns a copy with the node invariants enforced: Args and
// Body are non-nil and child nodes are normalized recursively.
func (n Node) normalized() (Node, error) {
	if n.Kind == "" {
		return Node{}, &MalformedInstructionError{Reason: "node has empty kind"}
	}
	out := Node{Kind: n.Kind, Comment: n.Comment}

	out.Args = make(map[string]any, len(n.Args))
	for name, value := range n.Args {
		if child, ok := value.(Node); ok {
			norm, err := child.normalized()
			if err != nil {
				return Node{}, err
			}
			out.Args[name] = norm
			continue
		}
		out.Args[name] = value
	}

	out.Body = make([]Node, 0, len(n.Body))
	for _, child := range n.Body {
		norm, err := child.normalized()
		if err != nil {
			return Node{}, err
		}
		out.Body = append(out.Body, norm)
	}
	return out, nil
}
