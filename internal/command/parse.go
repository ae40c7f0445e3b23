package command

// Parse normalizes an instruction input into nodes. It accepts a
// string-keyed mapping, a loosely keyed mapping (map[any]any with
// string keys, the shape generic decoders produce), an existing Node
// or *Node, or a bare sequence of any of those. A single input yields
// a one-element slice; a sequence yields one node per element in input
// order.
//
// Parsing is pure: a malformed element anywhere aborts the whole call
// with a MalformedInstructionError and no partial result.
func Parse(input any) ([]Node, error) {
	switch v := input.(type) {
	case nil:
		return nil, malformedf("nil input")
	case []Node:
		out := make([]Node, 0, len(v))
		for _, n := range v {
			norm, err := n.normalized()
			if err != nil {
				return nil, err
			}
			out = append(out, norm)
		}
		return out, nil
	case []any:
		out := make([]Node, 0, len(v))
		for i, item := range v {
			n, err := ParseOne(item)
			if err != nil {
				return nil, malformedf("element %d: %v", i, err)
			}
			out = append(out, n)
		}
		return out, nil
	default:
		n, err := ParseOne(input)
		if err != nil {
			return nil, err
		}
		return []Node{n}, nil
	}
}

// ParseOne normalizes exactly one instruction input into a node.
func ParseOne(input any) (Node, error) {
	switch v := input.(type) {
	case Node:
		return v.normalized()
	case *Node:
		if v == nil {
			return Node{}, malformedf("nil node")
		}
		return v.normalized()
	case map[string]any:
		return parseMapping(v)
	case map[any]any:
		m, err := stringKeyed(v)
		if err != nil {
			return Node{}, err
		}
		return parseMapping(m)
	default:
		return Node{}, malformedf("unsupported input shape %T", input)
	}
}

// stringKeyed converts a loosely keyed mapping to a string-keyed one.
// Non-string keys are rejected rather than stringified: accepting them
// would let arbitrary inputs mint unbounded identifiers.
func stringKeyed(in map[any]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		s, ok := k.(string)
		if !ok {
			return nil, malformedf("non-string mapping key %v (%T)", k, k)
		}
		out[s] = v
	}
	return out, nil
}

func parseMapping(m map[string]any) (Node, error) {
	var n Node
	for key := range m {
		switch key {
		case "kind", "args", "body", "comment":
		default:
			return Node{}, malformedf("unrecognized key %q", key)
		}
	}

	kind, ok := m["kind"].(string)
	if !ok || kind == "" {
		return Node{}, malformedf("mapping has no kind")
	}
	n.Kind = kind

	args, err := parseArgs(m["args"])
	if err != nil {
		return Node{}, err
	}
	n.Args = args

	body, err := parseBody(m["body"])
	if err != nil {
		return Node{}, err
	}
	n.Body = body

	switch c := m["comment"].(type) {
	case nil:
	case string:
		n.Comment = c
	default:
		return Node{}, malformedf("comment must be a string, got %T", c)
	}
	return n, nil
}

// parseArgs normalizes the args mapping. Values that are themselves
// mappings parse recursively into nested nodes (a conditional storing
// its branch as an argument, for example); every other value is kept
// verbatim under its name. Names are case-sensitive and preserved
// exactly.
func parseArgs(raw any) (map[string]any, error) {
	var m map[string]any
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		m = v
	case map[any]any:
		conv, err := stringKeyed(v)
		if err != nil {
			return nil, err
		}
		m = conv
	default:
		return nil, malformedf("args must be a mapping, got %T", raw)
	}

	out := make(map[string]any, len(m))
	for name, value := range m {
		switch v := value.(type) {
		case map[string]any, map[any]any, Node, *Node:
			child, err := ParseOne(v)
			if err != nil {
				return nil, malformedf("arg %q: %v", name, err)
			}
			out[name] = child
		default:
			out[name] = value
		}
	}
	return out, nil
}

// parseBody normalizes the body into a slice of child nodes. A single
// mapping is coerced to a one-element sequence.
func parseBody(raw any) ([]Node, error) {
	switch v := raw.(type) {
	case nil:
		return []Node{}, nil
	case []any:
		out := make([]Node, 0, len(v))
		for i, item := range v {
			child, err := ParseOne(item)
			if err != nil {
				return nil, malformedf("body element %d: %v", i, err)
			}
			out = append(out, child)
		}
		return out, nil
	case []Node:
		out := make([]Node, 0, len(v))
		for _, item := range v {
			child, err := item.normalized()
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	case map[string]any, map[any]any, Node, *Node:
		child, err := ParseOne(v)
		if err != nil {
			return nil, err
		}
		return []Node{child}, nil
	default:
		return nil, malformedf("body must be a sequence, got %T", raw)
	}
}
