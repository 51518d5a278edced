package als

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// Node is one element of the parsed Live set document. The decoder builds a
// generic tree first and runs independent extractor functions over it, so
// each metadata field can be extracted (and tested) in isolation.
type Node struct {
	Name     string
	Attrs    map[string]string
	Children []*Node
}

// parseDocument parses the decompressed XML body into a Node tree
func parseDocument(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	// Live sets are plain ASCII/UTF-8; reject anything needing a charset reader
	dec.Strict = true

	var root *Node
	var stack []*Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				node.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					node.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrMalformedDocument)
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unbalanced end element", ErrMalformedDocument)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: truncated document", ErrMalformedDocument)
	}

	return root, nil
}

// Attr returns the named attribute, or "" when absent
func (n *Node) Attr(name string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// Value returns the conventional "Value" attribute Live uses on leaf elements
func (n *Node) Value() string {
	return n.Attr("Value")
}

// FloatValue parses the Value attribute as a float
func (n *Node) FloatValue() (float64, bool) {
	v, err := strconv.ParseFloat(n.Value(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IntValue parses the Value attribute as an integer
func (n *Node) IntValue() (int64, bool) {
	v, err := strconv.ParseInt(n.Value(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Child returns the first direct child with the given element name
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find returns the first descendant (depth-first, document order) with the
// given element name, or nil
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant with the given element name in
// document order
func (n *Node) FindAll(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, c.FindAll(name)...)
	}
	return out
}
