// Package param models the self-describing parameter trees audio servers
// expose per device and locates the mute control inside them.
package param

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	}
	return "null"
}

// Node is one value of a parameter tree. Only the fields matching Kind are
// meaningful.
type Node struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Num    string   // literal text of a parsed JSON number, written back as is
	Fields []*Field // KindObject, in document order
	Items  []*Node  // KindArray
}

// Field is a named child of an object node.
type Field struct {
	Name  string
	Value *Node
}

func Object(fields ...*Field) *Node { return &Node{Kind: KindObject, Fields: fields} }
func Bool(v bool) *Node             { return &Node{Kind: KindBool, Bool: v} }
func Int(v int64) *Node             { return &Node{Kind: KindInt, Int: v} }
func Float(v float64) *Node         { return &Node{Kind: KindFloat, Float: v} }
func String(v string) *Node         { return &Node{Kind: KindString, Str: v} }
func Array(items ...*Node) *Node    { return &Node{Kind: KindArray, Items: items} }
func F(name string, v *Node) *Field { return &Field{Name: name, Value: v} }

// Get returns the value of the first field called name, or nil.
func (n *Node) Get(name string) *Node {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Children returns the fields of an object node; nil for anything else.
func (n *Node) Children() []*Field {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	return n.Fields
}

// Clone returns a deep copy of the tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Fields != nil {
		c.Fields = make([]*Field, len(n.Fields))
		for i, f := range n.Fields {
			c.Fields[i] = F(f.Name, f.Value.Clone())
		}
	}
	if n.Items != nil {
		c.Items = make([]*Node, len(n.Items))
		for i, it := range n.Items {
			c.Items[i] = it.Clone()
		}
	}
	return &c
}

// Parse decodes a JSON document into a tree, keeping object fields in the
// order they appear and numbers exactly as written.
func Parse(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Node{Kind: KindNull}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("parse parameter tree: %w", err)
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected %v after document", tok)
		}
		return nil, fmt.Errorf("parse parameter tree: %w", err)
	}
	return n, nil
}

func decodeValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &Node{Kind: KindObject, Fields: []*Field{}}
			for dec.More() {
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				name, ok := key.(string)
				if !ok {
					return nil, fmt.Errorf("object key %v is not a string", key)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				n.Fields = append(n.Fields, F(name, v))
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &Node{Kind: KindArray, Items: []*Node{}}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected %v", t)
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return number(t), nil
	case nil:
		return &Node{Kind: KindNull}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// number keeps the literal so values outside int64 or float64 precision
// survive a round trip.
func number(num json.Number) *Node {
	lit := num.String()
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return &Node{Kind: KindInt, Int: i, Num: lit}
	}
	f, _ := strconv.ParseFloat(lit, 64)
	return &Node{Kind: KindFloat, Float: f, Num: lit}
}

// ParseYAML decodes a YAML document into a tree. It is meant for
// hand-written fixtures; device output is JSON and goes through Parse.
func ParseYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse parameter tree: %w", err)
	}
	if doc.Kind == 0 {
		return &Node{Kind: KindNull}, nil
	}
	return fromYAML(&doc)
}

func fromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &Node{Kind: KindNull}, nil
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.MappingNode:
		n := &Node{Kind: KindObject, Fields: make([]*Field, 0, len(y.Content)/2)}
		for i := 0; i+1 < len(y.Content); i += 2 {
			v, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			n.Fields = append(n.Fields, F(y.Content[i].Value, v))
		}
		return n, nil
	case yaml.SequenceNode:
		n := &Node{Kind: KindArray, Items: make([]*Node, 0, len(y.Content))}
		for _, c := range y.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, v)
		}
		return n, nil
	case yaml.ScalarNode:
		return scalar(y)
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", y.Line, y.Kind)
}

func scalar(y *yaml.Node) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return &Node{Kind: KindNull}, nil
	case "!!bool":
		v, err := strconv.ParseBool(strings.ToLower(y.Value))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad bool %q", y.Line, y.Value)
		}
		return Bool(v), nil
	case "!!int":
		v, err := strconv.ParseInt(y.Value, 0, 64)
		if err != nil {
			// Out of int64 range; keep the magnitude as a float.
			f, ferr := strconv.ParseFloat(y.Value, 64)
			if ferr != nil {
				return nil, fmt.Errorf("line %d: bad int %q", y.Line, y.Value)
			}
			return Float(f), nil
		}
		return Int(v), nil
	case "!!float":
		v, err := strconv.ParseFloat(y.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad float %q", y.Line, y.Value)
		}
		return Float(v), nil
	}
	return String(y.Value), nil
}

// MarshalJSON writes the tree back out with fields in the order they were parsed.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.Bool))
	case KindInt, KindFloat:
		if n.Num != "" {
			buf.WriteString(n.Num)
		} else if n.Kind == KindInt {
			buf.WriteString(strconv.FormatInt(n.Int, 10))
		} else {
			b, err := json.Marshal(n.Float)
			if err != nil {
				return err
			}
			buf.Write(b)
		}
	case KindString:
		b, err := json.Marshal(n.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, it := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Name)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %d", n.Kind)
	}
	return nil
}
