package param

import "strings"

// muteMarker is matched case-sensitively against field names, so both
// "mute" and "softMute" qualify but "Mute" does not.
const muteMarker = "mute"

// Handle points at the boolean leaf of a located mute control. It borrows
// the tree it was found in; writes go straight into that tree.
type Handle struct {
	field *Field
}

// Name is the name of the field holding the leaf.
func (h *Handle) Name() string { return h.field.Name }

func (h *Handle) Value() bool { return h.field.Value.Bool }

func (h *Handle) Set(v bool) { h.field.Value.Bool = v }

// Locate returns the first boolean leaf, in document order, whose enclosing
// field name contains "mute". It reports false when the tree carries no such
// control; that is a normal outcome for devices without one.
func Locate(root *Node) (*Handle, bool) {
	f := locate(nil, root)
	if f == nil {
		return nil, false
	}
	return &Handle{field: f}, true
}

func locate(parent *Field, n *Node) *Field {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindObject:
		for _, child := range n.Fields {
			if found := locate(child, child.Value); found != nil {
				return found
			}
		}
	case KindBool:
		if parent != nil && strings.Contains(parent.Name, muteMarker) {
			return parent
		}
	}
	return nil
}
