package param

import (
	"testing"

	"github.com/matryer/is"
)

// nest wraps leaf in depth levels of single-field objects.
func nest(depth int, leaf *Node) *Node {
	n := leaf
	for i := 0; i < depth; i++ {
		n = Object(F("level", n))
	}
	return n
}

func TestLocateAtDepth(t *testing.T) {
	for _, depth := range []int{0, 1, 5} {
		is := is.New(t)
		tree := nest(depth, Object(
			F("volume", Float(0.5)),
			F("mute", Bool(true)),
		))

		h, ok := Locate(tree)
		is.True(ok)                // mute leaf found
		is.Equal(h.Name(), "mute") // handle wraps the mute field
		is.True(h.Value())         // leaf value read through handle
	}
}

func TestLocateNotFound(t *testing.T) {
	trees := map[string]*Node{
		"nil":           nil,
		"bare bool":     Bool(true),
		"no mute field": Object(F("volume", Float(1)), F("enabled", Bool(true))),
		"mute not bool": Object(F("mute", Int(1)), F("muteLevel", String("x"))),
		"case differs":  Object(F("Mute", Bool(true))),
		"inside array":  Object(F("list", Array(Object(F("mute", Bool(true)))))),
		"empty object":  Object(),
	}
	for name, tree := range trees {
		t.Run(name, func(t *testing.T) {
			if h, ok := Locate(tree); ok {
				t.Fatalf("expected not found, got handle %q", h.Name())
			}
		})
	}
}

func TestLocateFirstMatchWins(t *testing.T) {
	is := is.New(t)
	tree := Object(
		F("props", Object(
			F("softMute", Bool(false)),
			F("volume", Float(1)),
		)),
		F("mute", Bool(true)),
	)

	h, ok := Locate(tree)
	is.True(ok)
	is.Equal(h.Name(), "softMute") // document order decides
	is.Equal(h.Value(), false)
}

func TestLocateSkipsNonBoolMuteField(t *testing.T) {
	is := is.New(t)
	tree := Object(
		F("muteInfo", Object(F("count", Int(2)))),
		F("props", Object(F("mute", Bool(false)))),
	)

	h, ok := Locate(tree)
	is.True(ok)
	is.Equal(h.Name(), "mute")
}

func TestHandleSetWritesIntoTree(t *testing.T) {
	is := is.New(t)
	tree := Object(F("props", Object(F("mute", Bool(true)))))

	h, ok := Locate(tree)
	is.True(ok)
	h.Set(false)

	is.Equal(tree.Get("props").Get("mute").Bool, false) // write visible in borrowed tree

	again, ok := Locate(tree)
	is.True(ok)
	is.Equal(again.Value(), false)
}
