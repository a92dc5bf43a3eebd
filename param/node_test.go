package param

import (
	"testing"
)

const routeJSON = `{
  "index": 1,
  "direction": "Input",
  "device": 9,
  "props": {
    "mute": true,
    "channelVolumes": [ 0.4, 0.4 ],
    "volumeBase": 1.000000,
    "softMute": false,
    "latencyOffsetNsec": 0
  },
  "save": false,
  "name": null
}`

func TestParseKeepsOrder(t *testing.T) {
	tree, err := Parse([]byte(routeJSON))
	if err != nil {
		t.Fatal(err)
	}
	if tree.Kind != KindObject {
		t.Fatalf("root kind = %v, want object", tree.Kind)
	}

	var names []string
	for _, f := range tree.Fields {
		names = append(names, f.Name)
	}
	want := []string{"index", "direction", "device", "props", "save", "name"}
	if len(names) != len(want) {
		t.Fatalf("fields = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("fields = %v, want %v", names, want)
		}
	}

	props := tree.Get("props")
	if got := props.Get("mute"); got == nil || got.Kind != KindBool || !got.Bool {
		t.Errorf("props.mute = %+v, want bool true", got)
	}
	if got := props.Get("channelVolumes"); got == nil || got.Kind != KindArray || len(got.Items) != 2 {
		t.Errorf("props.channelVolumes = %+v, want 2-item array", got)
	}
	if got := tree.Get("index"); got.Kind != KindInt || got.Int != 1 {
		t.Errorf("index = %+v, want int 1", got)
	}
	if got := tree.Get("direction"); got.Kind != KindString || got.Str != "Input" {
		t.Errorf("direction = %+v, want string Input", got)
	}
	if got := tree.Get("name"); got.Kind != KindNull {
		t.Errorf("name kind = %v, want null", got.Kind)
	}
}

func TestMarshalAfterMuteWrite(t *testing.T) {
	tree, err := Parse([]byte(routeJSON))
	if err != nil {
		t.Fatal(err)
	}
	h, ok := Locate(tree)
	if !ok {
		t.Fatal("mute control not found")
	}
	h.Set(false)

	out, err := tree.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"index":1,"direction":"Input","device":9,"props":{"mute":false,"channelVolumes":[0.4,0.4],"volumeBase":1.000000,"softMute":false,"latencyOffsetNsec":0},"save":false,"name":null}`
	if string(out) != want {
		t.Errorf("got  %s\nwant %s", out, want)
	}
}

func TestParseQuotedScalarsStayStrings(t *testing.T) {
	tree, err := Parse([]byte(`{"a": "true", "b": "12"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := tree.Get("a"); got.Kind != KindString {
		t.Errorf("a kind = %v, want string", got.Kind)
	}
	if got := tree.Get("b"); got.Kind != KindString {
		t.Errorf("b kind = %v, want string", got.Kind)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{`{"a": [1, 2`, `{"a": 1}}`, `{"a" 1}`, `[1] [2]`} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%s) accepted", in)
		}
	}
}

func TestParseEscapes(t *testing.T) {
	tree, err := Parse([]byte(`{"a":"x\/y","b":"\u00fc\n"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := tree.Get("a").Str; got != "x/y" {
		t.Errorf("a = %q, want x/y", got)
	}
	if got := tree.Get("b").Str; got != "ü\n" {
		t.Errorf("b = %q", got)
	}
}

func TestNumbersSurviveRoundTrip(t *testing.T) {
	in := `{"big":12345678901234567890,"neg":-9223372036854775808,"exp":1e-7,"pi":3.14159265358979323846,"zero":0}`
	tree, err := Parse([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if got := tree.Get("neg"); got.Kind != KindInt || got.Int != -9223372036854775808 {
		t.Errorf("neg = %+v", got)
	}
	if got := tree.Get("big"); got.Kind != KindFloat {
		t.Errorf("big kind = %v, want float", got.Kind)
	}
	out, err := tree.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != in {
		t.Errorf("got  %s\nwant %s", out, in)
	}
}

func TestParseEmpty(t *testing.T) {
	tree, err := Parse([]byte("  \n"))
	if err != nil || tree.Kind != KindNull {
		t.Errorf("Parse(blank) = %+v, %v", tree, err)
	}
}

func TestParseYAMLFixture(t *testing.T) {
	tree, err := ParseYAML([]byte(`
index: 0
props:
  volume: 0.5
  mute: true
`))
	if err != nil {
		t.Fatal(err)
	}
	h, ok := Locate(tree)
	if !ok || !h.Value() {
		t.Fatalf("mute not located in YAML tree (ok=%v)", ok)
	}
	out, err := tree.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"index":0,"props":{"volume":0.5,"mute":true}}`; string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}
