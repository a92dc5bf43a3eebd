package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"slices"
	"strconv"

	"github.com/itchyny/gojq"

	"ptt/param"
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, ee.Stderr)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

const deviceQuery = `.[]
	| select(.type == "PipeWire:Interface:Device")
	| {id: .id, props: (.info.props // {})}`

var defaultPipeWireParams = []string{"Route", "Props"}

type pipeWire struct {
	run    Runner
	params []string
	query  *gojq.Code
}

// NewPipeWire returns a backend driving PipeWire through pw-dump and pw-cli.
func NewPipeWire(opts Options) (Backend, error) {
	q, err := gojq.Parse(deviceQuery)
	if err != nil {
		return nil, fmt.Errorf("pipewire: device query: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("pipewire: device query: %w", err)
	}
	p := &pipeWire{run: opts.Runner, params: opts.PipeWireParams, query: code}
	if p.run == nil {
		p.run = execRunner
	}
	if len(p.params) == 0 {
		p.params = defaultPipeWireParams
	}
	if _, err := p.run(context.Background(), "pw-cli", "info", "0"); err != nil {
		return nil, fmt.Errorf("pipewire: core not reachable: %w", err)
	}
	return p, nil
}

func (p *pipeWire) Devices() ([]Device, error) {
	out, err := p.run(context.Background(), "pw-dump")
	if err != nil {
		return nil, fmt.Errorf("pipewire: %w", err)
	}
	var objects any
	if err := json.Unmarshal(out, &objects); err != nil {
		return nil, fmt.Errorf("pipewire: decode pw-dump: %w", err)
	}

	var devices []Device
	iter := p.query.Run(objects)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("pipewire: device query: %w", err)
		}
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		devices = append(devices, pipeWireDevice(obj))
	}
	return devices, nil
}

func pipeWireDevice(obj map[string]any) Device {
	d := Device{Props: map[string]string{}}
	switch id := obj["id"].(type) {
	case float64:
		d.ID = strconv.FormatInt(int64(id), 10)
	case int:
		d.ID = strconv.Itoa(id)
	}
	if props, ok := obj["props"].(map[string]any); ok {
		for k, v := range props {
			switch v := v.(type) {
			case string:
				d.Props[k] = v
			default:
				d.Props[k] = fmt.Sprint(v)
			}
		}
	}
	d.Description = d.Props["device.description"]
	if d.Description == "" {
		d.Description = d.Props["device.nick"]
	}
	d.Class = d.Props["media.class"]
	d.Capture = d.Class == "Audio/Device"
	return d
}

// Params reads the device's parameters in document order. Output routes are
// left out so a headset's speaker mute is never mistaken for the mic.
func (p *pipeWire) Params(dev Device) ([]Param, error) {
	out, err := p.run(context.Background(), "pw-dump", dev.ID)
	if err != nil {
		return nil, fmt.Errorf("pipewire: %w", err)
	}
	root, err := param.Parse(out)
	if err != nil {
		return nil, fmt.Errorf("pipewire: device %s: %w", dev.ID, err)
	}

	var obj *param.Node
	if root.Kind == param.KindArray {
		for _, it := range root.Items {
			if id := it.Get("id"); id != nil && strconv.FormatInt(id.Int, 10) == dev.ID {
				obj = it
				break
			}
		}
	}
	if obj == nil {
		return nil, fmt.Errorf("pipewire: device %s not found", dev.ID)
	}

	var params []Param
	for _, f := range obj.Get("info").Get("params").Children() {
		if !slices.Contains(p.params, f.Name) || f.Value.Kind != param.KindArray {
			continue
		}
		for _, it := range f.Value.Items {
			if dir := it.Get("direction"); dir != nil && dir.Str == "Output" {
				continue
			}
			params = append(params, Param{ID: f.Name, Tree: it})
		}
	}
	return params, nil
}

func (p *pipeWire) SetParam(dev Device, id string, tree *param.Node) error {
	body, err := tree.MarshalJSON()
	if err != nil {
		return fmt.Errorf("pipewire: encode %s: %w", id, err)
	}
	if _, err := p.run(context.Background(), "pw-cli", "set-param", dev.ID, id, string(body)); err != nil {
		return fmt.Errorf("pipewire: set %s on %s: %w", id, dev.ID, err)
	}
	return nil
}

// Sync is a no-op: every pw-cli invocation completes its own core roundtrip
// before it exits.
func (p *pipeWire) Sync() error { return nil }

func (p *pipeWire) Close() error { return nil }
