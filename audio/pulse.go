package audio

import (
	"fmt"
	"strconv"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"ptt/param"
)

// sourceParams is the id of the synthetic parameter set exposed per source.
const sourceParams = "Props"

type pulseBackend struct {
	client *pulse.Client
}

// NewPulse returns a backend speaking the PulseAudio native protocol. It also
// works against pipewire-pulse.
func NewPulse() (Backend, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("ptt"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseBackend{client: c}, nil
}

func (p *pulseBackend) sources() (proto.GetSourceInfoListReply, error) {
	var reply proto.GetSourceInfoListReply
	if err := p.client.RawRequest(&proto.GetSourceInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	return reply, nil
}

func (p *pulseBackend) Devices() ([]Device, error) {
	sources, err := p.sources()
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, s := range sources {
		props := make(map[string]string, len(s.Properties))
		for k, v := range s.Properties {
			props[k] = v.String()
		}
		class := props["device.class"]
		devices = append(devices, Device{
			ID:          strconv.FormatUint(uint64(s.SourceIndex), 10),
			Description: s.Device,
			Class:       class,
			Capture:     class != "monitor",
			Props:       props,
		})
	}
	return devices, nil
}

func (p *pulseBackend) Params(dev Device) ([]Param, error) {
	sources, err := p.sources()
	if err != nil {
		return nil, err
	}
	for _, s := range sources {
		if strconv.FormatUint(uint64(s.SourceIndex), 10) != dev.ID {
			continue
		}
		tree := param.Object(
			param.F("index", param.Int(int64(s.SourceIndex))),
			param.F("name", param.String(s.SourceName)),
			param.F("description", param.String(s.Device)),
			param.F("mute", param.Bool(s.Mute)),
		)
		return []Param{{ID: sourceParams, Tree: tree}}, nil
	}
	return nil, fmt.Errorf("pulse: source %s not found", dev.ID)
}

func (p *pulseBackend) SetParam(dev Device, id string, tree *param.Node) error {
	if id != sourceParams {
		return fmt.Errorf("pulse: unknown param %q", id)
	}
	h, ok := param.Locate(tree)
	if !ok {
		return fmt.Errorf("pulse: param %q has no mute control", id)
	}
	idx, err := strconv.ParseUint(dev.ID, 10, 32)
	if err != nil {
		return fmt.Errorf("pulse: bad source index %q: %w", dev.ID, err)
	}
	req := &proto.SetSourceMute{SourceIndex: uint32(idx), Mute: h.Value()}
	if err := p.client.RawRequest(req, nil); err != nil {
		return fmt.Errorf("pulse: set mute on %s: %w", dev.ID, err)
	}
	return nil
}

// Sync waits for a server roundtrip so earlier requests have been applied.
func (p *pulseBackend) Sync() error {
	var info proto.GetServerInfoReply
	if err := p.client.RawRequest(&proto.GetServerInfo{}, &info); err != nil {
		return fmt.Errorf("pulse sync: %w", err)
	}
	return nil
}

func (p *pulseBackend) Close() error {
	p.client.Close()
	return nil
}
