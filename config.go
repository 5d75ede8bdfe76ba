package montage

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/mfay/montage/media"
)

// Config is the engine configuration, loaded from HCL.
type Config struct {
	Concurrency      int  `hcl:"concurrency,optional"`
	TrackLiveChanges bool `hcl:"track_live_changes,optional"`

	Video   *VideoConfigBlock   `hcl:"video,block"`
	Audio   *AudioConfigBlock   `hcl:"audio,block"`
	Color   *ColorConfigBlock   `hcl:"color,block"`
	Caches  []*CacheConfigBlock `hcl:"cache,block"`
	Preview *PreviewConfigBlock `hcl:"preview,block"`
}

type VideoConfigBlock struct {
	Width    int    `hcl:"width"`
	Height   int    `hcl:"height"`
	Timebase string `hcl:"timebase"`
	Divider  int    `hcl:"divider,optional"`
}

type AudioConfigBlock struct {
	SampleRate int `hcl:"sample_rate"`
	Channels   int `hcl:"channels"`
}

type ColorConfigBlock struct {
	WorkingSpace string `hcl:"working_space,optional"`
	DisplaySpace string `hcl:"display_space,optional"`
}

type CacheConfigBlock struct {
	Kind string `hcl:"kind,label"`
	Path string `hcl:"path,optional"`
	Addr string `hcl:"addr,optional"`
}

type PreviewConfigBlock struct {
	Width int `hcl:"width,optional"`
}

func newHCLEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{},
	}
}

func LoadConfig(path string) (*Config, error) {
	var cfg Config
	evalCtx := newHCLEvalContext()
	err := hclsimple.DecodeFile(path, evalCtx, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// VideoParams converts the video block into render parameters.
func (c *Config) VideoParams() (media.VideoParams, error) {
	if c.Video == nil {
		return media.VideoParams{}, fmt.Errorf("montage: config has no video block")
	}
	tb, err := media.ParseRational(c.Video.Timebase)
	if err != nil {
		return media.VideoParams{}, fmt.Errorf("montage: video timebase: %w", err)
	}
	return media.VideoParams{
		Width:    c.Video.Width,
		Height:   c.Video.Height,
		Timebase: tb,
		Divider:  c.Video.Divider,
	}, nil
}

// AudioParams converts the audio block into render parameters.
func (c *Config) AudioParams() (media.AudioParams, error) {
	if c.Audio == nil {
		return media.AudioParams{}, fmt.Errorf("montage: config has no audio block")
	}
	return media.AudioParams{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
	}, nil
}
