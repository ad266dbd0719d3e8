package converter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Config struct {
	SkinWidth   int     `yaml:"skin_width"`
	SkinHeight  int     `yaml:"skin_height"`
	Texture     string  `yaml:"texture"`
	Strict      bool    `yaml:"strict"`
	MaxFrames   int     `yaml:"max_frames"`
	Workers     int     `yaml:"workers"`
	JointOffset float32 `yaml:"joint_offset"`
	Scale       float32 `yaml:"scale"`

	// Animations maps frame name prefixes to .anm paths. Order is kept.
	Animations yaml.MapSlice `yaml:"animations"`

	dir string
}

// AnimationSource is a named animation file.
type AnimationSource struct {
	Name string
	Path string
}

func DefaultConfig() *Config {
	return &Config{JointOffset: 0.3, Scale: 1}
}

// LoadConfig reads a YAML config. Unset keys keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	conf := DefaultConfig()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	conf.dir = filepath.Dir(path)
	return conf, nil
}

// AnimationSources returns the configured animations in file order. Relative
// paths are resolved against the directory of the config file.
func (c *Config) AnimationSources() ([]AnimationSource, error) {
	var srcs []AnimationSource
	for _, item := range c.Animations {
		name := fmt.Sprint(item.Key)
		path, ok := item.Value.(string)
		if !ok {
			return nil, errors.Errorf("animation %q: path must be a string, got %T", name, item.Value)
		}
		if c.dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(c.dir, path)
		}
		srcs = append(srcs, AnimationSource{Name: name, Path: path})
	}
	return srcs, nil
}

// AddAnimation appends an animation after the configured ones. path is
// relative to the working directory.
func (c *Config) AddAnimation(name, path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	c.Animations = append(c.Animations, yaml.MapItem{Key: name, Value: path})
}
