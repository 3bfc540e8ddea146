package config

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
)

// Config carries the whole daemon configuration. It is constructed once
// at startup and never mutated afterwards.
type Config struct {
	Session    Session
	Region     Region
	Video      Video
	Monitoring Monitoring
	Verbose    bool
}

// Session describes the conference the encoded frames are published to.
type Session struct {
	// Cid is the numeric identifier of the session, valid in [1, 254].
	// The ids map onto the last octet of a multicast group, so 0 and
	// 255 are never a session.
	Cid uint32
	// Bus is the address of the session broker.
	Bus string `fig:"bus" default:"ws://localhost:12175"`
}

// Region names the shared memory area holding the raw frames.
type Region struct {
	Name string
}

// Video holds the fixed stream geometry and keyframe settings.
type Video struct {
	Width  int
	Height int
	// Gop is the group of pictures length, i.e. the distance between
	// two forced reference frames.
	Gop int `fig:"gop" default:"10"`
}

// Monitoring enables the optional metrics/pprof endpoint.
type Monitoring struct {
	Port             int
	URLPrefix        string `fig:"urlPrefix"`
	MetricEnabled    bool   `fig:"metric" default:"true"`
	ProfilingEnabled bool   `fig:"pprof"`
}

// NewConfig loads the configuration from an optional file and the
// environment. Flag values are applied on top, see WithFlags.
func NewConfig(path string) (*Config, error) {
	var conf Config
	if err := LoadConfig(&conf, path); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	return &conf, nil
}

// WithFlags binds the command line flags to the config values.
func (c *Config) WithFlags(fs *pflag.FlagSet) *Config {
	fs.Uint32Var(&c.Session.Cid, "cid", c.Session.Cid, "numeric identifier of the session to publish to")
	fs.StringVar(&c.Session.Bus, "bus", c.Session.Bus, "address of the session broker")
	fs.StringVar(&c.Region.Name, "name", c.Region.Name, "name of the shared memory area to attach")
	fs.IntVar(&c.Video.Width, "width", c.Video.Width, "width of the frame")
	fs.IntVar(&c.Video.Height, "height", c.Video.Height, "height of the frame")
	fs.IntVar(&c.Video.Gop, "gop", c.Video.Gop, "length of the group of pictures")
	fs.IntVar(&c.Monitoring.Port, "monitoring.port", c.Monitoring.Port, "monitoring server port, 0 disables it")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "print encoding information")
	return c
}

// Validate checks the required parameters. The frame dimensions must be
// even, the chroma planes of an I420 image are subsampled by two.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.Cid < 1 || c.Session.Cid > 254 {
		errs = append(errs, fmt.Errorf("session identifier must be in [1, 254] (--cid), got %d", c.Session.Cid))
	}
	if c.Region.Name == "" {
		errs = append(errs, errors.New("missing shared memory name (--name)"))
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		errs = append(errs, fmt.Errorf("frame dimensions must be positive, got %dx%d", c.Video.Width, c.Video.Height))
	} else if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		errs = append(errs, fmt.Errorf("frame dimensions must be even, got %dx%d", c.Video.Width, c.Video.Height))
	}
	if c.Video.Gop <= 0 {
		errs = append(errs, fmt.Errorf("gop must be positive, got %d", c.Video.Gop))
	}
	return errors.Join(errs...)
}
