// Package config holds the snapkeeper settings: built-in defaults, an
// optional YAML file and validation.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"emperror.dev/errors"
	"gopkg.in/yaml.v3"

	"github.com/younsl/snapkeeper/pkg/aws"
	"github.com/younsl/snapkeeper/pkg/snapshot"
	"github.com/younsl/snapkeeper/pkg/utils"
)

// Config is the complete tool configuration
type Config struct {
	Region              string            `yaml:"region"`
	Owner               string            `yaml:"owner"`
	TagFilter           map[string]string `yaml:"tagFilter"`
	SnapshotDescription string            `yaml:"snapshotDescription"`
	Retention           Retention         `yaml:"retention"`
	Schedule            Schedule          `yaml:"schedule"`
	Restore             Restore           `yaml:"restore"`
}

// Retention configures the pruner
type Retention struct {
	Keep int `yaml:"keep"`
}

// Schedule configures the recurring creator loop
type Schedule struct {
	Interval time.Duration `yaml:"interval"`
}

// Restore configures the volume restorer
type Restore struct {
	InstanceID       string            `yaml:"instanceId"`
	AvailabilityZone string            `yaml:"availabilityZone"`
	Device           string            `yaml:"device"`
	Tags             map[string]string `yaml:"tags"`
	Timeout          time.Duration     `yaml:"timeout"`
	PollInterval     time.Duration     `yaml:"pollInterval"`
	PollFactor       float64           `yaml:"pollFactor"`
	PollSteps        int               `yaml:"pollSteps"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Region:              utils.GetDefaultRegion(),
		Owner:               snapshot.DefaultOwner,
		TagFilter:           map[string]string{"Name": "prod"},
		SnapshotDescription: aws.DefaultSnapshotDescription,
		Retention:           Retention{Keep: snapshot.DefaultKeep},
		Schedule:            Schedule{Interval: snapshot.DefaultInterval},
		Restore: Restore{
			Device:       snapshot.DefaultDevice,
			Timeout:      snapshot.DefaultRestoreTimeout,
			PollInterval: snapshot.DefaultPollInterval,
			PollFactor:   snapshot.DefaultPollFactor,
			PollSteps:    snapshot.DefaultPollSteps,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Maps in the document replace the
// default maps instead of being merged into them.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	defaultTags := cfg.TagFilter
	cfg.TagFilter = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.TagFilter == nil {
		cfg.TagFilter = defaultTags
	}
	return cfg, nil
}

// RestoreTags returns the tags for restored volumes, falling back to the tag
// filter so the new volume is picked up by later snapshot runs
func (c *Config) RestoreTags() map[string]string {
	if len(c.Restore.Tags) > 0 {
		return c.Restore.Tags
	}
	return c.TagFilter
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	if !utils.IsRegionCode(c.Region) {
		errs = append(errs, errors.Errorf("invalid region %q", c.Region))
	}
	if c.Owner == "" {
		errs = append(errs, errors.New("owner must not be empty"))
	}
	if len(c.TagFilter) == 0 {
		errs = append(errs, errors.New("tag filter must not be empty"))
	}
	if c.Retention.Keep < 1 {
		errs = append(errs, errors.Errorf("retention.keep must be at least 1, got %d", c.Retention.Keep))
	}
	if c.Schedule.Interval <= 0 {
		errs = append(errs, errors.Errorf("schedule.interval must be positive, got %s", c.Schedule.Interval))
	}
	if !strings.HasPrefix(c.Restore.Device, "/dev/") {
		errs = append(errs, errors.Errorf("restore.device must be a /dev path, got %q", c.Restore.Device))
	}
	if zone := c.Restore.AvailabilityZone; zone != "" && !utils.ZoneInRegion(zone, c.Region) {
		errs = append(errs, errors.Errorf("restore.availabilityZone %q is not in region %s", zone, c.Region))
	}
	if c.Restore.Timeout <= 0 {
		errs = append(errs, errors.Errorf("restore.timeout must be positive, got %s", c.Restore.Timeout))
	}
	if c.Restore.PollInterval <= 0 {
		errs = append(errs, errors.Errorf("restore.pollInterval must be positive, got %s", c.Restore.PollInterval))
	}
	if c.Restore.PollFactor < 1 {
		errs = append(errs, errors.Errorf("restore.pollFactor must be at least 1, got %g", c.Restore.PollFactor))
	}
	if c.Restore.PollSteps < 1 {
		errs = append(errs, errors.Errorf("restore.pollSteps must be at least 1, got %d", c.Restore.PollSteps))
	}
	return errors.Combine(errs...)
}
