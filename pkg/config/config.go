// Package config loads ciprep settings from defaults, an optional YAML file, CIPREP_*
// environment variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lucas-albers-lz4/ciprep/pkg/chart"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
	"github.com/lucas-albers-lz4/ciprep/pkg/patch"
	"github.com/lucas-albers-lz4/ciprep/pkg/values"
)

const (
	// EnvPrefix is prepended to every environment variable, e.g. CIPREP_REGISTRY_PREFIX.
	EnvPrefix = "CIPREP"
	// FileName is the config file looked up in the tree root and the home directory.
	FileName = ".ciprep.yaml"

	// DefaultRegistryPrefix is the pull-through proxy of the Aether project.
	DefaultRegistryPrefix = "registry.aetherproject.org/proxy/"
	// DefaultInventoryPath is the Ansible inventory of the tree.
	DefaultInventoryPath = "hosts.ini"
	// DefaultVarsPath is the variables file holding network and chart settings.
	DefaultVarsPath = "vars/main.yml"

	// PullerSDK fetches charts with the Helm SDK.
	PullerSDK = "sdk"
	// PullerCommand fetches charts by running the helm binary.
	PullerCommand = "command"
)

// Keys shared with flag bindings.
const (
	KeyRegistryPrefix   = "registry_prefix"
	KeyFlagKeys         = "flag_keys"
	KeySectionAliases   = "section_aliases"
	KeyInventoryPath    = "paths.inventory"
	KeyVarsPath         = "paths.vars"
	KeyValuesPath       = "paths.values"
	KeyPlaceholderIface = "vars_placeholders.interface"
	KeyPlaceholderAddr  = "vars_placeholders.address"
	KeyTimeouts         = "timeouts"
	KeyReadinessWait    = "readiness_wait"
	KeySSHKey           = "inventory.ssh_key"
	KeyUser             = "inventory.user"
	KeyPuller           = "puller"
)

var (
	// ErrInvalidConfig is returned when a loaded setting fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrConfigRead is returned when a config file exists but cannot be read or parsed.
	ErrConfigRead = errors.New("failed to read config file")
)

// Paths are the tree files ciprep edits, relative to the tree root.
type Paths struct {
	Inventory string `mapstructure:"inventory"`
	Vars      string `mapstructure:"vars"`
	// Values overrides core.values_file of the vars document when set.
	Values string `mapstructure:"values"`
}

// InventoryOptions override the detected inventory fields.
type InventoryOptions struct {
	User   string `mapstructure:"user"`
	SSHKey string `mapstructure:"ssh_key"`
}

// Config is the fully resolved configuration of one run.
type Config struct {
	RegistryPrefix   string             `mapstructure:"registry_prefix"`
	FlagKeys         []string           `mapstructure:"flag_keys"`
	SectionAliases   map[string]string  `mapstructure:"section_aliases"`
	Paths            Paths              `mapstructure:"paths"`
	VarsPlaceholders patch.Placeholders `mapstructure:"vars_placeholders"`
	Timeouts         []patch.Rule       `mapstructure:"timeouts"`
	ReadinessWait    []patch.LineFilter `mapstructure:"readiness_wait"`
	Inventory        InventoryOptions   `mapstructure:"inventory"`
	Puller           string             `mapstructure:"puller"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Options control where Load looks for a config file.
type Options struct {
	// File is an explicit config path; it must exist.
	File string
	// TreeRoot is searched for FileName when File is empty.
	TreeRoot string
	// Home is searched after TreeRoot. Empty means os.UserHomeDir.
	Home string
	// Flags are bound on top of file and environment values.
	Flags map[string]*pflag.Flag
}

// New returns a viper instance over fs with every default registered.
func New(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyRegistryPrefix, DefaultRegistryPrefix)
	v.SetDefault(KeyFlagKeys, values.DefaultFlagKeys)
	v.SetDefault(KeySectionAliases, chart.DefaultAliases)
	v.SetDefault(KeyInventoryPath, DefaultInventoryPath)
	v.SetDefault(KeyVarsPath, DefaultVarsPath)
	v.SetDefault(KeyValuesPath, "")
	v.SetDefault(KeyPlaceholderIface, patch.DefaultPlaceholders.Interface)
	v.SetDefault(KeyPlaceholderAddr, patch.DefaultPlaceholders.Address)
	v.SetDefault(KeyTimeouts, patch.DefaultRules())
	v.SetDefault(KeyReadinessWait, patch.DefaultLineFilters())
	v.SetDefault(KeySSHKey, "")
	v.SetDefault(KeyUser, "")
	v.SetDefault(KeyPuller, PullerSDK)
	return v
}

// Load resolves the configuration from v, reading a config file located per opts.
func Load(fs afero.Fs, v *viper.Viper, opts Options) (*Config, error) {
	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	file, err := locate(fs, opts)
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrConfigRead, file, err)
		}
		log.Debug("Loaded config file", "path", file)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.File = file
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// locate returns the config file to read. An explicit file must exist; the default locations
// are optional.
func locate(fs afero.Fs, opts Options) (string, error) {
	if opts.File != "" {
		exists, err := afero.Exists(fs, opts.File)
		if err != nil {
			return "", fmt.Errorf("%w %s: %w", ErrConfigRead, opts.File, err)
		}
		if !exists {
			return "", fmt.Errorf("%w %s: %w", ErrConfigRead, opts.File, os.ErrNotExist)
		}
		return opts.File, nil
	}

	home := opts.Home
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}
	var candidates []string
	if opts.TreeRoot != "" {
		candidates = append(candidates, filepath.Join(opts.TreeRoot, FileName))
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, FileName))
	}
	for _, candidate := range candidates {
		if exists, _ := afero.Exists(fs, candidate); exists {
			return candidate, nil
		}
	}
	return "", nil
}

// Validate checks settings that would otherwise fail late, after files were read.
func (c *Config) Validate() error {
	var problems []string
	if len(c.FlagKeys) == 0 {
		problems = append(problems, "flag_keys must not be empty")
	}
	if c.Paths.Inventory == "" || c.Paths.Vars == "" {
		problems = append(problems, "paths.inventory and paths.vars must be set")
	}
	if c.VarsPlaceholders.Interface == "" || c.VarsPlaceholders.Address == "" {
		problems = append(problems, "vars_placeholders.interface and vars_placeholders.address must be set")
	}
	switch c.Puller {
	case PullerSDK, PullerCommand:
	default:
		problems = append(problems, fmt.Sprintf("puller must be %q or %q, got %q", PullerSDK, PullerCommand, c.Puller))
	}
	for i, rule := range c.Timeouts {
		if rule.File == "" || rule.Pattern == "" {
			problems = append(problems, fmt.Sprintf("timeouts[%d] needs file and pattern", i))
			continue
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			problems = append(problems, fmt.Sprintf("timeouts[%d] pattern: %v", i, err))
		}
	}
	for i, filter := range c.ReadinessWait {
		if filter.File == "" || len(filter.Contains) == 0 {
			problems = append(problems, fmt.Sprintf("readiness_wait[%d] needs file and contains", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
