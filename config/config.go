package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g.
// BOILER_REGISTRY_TOKEN.
const EnvPrefix = "BOILER"

// FileName is the configuration file name under the Boiler
// root.
const FileName = "boiler.conf.json"

// BackupSuffix names the backup written before a reset.
const BackupSuffix = ".bk"

// Config is the Boiler configuration.
type Config struct {
	Name          string            `json:"name" mapstructure:"name"`
	Version       string            `json:"version" mapstructure:"version"`
	Author        string            `json:"author" mapstructure:"author"`
	Description   string            `json:"description" mapstructure:"description"`
	DefaultEditor string            `json:"defaultEditor" mapstructure:"defaultEditor"`
	Prefix        string            `json:"prefix" mapstructure:"prefix"`
	Parallelism   int               `json:"parallelism" mapstructure:"parallelism"`
	Stamps        []string          `json:"stamps" mapstructure:"stamps"`
	Paths         Paths             `json:"paths" mapstructure:"paths"`
	Artifacts     map[string]string `json:"artifacts" mapstructure:"artifacts"`
	Aliases       map[string]string `json:"aliases" mapstructure:"aliases"`
	Registry      Registry          `json:"registry" mapstructure:"registry"`
	Install       Install           `json:"install" mapstructure:"install"`
}

// Paths locates Boiler's directories.
type Paths struct {
	Root     string `json:"root" mapstructure:"root"`
	Store    string `json:"store" mapstructure:"store"`
	Snippets string `json:"snippets" mapstructure:"snippets"`
	Stacks   string `json:"stacks" mapstructure:"stacks"`
	Logs     string `json:"logs" mapstructure:"logs"`
	Bin      string `json:"bin" mapstructure:"bin"`
}

// Registry selects the remote snippet registry used by
// bl pull and bl add --remote.
type Registry struct {
	// Provider is github, gitlab, bitbucket or git.
	Provider string `json:"provider" mapstructure:"provider"`
	Owner    string `json:"owner" mapstructure:"owner"`
	Repo     string `json:"repo" mapstructure:"repo"`
	// Host is the GitLab or Bitbucket server host.
	Host  string `json:"host" mapstructure:"host"`
	Token string `json:"token" mapstructure:"token"`
	Ref   string `json:"ref" mapstructure:"ref"`
	// Path is the store directory inside the repository.
	Path string `json:"path" mapstructure:"path"`
	// URL is the clone URL for the git provider.
	URL  string `json:"url" mapstructure:"url"`
	User string `json:"user" mapstructure:"user"`
}

// Install configures the install endpoints.
type Install struct {
	ScriptBaseURL string `json:"scriptBaseURL" mapstructure:"scriptBaseURL"`
	RepoURL       string `json:"repoURL" mapstructure:"repoURL"`
	Addr          string `json:"addr" mapstructure:"addr"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Name:          "Boiler",
		Version:       "1",
		Description:   "Reusable code snippets and stacks",
		DefaultEditor: "vim",
		Prefix:        "bl__",
		Parallelism:   1,
		Paths: Paths{
			Root:     "~/.boiler",
			Store:    "~/.boiler/store",
			Snippets: "~/.boiler/store/snippets",
			Stacks:   "~/.boiler/store/stacks",
			Logs:     "~/.boiler/logs",
			Bin:      "~/.boiler/bin",
		},
		Artifacts: map[string]string{
			"default":    "// ",
			"js":         "// ",
			"ts":         "// ",
			"go":         "// ",
			"py":         "# ",
			"rb":         "# ",
			"sh":         "# ",
			"bash":       "# ",
			"ps1":        "# ",
			"html":       "<!-- ",
			"htm":        "<!-- ",
			"xml":        "<!-- ",
			"md":         "<!-- ",
			"css":        "/* ",
			"sql":        "-- ",
			"yml":        "# ",
			"yaml":       "# ",
			"toml":       "# ",
			"env":        "# ",
			"dockerfile": "# ",
			"gitignore":  "# ",
			"ini":        "; ",
			"ahk":        "; ",
		},
		Aliases: map[string]string{},
		Registry: Registry{
			Provider: "github",
			Owner:    "rishiyaduwanshi",
			Repo:     "boiler",
			Ref:      "main",
			Path:     "store",
		},
		Install: Install{
			ScriptBaseURL: "https://raw.githubusercontent.com/rishiyaduwanshi/boiler/main/scripts",
			RepoURL:       "https://github.com/rishiyaduwanshi/boiler",
			Addr:          ":8080",
		},
	}
}

// DefaultPath is ~/.boiler/boiler.conf.json.
func DefaultPath() (string, error) {
	const errCtx = "locating config"

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return filepath.Join(home, ".boiler", FileName), nil
}

// Load reads the configuration at path, writing the defaults
// first if it does not exist. BOILER_* environment variables
// override file values.
func Load(path string) (*Config, error) {
	const errCtx = "loading config"

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, Default()); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg.Paths.Expand()

	for i, sf := range cfg.Stamps {
		cfg.Stamps[i] = ExpandPath(sf)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("name", d.Name)
	v.SetDefault("version", d.Version)
	v.SetDefault("author", d.Author)
	v.SetDefault("description", d.Description)
	v.SetDefault("defaultEditor", d.DefaultEditor)
	v.SetDefault("prefix", d.Prefix)
	v.SetDefault("parallelism", d.Parallelism)
	v.SetDefault("stamps", d.Stamps)
	v.SetDefault("paths.root", d.Paths.Root)
	v.SetDefault("paths.store", d.Paths.Store)
	v.SetDefault("paths.snippets", d.Paths.Snippets)
	v.SetDefault("paths.stacks", d.Paths.Stacks)
	v.SetDefault("paths.logs", d.Paths.Logs)
	v.SetDefault("paths.bin", d.Paths.Bin)
	v.SetDefault("artifacts", d.Artifacts)
	v.SetDefault("aliases", d.Aliases)
	v.SetDefault("registry.provider", d.Registry.Provider)
	v.SetDefault("registry.owner", d.Registry.Owner)
	v.SetDefault("registry.repo", d.Registry.Repo)
	v.SetDefault("registry.host", d.Registry.Host)
	v.SetDefault("registry.token", d.Registry.Token)
	v.SetDefault("registry.ref", d.Registry.Ref)
	v.SetDefault("registry.path", d.Registry.Path)
	v.SetDefault("registry.url", d.Registry.URL)
	v.SetDefault("registry.user", d.Registry.User)
	v.SetDefault("install.scriptBaseURL", d.Install.ScriptBaseURL)
	v.SetDefault("install.repoURL", d.Install.RepoURL)
	v.SetDefault("install.addr", d.Install.Addr)
}

// Save writes cfg as indented JSON.
func Save(path string, cfg *Config) error {
	const errCtx = "saving config"

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Backup copies the configuration at path to path.bk. A
// missing configuration is not an error.
func Backup(path string) error {
	const errCtx = "backing up config"

	data, err := os.ReadFile(path) //nolint:gosec // config path
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(path+BackupSuffix, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Reset backs up the current configuration and writes the
// defaults.
func Reset(path string) error {
	const errCtx = "resetting config"

	if err := Backup(path); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := Save(path, Default()); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Restore replaces the configuration with its backup.
func Restore(path string) error {
	const errCtx = "restoring config"

	data, err := os.ReadFile(path + BackupSuffix) //nolint:gosec // config path
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// ExpandPath expands a leading ~/ and $VARS.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}

// Expand expands every path in place.
func (p *Paths) Expand() {
	for _, pa := range []*string{
		&p.Root, &p.Store, &p.Snippets, &p.Stacks, &p.Logs, &p.Bin,
	} {
		*pa = ExpandPath(*pa)
	}
}

// InitDirs creates every configured directory.
func (c *Config) InitDirs() error {
	const errCtx = "creating boiler directories"

	for _, dir := range []string{
		c.Paths.Root,
		c.Paths.Store,
		c.Paths.Snippets,
		c.Paths.Stacks,
		c.Paths.Logs,
		c.Paths.Bin,
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return nil
}

// CommentPrefix returns the comment marker used for snippet
// headers of files with extension ext (with or without the
// dot). Unknown extensions use the "default" artifact.
func (c *Config) CommentPrefix(ext string) string {
	key := strings.ToLower(strings.TrimPrefix(ext, "."))

	if prefix, ok := c.Artifacts[key]; ok {
		return prefix
	}

	if prefix, ok := c.Artifacts["default"]; ok {
		return prefix
	}

	return "// "
}

// ResolveAlias maps an alias to its resource name.
func (c *Config) ResolveAlias(name string) string {
	if target, ok := c.Aliases[strings.ToLower(name)]; ok {
		return target
	}

	return name
}
