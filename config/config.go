package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	pagehandler "github.com/sjaconsulting/static-page-handler"
	"github.com/sjaconsulting/static-page-handler/database"
	handlerhttp "github.com/sjaconsulting/static-page-handler/http"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for the page handler.
type Config struct {
	Server    ServerConfig           `mapstructure:"server"`
	Auth      AuthConfig             `mapstructure:"auth"`
	Sites     []SiteConfig           `mapstructure:"sites" validate:"dive"`
	AllowList []string               `mapstructure:"allow_list"`
	Database  database.Config        `mapstructure:"database"`
	Storage   StorageConfig          `mapstructure:"storage"`
	CORS      handlerhttp.CORSConfig `mapstructure:"cors"`
	Log       LogConfig              `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// AuthConfig holds the shared-secret configuration for write and delete
// requests. The secret is supplied out-of-band (PAGEHOST_AUTH_SECRET);
// leaving it empty disables writes entirely.
type AuthConfig struct {
	Header string `mapstructure:"header" validate:"required"`
	Secret string `mapstructure:"secret"`
}

// SiteConfig declares the routes served for one hostname.
type SiteConfig struct {
	Hostname string        `mapstructure:"hostname" validate:"required,hostname_rfc1123"`
	Routes   []RouteConfig `mapstructure:"routes" validate:"required,dive"`
}

// RouteConfig maps one request path to one storage key.
type RouteConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	Key  string `mapstructure:"key" validate:"required"`
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// RouteTable converts the per-site route lists into the lookup table the
// request handler uses. It rejects invalid paths and keys, and duplicate
// (hostname, path) pairs, so each pair resolves to at most one key.
func (c *Config) RouteTable() (pagehandler.RouteTable, error) {
	table := make(pagehandler.RouteTable, len(c.Sites))

	for _, site := range c.Sites {
		if _, exists := table[site.Hostname]; exists {
			return nil, fmt.Errorf("route table: duplicate hostname: %s", site.Hostname)
		}

		paths := make(map[string]string, len(site.Routes))
		for _, route := range site.Routes {
			if !pagehandler.IsValidRoutePath(route.Path) {
				return nil, fmt.Errorf("route table: %s: invalid path: %q", site.Hostname, route.Path)
			}
			if !pagehandler.IsValidKey(route.Key) {
				return nil, fmt.Errorf("route table: %s%s: invalid storage key: %q", site.Hostname, route.Path, route.Key)
			}
			if _, exists := paths[route.Path]; exists {
				return nil, fmt.Errorf("route table: duplicate route: %s%s", site.Hostname, route.Path)
			}
			paths[route.Path] = route.Key
		}

		table[site.Hostname] = paths
	}

	return table, nil
}

// ReadAllowList converts the configured path list into an AllowList,
// rejecting invalid paths.
func (c *Config) ReadAllowList() (pagehandler.AllowList, error) {
	for _, p := range c.AllowList {
		if !pagehandler.IsValidRoutePath(p) {
			return nil, fmt.Errorf("allow list: invalid path: %q", p)
		}
	}
	return pagehandler.NewAllowList(c.AllowList), nil
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-path": "storage.path",
	"port":         "server.port",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8972)

	v.SetDefault("auth.header", handlerhttp.DefaultAuthHeader)
	v.SetDefault("auth.secret", "")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "pagehost.db")
	v.SetDefault("database.table", "page_objects")

	v.SetDefault("storage.path", "./data")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("PAGEHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
