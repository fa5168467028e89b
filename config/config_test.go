package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handlerhttp "github.com/sjaconsulting/static-page-handler/http"

	"github.com/sjaconsulting/static-page-handler/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)
	return path
}

const minimalConfig = `
sites:
  - hostname: example2.com
    routes:
      - path: /security.txt
        key: example2/security.txt
`

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 8972, cfg.Server.Port)
	assert.Equal(t, handlerhttp.DefaultAuthHeader, cfg.Auth.Header)
	assert.Empty(t, cfg.Auth.Secret)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "pagehost.db", cfg.Database.DSN)
	assert.Equal(t, "page_objects", cfg.Database.Table)
	assert.Equal(t, "./data", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
auth:
  header: X-Custom-Auth-Key
sites:
  - hostname: example2.com
    routes:
      - path: /security.txt
        key: example2/security.txt
      - path: /index.html
        key: example2/index.html
  - hostname: crafty.social
    routes:
      - path: /security/policy
        key: crafty/security-policy.txt
allow_list:
  - /security/policy
database:
  type: sqlite
  dsn: ":memory:"
  table: page_objects
storage:
  path: /var/lib/pagehost
log:
  level: debug
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "X-Custom-Auth-Key", cfg.Auth.Header)
	assert.Len(t, cfg.Sites, 2)
	assert.Equal(t, []string{"/security/policy"}, cfg.AllowList)
	assert.Equal(t, "/var/lib/pagehost", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	t.Setenv("PAGEHOST_SERVER_PORT", "7777")
	t.Setenv("PAGEHOST_AUTH_SECRET", "envsecret")

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "envsecret", cfg.Auth.Secret)
}

func TestLoad_InvalidPort(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
server:
  port: 99999
`)

	_, err := config.Load([]string{path}, nil)
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
log:
  level: verbose
`)

	_, err := config.Load([]string{path}, nil)
	assert.Error(t, err)
}

func TestLoad_InvalidHostname(t *testing.T) {
	path := writeConfigFile(t, `
sites:
  - hostname: "not a hostname"
    routes:
      - path: /a
        key: a/b
`)

	_, err := config.Load([]string{path}, nil)
	assert.Error(t, err)
}

func TestConfig_RouteTable(t *testing.T) {
	cfg := &config.Config{
		Sites: []config.SiteConfig{
			{
				Hostname: "example2.com",
				Routes: []config.RouteConfig{
					{Path: "/security.txt", Key: "example2/security.txt"},
					{Path: "/index.html", Key: "example2/index.html"},
				},
			},
			{
				Hostname: "crafty.social",
				Routes: []config.RouteConfig{
					{Path: "/security/policy", Key: "crafty/security-policy.txt"},
				},
			},
		},
	}

	table, err := cfg.RouteTable()
	require.NoError(t, err)

	key, ok := table.Resolve("example2.com", "/security.txt")
	assert.True(t, ok)
	assert.Equal(t, "example2/security.txt", key)

	_, ok = table.Resolve("evil.com", "/security.txt")
	assert.False(t, ok)
}

func TestConfig_RouteTable_DuplicateRoute(t *testing.T) {
	cfg := &config.Config{
		Sites: []config.SiteConfig{
			{
				Hostname: "example2.com",
				Routes: []config.RouteConfig{
					{Path: "/a", Key: "one"},
					{Path: "/a", Key: "two"},
				},
			},
		},
	}

	_, err := cfg.RouteTable()
	assert.ErrorContains(t, err, "duplicate route")
}

func TestConfig_RouteTable_DuplicateHostname(t *testing.T) {
	cfg := &config.Config{
		Sites: []config.SiteConfig{
			{Hostname: "example2.com", Routes: []config.RouteConfig{{Path: "/a", Key: "a"}}},
			{Hostname: "example2.com", Routes: []config.RouteConfig{{Path: "/b", Key: "b"}}},
		},
	}

	_, err := cfg.RouteTable()
	assert.ErrorContains(t, err, "duplicate hostname")
}

func TestConfig_RouteTable_InvalidPathOrKey(t *testing.T) {
	badPath := &config.Config{
		Sites: []config.SiteConfig{
			{Hostname: "example2.com", Routes: []config.RouteConfig{{Path: "no-slash", Key: "a/b"}}},
		},
	}
	_, err := badPath.RouteTable()
	assert.ErrorContains(t, err, "invalid path")

	badKey := &config.Config{
		Sites: []config.SiteConfig{
			{Hostname: "example2.com", Routes: []config.RouteConfig{{Path: "/a", Key: "/absolute"}}},
		},
	}
	_, err = badKey.RouteTable()
	assert.ErrorContains(t, err, "invalid storage key")
}

func TestConfig_ReadAllowList(t *testing.T) {
	cfg := &config.Config{AllowList: []string{"/security/policy", "/robots.txt"}}

	allow, err := cfg.ReadAllowList()
	require.NoError(t, err)

	assert.True(t, allow.Contains("/security/policy"))
	assert.False(t, allow.Contains("/security"))
}

func TestConfig_ReadAllowList_InvalidPath(t *testing.T) {
	cfg := &config.Config{AllowList: []string{"relative/path"}}

	_, err := cfg.ReadAllowList()
	assert.Error(t, err)
}

func TestContext_RoundTrip(t *testing.T) {
	cfg := &config.Config{}

	ctx := config.WithContext(t.Context(), cfg)

	got, err := config.FromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	_, err = config.FromContext(t.Context())
	assert.Error(t, err)
}
