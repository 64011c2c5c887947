package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from an optional YAML file and
// environment variables; environment wins. The BITBUCKET_* credential
// variables are bound explicitly so they keep their conventional names
// regardless of the generic prefix.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "bitbucket-mcp"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "BBMCP"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	bindCredentialEnv(v)
	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// bindCredentialEnv maps the identity fields to their conventional
// environment variable names.
func bindCredentialEnv(v *viper.Viper) {
	_ = v.BindEnv("bitbucket.username", "BITBUCKET_USERNAME")
	_ = v.BindEnv("bitbucket.appPassword", "BITBUCKET_APP_PASSWORD")
	_ = v.BindEnv("bitbucket.workspace", "BITBUCKET_WORKSPACE")
	_ = v.BindEnv("bitbucket.repoSlug", "BITBUCKET_REPO_SLUG")
	_ = v.BindEnv("bitbucket.baseURL", "BITBUCKET_BASE_URL")
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.operationTimeout", "120s")
	v.SetDefault("http.maxConcurrentFetches", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "human")
}
