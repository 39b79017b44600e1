package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/example/analysis-worker/internal/plugin"
)

// PluginConfigLoader resolves plugin configuration sources to files in Dir.
// A source "dropped" is read from dropped.yml, dropped.yaml, dropped.json or
// dropped.toml; a source without a file yields only its environment values.
type PluginConfigLoader struct {
	Dir string
	// EnvPrefix, when set, lets PREFIX_<SOURCE>_<KEY> variables set or
	// override values. Keys taken from the environment are lowercased.
	EnvPrefix string
}

// Load implements plugin.ConfigLoader.
func (l PluginConfigLoader) Load(source string) (plugin.Options, error) {
	source = strings.TrimSpace(source)
	if source == "" || strings.ContainsAny(source, `/\`) {
		return nil, errors.Newf("invalid configuration source %q", source)
	}

	v := viper.New()
	v.SetConfigName(source)
	v.AddConfigPath(l.Dir)
	if l.EnvPrefix != "" {
		replacer := strings.NewReplacer(".", "_", "-", "_")
		v.SetEnvPrefix(l.EnvPrefix + "_" + source)
		v.SetEnvKeyReplacer(replacer)
		v.AutomaticEnv()
		if err := bindPrefixedEnv(v, strings.ToUpper(replacer.Replace(l.EnvPrefix+"_"+source+"_"))); err != nil {
			return nil, errors.Wrapf(err, "bind environment for %q", source)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrapf(err, "read configuration %q", source)
		}
	}

	opts := plugin.Options(v.AllSettings())
	if opts == nil {
		opts = plugin.Options{}
	}
	return opts, nil
}

// bindPrefixedEnv binds every variable starting with prefix so it shows up
// in AllSettings even when no file declares the key.
func bindPrefixedEnv(v *viper.Viper, prefix string) error {
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
			continue
		}
		if err := v.BindEnv(strings.ToLower(strings.TrimPrefix(name, prefix))); err != nil {
			return err
		}
	}
	return nil
}
