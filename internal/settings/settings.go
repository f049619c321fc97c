// Package settings resolves the tool's own options from defaults, an
// optional .ftson.toml project file, FTSON_* environment variables and
// command line flags, in increasing order of precedence.
package settings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix   = "FTSON"
	ProjectFile = ".ftson.toml"
)

// Settings are the options of a generation run.
type Settings struct {
	// Project is the module directory packages are loaded from.
	Project string `mapstructure:"project"`
	// Config is the declaration file.
	Config string `mapstructure:"config"`
	// Var is the variable read from Go declaration files.
	Var string `mapstructure:"var"`
	// Package overrides the package clause of generated files.
	Package      string      `mapstructure:"package"`
	SkipRejected bool        `mapstructure:"skip_rejected"`
	Log          LogSettings `mapstructure:"log"`
}

type LogSettings struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// flagKeys maps command line flags to settings keys.
var flagKeys = map[string]string{
	"project":       "project",
	"config":        "config",
	"var":           "var",
	"package":       "package",
	"skip-rejected": "skip_rejected",
	"log-json":      "log.json",
	"log-level":     "log.level",
}

// pathKeys are resolved against the project file's directory when they come
// from it.
var pathKeys = []string{"project", "config"}

// SetDefaults configures the default value of every setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project", ".")
	v.SetDefault("config", "ftson.go")
	v.SetDefault("var", "Stringify")
	v.SetDefault("package", "")
	v.SetDefault("skip_rejected", false)
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// Load resolves settings, searching for the project file upwards from dir.
// Flags that exist in flags are bound over every other source.
func Load(dir string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	projectFile := FindProjectFile(dir)
	if projectFile != "" {
		v.SetConfigFile(projectFile)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", projectFile)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "failed to bind flag --%s", name)
				}
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal settings")
	}

	if projectFile != "" {
		base := filepath.Dir(projectFile)
		for _, key := range pathKeys {
			if !v.InConfig(key) || setOutsideFile(key, flags) {
				continue
			}
			switch key {
			case "project":
				s.Project = relativeTo(base, s.Project)
			case "config":
				s.Config = relativeTo(base, s.Config)
			}
		}
	}
	return &s, nil
}

// FindProjectFile walks up from dir looking for the project file. It
// returns "" when there is none.
func FindProjectFile(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for d := abs; ; d = filepath.Dir(d) {
		p := filepath.Join(d, ProjectFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		if filepath.Dir(d) == d {
			return ""
		}
	}
}

func setOutsideFile(key string, flags *pflag.FlagSet) bool {
	if _, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(key)); ok {
		return true
	}
	if flags == nil {
		return false
	}
	f := flags.Lookup(key)
	return f != nil && f.Changed
}

func relativeTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
