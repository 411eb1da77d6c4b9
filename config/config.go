// ABOUTME: Loads flowlint configuration (subrules and external plugins) from YAML or JSON files.
// ABOUTME: Discovers .flowlintrc files, falls back to defaults, and validates plugin entries with validator/v10.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/flowlint/lint"
)

// FileNames are the project-local config files Discover looks for, in order.
var FileNames = []string{".flowlintrc.yaml", ".flowlintrc.yml", ".flowlintrc.json"}

// UserFileName is the config file looked up in the user config directory.
const UserFileName = "config.yaml"

// Plugin describes one external checker registered under Name.
type Plugin struct {
	Name      string            `yaml:"name" validate:"required"`
	Command   string            `yaml:"command" validate:"required"`
	Args      []string          `yaml:"args"`
	Timeout   time.Duration     `yaml:"-" validate:"gte=0"`
	NodeTypes []string          `yaml:"nodeTypes" validate:"dive,required"`
	Env       map[string]string `yaml:"env"`
}

// File is a decoded configuration file.
type File struct {
	Lint    lint.Config
	Plugins []Plugin `validate:"dive"`
	// Path is the file the configuration was read from; empty for defaults.
	Path string
}

type rawPlugin struct {
	Name      string            `yaml:"name"`
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Timeout   string            `yaml:"timeout"`
	NodeTypes []string          `yaml:"nodeTypes"`
	Env       map[string]string `yaml:"env"`
}

type rawFile struct {
	Subrules *[]map[string]any `yaml:"subrules"`
	Plugins  []rawPlugin       `yaml:"plugins"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name[:1]) + fld.Name[1:]
		}
		return name
	})
	return v
}

// Default returns the configuration used when no file is found: every built-in rule
// and no plugins.
func Default() *File {
	return &File{Lint: lint.DefaultConfig()}
}

// Parse decodes configuration data. JSON is accepted since YAML is a superset of it.
// An absent subrules key selects the default rules; an empty list runs none.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	f := &File{Lint: lint.DefaultConfig()}
	if raw.Subrules != nil {
		f.Lint = lint.Config{Subrules: make([]lint.Subrule, 0, len(*raw.Subrules))}
		for i, rec := range *raw.Subrules {
			sub, err := lint.NewSubrule(rec)
			if err != nil {
				return nil, fmt.Errorf("parse config: subrules[%d]: %w", i, err)
			}
			f.Lint.Subrules = append(f.Lint.Subrules, sub)
		}
	}

	for i, rp := range raw.Plugins {
		p := Plugin{
			Name:      rp.Name,
			Command:   rp.Command,
			Args:      rp.Args,
			NodeTypes: rp.NodeTypes,
			Env:       rp.Env,
		}
		if rp.Timeout != "" {
			d, err := time.ParseDuration(rp.Timeout)
			if err != nil {
				return nil, fmt.Errorf("parse config: plugins[%d]: invalid timeout %q: %w", i, rp.Timeout, err)
			}
			p.Timeout = d
		}
		f.Plugins = append(f.Plugins, p)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks plugin entries.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Load reads and parses the config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Discover returns the first config file found in dir, then in userDir. It returns
// an empty path when neither has one.
func Discover(dir, userDir string) (string, error) {
	candidates := make([]string, 0, len(FileNames)+1)
	for _, name := range FileNames {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	if userDir != "" {
		candidates = append(candidates, filepath.Join(userDir, UserFileName))
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	return "", nil
}

// LoadOrDiscover loads path when set; otherwise it discovers a config file and falls
// back to Default when none exists.
func LoadOrDiscover(path, dir, userDir string) (*File, error) {
	if path != "" {
		return Load(path)
	}
	found, err := Discover(dir, userDir)
	if err != nil {
		return nil, err
	}
	if found == "" {
		return Default(), nil
	}
	return Load(found)
}

// formatValidationError flattens validator field errors into one readable error.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
