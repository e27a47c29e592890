package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/Alia5/CONDUIT/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a configuration file for a specific command.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"server,tap,events,replay,probe"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

// templateRoots maps config subcommand names to the flag struct whose kong
// tags drive template generation.
var templateRoots = map[string]reflect.Type{
	"server": reflect.TypeOf(Server{}),
	"tap":    reflect.TypeOf(Tap{}),
	"events": reflect.TypeOf(Events{}),
	"replay": reflect.TypeOf(Replay{}),
	"probe":  reflect.TypeOf(Probe{}),
}

var templateEncoders = map[string]func(any) ([]byte, error){
	"json": func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
	"yaml": yaml.Marshal,
	"toml": toml.Marshal,
}

// Run writes a config template derived from the command's flag struct. Every
// flag becomes a key with its declared default, so the generated file loads
// back as a no-op until edited.
func (c *ConfigInit) Run() error {
	format := strings.ToLower(c.Format)
	if format == "yml" {
		format = "yaml"
	}
	encode, ok := templateEncoders[format]
	if !ok {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	root, ok := templateRoots[c.Command]
	if !ok {
		return errors.New("unknown command; expected one of server, tap, events, replay, probe")
	}

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	data, err := encode(configTemplate(root))
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// configTemplate walks a flag struct and produces the key/default map kong's
// configuration loaders would resolve. Embedded structs with a prefix become
// nested sections; positional args and kong:"-" fields are not configuration.
func configTemplate(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		switch {
		case !f.IsExported():
			continue
		case f.Tag.Get("kong") == "-":
			continue
		case hasTag(f, "arg"):
			continue
		case hasTag(f, "embed"):
			section := strings.TrimSuffix(f.Tag.Get("prefix"), "-")
			section = strings.TrimSuffix(section, ".")
			sub := configTemplate(f.Type)
			if section == "" {
				for k, v := range sub {
					out[k] = v
				}
			} else {
				out[section] = sub
			}
			continue
		}

		if v := templateValue(f.Type, f.Tag.Get("default")); v != nil {
			out[camelKey(f.Name)] = v
		}
	}
	return out
}

func hasTag(f reflect.StructField, name string) bool {
	_, ok := f.Tag.Lookup(name)
	return ok
}

// camelKey lowercases the leading character, matching kong's config key
// resolution for field names.
func camelKey(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// templateValue renders a field's default in the type the config loader
// expects. Durations stay strings so the template shows their unit syntax.
func templateValue(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def == "" {
			return "0s"
		}
		return def
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, 64)
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 10, 64)
		return n
	case reflect.Float32, reflect.Float64:
		f, _ := strconv.ParseFloat(def, 64)
		return f
	case reflect.Struct:
		return configTemplate(t)
	default:
		return nil
	}
}
