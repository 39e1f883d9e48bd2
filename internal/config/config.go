// Copyright 2025 The Weft Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads, validates and watches the weft server
// configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/shlex"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config is the root of the server configuration file.
type Config struct {
	Listen  Listen  `yaml:"listen"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
	Apps    []*App  `yaml:"apps" validate:"min=1,dive,required"`
}

// Listen configures the server's listeners. At least one of HTTP and
// HTTPS is in use; when both are empty, HTTP defaults to ":8080".
type Listen struct {
	HTTP  string `yaml:"http" validate:"omitempty,hostname_port"`
	HTTPS string `yaml:"https" validate:"omitempty,hostname_port"`
	Cert  string `yaml:"cert"`
	Key   string `yaml:"key"`
	H2C   bool   `yaml:"h2c"`
}

// Log configures the logrus backend.
type Log struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=trace debug info warning error"`
	Format     string `yaml:"format" validate:"omitempty,oneof=text json"`
	Dir        string `yaml:"dir"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"gte=0"`
}

// Metrics configures the Prometheus endpoint. When App is empty the
// endpoint is mounted on the default app.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
	App     string `yaml:"app"`
}

// An App is a named virtual host: a set of hostname patterns and the
// routes served under them.
type App struct {
	Name      string   `yaml:"name" validate:"required"`
	Hostnames []string `yaml:"hostnames" validate:"dive,required"`
	Default   bool     `yaml:"default"`
	Routes    []*Route `yaml:"routes" validate:"min=1,dive,required"`
}

// A Route maps a method and path pattern to a named handler. An empty
// Method matches every method. Headers holds response header
// directives of the form "add <name> <value>", "set <name> <value>"
// or "del <name>"; values with spaces can be quoted shell-style.
type Route struct {
	Method  string            `yaml:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	Pattern string            `yaml:"pattern" validate:"required,startswith=/"`
	Handler string            `yaml:"handler" validate:"required,oneof=static echo debug health"`
	Options map[string]string `yaml:"options"`
	Headers []string          `yaml:"headers"`

	headerRules []HeaderRule
}

// HeaderRules returns the parsed form of the route's header
// directives. It is populated during Load.
func (r *Route) HeaderRules() []HeaderRule { return r.headerRules }

// A HeaderOp says how a HeaderRule is applied to a response.
type HeaderOp uint8

const (
	HeaderAdd HeaderOp = iota // add
	HeaderSet                 // set
	HeaderDel                 // del
)

// A HeaderRule is one parsed response header directive.
type HeaderRule struct {
	Op    HeaderOp
	Name  string
	Value string
}

var structValidate = validator.New()

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data strictly: fields not known to the configuration
// schema are errors, as is anything the validation rules reject. All
// validation failures are reported together.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty configuration")
		}
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen.HTTP == "" && c.Listen.HTTPS == "" {
		c.Listen.HTTP = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	for _, app := range c.Apps {
		if app == nil {
			continue
		}
		for _, rt := range app.Routes {
			if rt == nil {
				continue
			}
			rt.Method = strings.ToUpper(rt.Method)
		}
	}
}

func (c *Config) validate() error {
	var errs *multierror.Error
	if err := structValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				field := strings.TrimPrefix(e.Namespace(), "Config.")
				errs = multierror.Append(errs, fmt.Errorf("%s: fails rule %q", field, e.Tag()))
			}
		} else {
			errs = multierror.Append(errs, err)
		}
	}

	if c.Listen.HTTPS != "" && (c.Listen.Cert == "" || c.Listen.Key == "") {
		errs = multierror.Append(errs, errors.New("listen: https requires cert and key"))
	}

	defaults := 0
	seenNames := make(map[string]bool)
	seenHosts := make(map[string]string)
	metricsApp := c.Metrics.App != ""
	for _, app := range c.Apps {
		if app == nil {
			continue
		}
		if seenNames[app.Name] {
			errs = multierror.Append(errs, fmt.Errorf("apps: duplicate name %q", app.Name))
		}
		seenNames[app.Name] = true
		if app.Default {
			defaults++
		}
		if app.Name == c.Metrics.App {
			metricsApp = false
		}
		for _, h := range app.Hostnames {
			k := strings.ToLower(h)
			if prev, ok := seenHosts[k]; ok {
				errs = multierror.Append(errs, fmt.Errorf("app %q: hostname %q already used by app %q", app.Name, h, prev))
			}
			seenHosts[k] = app.Name
		}
		seenRoutes := make(map[string]bool)
		for _, rt := range app.Routes {
			if rt == nil {
				continue
			}
			key := rt.Method + " " + rt.Pattern
			if seenRoutes[key] {
				errs = multierror.Append(errs, fmt.Errorf("app %q: duplicate route %q", app.Name, strings.TrimSpace(key)))
			}
			seenRoutes[key] = true
			if rt.Handler == "static" && rt.Options["dir"] == "" {
				errs = multierror.Append(errs, fmt.Errorf("app %q: route %q: static handler requires options.dir", app.Name, rt.Pattern))
			}
			rt.headerRules = rt.headerRules[:0]
			for _, d := range rt.Headers {
				rule, err := parseHeaderRule(d)
				if err != nil {
					errs = multierror.Append(errs, fmt.Errorf("app %q: route %q: %v", app.Name, rt.Pattern, err))
					continue
				}
				rt.headerRules = append(rt.headerRules, rule)
			}
		}
	}
	if defaults > 1 {
		errs = multierror.Append(errs, errors.New("apps: more than one default app"))
	}
	if metricsApp {
		errs = multierror.Append(errs, fmt.Errorf("metrics: no app named %q", c.Metrics.App))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}

	// The first app takes over when none is marked default.
	if defaults == 0 {
		c.Apps[0].Default = true
	}
	return nil
}

// DefaultApp returns the app marked default.
func (c *Config) DefaultApp() *App {
	for _, app := range c.Apps {
		if app.Default {
			return app
		}
	}
	return c.Apps[0]
}

func parseHeaderRule(directive string) (HeaderRule, error) {
	fields, err := shlex.Split(directive)
	if err != nil {
		return HeaderRule{}, fmt.Errorf("header directive %q: %v", directive, err)
	}
	if len(fields) == 0 {
		return HeaderRule{}, errors.New("empty header directive")
	}
	switch fields[0] {
	case "add", "set":
		if len(fields) != 3 {
			return HeaderRule{}, fmt.Errorf("header directive %q: want %q", directive, fields[0]+" <name> <value>")
		}
		op := HeaderAdd
		if fields[0] == "set" {
			op = HeaderSet
		}
		return HeaderRule{Op: op, Name: http.CanonicalHeaderKey(fields[1]), Value: fields[2]}, nil
	case "del":
		if len(fields) != 2 {
			return HeaderRule{}, fmt.Errorf("header directive %q: want %q", directive, "del <name>")
		}
		return HeaderRule{Op: HeaderDel, Name: http.CanonicalHeaderKey(fields[1])}, nil
	}
	return HeaderRule{}, fmt.Errorf("header directive %q: unknown op %q", directive, fields[0])
}
