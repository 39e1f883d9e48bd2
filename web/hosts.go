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

package web

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// A hostTable routes a request's Host to an app. Patterns come in
// three classes: exact ("example.com"), suffix ("*.example.com") and
// prefix ("api.*"). Exact wins over suffix, suffix over prefix, and
// within a class the longest pattern wins. Hosts that match nothing
// go to the default app.
type hostTable struct {
	exact    map[string]*app
	suffix   []hostPattern
	prefix   []hostPattern
	fallback *app
}

type hostPattern struct {
	text string // includes the joining dot: ".example.com" or "api."
	app  *app
}

func newHostTable(apps []*app) (*hostTable, error) {
	t := &hostTable{exact: make(map[string]*app)}
	claimed := make(map[string]string) // normalized pattern -> app name
	for _, a := range apps {
		if a.isDefault {
			t.fallback = a
		}
		for _, pat := range a.hostnames {
			norm, err := normalizePattern(pat)
			if err != nil {
				return nil, fmt.Errorf("app %q: %v", a.name, err)
			}
			if prev, ok := claimed[norm]; ok {
				return nil, fmt.Errorf("app %q: hostname %q already claimed by app %q", a.name, pat, prev)
			}
			claimed[norm] = a.name
			switch {
			case strings.HasPrefix(norm, "*."):
				t.suffix = append(t.suffix, hostPattern{norm[1:], a})
			case strings.HasSuffix(norm, ".*"):
				t.prefix = append(t.prefix, hostPattern{norm[:len(norm)-1], a})
			default:
				t.exact[norm] = a
			}
		}
	}
	sort.SliceStable(t.suffix, func(i, j int) bool { return len(t.suffix[i].text) > len(t.suffix[j].text) })
	sort.SliceStable(t.prefix, func(i, j int) bool { return len(t.prefix[i].text) > len(t.prefix[j].text) })
	return t, nil
}

func (t *hostTable) find(host string) *app {
	h := normalizeHost(host)
	if a, ok := t.exact[h]; ok {
		return a
	}
	for _, p := range t.suffix {
		if strings.HasSuffix(h, p.text) {
			return p.app
		}
	}
	for _, p := range t.prefix {
		if strings.HasPrefix(h, p.text) {
			return p.app
		}
	}
	return t.fallback
}

// normalizeHost canonicalizes a request's Host header: the port is
// stripped, a trailing dot removed, and the name lowercased and
// punycoded so Unicode hostnames compare equal to their wire form.
// IP literals pass through unchanged.
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if a, err := idna.Lookup.ToASCII(host); err == nil {
		host = a
	}
	return host
}

func normalizePattern(pat string) (string, error) {
	name := pat
	wild := ""
	switch {
	case strings.HasPrefix(pat, "*."):
		wild, name = "*.", pat[2:]
	case strings.HasSuffix(pat, ".*"):
		wild, name = ".*", pat[:len(pat)-2]
	}
	if name == "" || strings.Contains(name, "*") {
		return "", fmt.Errorf("invalid hostname pattern %q", pat)
	}
	norm := normalizeHost(name)
	if norm == "" {
		return "", fmt.Errorf("invalid hostname pattern %q", pat)
	}
	if wild == ".*" {
		return norm + ".*", nil
	}
	return wild + norm, nil
}
