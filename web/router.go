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
	"sort"
	"strings"

	"github.com/mpvl/unique"

	"weft.dev/go/internal/config"
)

// A Handler serves a matched request.
type Handler interface {
	ServeWeft(w *Response, r *Request)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(w *Response, r *Request)

func (f HandlerFunc) ServeWeft(w *Response, r *Request) { f(w, r) }

// A route is one registered pattern with its handler and the response
// header rules configured for it.
type route struct {
	method  string // "" matches every method
	pattern string
	handler Handler
	headers []config.HeaderRule
}

// methodSet holds the routes terminating at one tree position, keyed
// by method.
type methodSet map[string]*route

func (ms methodSet) pick(method string) *route {
	if rt, ok := ms[method]; ok {
		return rt
	}
	// HEAD falls through to GET handlers; net/http suppresses the body.
	if method == "HEAD" {
		if rt, ok := ms["GET"]; ok {
			return rt
		}
	}
	return ms[""]
}

// allowed returns the methods the set accepts, for a 405 Allow header.
func (ms methodSet) allowed() []string {
	var methods []string
	for m := range ms {
		if m != "" {
			methods = append(methods, m)
		}
	}
	sort.Strings(methods)
	return methods
}

// A router dispatches request paths over a tree of path segments.
// Static segments win over :param segments, which win over a trailing
// *rest segment.
type router struct {
	root segnode
}

type segnode struct {
	static map[string]*segnode

	param     *segnode
	paramName string

	wildName   string
	wildRoutes methodSet

	routes methodSet
}

// add registers rt under its pattern. Patterns are absolute paths
// whose segments are literals, ":name" parameters, or a final
// "*name" capturing the rest of the path. Registering the same
// method and pattern twice is an error.
func (ro *router) add(rt *route) error {
	pattern := rt.pattern
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("pattern %q: must begin with /", pattern)
	}
	if names := paramNames(pattern); len(names) > 1 {
		sort.Strings(names)
		if !unique.StringsAreUnique(names) {
			return fmt.Errorf("pattern %q: parameter names must be distinct", pattern)
		}
	}
	n := &ro.root
	rest := pattern[1:]
	for rest != "" {
		var seg string
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			seg, rest = rest[:i], rest[i+1:]
		} else {
			seg, rest = rest, ""
		}
		switch {
		case strings.HasPrefix(seg, "*"):
			name := seg[1:]
			if name == "" {
				return fmt.Errorf("pattern %q: wildcard segment needs a name", pattern)
			}
			if rest != "" {
				return fmt.Errorf("pattern %q: wildcard must be the final segment", pattern)
			}
			if n.wildRoutes == nil {
				n.wildName = name
				n.wildRoutes = make(methodSet)
			} else if n.wildName != name {
				return fmt.Errorf("pattern %q: wildcard *%s conflicts with existing *%s", pattern, name, n.wildName)
			}
			return n.wildRoutes.insert(rt)
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			if name == "" {
				return fmt.Errorf("pattern %q: parameter segment needs a name", pattern)
			}
			if n.param == nil {
				n.param = &segnode{}
				n.paramName = name
			} else if n.paramName != name {
				return fmt.Errorf("pattern %q: parameter :%s conflicts with existing :%s", pattern, name, n.paramName)
			}
			n = n.param
		case seg == "":
			return fmt.Errorf("pattern %q: empty segment", pattern)
		default:
			if n.static == nil {
				n.static = make(map[string]*segnode)
			}
			child, ok := n.static[seg]
			if !ok {
				child = &segnode{}
				n.static[seg] = child
			}
			n = child
		}
	}
	return n.routes.insert(rt)
}

func (ms *methodSet) insert(rt *route) error {
	if *ms == nil {
		*ms = make(methodSet)
	}
	if prev, ok := (*ms)[rt.method]; ok {
		return fmt.Errorf("duplicate route %s %s (already registered as %s %s)",
			orAny(rt.method), rt.pattern, orAny(prev.method), prev.pattern)
	}
	(*ms)[rt.method] = rt
	return nil
}

func orAny(method string) string {
	if method == "" {
		return "ANY"
	}
	return method
}

// paramNames collects the :param and *wild names a pattern captures.
func paramNames(pattern string) []string {
	var names []string
	for _, seg := range strings.Split(pattern, "/") {
		if (strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*")) && len(seg) > 1 {
			names = append(names, seg[1:])
		}
	}
	return names
}

// lookup resolves path to the routes registered at its best match,
// filling params along the way. It returns nil when no pattern
// matches the path at all.
func (ro *router) lookup(path string, params *[]Param) methodSet {
	path = strings.TrimPrefix(path, "/")
	return ro.root.lookup(path, params)
}

func (n *segnode) lookup(path string, params *[]Param) methodSet {
	if path == "" {
		if n.routes != nil {
			return n.routes
		}
		if n.wildRoutes != nil {
			*params = append(*params, Param{n.wildName, ""})
			return n.wildRoutes
		}
		return nil
	}
	var seg, rest string
	if i := strings.IndexByte(path, '/'); i >= 0 {
		seg, rest = path[:i], path[i+1:]
	} else {
		seg, rest = path, ""
	}
	if child, ok := n.static[seg]; ok {
		if ms := child.lookup(rest, params); ms != nil {
			return ms
		}
	}
	if n.param != nil && seg != "" {
		mark := len(*params)
		*params = append(*params, Param{n.paramName, seg})
		if ms := n.param.lookup(rest, params); ms != nil {
			return ms
		}
		*params = (*params)[:mark]
	}
	if n.wildRoutes != nil {
		*params = append(*params, Param{n.wildName, path})
		return n.wildRoutes
	}
	return nil
}
