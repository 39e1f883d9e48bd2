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

// Package web is the weft HTTP server runtime: hostname and path
// routing, the request/response wrappers handlers are written
// against, the built-in handlers, and the listener lifecycle.
package web

import (
	"net/http"

	"github.com/google/uuid"
)

// A Param is one path parameter captured during routing.
type Param struct {
	Name  string
	Value string
}

// A Request carries one matched request through a handler. The
// embedded *http.Request keeps the full standard API (cookies, body,
// queries) available.
type Request struct {
	*http.Request

	// ID identifies the request in logs and responses. An inbound
	// X-Request-Id is honored so ids stay stable across proxies.
	ID string

	// App is the name of the app the request was routed to.
	App string

	params []Param
}

// Param returns the value captured for the named pattern segment, or
// "" when the route has no such parameter.
func (r *Request) Param(name string) string {
	for _, p := range r.params {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Params returns all captured path parameters in pattern order.
func (r *Request) Params() []Param { return r.params }

const maxRequestIDLen = 128

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" && len(id) <= maxRequestIDLen {
		return id
	}
	return uuid.NewString()
}
