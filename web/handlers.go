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
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"weft.dev/go/internal/config"
	"weft.dev/go/internal/core/inspect"
	"weft.dev/go/internal/core/value"
)

func buildHandler(rt *config.Route) (Handler, error) {
	switch rt.Handler {
	case "static":
		return newStaticHandler(rt.Pattern, rt.Options)
	case "echo":
		return echoHandler{}, nil
	case "debug":
		return debugHandler{}, nil
	case "health":
		return healthHandler{start: time.Now()}, nil
	}
	return nil, fmt.Errorf("unknown handler %q", rt.Handler)
}

// httpHandler adapts a plain http.Handler, used for the metrics
// endpoint.
type httpHandler struct{ h http.Handler }

func (h httpHandler) ServeWeft(w *Response, r *Request) { h.h.ServeHTTP(w, r.Request) }

// echoHandler reflects the request back: a non-empty body is copied
// out under its own Content-Type, an empty one gets the request line.
type echoHandler struct{}

func (echoHandler) ServeWeft(w *Response, r *Request) {
	w.Header().Set("X-Request-Id", r.ID)
	if r.ContentLength != 0 {
		ct := r.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(http.StatusOK)
		io.Copy(w, r.Body)
		return
	}
	w.Text(http.StatusOK, fmt.Sprintf("%s %s\n", r.Method, r.URL.RequestURI()))
}

// debugHandler renders the matched request as a value graph. The
// header object appears both at the top level and inside the request,
// so the rendering carries a ref between them. Query parameters:
// format=text|json (default text) and depth=N.
type debugHandler struct{}

func (debugHandler) ServeWeft(w *Response, r *Request) {
	headers := headerValue(r.Header)

	req := value.NewObject()
	req.Set("id", value.String(r.ID))
	req.Set("method", value.String(r.Method))
	req.Set("path", value.String(r.URL.Path))
	if q := r.URL.RawQuery; q != "" {
		req.Set("query", value.String(q))
	}
	req.Set("proto", value.String(r.Proto))
	req.Set("host", value.String(r.Host))
	req.Set("peer", value.String(r.RemoteAddr))
	req.Set("headers", headers)
	if ps := r.Params(); len(ps) > 0 {
		params := value.NewObject()
		for _, p := range ps {
			params.Set(p.Name, value.String(p.Value))
		}
		req.Set("params", params)
	}

	root := value.NewObject()
	root.Set("app", value.String(r.App))
	root.Set("headers", headers)
	root.Set("request", req)

	profile := &inspect.Profile{Indent: "  "}
	if d := r.URL.Query().Get("depth"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			w.Text(http.StatusBadRequest, "bad depth\n")
			return
		}
		profile.MaxDepth = n
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "text":
		s, err := profile.Text(root)
		if err != nil {
			w.Text(http.StatusInternalServerError, err.Error()+"\n")
			return
		}
		w.Text(http.StatusOK, s+"\n")
	case "json":
		s, err := profile.JSON(root)
		if err != nil {
			w.Text(http.StatusInternalServerError, err.Error()+"\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, s+"\n")
	default:
		w.Text(http.StatusBadRequest, fmt.Sprintf("unknown format %q\n", format))
	}
}

// headerValue converts an http.Header into a value object: names
// canonical and sorted, multi-valued headers as arrays.
func headerValue(h http.Header) *value.Object {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	o := value.NewObject()
	for _, k := range names {
		vs := h[k]
		if len(vs) == 1 {
			o.Set(k, value.String(vs[0]))
			continue
		}
		elems := make([]value.Value, len(vs))
		for i, s := range vs {
			elems[i] = value.String(s)
		}
		o.Set(k, &value.Array{Elems: elems})
	}
	return o
}

type healthHandler struct {
	start time.Time
}

func (h healthHandler) ServeWeft(w *Response, r *Request) {
	w.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.start).Round(time.Second).String(),
	})
}
