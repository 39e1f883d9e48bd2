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
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
)

// staticHandler serves files below a root directory. Requests are
// jailed to the root: the captured rest-of-path is cleaned as an
// absolute path before it is joined, so ".." cannot escape.
type staticHandler struct {
	root  string
	index string // served for directories; empty disables
	wild  string // name of the pattern's *rest parameter
	etags etagCache
}

func newStaticHandler(pattern string, opts map[string]string) (*staticHandler, error) {
	wild := ""
	if i := strings.LastIndexByte(pattern, '*'); i >= 0 {
		wild = pattern[i+1:]
	}
	if wild == "" {
		return nil, fmt.Errorf("static route %q: pattern must end in a *rest segment", pattern)
	}
	return &staticHandler{
		root:  opts["dir"],
		index: opts["index"],
		wild:  wild,
	}, nil
}

func (h *staticHandler) ServeWeft(w *Response, r *Request) {
	name := path.Clean("/" + r.Param(h.wild))
	full := filepath.Join(h.root, filepath.FromSlash(name))
	fi, err := os.Stat(full)
	if err != nil {
		http.NotFound(w, r.Request)
		return
	}
	if fi.IsDir() {
		if h.index == "" {
			http.NotFound(w, r.Request)
			return
		}
		full = filepath.Join(full, h.index)
		if fi, err = os.Stat(full); err != nil || fi.IsDir() {
			http.NotFound(w, r.Request)
			return
		}
	}
	f, err := os.Open(full)
	if err != nil {
		http.Error(w, "403 forbidden", http.StatusForbidden)
		return
	}
	defer f.Close()
	if tag, err := h.etags.get(full, fi); err == nil {
		w.Header().Set("Etag", tag)
	}
	// ServeContent handles If-None-Match, If-Modified-Since and Range.
	http.ServeContent(w, r.Request, fi.Name(), fi.ModTime(), f)
}

// etagCache memoizes content digests keyed by path, invalidated when
// size or mtime moves. Tags are strong: they hash the actual bytes,
// not the stat result.
type etagCache struct {
	mu      sync.Mutex
	entries map[string]etagEntry
}

type etagEntry struct {
	mtime time.Time
	size  int64
	tag   string
}

func (c *etagCache) get(path string, fi os.FileInfo) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[path]
	c.mu.Unlock()
	if ok && e.size == fi.Size() && e.mtime.Equal(fi.ModTime()) {
		return e.tag, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	dig, err := digest.FromReader(f)
	if err != nil {
		return "", err
	}
	tag := `"` + dig.Encoded() + `"`

	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[string]etagEntry)
	}
	c.entries[path] = etagEntry{mtime: fi.ModTime(), size: fi.Size(), tag: tag}
	c.mu.Unlock()
	return tag, nil
}
