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
	"strings"

	"weft.dev/go/internal/config"
	"weft.dev/go/internal/core/convert"
	"weft.dev/go/internal/core/inspect"
)

// A Response wraps http.ResponseWriter and records the status and
// body size for the access log and metrics. The route's header rules
// are applied when the header is committed, so they see the
// handler's own headers.
type Response struct {
	http.ResponseWriter

	status      int
	bytes       int64
	wroteHeader bool
	headerRules []config.HeaderRule
}

func newResponse(w http.ResponseWriter) *Response {
	return &Response{ResponseWriter: w, status: http.StatusOK}
}

func (w *Response) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	h := w.Header()
	for _, r := range w.headerRules {
		switch r.Op {
		case config.HeaderAdd:
			h.Add(r.Name, r.Value)
		case config.HeaderSet:
			h.Set(r.Name, r.Value)
		case config.HeaderDel:
			h.Del(r.Name)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *Response) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

// Status returns the status sent, or http.StatusOK if the handler
// never wrote one explicitly.
func (w *Response) Status() int { return w.status }

// BytesWritten returns the number of body bytes written so far.
func (w *Response) BytesWritten() int64 { return w.bytes }

// Text sends a plain text response.
func (w *Response) Text(code int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, s)
}

// JSON converts x to a value graph and sends its JSON rendering.
// Shared and cyclic structure in x comes out as $def/$ref pairs.
func (w *Response) JSON(code int, x interface{}) error {
	v, err := convert.FromGo(x)
	if err != nil {
		return err
	}
	s, err := inspect.JSON(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = io.WriteString(w, s+"\n")
	return err
}

// SetCookie validates c and adds a Set-Cookie header. Unlike
// http.SetCookie it rejects, rather than silently mangles, cookies
// that violate RFC 6265bis: non-token names, reserved value bytes,
// prefix rules for __Host- and __Secure-, and SameSite=None without
// Secure.
func (w *Response) SetCookie(c *http.Cookie) error {
	if err := validateCookie(c); err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}

func validateCookie(c *http.Cookie) error {
	if c.Name == "" {
		return fmt.Errorf("cookie: empty name")
	}
	for i := 0; i < len(c.Name); i++ {
		if !isCookieToken(c.Name[i]) {
			return fmt.Errorf("cookie %q: invalid byte %q in name", c.Name, c.Name[i])
		}
	}
	for i := 0; i < len(c.Value); i++ {
		if !isCookieOctet(c.Value[i]) {
			return fmt.Errorf("cookie %q: invalid byte %q in value", c.Name, c.Value[i])
		}
	}
	switch {
	case strings.HasPrefix(c.Name, "__Host-"):
		if !c.Secure || c.Domain != "" || c.Path != "/" {
			return fmt.Errorf("cookie %q: __Host- requires Secure, Path=/ and no Domain", c.Name)
		}
	case strings.HasPrefix(c.Name, "__Secure-"):
		if !c.Secure {
			return fmt.Errorf("cookie %q: __Secure- requires Secure", c.Name)
		}
	}
	if c.SameSite == http.SameSiteNoneMode && !c.Secure {
		return fmt.Errorf("cookie %q: SameSite=None requires Secure", c.Name)
	}
	return nil
}

// isCookieToken reports whether b is an RFC 7230 tchar, the alphabet
// cookie names are drawn from.
func isCookieToken(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", b) >= 0
}

// isCookieOctet reports whether b may appear in a cookie value:
// %x21 / %x23-2B / %x2D-3A / %x3C-5B / %x5D-7E, which excludes
// controls, whitespace, double quotes, commas, semicolons and
// backslashes.
func isCookieOctet(b byte) bool {
	return b == 0x21 ||
		(b >= 0x23 && b <= 0x2b) ||
		(b >= 0x2d && b <= 0x3a) ||
		(b >= 0x3c && b <= 0x5b) ||
		(b >= 0x5d && b <= 0x7e)
}
