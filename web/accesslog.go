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
	"time"

	"github.com/sirupsen/logrus"

	"weft.dev/go/internal/core/value"
	"weft.dev/go/internal/logs"
)

// accessLogHeaders is the request header subset worth logging.
var accessLogHeaders = []string{
	"User-Agent",
	"Referer",
	"Content-Type",
	"X-Forwarded-For",
}

// logAccess emits one access log line. The payload is a value graph
// rendered by inspect with the profile matching the log format; the
// header subset sits behind a proxy so it is extracted at render
// time, not here.
func (s *Server) logAccess(req *Request, resp *Response, d time.Duration) {
	hdr := req.Header
	payload := value.NewObject()
	payload.Set("id", value.String(req.ID))
	payload.Set("app", value.String(req.App))
	payload.Set("method", value.String(req.Method))
	payload.Set("host", value.String(req.Host))
	payload.Set("path", value.String(req.URL.Path))
	payload.Set("proto", value.String(req.Proto))
	payload.Set("status", value.Number(float64(resp.Status())))
	payload.Set("bytes", value.Number(float64(resp.BytesWritten())))
	payload.Set("ms", value.Number(float64(d.Milliseconds())))
	payload.Set("peer", value.String(req.RemoteAddr))
	payload.Set("headers", value.Defer(func() value.Value {
		o := value.NewObject()
		for _, k := range accessLogHeaders {
			if v := hdr.Get(k); v != "" {
				o.Set(k, value.String(v))
			}
		}
		return o
	}))

	logs.Payload(s.log, logrus.InfoLevel, s.render, req.Method+" "+req.URL.Path, payload)
}
