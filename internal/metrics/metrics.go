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

// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// A Set holds one server's metric vectors on its own registry, so
// multiple servers in one process do not collide.
type Set struct {
	registry *prometheus.Registry

	Requests      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	ResponseBytes *prometheus.CounterVec
	Inflight      prometheus.Gauge
}

func New() *Set {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Set{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weft_http_requests_total",
			Help: "Requests served, by app, method and status code.",
		}, []string{"app", "method", "code"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weft_http_request_duration_seconds",
			Help:    "Time from request receipt to response completion.",
			Buckets: prometheus.DefBuckets,
		}, []string{"app", "method"}),
		ResponseBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weft_http_response_bytes_total",
			Help: "Response body bytes written, by app.",
		}, []string{"app"}),
		Inflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weft_http_inflight_requests",
			Help: "Requests currently being handled.",
		}),
	}
}

// Handler serves the set's registry in the Prometheus text format.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Observe records one finished request.
func (s *Set) Observe(app, method string, code int, bytes int64, seconds float64) {
	s.Requests.WithLabelValues(app, method, strconv.Itoa(code)).Inc()
	s.Duration.WithLabelValues(app, method).Observe(seconds)
	s.ResponseBytes.WithLabelValues(app).Add(float64(bytes))
}
