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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"weft.dev/go/internal/config"
	"weft.dev/go/internal/core/inspect"
	"weft.dev/go/internal/logs"
	"weft.dev/go/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// An app is one virtual host: a name, the hostname patterns that
// select it, and a router for its paths.
type app struct {
	name      string
	hostnames []string
	isDefault bool
	router    router
}

// A Server routes requests over hostnames and paths, applies the
// configured header rules, and records every request in the access
// log and the metrics set.
type Server struct {
	cfg    *config.Config
	log    logrus.FieldLogger
	met    *metrics.Set
	hosts  *hostTable
	apps   []*app
	render logs.Renderer

	srvs   []*httpListener
	failed chan error
}

type httpListener struct {
	proto string
	srv   *http.Server
	ln    net.Listener
}

// NewServer builds the routing tables from cfg. Routing conflicts
// that config validation cannot see, such as hostname patterns that
// collide after normalization, surface here.
func NewServer(cfg *config.Config, log logrus.FieldLogger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		log:    log,
		met:    metrics.New(),
		render: inspect.Compact.Text,
	}
	if cfg.Log.Format == "json" {
		s.render = inspect.JSON
	}

	for _, ac := range cfg.Apps {
		a := &app{name: ac.Name, hostnames: ac.Hostnames, isDefault: ac.Default}
		for _, rc := range ac.Routes {
			h, err := buildHandler(rc)
			if err != nil {
				return nil, fmt.Errorf("app %q: %v", ac.Name, err)
			}
			rt := &route{
				method:  rc.Method,
				pattern: rc.Pattern,
				handler: h,
				headers: rc.HeaderRules(),
			}
			if err := a.router.add(rt); err != nil {
				return nil, fmt.Errorf("app %q: %v", ac.Name, err)
			}
		}
		s.apps = append(s.apps, a)
	}

	if cfg.Metrics.Enabled {
		target := s.appNamed(cfg.Metrics.App)
		rt := &route{
			method:  "GET",
			pattern: cfg.Metrics.Path,
			handler: httpHandler{s.met.Handler()},
		}
		if err := target.router.add(rt); err != nil {
			return nil, fmt.Errorf("metrics endpoint: %v", err)
		}
	}

	hosts, err := newHostTable(s.apps)
	if err != nil {
		return nil, err
	}
	s.hosts = hosts
	return s, nil
}

// appNamed returns the app called name, or the default app when name
// is empty. Config validation guarantees both exist.
func (s *Server) appNamed(name string) *app {
	for _, a := range s.apps {
		if name == "" && a.isDefault || a.name == name {
			return a
		}
	}
	return s.apps[0]
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.met.Inflight.Inc()
	defer s.met.Inflight.Dec()

	resp := newResponse(w)
	req := &Request{Request: r, ID: requestID(r)}
	a := s.hosts.find(r.Host)
	req.App = a.name

	if ms := a.router.lookup(r.URL.Path, &req.params); ms == nil {
		http.NotFound(resp, r)
	} else if rt := ms.pick(r.Method); rt == nil {
		resp.Header().Set("Allow", strings.Join(ms.allowed(), ", "))
		resp.Text(http.StatusMethodNotAllowed, "405 method not allowed\n")
	} else {
		resp.headerRules = rt.headers
		rt.handler.ServeWeft(resp, req)
		if !resp.wroteHeader {
			resp.WriteHeader(resp.status)
		}
	}

	d := time.Since(start)
	s.met.Observe(a.name, r.Method, resp.Status(), resp.BytesWritten(), d.Seconds())
	s.logAccess(req, resp, d)
}

// Start binds the configured listeners and begins serving on them.
// It returns once every listener is bound; serving failures are
// reported by Run.
func (s *Server) Start() error {
	if addr := s.cfg.Listen.HTTP; addr != "" {
		handler, proto := http.Handler(s), "http"
		if s.cfg.Listen.H2C {
			handler, proto = h2c.NewHandler(s, &http2.Server{}), "h2c"
		}
		if err := s.bind(proto, addr, &http.Server{Handler: handler}); err != nil {
			return err
		}
	}
	if addr := s.cfg.Listen.HTTPS; addr != "" {
		srv := &http.Server{Handler: s}
		if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
			s.closeListeners()
			return err
		}
		if err := s.bind("https", addr, srv); err != nil {
			return err
		}
	}
	if len(s.srvs) == 0 {
		return errors.New("no listeners configured")
	}

	s.failed = make(chan error, len(s.srvs))
	for _, l := range s.srvs {
		l := l
		s.log.WithFields(logrus.Fields{"proto": l.proto, "addr": l.ln.Addr().String()}).Info("listening")
		go func() {
			var err error
			if l.proto == "https" {
				err = l.srv.ServeTLS(l.ln, s.cfg.Listen.Cert, s.cfg.Listen.Key)
			} else {
				err = l.srv.Serve(l.ln)
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.failed <- fmt.Errorf("%s %s: %w", l.proto, l.ln.Addr(), err)
			}
		}()
	}
	return nil
}

func (s *Server) bind(proto, addr string, srv *http.Server) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.closeListeners()
		return fmt.Errorf("%s %s: %w", proto, addr, err)
	}
	s.srvs = append(s.srvs, &httpListener{proto: proto, srv: srv, ln: ln})
	return nil
}

func (s *Server) closeListeners() {
	for _, l := range s.srvs {
		l.ln.Close()
	}
	s.srvs = nil
}

// Addrs returns the bound listener addresses, in the order the
// listeners were configured.
func (s *Server) Addrs() []string {
	addrs := make([]string, len(s.srvs))
	for i, l := range s.srvs {
		addrs[i] = l.ln.Addr().String()
	}
	return addrs
}

// Shutdown drains every listener, aggregating their errors.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs *multierror.Error
	for _, l := range s.srvs {
		if err := l.srv.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s %s: %w", l.proto, l.ln.Addr(), err))
		}
	}
	return errs.ErrorOrNil()
}

// Run starts the listeners and serves until ctx is done or a
// listener fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	var errs *multierror.Error
	select {
	case <-ctx.Done():
	case err := <-s.failed:
		errs = multierror.Append(errs, err)
	}

	shctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
