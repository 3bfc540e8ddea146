package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/logger"
)

// Monitoring serves Prometheus metrics and optional pprof endpoints on
// a side port. Disabled when the configured port is 0.
type Monitoring struct {
	conf   config.Monitoring
	log    *logger.Logger
	server *http.Server
}

// New creates a new monitoring service.
func New(conf config.Monitoring, log *logger.Logger) *Monitoring {
	h := http.NewServeMux()

	if conf.ProfilingEnabled {
		prefix := conf.URLPrefix + "/debug/pprof"
		h.HandleFunc(prefix+"/", pprof.Index)
		h.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
		h.HandleFunc(prefix+"/profile", pprof.Profile)
		h.HandleFunc(prefix+"/symbol", pprof.Symbol)
		h.HandleFunc(prefix+"/trace", pprof.Trace)
		h.Handle(prefix+"/allocs", pprof.Handler("allocs"))
		h.Handle(prefix+"/block", pprof.Handler("block"))
		h.Handle(prefix+"/goroutine", pprof.Handler("goroutine"))
		h.Handle(prefix+"/heap", pprof.Handler("heap"))
		h.Handle(prefix+"/mutex", pprof.Handler("mutex"))
	}
	if conf.MetricEnabled {
		h.Handle(conf.URLPrefix+"/metrics", promhttp.Handler())
	}

	return &Monitoring{
		conf:   conf,
		log:    log,
		server: &http.Server{Addr: fmt.Sprintf(":%d", conf.Port), Handler: h},
	}
}

func (m *Monitoring) Enabled() bool { return m.conf.Port > 0 }

func (m *Monitoring) Run() {
	if !m.Enabled() {
		return
	}
	m.log.Info().Str("addr", m.server.Addr).Msg("starting monitoring server")
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("monitoring server failed")
		}
	}()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	m.log.Info().Msg("shutting down monitoring server")
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
