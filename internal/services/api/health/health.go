// Package health reports whether the service's backing stores answer.
// The same probes drive the HTTP /healthz route and the gRPC health service.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"

	defaultProbeTimeout = 500 * time.Millisecond
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Probe struct {
	Name   string
	Pinger Pinger
}

type Report struct {
	Status    string    `json:"status"`
	Uptime    float64   `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Failing   []string  `json:"failing,omitempty"`
}

func (r Report) Healthy() bool { return r.Status == StatusOK }

type Checker struct {
	probes  []Probe
	timeout time.Duration
	started time.Time
	now     func() time.Time
	log     *zap.Logger
}

func NewChecker(log *zap.Logger, probes ...Probe) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	now := func() time.Time { return time.Now().UTC() }
	return &Checker{
		probes:  probes,
		timeout: defaultProbeTimeout,
		started: now(),
		now:     now,
		log:     log,
	}
}

// Check runs every probe concurrently, each under its own timeout.
func (c *Checker) Check(ctx context.Context) Report {
	failed := make([]bool, len(c.probes))
	var wg sync.WaitGroup
	for i, p := range c.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			if err := p.Pinger.Ping(pctx); err != nil {
				c.log.Warn("health probe failed", zap.String("probe", p.Name), zap.Error(err))
				failed[i] = true
			}
		}()
	}
	wg.Wait()

	now := c.now()
	rep := Report{Status: StatusOK, Uptime: now.Sub(c.started).Seconds(), Timestamp: now}
	for i, f := range failed {
		if f {
			rep.Failing = append(rep.Failing, c.probes[i].Name)
		}
	}
	if len(rep.Failing) > 0 {
		rep.Status = StatusUnavailable
	}
	return rep
}

func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rep := c.Check(ctx.Request.Context())
		status := http.StatusOK
		if !rep.Healthy() {
			status = http.StatusServiceUnavailable
		}
		ctx.JSON(status, rep)
	}
}

// Watch keeps srv's overall status in line with the probes until ctx ends,
// then marks everything NOT_SERVING.
func (c *Checker) Watch(ctx context.Context, srv *grpchealth.Server, interval time.Duration) {
	c.sync(ctx, srv)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-t.C:
			c.sync(ctx, srv)
		}
	}
}

func (c *Checker) sync(ctx context.Context, srv *grpchealth.Server) {
	st := healthpb.HealthCheckResponse_SERVING
	if !c.Check(ctx).Healthy() {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	srv.SetServingStatus("", st)
}
