// Package systemsvc implements SystemService: aggregate health reporting,
// build version info, a thin passthrough to the configured Lightning node,
// and the operator-set runtime config table.
package systemsvc

import (
	"context"
	"sync"

	"github.com/numeraire/swissknife-go/internal/ln"
	"github.com/numeraire/swissknife-go/internal/store"
)

// OverallStatus is the worst-of roll-up across every dependency Health checks.
type OverallStatus string

const (
	StatusOK       OverallStatus = "ok"
	StatusDegraded OverallStatus = "degraded"
	StatusDown     OverallStatus = "down"
)

// HealthReport is the result of HealthCheck.
type HealthReport struct {
	Status  OverallStatus
	Store   string
	Ln      string
	LnError string `json:"ln_error,omitempty"`
}

// BuildInfo is compile-time version metadata, stamped via -ldflags at build.
type BuildInfo struct {
	Version   string
	BuildTime string
}

// NodeInfo is the `/v1/lightning-node/info` passthrough payload.
type NodeInfo struct {
	Provider string
	Network  string
	Health   ln.HealthStatus
}

// Service implements SystemService.
type Service struct {
	store    store.Store
	ln       ln.Client
	provider string
	build    BuildInfo
}

// New builds a Service. provider names the configured LnNodeProvider for
// NodeInfo's passthrough response.
func New(s store.Store, lnClient ln.Client, provider string, build BuildInfo) *Service {
	return &Service{store: s, ln: lnClient, provider: provider, build: build}
}

// HealthCheck runs Store.Ping and LnClient.Health in parallel, reporting
// each independently; overall status is the worst of the two.
func (s *Service) HealthCheck(ctx context.Context) HealthReport {
	var wg sync.WaitGroup
	var storeErr error
	var lnStatus ln.HealthStatus
	var lnErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		storeErr = s.store.Ping(ctx)
	}()
	go func() {
		defer wg.Done()
		lnStatus, lnErr = s.ln.Health(ctx)
	}()
	wg.Wait()

	report := HealthReport{Status: StatusOK, Store: "ok", Ln: string(ln.HealthOperational)}
	if storeErr != nil {
		report.Store = "down"
		report.Status = StatusDown
	}
	if lnErr != nil {
		report.Ln = "down"
		report.LnError = lnErr.Error()
		report.Status = StatusDown
	} else {
		report.Ln = string(lnStatus)
		if lnStatus != ln.HealthOperational && report.Status == StatusOK {
			report.Status = StatusDegraded
		}
	}
	return report
}

// Version returns compile-time build metadata.
func (s *Service) Version() BuildInfo {
	return s.build
}

// NodeInfo passes through the configured node's health plus static
// provider/network labels, gated behind full_access at the HTTP layer.
func (s *Service) NodeInfo(ctx context.Context, network string) (*NodeInfo, error) {
	status, err := s.ln.Health(ctx)
	if err != nil {
		return nil, err
	}
	return &NodeInfo{Provider: s.provider, Network: network, Health: status}, nil
}

// GetConfig reads a single operator-set runtime parameter.
func (s *Service) GetConfig(ctx context.Context, key string) (*store.ConfigEntry, error) {
	return s.store.Config().Get(ctx, key)
}

// SetConfig writes a single operator-set runtime parameter.
func (s *Service) SetConfig(ctx context.Context, entry *store.ConfigEntry) error {
	return s.store.Config().Set(ctx, entry)
}
