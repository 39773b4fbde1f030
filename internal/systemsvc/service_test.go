package systemsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/ln"
	"github.com/numeraire/swissknife-go/internal/store"
	"github.com/numeraire/swissknife-go/internal/store/storetest"
)

type fakeLn struct {
	ln.UnsupportedOnchain
	status ln.HealthStatus
	err    error
}

func (f fakeLn) Invoice(ctx context.Context, amountMsat int64, description string, expirySeconds int64, descriptionHashOnly bool) (*ln.Invoice, error) {
	return nil, nil
}
func (f fakeLn) Pay(ctx context.Context, bolt11 string, amountMsat *int64) (*ln.Payment, error) {
	return nil, nil
}
func (f fakeLn) InvoiceByHash(ctx context.Context, paymentHash string) (*ln.Invoice, error) {
	return nil, nil
}
func (f fakeLn) Health(ctx context.Context) (ln.HealthStatus, error) { return f.status, f.err }

func TestHealthCheck_AllOperational(t *testing.T) {
	svc := New(storetest.New(), fakeLn{status: ln.HealthOperational}, "lnd", BuildInfo{Version: "1.0"})
	report := svc.HealthCheck(context.Background())
	assert.Equal(t, StatusOK, report.Status)
	assert.Equal(t, "ok", report.Store)
}

func TestHealthCheck_DegradedWhenNodeInMaintenance(t *testing.T) {
	svc := New(storetest.New(), fakeLn{status: ln.HealthMaintenance}, "lnd", BuildInfo{})
	report := svc.HealthCheck(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
}

func TestHealthCheck_DownWhenNodeErrors(t *testing.T) {
	svc := New(storetest.New(), fakeLn{err: errors.New("connection refused")}, "lnd", BuildInfo{})
	report := svc.HealthCheck(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "connection refused", report.LnError)
}

func TestVersion_ReturnsBuildInfo(t *testing.T) {
	svc := New(storetest.New(), fakeLn{}, "lnd", BuildInfo{Version: "1.2.3", BuildTime: "2026-07-31"})
	got := svc.Version()
	assert.Equal(t, "1.2.3", got.Version)
}

func TestNodeInfo_PassesThroughHealth(t *testing.T) {
	svc := New(storetest.New(), fakeLn{status: ln.HealthOperational}, "cln_rest", BuildInfo{})
	info, err := svc.NodeInfo(context.Background(), "mainnet")
	require.NoError(t, err)
	assert.Equal(t, "cln_rest", info.Provider)
	assert.Equal(t, "mainnet", info.Network)
	assert.Equal(t, ln.HealthOperational, info.Health)
}

func TestSetConfigThenGetConfig(t *testing.T) {
	svc := New(storetest.New(), fakeLn{}, "lnd", BuildInfo{})
	entry := &store.ConfigEntry{Key: "fee_buffer_bps", Value: []byte(`50`)}
	require.NoError(t, svc.SetConfig(context.Background(), entry))

	got, err := svc.GetConfig(context.Background(), "fee_buffer_bps")
	require.NoError(t, err)
	assert.Equal(t, []byte(`50`), []byte(got.Value))
}

func TestGetConfig_UnknownKey(t *testing.T) {
	svc := New(storetest.New(), fakeLn{}, "lnd", BuildInfo{})
	_, err := svc.GetConfig(context.Background(), "never_set")
	assert.Error(t, err)
}
