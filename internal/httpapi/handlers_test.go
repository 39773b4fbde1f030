package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/auth"
	"github.com/numeraire/swissknife-go/internal/auth/jwtlocal"
	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/invoicesvc"
	"github.com/numeraire/swissknife-go/internal/ln"
	"github.com/numeraire/swissknife-go/internal/lnaddresssvc"
	"github.com/numeraire/swissknife-go/internal/logger"
	"github.com/numeraire/swissknife-go/internal/nostrsvc"
	"github.com/numeraire/swissknife-go/internal/paymentsvc"
	"github.com/numeraire/swissknife-go/internal/store"
	"github.com/numeraire/swissknife-go/internal/store/storetest"
	"github.com/numeraire/swissknife-go/internal/systemsvc"
	"github.com/numeraire/swissknife-go/internal/walletsvc"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeLnClient is a minimal ln.Client sufficient to exercise the router
// without needing a real Lightning node.
type fakeLnClient struct {
	ln.UnsupportedOnchain
}

func (fakeLnClient) Invoice(ctx context.Context, amountMsat int64, description string, expirySeconds int64, descriptionHashOnly bool) (*ln.Invoice, error) {
	return &ln.Invoice{PaymentHash: "hash", Bolt11: "lnbc1...", ExpiresAt: time.Now().Add(time.Hour)}, nil
}
func (fakeLnClient) Pay(ctx context.Context, bolt11 string, amountMsat *int64) (*ln.Payment, error) {
	return nil, nil
}
func (fakeLnClient) InvoiceByHash(ctx context.Context, paymentHash string) (*ln.Invoice, error) {
	return nil, nil
}
func (fakeLnClient) Health(ctx context.Context) (ln.HealthStatus, error) {
	return ln.HealthOperational, nil
}

// testServer wires every domain service against a shared in-memory store
// and returns the assembled router plus the issuing jwtlocal.Issuer so
// tests can mint tokens for arbitrary subs/permissions.
func testServer(t *testing.T) (*gin.Engine, *storetest.Store, *jwtlocal.Issuer) {
	t.Helper()
	s := storetest.New()

	issuer := jwtlocal.New("test-secret", "swissknife", "swissknife-wallet", time.Hour)
	securityCfg := config.SecurityConfig{AuthMode: config.AuthModeLocal}
	authSvc := auth.New(s, securityCfg, issuer, nil)

	lnAddrCfg := config.LnAddressConfig{
		InvoiceDefaultExpiry: time.Hour,
		InvoiceMinExpiry:     time.Minute,
		InvoiceMaxExpiry:     7 * 24 * time.Hour,
		DefaultDescription:   "payment",
	}
	invoiceSvc := invoicesvc.New(s, fakeLnClient{}, nil, lnAddrCfg)
	paymentSvc := paymentsvc.New(s, fakeLnClient{}, nil, nil, lnAddrCfg)
	lnAddrSvc := lnaddresssvc.New(s)
	nostrSvc := nostrsvc.New(s)
	walletSvc := walletsvc.New(s)
	systemSvc := systemsvc.New(s, fakeLnClient{}, "fake", systemsvc.BuildInfo{Version: "test"})

	deps := Deps{
		Config:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		RateLimit:   config.RateLimitConfig{Enabled: false},
		Logger:      logger.NewDevelopment("httpapi-test"),
		Auth:        authSvc,
		Invoices:    invoiceSvc,
		Payments:    paymentSvc,
		LnAddresses: lnAddrSvc,
		Nostr:       nostrSvc,
		Wallets:     walletSvc,
		System:      systemSvc,
		Network:     "regtest",
	}
	return NewRouter(deps), s, issuer
}

func seedWallet(t *testing.T, s *storetest.Store) store.Wallet {
	t.Helper()
	w := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &w))
	return w
}

func bearerFor(t *testing.T, issuer *jwtlocal.Issuer, sub string, perms []store.Permission) string {
	t.Helper()
	token, err := issuer.Sign(sub, perms)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path, authHeader string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth_ReturnsOK(t *testing.T) {
	router, _, _ := testServer(t)
	rec := doRequest(router, http.MethodGet, "/v1/system/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignIn_WrongPasswordIsRejected(t *testing.T) {
	router, _, _ := testServer(t)
	rec := doRequest(router, http.MethodPost, "/v1/auth/sign-in", "", map[string]string{"password": "anything"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_RequiresAuth(t *testing.T) {
	router, _, _ := testServer(t)
	rec := doRequest(router, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_ReturnsPrincipal(t *testing.T) {
	router, _, issuer := testServer(t)
	token := bearerFor(t, issuer, "alice", []store.Permission{store.PermissionReadWallet})

	rec := doRequest(router, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "wallet_id")
	assert.Equal(t, []interface{}{"read:wallet"}, body["permissions"])
}

func TestCreateInvoice_RequiresPermission(t *testing.T) {
	router, _, issuer := testServer(t)
	token := bearerFor(t, issuer, "bob", []store.Permission{store.PermissionReadTransactions})

	amount := int64(1000)
	rec := doRequest(router, http.MethodPost, "/v1/invoices", token, map[string]interface{}{"amount_msat": amount})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateInvoice_Succeeds(t *testing.T) {
	router, _, issuer := testServer(t)
	token := bearerFor(t, issuer, "carol", []store.Permission{store.PermissionWriteTransactions})

	amount := int64(5000)
	rec := doRequest(router, http.MethodPost, "/v1/invoices", token, map[string]interface{}{"amount_msat": amount})
	require.Equal(t, http.StatusCreated, rec.Code)

	var inv map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, "hash", inv["payment_hash"])
}

func TestGetWallet_ForeignWalletIsForbidden(t *testing.T) {
	router, s, issuer := testServer(t)
	other := seedWallet(t, s)
	token := bearerFor(t, issuer, "dave", []store.Permission{store.PermissionReadWallet})

	rec := doRequest(router, http.MethodGet, "/v1/wallets/"+other.ID.String(), token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetWallet_OwnWalletSucceeds(t *testing.T) {
	router, _, issuer := testServer(t)
	token := bearerFor(t, issuer, "erin", []store.Permission{store.PermissionReadWallet})

	// provision by authenticating once, then look up the provisioned wallet id via /v1/me
	meRec := doRequest(router, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, meRec.Code)
	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(meRec.Body.Bytes(), &me))
	walletID := me["wallet_id"].(string)

	rec := doRequest(router, http.MethodGet, "/v1/wallets/"+walletID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, walletID, summary["wallet_id"])
}

func TestApiKeyAuth_AuthenticatesRequest(t *testing.T) {
	router, _, issuer := testServer(t)
	jwt := bearerFor(t, issuer, "frank", store.AllPermissions)

	body := map[string]interface{}{"name": "ci-key", "permissions": []string{string(store.PermissionReadWallet)}}
	createRec := doRequest(router, http.MethodPost, "/v1/api-keys", jwt, body)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	token := created["token"].(string)
	require.NotEmpty(t, token)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	_ = raw

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("api-key", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApiKeyAuth_RejectsUnknownKey(t *testing.T) {
	router, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("api-key", base64.StdEncoding.EncodeToString([]byte("not-a-real-key-not-a-real-key..")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLnurlp_NotConfiguredWithoutLnAddressDomain(t *testing.T) {
	router, _, _ := testServer(t)
	rec := doRequest(router, http.MethodGet, "/.well-known/lnurlp/alice", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNostrJSON_EmptyNameReturnsEmptyMap(t *testing.T) {
	router, _, _ := testServer(t)
	rec := doRequest(router, http.MethodGet, "/.well-known/nostr.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{}, body["names"])
}

func TestSendPayment_RequiresPermission(t *testing.T) {
	router, _, issuer := testServer(t)
	token := bearerFor(t, issuer, "grace", []store.Permission{store.PermissionReadTransactions})

	rec := doRequest(router, http.MethodPost, "/v1/payments", token, map[string]interface{}{"input": "someone@example.com", "amount_msat": 1000})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
