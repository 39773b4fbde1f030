package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/auth"
	"github.com/numeraire/swissknife-go/internal/httpapi/dto"
	"github.com/numeraire/swissknife-go/internal/invoicesvc"
	"github.com/numeraire/swissknife-go/internal/lnaddresssvc"
	"github.com/numeraire/swissknife-go/internal/paymentsvc"
	"github.com/numeraire/swissknife-go/internal/store"
	"github.com/numeraire/swissknife-go/internal/systemsvc"
)

// handlers holds every dependency the route table dispatches into, plus a
// shared validator instance.
type handlers struct {
	d   Deps
	val *validator.Validate
}

func newHandlers(d Deps) *handlers {
	return &handlers{d: d, val: validator.New()}
}

// bind decodes and validates req's JSON body, writing a 400 and returning
// false on either failure.
func (h *handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeValidationError(c, err)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		writeValidationError(c, err)
		return false
	}
	return true
}

// paramUUID parses the named path parameter as a uuid, writing a 400 and
// returning false on failure.
func (h *handlers) paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, apperrors.Malformed(name+" is not a valid uuid"))
		return uuid.UUID{}, false
	}
	return id, true
}

// walletIDFor resolves the wallet a request acts on: the caller's own
// wallet unless an explicit wallet_id is given and the caller holds
// full_access, in which case that wallet_id is used instead.
func (h *handlers) walletIDFor(c *gin.Context, requested *uuid.UUID) (uuid.UUID, bool) {
	p := currentPrincipal(c)
	if p == nil {
		writeError(c, apperrors.Authentication("no principal resolved"))
		return uuid.UUID{}, false
	}
	if requested == nil || *requested == p.WalletID {
		return p.WalletID, true
	}
	if !store.HasPermission(p.Permissions, store.PermissionFullAccess) {
		writeError(c, apperrors.MissingPermission(string(store.PermissionFullAccess)))
		return uuid.UUID{}, false
	}
	return *requested, true
}

// --- public endpoints -------------------------------------------------

func (h *handlers) lnurlp(c *gin.Context) {
	if h.d.LnUrl == nil {
		writeError(c, apperrors.NotFound("ln_address is not configured on this server"))
		return
	}
	doc, err := h.d.LnUrl.Lnurlp(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *handlers) lnurlpCallback(c *gin.Context) {
	if h.d.LnUrl == nil {
		writeError(c, apperrors.NotFound("ln_address is not configured on this server"))
		return
	}
	amountMsat, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		writeError(c, apperrors.Malformed("amount must be an integer number of millisatoshis"))
		return
	}
	resp, err := h.d.LnUrl.LnurlpCallback(c.Request.Context(), c.Param("username"), amountMsat, c.Query("comment"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) nostrJSON(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusOK, gin.H{"names": gin.H{}})
		return
	}
	pubkey, err := h.d.Nostr.GetPubkey(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"names": gin.H{name: pubkey}})
}

func (h *handlers) signIn(c *gin.Context) {
	var req dto.SignInRequest
	if !h.bind(c, &req) {
		return
	}
	token, err := h.d.Auth.SignIn(c.Request.Context(), req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SignInResponse{Token: token})
}

func (h *handlers) health(c *gin.Context) {
	report := h.d.System.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if report.Status != systemsvc.StatusOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.HealthResponse{
		Status:  string(report.Status),
		Store:   report.Store,
		Ln:      report.Ln,
		LnError: report.LnError,
	})
}

func (h *handlers) ready(c *gin.Context) {
	report := h.d.System.HealthCheck(c.Request.Context())
	if report.Store != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: string(report.Status), Store: report.Store, Ln: report.Ln})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *handlers) version(c *gin.Context) {
	v := h.d.System.Version()
	c.JSON(http.StatusOK, dto.VersionResponse{Version: v.Version, BuildTime: v.BuildTime})
}

// --- authenticated endpoints -------------------------------------------

func (h *handlers) me(c *gin.Context) {
	p := currentPrincipal(c)
	if p == nil {
		writeError(c, apperrors.Authentication("no principal resolved"))
		return
	}
	perms := make([]string, len(p.Permissions))
	for i, perm := range p.Permissions {
		perms[i] = string(perm)
	}
	c.JSON(http.StatusOK, gin.H{"wallet_id": p.WalletID, "permissions": perms})
}

func (h *handlers) getWallet(c *gin.Context) {
	walletID, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	if !ownsWallet(c, walletID) {
		writeError(c, apperrors.MissingPermission(string(store.PermissionFullAccess)))
		return
	}
	summary, err := h.d.Wallets.Get(c.Request.Context(), walletID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromWalletSummary(summary))
}

func (h *handlers) listOnchainTransactions(c *gin.Context) {
	walletID, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	if !ownsWallet(c, walletID) {
		writeError(c, apperrors.MissingPermission(string(store.PermissionFullAccess)))
		return
	}
	if h.d.BtcWallet == nil {
		writeError(c, apperrors.NotFound("on-chain wallet is not configured on this server"))
		return
	}
	txs, err := h.d.BtcWallet.ListTransactions(c.Request.Context())
	if err != nil {
		writeError(c, apperrors.Bitcoin("failed to list on-chain transactions", err))
		return
	}
	out := make([]dto.OnchainTransactionResponse, len(txs))
	for i, t := range txs {
		out[i] = dto.OnchainTransactionResponse{
			Txid:        t.Txid,
			OutputIndex: t.OutputIndex,
			Address:     t.Address,
			AmountSat:   t.AmountSat,
			Confirmed:   t.Confirmed,
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) nodeInfo(c *gin.Context) {
	info, err := h.d.System.NodeInfo(c.Request.Context(), h.d.Network)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NodeInfoResponse{Provider: info.Provider, Network: info.Network, Health: string(info.Health)})
}

// --- invoices ------------------------------------------------------------

func (h *handlers) createInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.bind(c, &req) {
		return
	}
	walletID, ok := h.walletIDFor(c, req.WalletID)
	if !ok {
		return
	}

	var expiry *time.Duration
	if req.ExpirySeconds != nil {
		d := time.Duration(*req.ExpirySeconds) * time.Second
		expiry = &d
	}

	inv, err := h.d.Invoices.Create(c.Request.Context(), invoicesvc.CreateParams{
		WalletID:       walletID,
		AmountMsat:     req.AmountMsat,
		Description:    req.Description,
		Expiry:         expiry,
		RequestOnchain: req.Onchain,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromInvoice(inv))
}

func (h *handlers) listInvoices(c *gin.Context) {
	p := currentPrincipal(c)
	if p == nil {
		writeError(c, apperrors.Authentication("no principal resolved"))
		return
	}
	f := store.Filter{WalletID: &p.WalletID, OrderDirection: store.OrderDesc}
	applyPaging(c, &f)
	invs, err := h.d.Invoices.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInvoices(invs))
}

func (h *handlers) getInvoice(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	inv, err := h.d.Invoices.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownsWallet(c, inv.WalletID) {
		writeError(c, apperrors.NotFound("invoice not found"))
		return
	}
	c.JSON(http.StatusOK, dto.FromInvoice(inv))
}

func (h *handlers) deleteInvoice(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	inv, err := h.d.Invoices.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownsWallet(c, inv.WalletID) {
		writeError(c, apperrors.NotFound("invoice not found"))
		return
	}
	if err := h.d.Invoices.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- payments --------------------------------------------------------------

func (h *handlers) sendPayment(c *gin.Context) {
	var req dto.SendPaymentRequest
	if !h.bind(c, &req) {
		return
	}
	walletID, ok := h.walletIDFor(c, req.WalletID)
	if !ok {
		return
	}

	payment, err := h.d.Payments.Send(c.Request.Context(), paymentsvc.SendParams{
		WalletID:   walletID,
		Input:      req.Input,
		AmountMsat: req.AmountMsat,
		Comment:    req.Comment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromPayment(payment))
}

func (h *handlers) listPayments(c *gin.Context) {
	p := currentPrincipal(c)
	if p == nil {
		writeError(c, apperrors.Authentication("no principal resolved"))
		return
	}
	f := store.Filter{WalletID: &p.WalletID, OrderDirection: store.OrderDesc}
	applyPaging(c, &f)
	payments, err := h.d.Payments.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPayments(payments))
}

func (h *handlers) getPayment(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	payment, err := h.d.Payments.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownsWallet(c, payment.WalletID) {
		writeError(c, apperrors.NotFound("payment not found"))
		return
	}
	c.JSON(http.StatusOK, dto.FromPayment(payment))
}

func (h *handlers) deletePayment(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	payment, err := h.d.Payments.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownsWallet(c, payment.WalletID) {
		writeError(c, apperrors.NotFound("payment not found"))
		return
	}
	if err := h.d.Payments.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- ln addresses ------------------------------------------------------

func (h *handlers) registerLnAddress(c *gin.Context) {
	var req dto.RegisterLnAddressRequest
	if !h.bind(c, &req) {
		return
	}
	walletID, ok := h.walletIDFor(c, req.WalletID)
	if !ok {
		return
	}
	addr, err := h.d.LnAddresses.Register(c.Request.Context(), lnaddresssvc.RegisterParams{
		WalletID:    walletID,
		Username:    req.Username,
		AllowsNostr: req.AllowsNostr,
		NostrPubkey: req.NostrPubkey,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromLnAddress(addr))
}

func (h *handlers) listLnAddresses(c *gin.Context) {
	p := currentPrincipal(c)
	if p == nil {
		writeError(c, apperrors.Authentication("no principal resolved"))
		return
	}
	f := store.Filter{WalletID: &p.WalletID}
	applyPaging(c, &f)
	addrs, err := h.d.LnAddresses.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLnAddresses(addrs))
}

func (h *handlers) getLnAddress(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	addr, err := h.d.LnAddresses.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownsWallet(c, addr.WalletID) {
		writeError(c, apperrors.NotFound("ln_address not found"))
		return
	}
	c.JSON(http.StatusOK, dto.FromLnAddress(addr))
}

func (h *handlers) deleteLnAddress(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	addr, err := h.d.LnAddresses.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownsWallet(c, addr.WalletID) {
		writeError(c, apperrors.NotFound("ln_address not found"))
		return
	}
	if err := h.d.LnAddresses.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- api keys ----------------------------------------------------------

func (h *handlers) createApiKey(c *gin.Context) {
	var req dto.CreateApiKeyRequest
	if !h.bind(c, &req) {
		return
	}
	p := currentPrincipal(c)
	if p == nil {
		writeError(c, apperrors.Authentication("no principal resolved"))
		return
	}
	walletID, ok := h.walletIDFor(c, req.WalletID)
	if !ok {
		return
	}

	requested := make([]store.Permission, len(req.Permissions))
	for i, perm := range req.Permissions {
		requested[i] = store.Permission(perm)
	}

	result, err := h.d.Auth.CreateApiKey(c.Request.Context(), auth.CreateApiKeyParams{
		WalletID:             walletID,
		Name:                 req.Name,
		Description:          req.Description,
		RequestedPermissions: requested,
		CallerPermissions:    p.Permissions,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	resp := dto.FromApiKey(result.Key)
	resp.Token = result.Token
	c.JSON(http.StatusCreated, resp)
}

func (h *handlers) listApiKeys(c *gin.Context) {
	p := currentPrincipal(c)
	if p == nil {
		writeError(c, apperrors.Authentication("no principal resolved"))
		return
	}
	sub := p.WalletID.String()
	f := store.Filter{UserID: &sub}
	applyPaging(c, &f)
	keys, err := h.d.Auth.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromApiKeys(keys))
}

func (h *handlers) getApiKey(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	key, err := h.d.Auth.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.ownsApiKey(c, key) {
		writeError(c, apperrors.NotFound("api key not found"))
		return
	}
	c.JSON(http.StatusOK, dto.FromApiKey(key))
}

func (h *handlers) deleteApiKey(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	key, err := h.d.Auth.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.ownsApiKey(c, key) {
		writeError(c, apperrors.NotFound("api key not found"))
		return
	}
	if err := h.d.Auth.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) ownsApiKey(c *gin.Context, key *store.ApiKey) bool {
	walletID, err := uuid.Parse(key.UserID)
	if err != nil {
		return false
	}
	return ownsWallet(c, walletID)
}

// --- system config -------------------------------------------------------

func (h *handlers) getConfig(c *gin.Context) {
	entry, err := h.d.System.GetConfig(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ConfigResponse{Key: entry.Key, Value: entry.Value})
}

func (h *handlers) setConfig(c *gin.Context) {
	var req dto.SetConfigRequest
	if !h.bind(c, &req) {
		return
	}
	entry := &store.ConfigEntry{Key: c.Param("key"), Value: req.Value}
	if err := h.d.System.SetConfig(c.Request.Context(), entry); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ConfigResponse{Key: entry.Key, Value: entry.Value})
}

// applyPaging reads limit/offset query params into f, defaulting limit to
// defaultPageSize and capping it at maxPageSize.
func applyPaging(c *gin.Context, f *store.Filter) {
	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	f.Limit = &limit

	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			f.Offset = &n
		}
	}
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

