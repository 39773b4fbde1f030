// Package dto holds the JSON request/response shapes for internal/httpapi,
// separate from the store entities so the wire format can evolve
// independently of the persistence layer.
package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/store"
	"github.com/numeraire/swissknife-go/internal/walletsvc"
)

// ErrorResponse is the uniform error body every handler returns on failure.
type ErrorResponse struct {
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

// SignInRequest is the body of POST /v1/auth/sign-in.
type SignInRequest struct {
	Password string `json:"password" validate:"required"`
}

// SignInResponse is the response to a successful sign-in.
type SignInResponse struct {
	Token string `json:"token"`
}

// CreateInvoiceRequest is the body of POST /v1/invoices.
type CreateInvoiceRequest struct {
	WalletID      *uuid.UUID `json:"wallet_id"`
	AmountMsat    *int64     `json:"amount_msat" validate:"omitempty,gt=0"`
	Description   *string    `json:"description" validate:"omitempty,max=639"`
	ExpirySeconds *int64     `json:"expiry_seconds" validate:"omitempty,gt=0"`
	Onchain       bool       `json:"onchain"`
}

// InvoiceResponse is the JSON view of a store.Invoice.
type InvoiceResponse struct {
	ID                 uuid.UUID  `json:"id"`
	WalletID           uuid.UUID  `json:"wallet_id"`
	LnAddressID        *uuid.UUID `json:"ln_address_id,omitempty"`
	Description        *string    `json:"description,omitempty"`
	AmountMsat         *int64     `json:"amount_msat,omitempty"`
	AmountReceivedMsat *int64     `json:"amount_received_msat,omitempty"`
	Ledger             string     `json:"ledger"`
	Currency           string     `json:"currency"`
	Status             string     `json:"status"`
	PaymentHash        *string    `json:"payment_hash,omitempty"`
	Bolt11             *string    `json:"bolt11,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	PaymentTime        *time.Time `json:"payment_time,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
	CreatedAt          time.Time  `json:"created_at"`
}

// FromInvoice converts a store.Invoice into its JSON view.
func FromInvoice(inv *store.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                 inv.ID,
		WalletID:           inv.WalletID,
		LnAddressID:        inv.LnAddressID,
		Description:        inv.Description,
		AmountMsat:         inv.AmountMsat,
		AmountReceivedMsat: inv.AmountReceivedMsat,
		Ledger:             string(inv.Ledger),
		Currency:           string(inv.Currency),
		Status:             string(inv.Status(time.Now().UTC())),
		PaymentHash:        inv.PaymentHash,
		Bolt11:             inv.Bolt11,
		ExpiresAt:          inv.ExpiresAt,
		PaymentTime:        inv.PaymentTime,
		Timestamp:          inv.Timestamp,
		CreatedAt:          inv.CreatedAt,
	}
}

// FromInvoices converts a slice of store.Invoice.
func FromInvoices(invs []store.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invs))
	for i := range invs {
		out[i] = FromInvoice(&invs[i])
	}
	return out
}

// SendPaymentRequest is the body of POST /v1/payments.
type SendPaymentRequest struct {
	WalletID   *uuid.UUID `json:"wallet_id"`
	Input      string     `json:"input" validate:"required"`
	AmountMsat *int64     `json:"amount_msat" validate:"omitempty,gt=0"`
	Comment    string     `json:"comment" validate:"omitempty,max=255"`
}

// PaymentResponse is the JSON view of a store.Payment.
type PaymentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	WalletID           uuid.UUID  `json:"wallet_id"`
	AmountMsat         int64      `json:"amount_msat"`
	FeeMsat            *int64     `json:"fee_msat,omitempty"`
	Ledger             string     `json:"ledger"`
	Currency           string     `json:"currency"`
	Status             string     `json:"status"`
	Error              *string    `json:"error,omitempty"`
	Description        *string    `json:"description,omitempty"`
	LnAddress          *string    `json:"ln_address,omitempty"`
	PaymentHash        *string    `json:"payment_hash,omitempty"`
	DestinationAddress *string    `json:"destination_address,omitempty"`
	Txid               *string    `json:"txid,omitempty"`
	PaymentTime        *time.Time `json:"payment_time,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// FromPayment converts a store.Payment into its JSON view.
func FromPayment(p *store.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                 p.ID,
		WalletID:            p.WalletID,
		AmountMsat:          p.AmountMsat,
		FeeMsat:             p.FeeMsat,
		Ledger:              string(p.Ledger),
		Currency:            string(p.Currency),
		Status:              string(p.Status),
		Error:               p.Error,
		Description:         p.Description,
		LnAddress:           p.LnAddress,
		PaymentHash:         p.PaymentHash,
		DestinationAddress:  p.DestinationAddress,
		Txid:                p.Txid,
		PaymentTime:         p.PaymentTime,
		CreatedAt:           p.CreatedAt,
	}
}

// FromPayments converts a slice of store.Payment.
func FromPayments(ps []store.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(ps))
	for i := range ps {
		out[i] = FromPayment(&ps[i])
	}
	return out
}

// RegisterLnAddressRequest is the body of POST /v1/ln-addresses.
type RegisterLnAddressRequest struct {
	WalletID    *uuid.UUID `json:"wallet_id"`
	Username    string     `json:"username" validate:"required,min=1,max=64"`
	AllowsNostr bool        `json:"allows_nostr"`
	NostrPubkey *string     `json:"nostr_pubkey" validate:"omitempty,len=64,hexadecimal"`
}

// LnAddressResponse is the JSON view of a store.LnAddress.
type LnAddressResponse struct {
	ID          uuid.UUID `json:"id"`
	WalletID    uuid.UUID `json:"wallet_id"`
	Username    string    `json:"username"`
	Active      bool      `json:"active"`
	AllowsNostr bool      `json:"allows_nostr"`
	NostrPubkey *string   `json:"nostr_pubkey,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromLnAddress converts a store.LnAddress into its JSON view.
func FromLnAddress(a *store.LnAddress) LnAddressResponse {
	return LnAddressResponse{
		ID:          a.ID,
		WalletID:    a.WalletID,
		Username:    a.Username,
		Active:      a.Active,
		AllowsNostr: a.AllowsNostr,
		NostrPubkey: a.NostrPubkey,
		CreatedAt:   a.CreatedAt,
	}
}

// FromLnAddresses converts a slice of store.LnAddress.
func FromLnAddresses(as []store.LnAddress) []LnAddressResponse {
	out := make([]LnAddressResponse, len(as))
	for i := range as {
		out[i] = FromLnAddress(&as[i])
	}
	return out
}

// CreateApiKeyRequest is the body of POST /v1/api-keys.
type CreateApiKeyRequest struct {
	WalletID    *uuid.UUID `json:"wallet_id"`
	Name        string     `json:"name" validate:"required,max=128"`
	Description *string    `json:"description" validate:"omitempty,max=255"`
	Permissions []string   `json:"permissions" validate:"required,min=1"`
}

// ApiKeyResponse is the JSON view of a store.ApiKey. KeyHash never round-trips.
type ApiKeyResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Token       string     `json:"token,omitempty"` // only populated on create
}

// FromApiKey converts a store.ApiKey into its JSON view.
func FromApiKey(k *store.ApiKey) ApiKeyResponse {
	perms := make([]string, len(k.Permissions))
	for i, p := range k.Permissions {
		perms[i] = string(p)
	}
	return ApiKeyResponse{
		ID:          k.ID,
		Name:        k.Name,
		Description: k.Description,
		Permissions: perms,
		CreatedAt:   k.CreatedAt,
		ExpiresAt:   k.ExpiresAt,
	}
}

// FromApiKeys converts a slice of store.ApiKey.
func FromApiKeys(ks []store.ApiKey) []ApiKeyResponse {
	out := make([]ApiKeyResponse, len(ks))
	for i := range ks {
		out[i] = FromApiKey(&ks[i])
	}
	return out
}

// ContactResponse is the JSON view of a walletsvc.Contact.
type ContactResponse struct {
	LnAddress     string    `json:"ln_address"`
	LastPaymentAt time.Time `json:"last_payment_at"`
}

// WalletResponse is the JSON view of a walletsvc.Summary.
type WalletResponse struct {
	WalletID        uuid.UUID         `json:"wallet_id"`
	Currency        string            `json:"currency"`
	AvailableMsat   int64             `json:"available_msat"`
	LnAddress       *LnAddressResponse `json:"ln_address,omitempty"`
	RecentPayments  []PaymentResponse  `json:"recent_payments"`
	RecentInvoices  []InvoiceResponse  `json:"recent_invoices"`
	RecentContacts  []ContactResponse  `json:"recent_contacts"`
}

// FromWalletSummary converts a walletsvc.Summary into its JSON view.
func FromWalletSummary(s *walletsvc.Summary) WalletResponse {
	var lnAddr *LnAddressResponse
	if s.LnAddress != nil {
		r := FromLnAddress(s.LnAddress)
		lnAddr = &r
	}

	contacts := make([]ContactResponse, len(s.RecentContacts))
	for i, c := range s.RecentContacts {
		at := c.LastPayment.CreatedAt
		if c.LastPayment.PaymentTime != nil {
			at = *c.LastPayment.PaymentTime
		}
		contacts[i] = ContactResponse{LnAddress: c.LnAddress, LastPaymentAt: at}
	}

	return WalletResponse{
		WalletID:       s.Wallet.ID,
		Currency:       string(s.Wallet.Currency),
		AvailableMsat:  s.Balance.Available(),
		LnAddress:      lnAddr,
		RecentPayments: FromPayments(s.RecentPayments),
		RecentInvoices: FromInvoices(s.RecentInvoices),
		RecentContacts: contacts,
	}
}

// HealthResponse is the JSON view of systemsvc.HealthReport.
type HealthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Ln      string `json:"ln"`
	LnError string `json:"ln_error,omitempty"`
}

// VersionResponse is the JSON view of systemsvc.BuildInfo.
type VersionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
}

// NodeInfoResponse is the JSON view of systemsvc.NodeInfo.
type NodeInfoResponse struct {
	Provider string `json:"provider"`
	Network  string `json:"network"`
	Health   string `json:"health"`
}

// SetConfigRequest is the body of PUT /v1/system/config/:key.
type SetConfigRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

// ConfigResponse is the JSON view of a store.ConfigEntry.
type ConfigResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// OnchainTransactionResponse is a single row of GET /v1/wallets/:id/onchain.
type OnchainTransactionResponse struct {
	Txid        string `json:"txid"`
	OutputIndex int32  `json:"output_index"`
	Address     string `json:"address"`
	AmountSat   int64  `json:"amount_sat"`
	Confirmed   bool   `json:"confirmed"`
}
