package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/auth"
	"github.com/numeraire/swissknife-go/internal/store"
)

const principalKey = "principal"

func setPrincipal(c *gin.Context, p *auth.Principal) {
	c.Set(principalKey, p)
}

// currentPrincipal returns the resolved identity set by requireAuth. Only
// call from a handler mounted behind requireAuth.
func currentPrincipal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}

// ownsWallet reports whether the caller's principal may act on walletID:
// either it's their own wallet, or they hold full_access.
func ownsWallet(c *gin.Context, walletID uuid.UUID) bool {
	p := currentPrincipal(c)
	if p == nil {
		return false
	}
	return p.WalletID == walletID || store.HasPermission(p.Permissions, store.PermissionFullAccess)
}
