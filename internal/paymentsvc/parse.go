package paymentsvc

import (
	"strings"

	"github.com/numeraire/swissknife-go/internal/lnurl"
)

// inputKind classifies a SendPaymentRequest's free-form input field.
type inputKind int

const (
	inputBolt11 inputKind = iota
	inputLnAddress
	inputOnchainAddress
)

// classifyInput decides which of the three input shapes s is, without yet
// validating it against a specific network.
func classifyInput(s string) (inputKind, lnurl.Address, string) {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	bare := strings.TrimPrefix(lower, "lightning:")

	if strings.HasPrefix(bare, "ln") {
		stripped := trimmed
		if len(stripped) >= len("lightning:") && strings.EqualFold(stripped[:len("lightning:")], "lightning:") {
			stripped = stripped[len("lightning:"):]
		}
		return inputBolt11, lnurl.Address{}, stripped
	}
	if addr, err := lnurl.ParseAddress(trimmed); err == nil {
		return inputLnAddress, addr, trimmed
	}
	return inputOnchainAddress, lnurl.Address{}, trimmed
}
