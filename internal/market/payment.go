package market

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"carbon-connect/portal-backend/pkg/apperrors"
)

// PaymentStatusCaptured is the only status that confirms a purchase.
const PaymentStatusCaptured = "captured"

// Confirmation is what the payment collaborator reports after checkout.
type Confirmation struct {
	AccountID        string `json:"account_id"`
	PackageID        string `json:"package_id"`
	PaymentReference string `json:"payment_id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Signature        string `json:"signature"`
}

// Verifier checks that a confirmation was issued by the payment provider.
type Verifier interface {
	Verify(c Confirmation) error
}

// HMACVerifier checks hex(HMAC-SHA256(order_id|payment_id, secret)).
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) mac(orderID, paymentID string) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return mac.Sum(nil)
}

// Sign computes the signature the provider attaches to a confirmation.
func (v *HMACVerifier) Sign(orderID, paymentID string) string {
	return hex.EncodeToString(v.mac(orderID, paymentID))
}

func (v *HMACVerifier) Verify(c Confirmation) error {
	if strings.TrimSpace(c.PaymentReference) == "" {
		return apperrors.PaymentNotConfirmed("payment reference is missing")
	}
	if c.Status != PaymentStatusCaptured {
		return apperrors.PaymentNotConfirmed("payment status is " + quoteOrEmpty(c.Status))
	}
	if len(v.secret) == 0 {
		return apperrors.PaymentNotConfirmed("payment verification is not configured")
	}

	got, err := hex.DecodeString(c.Signature)
	if err != nil || !hmac.Equal(got, v.mac(c.OrderID, c.PaymentReference)) {
		return apperrors.PaymentNotConfirmed("payment signature does not match")
	}
	return nil
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return "empty"
	}
	return "\"" + s + "\""
}
