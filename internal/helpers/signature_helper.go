package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifyPaystackSignature checks the x-paystack-signature header, an HMAC-SHA512
// of the raw request body keyed with the secret key.
func VerifyPaystackSignature(secretKey string, body []byte, signature string) bool {
	if secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// SignTicketPayload builds the string encoded in a ticket's QR code:
// order|event|code|signature.
func SignTicketPayload(secretKey, orderID, eventID, code string) string {
	data := fmt.Sprintf("%s|%s|%s", orderID, eventID, code)
	return data + "|" + ticketSignature(secretKey, data)
}

// VerifyTicketPayload validates a scanned QR payload and returns the order id it
// refers to.
func VerifyTicketPayload(secretKey, payload string) (orderID string, ok bool) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		return "", false
	}
	data := strings.Join(parts[:3], "|")
	expected := ticketSignature(secretKey, data)
	if !hmac.Equal([]byte(expected), []byte(parts[3])) {
		return "", false
	}
	return parts[0], true
}

func ticketSignature(secretKey, data string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
