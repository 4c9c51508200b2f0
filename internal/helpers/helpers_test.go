package helpers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewOrderID()
		assert.Len(t, id, OrderIDLength)
		assert.True(t, IsOrderID(id))
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
	assert.False(t, IsOrderID("not-an-id"))
	assert.False(t, IsOrderID("6ba7b8109dad11d180b400c04fd430c8"))
}

func TestGenerateTicketCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateTicketCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestGenerateOTP(t *testing.T) {
	pattern := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, pattern, otp)
	}
}

func TestVerifyPaystackSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	mac := hmac.New(sha512.New, []byte("sk_test"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyPaystackSignature("sk_test", body, sig))
	assert.False(t, VerifyPaystackSignature("sk_other", body, sig))
	assert.False(t, VerifyPaystackSignature("sk_test", []byte(`{}`), sig))
	assert.False(t, VerifyPaystackSignature("sk_test", body, ""))
}

func TestTicketPayloadRoundTrip(t *testing.T) {
	payload := SignTicketPayload("secret", "order-1", "event-1", "ABCD1234")

	orderID, ok := VerifyTicketPayload("secret", payload)
	assert.True(t, ok)
	assert.Equal(t, "order-1", orderID)

	_, ok = VerifyTicketPayload("other", payload)
	assert.False(t, ok)

	_, ok = VerifyTicketPayload("secret", "order-1|event-1|ZZZZ9999|"+payload[len(payload)-10:])
	assert.False(t, ok)
}

func TestRenderTicketPDF(t *testing.T) {
	out, err := RenderTicketPDF(TicketDocument{
		Code:       "ABCD1234",
		OrderID:    NewOrderID(),
		EventTitle: "Lagos Jazz Night",
		HolderName: "Ada",
		Quantity:   2,
		QRPayload:  "payload",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
		wantErr   bool
	}{
		{"", 1, 10, false},
		{"?page=3&limit=20", 3, 20, false},
		{"?page=0", 0, 0, true},
		{"?limit=abc", 0, 0, true},
		{"?limit=1000", 0, 0, true},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/events"+tt.query, nil)

		page, limit, err := ParsePagination(c)
		if tt.wantErr {
			assert.Error(t, err, tt.query)
			continue
		}
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantLimit, limit)
	}
	assert.Equal(t, int64(3), TotalPages(21, 10))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Café Lagos: Jazz Night!": "cafe-lagos-jazz-night",
		"  Afrobeats   2025 ":     "afrobeats-2025",
		"Ọjà Market Day":          "oja-market-day",
		"!!!":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}
