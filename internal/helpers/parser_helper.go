package helpers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	OrderIDLength    = 36
	TicketCodeLength = 8
	OTPLength        = 6

	ticketCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxPageLimit       = 100
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParsePagination reads ?page= and ?limit= with defaults of 1 and 10.
func ParsePagination(c *gin.Context) (page, limit int, err error) {
	page, err = StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, fmt.Errorf("invalid page number")
	}
	limit, err = StringToInt(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > maxPageLimit {
		return 0, 0, fmt.Errorf("invalid limit")
	}
	return page, limit, nil
}

func TotalPages(total int64, limit int) int64 {
	return (total + int64(limit) - 1) / int64(limit)
}

// ParseOptionalFloat parses a query value that may be absent.
func ParseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// NewOrderID mints the order identifier used as the payment reference.
func NewOrderID() string {
	return uuid.NewString()
}

// IsOrderID reports whether s has the canonical 36 character UUID form.
func IsOrderID(s string) bool {
	if len(s) != OrderIDLength {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// GenerateTicketCode returns an 8 character code drawn from A-Z and 0-9.
func GenerateTicketCode() (string, error) {
	return randomString(ticketCodeAlphabet, TicketCodeLength)
}

// GenerateOTP returns a six digit code without a leading zero.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
