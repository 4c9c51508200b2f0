// Package pricing turns the display prices stored on ticket tiers into whole-Naira
// amounts and computes order totals.
package pricing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/farellandr/sahmticket/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	MinQuantity = 1
	MaxQuantity = 10

	// KoboPerNaira is the gateway's minor unit factor.
	KoboPerNaira = 100
)

var amountPattern = regexp.MustCompile(`^(\d{1,3}(,\d{3})+|\d+)$`)

var printer = message.NewPrinter(language.English)

type Resolution struct {
	Tier      models.TicketTier
	UnitPrice int64
	Available bool
}

// Resolve finds the named tier on the event and parses its price. An unknown tier
// is an error; a tier whose price cannot be read resolves with UnitPrice 0.
func Resolve(event models.Event, tierName string) (Resolution, error) {
	tier, ok := event.Tier(tierName)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q on event %s", models.ErrTierNotFound, tierName, event.ID)
	}
	return Resolution{
		Tier:      tier,
		UnitPrice: ParseAmount(tier.Price),
		Available: tier.Available,
	}, nil
}

// ParseAmount reads a display price such as "₦15,000" or "NGN 2500" as whole
// Naira. The currency prefix is dropped, comma grouping is accepted, and any other
// shape (decimals, words, an empty string) yields 0.
func ParseAmount(display string) int64 {
	s := strings.TrimSpace(display)
	s = strings.TrimLeftFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Total multiplies a unit price by a quantity. Zero totals are refused so that a
// malformed price can never reach the gateway.
func Total(unitPrice int64, quantity int) (int64, error) {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return 0, fmt.Errorf("%w: %d (allowed %d-%d)", models.ErrInvalidQuantity, quantity, MinQuantity, MaxQuantity)
	}
	if unitPrice <= 0 {
		return 0, fmt.Errorf("%w: unit price %d", models.ErrInvalidAmount, unitPrice)
	}
	if unitPrice > math.MaxInt64/int64(quantity)/KoboPerNaira {
		return 0, fmt.Errorf("%w: total overflows", models.ErrInvalidAmount)
	}
	return unitPrice * int64(quantity), nil
}

// Kobo converts whole Naira to the gateway's minor unit.
func Kobo(naira int64) int64 {
	return naira * KoboPerNaira
}

// Format renders an amount the way the storefront shows it, e.g. "₦100,000".
func Format(naira int64) string {
	return printer.Sprintf("₦%d", naira)
}
