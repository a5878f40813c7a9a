package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// NewOTPCode returns a uniformly random six digit code.
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NewMemberID returns a human readable member number such as "LR-4F9C2A7D".
func NewMemberID() string {
	return "LR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewBarcodeValue returns a 13 digit numeric payload for the member card
// barcode.
func NewBarcodeValue() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("2%012d", n.Int64()), nil
}

// NewRedemptionCode returns a short code shown at the till, e.g. "RW-7K2M9QXA".
func NewRedemptionCode() string {
	id := uuid.New()
	return "RW-" + strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}
