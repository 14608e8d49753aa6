package paymentmethod

import (
	"database/sql/driver"
	"errors"
)

type PaymentMethod string

const (
	Cash     PaymentMethod = "cash"
	Card     PaymentMethod = "card"
	Pix      PaymentMethod = "pix"
	Transfer PaymentMethod = "transfer"
	Other    PaymentMethod = "other"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) Value() (driver.Value, error) {
	return p.String(), nil
}

// Parse accepts an empty string as "not chosen yet".
func Parse(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case "", Cash, Card, Pix, Transfer, Other:
		return PaymentMethod(s), nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}
