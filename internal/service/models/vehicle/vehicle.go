package vehicle

import "time"

// Vehicle represents a client's vehicle.
type Vehicle struct {
	ID              int64      `json:"id"`
	ClientID        int64      `json:"clientId"`
	Plate           string     `json:"plate"`
	Brand           string     `json:"brand"`
	Model           string     `json:"model"`
	Mileage         int64      `json:"mileage"`
	LastServiceDate *time.Time `json:"lastServiceDate,omitempty"`
}
