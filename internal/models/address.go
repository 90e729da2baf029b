package models

import "strings"

// DeliveryAddress is the customer supplied delivery destination.
type DeliveryAddress struct {
	Street     string `json:"street"     bson:"street"`
	City       string `json:"city"       bson:"city"`
	State      string `json:"state"      bson:"state"`
	PostalCode string `json:"postalCode" bson:"postal_code"`
	Landmark   string `json:"landmark"   bson:"landmark,omitempty"`
}

// Complete reports whether the address carries every component needed to geocode it.
func (a DeliveryAddress) Complete() bool {
	for _, part := range []string{a.Street, a.City, a.State, a.PostalCode} {
		if strings.TrimSpace(part) == "" {
			return false
		}
	}

	return true
}
