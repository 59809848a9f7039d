package types

import "strings"

// CustomerInfo is the contact snapshot captured on an order at checkout.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Normalize trims surrounding whitespace from both fields.
func (c CustomerInfo) Normalize() CustomerInfo {
	return CustomerInfo{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
	}
}
