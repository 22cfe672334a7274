package types

// PaymentInfo is the opaque payment payload carried on an order. Actual
// payment processing happens outside this service; we persist what the
// client sent so a processor can pick it up later.
type PaymentInfo struct {
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
	Last4     string `json:"last4,omitempty"`
}
