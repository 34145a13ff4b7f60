package payment

// Card holds the raw card fields as typed by the customer.
type Card struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVC    string `json:"cvc"`
}

// Masked returns the last four digits for logs.
func (c Card) Masked() string {
	digits := digitsOnly(c.Number)
	if len(digits) < 4 {
		return "****"
	}
	return "****" + digits[len(digits)-4:]
}

type Authorization struct {
	Approved      bool   `json:"approved"`
	Reference     string `json:"reference,omitempty"`
	DeclineReason string `json:"declineReason,omitempty"`
}
