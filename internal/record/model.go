// record/model.go
package record

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound means no service record exists for the id.
var ErrNotFound = errors.New("service record not found")

// LineItem is one billable line of a service record. Quantity, rate, and
// amount are kept as the raw strings the user (or an import file) supplied;
// numeric cleaning happens at translation time so bad input is visible
// until it is rejected.
type LineItem struct {
	ActivityLabel string `json:"activity_label"`
	Description   string `json:"description"`
	Quantity      string `json:"quantity"`
	UnitRate      string `json:"unit_rate"`
	Amount        string `json:"amount,omitempty"`
}

// Address is the structured local address shape: up to three street lines
// plus city/region/postal/country.
type Address struct {
	Street     []string `json:"street,omitempty"`
	City       string   `json:"city,omitempty"`
	Region     string   `json:"region,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Country    string   `json:"country,omitempty"`
}

// RemoteFields are the values the remote accounting system owns. They are
// written only from remote responses, never from local edits.
type RemoteFields struct {
	InvoiceID     string          `json:"invoice_id"`
	TotalBilled   decimal.Decimal `json:"total_billed"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	PaymentStatus string          `json:"payment_status"`
	SyncedAt      time.Time       `json:"synced_at"`
}

// Payment statuses derived from remote totals.
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"
)

// ServiceRecord is the locally owned representation of billable work: the
// authoritative source for line items, customer reference, memo, and dates.
type ServiceRecord struct {
	ID            string     `json:"id"`
	DocNumber     string     `json:"doc_number"`
	CustomerID    string     `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	TxnDate       string     `json:"txn_date,omitempty"`
	DueDate       string     `json:"due_date,omitempty"`
	LineItems     []LineItem `json:"line_items"`
	BillAddress   *Address   `json:"bill_address,omitempty"`
	ShipAddress   *Address   `json:"ship_address,omitempty"`
	PaymentTerms  string     `json:"payment_terms,omitempty"`
	Memo          string     `json:"memo,omitempty"`
	PrivateNote   string     `json:"private_note,omitempty"`
	WorkOrderRefs []string   `json:"work_order_refs,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Remote RemoteFields `json:"remote"`
}

// Synced reports whether the record has ever been reconciled remotely.
func (r *ServiceRecord) Synced() bool {
	return r.Remote.InvoiceID != ""
}
