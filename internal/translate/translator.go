// translate/translator.go
package translate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eGGnogSC/booksync/internal/record"
	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// ValidationError means the local record cannot be expressed as a remote
// invoice. It is fatal for that record and not retryable without changes.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// ErrNoValidLines is returned when every line item was rejected; a remote
// invoice must always carry at least one line.
var ErrNoValidLines = &ValidationError{Reason: "no valid line items"}

// IsValidation reports whether err is a translation validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Options configures translation behavior.
type Options struct {
	WorkOrderPrefix string
	AutoPrefix      bool
}

// Translator performs the pure, side-effect-free mapping between local
// service records and the remote invoice wire shape. It holds no network
// handles; catalog and terms snapshots are passed in per batch.
type Translator struct {
	opts Options
}

// New creates a translator.
func New(opts Options) *Translator {
	return &Translator{opts: opts}
}

// BuildInput bundles the record with the remote snapshots a translation
// needs. Customer must already be resolved; that is the reconciler's job.
type BuildInput struct {
	Record   *record.ServiceRecord
	Customer qbclient.Ref
	Catalog  *Catalog
	Terms    []qbclient.Term
}

// BuildInvoice produces the create/update payload for a record. The output
// type has no fields for remote-computed values, so totals, balances, and
// system flags can never leak into the request.
func (t *Translator) BuildInvoice(in BuildInput) (*qbclient.InvoiceUpsert, error) {
	rec := in.Record

	lines, err := t.buildLines(rec, in.Catalog)
	if err != nil {
		return nil, err
	}

	inv := &qbclient.InvoiceUpsert{
		DocNumber:   rec.DocNumber,
		TxnDate:     rec.TxnDate,
		DueDate:     rec.DueDate,
		CustomerRef: &in.Customer,
		Line:        lines,
		BillAddr:    FormatAddress(rec.BillAddress),
		ShipAddr:    FormatAddress(rec.ShipAddress),
	}

	if ref := ResolveTerms(rec.PaymentTerms, in.Terms); ref != nil {
		inv.SalesTermRef = ref
	}

	if memo := strings.TrimSpace(rec.Memo); memo != "" {
		inv.CustomerMemo = &qbclient.MemoRef{Value: memo}
	}

	inv.PrivateNote = t.buildPrivateNote(rec)

	return inv, nil
}

// buildLines filters and converts line items. A line with non-positive or
// non-numeric quantity or rate (after numeric cleaning) is skipped; when
// every line is skipped, translation fails.
func (t *Translator) buildLines(rec *record.ServiceRecord, catalog *Catalog) ([]qbclient.Line, error) {
	var lines []qbclient.Line

	for i, item := range rec.LineItems {
		qty, err := CleanNumeric(item.Quantity)
		if err != nil || qty.Sign() <= 0 {
			continue
		}
		rate, err := CleanNumeric(item.UnitRate)
		if err != nil || rate.Sign() <= 0 {
			continue
		}

		amount, err := CleanNumeric(item.Amount)
		if err != nil || amount.Sign() <= 0 {
			amount = qty.Mul(rate)
		}

		itemRef := catalog.Resolve(item.ActivityLabel)

		lines = append(lines, qbclient.Line{
			LineNum:     i + 1,
			Description: strings.TrimSpace(item.Description),
			Amount:      amount,
			DetailType:  "SalesItemLineDetail",
			SalesItemLineDetail: &qbclient.SalesItemLineDetail{
				ItemRef:   &itemRef,
				Qty:       qty,
				UnitPrice: rate,
			},
		})
	}

	if len(lines) == 0 {
		return nil, ErrNoValidLines
	}
	return lines, nil
}

// buildPrivateNote combines the record's private note with its normalized
// work-order references.
func (t *Translator) buildPrivateNote(rec *record.ServiceRecord) string {
	note := strings.TrimSpace(rec.PrivateNote)
	refs := JoinWorkOrderRefs(rec.WorkOrderRefs, t.opts.WorkOrderPrefix, t.opts.AutoPrefix)
	if refs == "" {
		return note
	}
	if note == "" {
		return refs
	}
	return note + " " + refs
}

// RemoteFieldsFromInvoice derives the local read-only fields from a remote
// invoice response. This is the only path by which remote-computed values
// reach local storage.
func RemoteFieldsFromInvoice(inv *qbclient.Invoice) record.RemoteFields {
	paid := inv.TotalAmt.Sub(inv.Balance)

	status := record.PaymentStatusUnpaid
	switch {
	case inv.TotalAmt.Sign() > 0 && inv.Balance.Sign() == 0:
		status = record.PaymentStatusPaid
	case paid.Sign() > 0:
		status = record.PaymentStatusPartial
	}

	return record.RemoteFields{
		InvoiceID:     inv.ID,
		TotalBilled:   inv.TotalAmt,
		BalanceDue:    inv.Balance,
		TotalPaid:     paid,
		PaymentStatus: status,
		SyncedAt:      time.Now().UTC(),
	}
}

// CleanNumeric parses a money or quantity string after light cleaning:
// currency symbols, spaces, and thousands separators are stripped, leaving
// a single decimal point at most.
func CleanNumeric(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty numeric value")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '$', r == '€', r == '£', r == '¥':
			// separators and currency markers
		default:
			return decimal.Zero, fmt.Errorf("non-numeric value %q", s)
		}
	}

	cleaned := b.String()
	if strings.Count(cleaned, ".") > 1 {
		return decimal.Zero, fmt.Errorf("malformed numeric value %q", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("non-numeric value %q", s)
	}
	return d, nil
}
