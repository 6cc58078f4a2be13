// importer/importer.go
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/eGGnogSC/booksync/config"
	"github.com/eGGnogSC/booksync/internal/record"
	recsync "github.com/eGGnogSC/booksync/internal/sync"
	"github.com/eGGnogSC/booksync/internal/translate"
	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// Summary is the structured outcome of a batch run. A single bad row never
// aborts its siblings; its failure lands here instead.
type Summary struct {
	Created         int        `json:"created"`
	Skipped         int        `json:"skipped"`
	PaymentsCreated int        `json:"payments_created"`
	Errors          []RowError `json:"errors"`
	DryRun          bool       `json:"dry_run"`
	BatchID         string     `json:"batch_id"`
}

// RowError describes one failed group, identified by its document number
// (or content-hash key for rows without one) and first source row.
type RowError struct {
	Group    string `json:"group"`
	FirstRow int    `json:"first_row"`
	Message  string `json:"message"`
}

// Importer turns a parsed import table into reconciler invocations with
// partial-failure isolation.
type Importer struct {
	qb         *qbclient.Client
	reconciler *recsync.Reconciler
	records    record.Store
	translator *translate.Translator
	cfg        config.ImportConfig
	log        *logrus.Logger
}

// New creates an importer bound to a realm-scoped client.
func New(qb *qbclient.Client, records record.Store, translator *translate.Translator, cfg config.ImportConfig, log *logrus.Logger) *Importer {
	return &Importer{
		qb:         qb,
		reconciler: recsync.NewReconciler(qb, records, translator, cfg.DefaultItemName, log),
		records:    records,
		translator: translator,
		cfg:        cfg,
		log:        log,
	}
}

// group is a set of rows sharing one document number; rows without one are
// singleton groups keyed by content hash so they can never merge by
// accident.
type group struct {
	key       string
	docNumber string
	rows      []map[string]string
	firstRow  int
}

// Run imports every group in the table. In dry-run mode all validation
// happens but no remote mutating call is made and nothing is persisted.
func (imp *Importer) Run(ctx context.Context, table *Table, dryRun bool) (*Summary, error) {
	summary := &Summary{
		DryRun:  dryRun,
		BatchID: uuid.NewString(),
	}

	groups := groupRows(table.Rows)

	var snap *recsync.Snapshot
	if !dryRun {
		var err error
		snap, err = imp.reconciler.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("import aborted before any row: %w", err)
		}
	}

	for _, g := range groups {
		if err := imp.runGroup(ctx, g, snap, dryRun, summary); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, RowError{
				Group:    g.key,
				FirstRow: g.firstRow,
				Message:  err.Error(),
			})
			imp.log.WithFields(logrus.Fields{
				"group": g.key,
				"row":   g.firstRow,
			}).WithError(err).Warn("import group failed")
		}
	}

	imp.log.WithFields(logrus.Fields{
		"batch_id": summary.BatchID,
		"created":  summary.Created,
		"skipped":  summary.Skipped,
		"payments": summary.PaymentsCreated,
		"dry_run":  dryRun,
	}).Info("import finished")

	return summary, nil
}

func (imp *Importer) runGroup(ctx context.Context, g group, snap *recsync.Snapshot, dryRun bool, summary *Summary) error {
	rec := imp.buildRecord(g)

	if rec.CustomerName == "" {
		return fmt.Errorf("no customer name in group")
	}

	paid := imp.derivePaidAmount(g)

	if dryRun {
		// Validate the translation without touching the remote side.
		_, err := imp.translator.BuildInvoice(translate.BuildInput{
			Record:   rec,
			Customer: qbclient.Ref{Value: "validation"},
			Catalog:  translate.NewCatalog(nil, qbclient.Ref{Value: "validation"}),
		})
		if err != nil {
			return err
		}
		summary.Created++
		if paid.Sign() > 0 {
			summary.PaymentsCreated++
		}
		return nil
	}

	if err := imp.records.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}

	var invoiceID string
	var balanceDue decimal.Decimal
	var customer qbclient.Ref
	if rec.DocNumber != "" {
		result, err := imp.reconciler.SyncWithSnapshot(ctx, rec.ID, nil, snap)
		if err != nil {
			return err
		}
		invoiceID = result.InvoiceID
		balanceDue = result.Remote.BalanceDue
		if updated, err := imp.records.Get(ctx, rec.ID); err == nil {
			rec = updated
		}
		customer = qbclient.Ref{Value: rec.CustomerID, Name: rec.CustomerName}
		if customer.Value == "" {
			customer, err = imp.reconciler.ResolveCustomer(ctx, rec)
			if err != nil {
				return err
			}
		}
	} else {
		// No document number: nothing to reconcile against, create directly
		// and let the remote side assign one.
		var err error
		customer, err = imp.reconciler.ResolveCustomer(ctx, rec)
		if err != nil {
			return err
		}
		payload, err := imp.translator.BuildInvoice(translate.BuildInput{
			Record:   rec,
			Customer: customer,
			Catalog:  snap.Catalog,
			Terms:    snap.Terms,
		})
		if err != nil {
			return err
		}
		created, err := imp.qb.CreateInvoice(ctx, payload)
		if err != nil {
			return err
		}
		invoiceID = created.ID
		remote := translate.RemoteFieldsFromInvoice(created)
		balanceDue = remote.BalanceDue
		if err := imp.records.UpdateRemoteFields(ctx, rec.ID, remote); err != nil {
			return fmt.Errorf("failed to store sync result: %w", err)
		}
	}

	summary.Created++

	// Cap the payment at what the invoice still owes so re-running the same
	// file never applies the amount twice.
	if paid.GreaterThan(balanceDue) {
		paid = balanceDue
	}
	if paid.Sign() > 0 {
		if err := imp.createPayment(ctx, g, customer, invoiceID, paid); err != nil {
			// The invoice exists; only the payment failed.
			return fmt.Errorf("invoice %s created but payment failed: %w", invoiceID, err)
		}
		summary.PaymentsCreated++
	}

	return nil
}

// buildRecord maps one group onto a service record: header fields from the
// first row that carries them, one line item per row, descriptions merged
// into the memo by deduplicated concatenation.
func (imp *Importer) buildRecord(g group) *record.ServiceRecord {
	rec := &record.ServiceRecord{
		ID:           uuid.NewString(),
		DocNumber:    g.docNumber,
		CustomerName: firstValue(g.rows, colCustomer),
		TxnDate:      imp.normalizeDate(firstValue(g.rows, colTxnDate)),
		DueDate:      imp.normalizeDate(firstValue(g.rows, colDueDate)),
		PaymentTerms: firstValue(g.rows, colTerms),
		Memo:         mergeDescriptions(g.rows),
	}

	for _, row := range g.rows {
		item := record.LineItem{
			ActivityLabel: row[colItem],
			Description:   row[colDescription],
			Quantity:      row[colQuantity],
			UnitRate:      row[colRate],
		}
		if item.Quantity == "" {
			item.Quantity = "1"
		}
		if item.UnitRate == "" {
			// A total-only row is a single whole-invoice line.
			item.UnitRate = row[colTotal]
			item.Amount = row[colTotal]
		}
		rec.LineItems = append(rec.LineItems, item)
	}

	return rec
}

// derivePaidAmount returns the explicit Paid value when present, otherwise
// total minus balance when both are known. Group-level money fields are
// read once, from the first row carrying them, so repeated values in a
// multi-row group are not double counted.
func (imp *Importer) derivePaidAmount(g group) decimal.Decimal {
	if paid, err := translate.CleanNumeric(firstValue(g.rows, colPaid)); err == nil && paid.Sign() > 0 {
		return paid
	}

	total, errTotal := translate.CleanNumeric(firstValue(g.rows, colTotal))
	balance, errBalance := translate.CleanNumeric(firstValue(g.rows, colBalance))
	if errTotal == nil && errBalance == nil {
		if diff := total.Sub(balance); diff.Sign() > 0 {
			return diff
		}
	}

	return decimal.Zero
}

func (imp *Importer) createPayment(ctx context.Context, g group, customer qbclient.Ref, invoiceID string, amount decimal.Decimal) error {
	txnDate := imp.normalizeDate(firstValue(g.rows, colPaymentDate))
	if txnDate == "" {
		txnDate = imp.normalizeDate(firstValue(g.rows, colTxnDate))
	}

	_, err := imp.qb.CreatePayment(ctx, &qbclient.Payment{
		TotalAmt:    amount,
		CustomerRef: &customer,
		TxnDate:     txnDate,
		Line: []qbclient.PaymentLine{{
			Amount: amount,
			LinkedTxn: []qbclient.LinkedTxn{{
				TxnID:   invoiceID,
				TxnType: "Invoice",
			}},
		}},
	})
	return err
}

// normalizeDate parses a date in the configured format (with common
// fallbacks) and renders it as an ISO 8601 date. Unparseable input yields
// an empty string rather than an error; the remote side defaults it.
func (imp *Importer) normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	layouts := []string{imp.cfg.DateFormat, "2006-01-02", "01/02/2006", "1/2/2006", "2006/01/02", "02-Jan-2006"}
	for _, layout := range layouts {
		if layout == "" {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// groupRows buckets rows by document number, preserving encounter order.
// Rows without one become singleton groups; the row index goes into the
// key so identical rows stay separate.
func groupRows(rows []map[string]string) []group {
	var order []string
	byKey := make(map[string]*group)

	for i, row := range rows {
		docNumber := strings.TrimSpace(row[colDocNumber])
		key := docNumber
		if key == "" {
			key = fmt.Sprintf("row:%d:%s", i, contentHash(row))
		}

		g, ok := byKey[key]
		if !ok {
			g = &group{key: key, docNumber: docNumber, firstRow: i + 2} // 1-based, after header
			byKey[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, row)
	}

	groups := make([]group, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}
	return groups
}

// contentHash fingerprints a row so document-number-less rows can never be
// merged by accident.
func contentHash(row map[string]string) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(row[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// mergeDescriptions concatenates distinct description values across the
// group, preserving first-seen order.
func mergeDescriptions(rows []map[string]string) string {
	var parts []string
	seen := make(map[string]bool)
	for _, row := range rows {
		desc := strings.TrimSpace(row[colDescription])
		if desc == "" || seen[desc] {
			continue
		}
		seen[desc] = true
		parts = append(parts, desc)
	}
	return strings.Join(parts, "; ")
}

func firstValue(rows []map[string]string, col string) string {
	for _, row := range rows {
		if v := strings.TrimSpace(row[col]); v != "" {
			return v
		}
	}
	return ""
}
