// sync/reconciler.go
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/eGGnogSC/booksync/internal/record"
	"github.com/eGGnogSC/booksync/internal/translate"
	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// Reconciler performs the idempotent upsert of one remote invoice per
// service record, keyed by DocNumber. Re-running a sync for unchanged data
// never creates a second invoice: an existing DocNumber is always updated
// in place with its current SyncToken.
type Reconciler struct {
	qb              *qbclient.Client
	records         record.Store
	translator      *translate.Translator
	defaultItemName string
	log             *logrus.Logger
}

// NewReconciler creates a reconciler bound to a realm-scoped client.
func NewReconciler(qb *qbclient.Client, records record.Store, translator *translate.Translator, defaultItemName string, log *logrus.Logger) *Reconciler {
	return &Reconciler{
		qb:              qb,
		records:         records,
		translator:      translator,
		defaultItemName: defaultItemName,
		log:             log,
	}
}

// Overrides are caller-supplied header values that take precedence over
// both the record and the existing remote invoice.
type Overrides struct {
	CustomerRef *qbclient.Ref
	PrivateNote *string
}

// Result reports one completed sync.
type Result struct {
	RecordID  string              `json:"record_id"`
	DocNumber string              `json:"doc_number"`
	InvoiceID string              `json:"invoice_id"`
	Created   bool                `json:"created"`
	Remote    record.RemoteFields `json:"remote"`
}

// Snapshot bundles the remote reference data a translation batch needs,
// fetched once rather than per record.
type Snapshot struct {
	Catalog *translate.Catalog
	Terms   []qbclient.Term
}

// Snapshot fetches the item catalog and payment terms, ensuring the default
// catalog item exists first.
func (r *Reconciler) Snapshot(ctx context.Context) (*Snapshot, error) {
	defaultRef, err := r.EnsureDefaultItem(ctx)
	if err != nil {
		return nil, err
	}

	items, err := r.qb.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item catalog: %w", err)
	}

	terms, err := r.qb.ListTerms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment terms: %w", err)
	}

	return &Snapshot{
		Catalog: translate.NewCatalog(items, defaultRef),
		Terms:   terms,
	}, nil
}

// EnsureDefaultItem finds the configured default catalog item, creating it
// against the first income-type account when absent.
func (r *Reconciler) EnsureDefaultItem(ctx context.Context) (qbclient.Ref, error) {
	item, err := r.qb.FindItemByName(ctx, r.defaultItemName)
	if err != nil {
		return qbclient.Ref{}, fmt.Errorf("failed to look up default item: %w", err)
	}
	if item != nil {
		return qbclient.Ref{Value: item.ID, Name: item.Name}, nil
	}

	account, err := r.qb.FirstIncomeAccount(ctx)
	if err != nil {
		return qbclient.Ref{}, fmt.Errorf("failed to look up income account: %w", err)
	}
	if account == nil {
		return qbclient.Ref{}, &translate.ValidationError{Reason: "no income account available to create the default item"}
	}

	created, err := r.qb.CreateItem(ctx, &qbclient.Item{
		Name:             r.defaultItemName,
		Type:             "Service",
		IncomeAccountRef: &qbclient.Ref{Value: account.ID},
	})
	if err != nil {
		return qbclient.Ref{}, fmt.Errorf("failed to create default item: %w", err)
	}

	r.log.WithField("item_id", created.ID).Info("created default catalog item")
	return qbclient.Ref{Value: created.ID, Name: created.Name}, nil
}

// ResolveCustomer finds or creates the customer for a record. Failure here
// is fatal for the record.
func (r *Reconciler) ResolveCustomer(ctx context.Context, rec *record.ServiceRecord) (qbclient.Ref, error) {
	if rec.CustomerID != "" {
		return qbclient.Ref{Value: rec.CustomerID, Name: rec.CustomerName}, nil
	}

	if rec.CustomerName == "" {
		return qbclient.Ref{}, &translate.ValidationError{Reason: "record has no customer reference"}
	}

	existing, err := r.qb.FindCustomerByName(ctx, rec.CustomerName)
	if err != nil {
		return qbclient.Ref{}, fmt.Errorf("customer lookup failed: %w", err)
	}
	if existing != nil {
		return qbclient.Ref{Value: existing.ID, Name: existing.DisplayName}, nil
	}

	created, err := r.qb.CreateCustomer(ctx, &qbclient.Customer{
		DisplayName: rec.CustomerName,
		BillAddr:    translate.FormatAddress(rec.BillAddress),
	})
	if err != nil {
		return qbclient.Ref{}, fmt.Errorf("customer create failed: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"customer_id": created.ID,
		"name":        created.DisplayName,
	}).Info("created customer")
	return qbclient.Ref{Value: created.ID, Name: created.DisplayName}, nil
}

// Sync reconciles one record against the remote ledger. Errors carry the
// record id for batch-level aggregation.
func (r *Reconciler) Sync(ctx context.Context, recordID string, ov *Overrides) (*Result, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", recordID, err)
	}
	return r.SyncWithSnapshot(ctx, recordID, ov, snap)
}

// SyncWithSnapshot reconciles one record using pre-fetched reference data.
// Stale-SyncToken conflicts re-run the whole attempt from lookup.
func (r *Reconciler) SyncWithSnapshot(ctx context.Context, recordID string, ov *Overrides, snap *Snapshot) (*Result, error) {
	rec, err := r.records.Get(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", recordID, err)
	}

	var result *Result
	backoff := retry.WithMaxRetries(3, retry.NewConstant(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := r.attempt(ctx, rec, ov, snap)
		if err != nil {
			if qbclient.IsStaleObject(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", recordID, err)
	}

	if err := r.records.UpdateRemoteFields(ctx, rec.ID, result.Remote); err != nil {
		return nil, fmt.Errorf("record %s: failed to store sync result: %w", recordID, err)
	}

	return result, nil
}

// attempt executes one lookup → create-or-update pass.
func (r *Reconciler) attempt(ctx context.Context, rec *record.ServiceRecord, ov *Overrides, snap *Snapshot) (*Result, error) {
	customer, err := r.ResolveCustomer(ctx, rec)
	if err != nil {
		return nil, err
	}
	if ov != nil && ov.CustomerRef != nil {
		customer = *ov.CustomerRef
	}

	payload, err := r.translator.BuildInvoice(translate.BuildInput{
		Record:   rec,
		Customer: customer,
		Catalog:  snap.Catalog,
		Terms:    snap.Terms,
	})
	if err != nil {
		return nil, err
	}
	if ov != nil && ov.PrivateNote != nil {
		payload.PrivateNote = *ov.PrivateNote
	}

	existing, err := r.qb.FindInvoiceByDocNumber(ctx, rec.DocNumber)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		created, err := r.qb.CreateInvoice(ctx, payload)
		if err != nil {
			return nil, err
		}
		r.log.WithFields(logrus.Fields{
			"doc_number": rec.DocNumber,
			"invoice_id": created.ID,
		}).Info("invoice created")
		return &Result{
			RecordID:  rec.ID,
			DocNumber: created.DocNumber,
			InvoiceID: created.ID,
			Created:   true,
			Remote:    translate.RemoteFieldsFromInvoice(created),
		}, nil
	}

	// The query projection may omit the SyncToken; a direct read is
	// authoritative.
	if existing.SyncToken == "" {
		existing, err = r.qb.GetInvoice(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
	}

	r.mergeExisting(payload, existing, ov)
	payload.ID = existing.ID
	payload.SyncToken = existing.SyncToken

	updated, err := r.qb.UpdateInvoice(ctx, payload)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"doc_number": rec.DocNumber,
		"invoice_id": updated.ID,
	}).Info("invoice updated")

	return &Result{
		RecordID:  rec.ID,
		DocNumber: updated.DocNumber,
		InvoiceID: updated.ID,
		Created:   false,
		Remote:    translate.RemoteFieldsFromInvoice(updated),
	}, nil
}

// mergeExisting fills header fields not explicitly provided from the
// existing remote invoice, so an update never blanks values the local side
// does not own.
func (r *Reconciler) mergeExisting(payload *qbclient.InvoiceUpsert, existing *qbclient.Invoice, ov *Overrides) {
	if payload.CustomerRef == nil {
		payload.CustomerRef = existing.CustomerRef
	}
	if payload.PrivateNote == "" && (ov == nil || ov.PrivateNote == nil) {
		payload.PrivateNote = existing.PrivateNote
	}
	// Tax detail is remote-managed; pass the current value through.
	payload.TxnTaxDetail = existing.TxnTaxDetail
}
