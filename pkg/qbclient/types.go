// qbclient/types.go
package qbclient

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Ref points at another QuickBooks entity by id, optionally carrying its
// display name.
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// MemoRef wraps the customer-visible memo text.
type MemoRef struct {
	Value string `json:"value"`
}

// Address is the QuickBooks physical address shape, shared by billing and
// shipping addresses.
type Address struct {
	Line1                  string `json:"Line1,omitempty"`
	Line2                  string `json:"Line2,omitempty"`
	Line3                  string `json:"Line3,omitempty"`
	Line4                  string `json:"Line4,omitempty"`
	Line5                  string `json:"Line5,omitempty"`
	City                   string `json:"City,omitempty"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode,omitempty"`
	PostalCode             string `json:"PostalCode,omitempty"`
	Country                string `json:"Country,omitempty"`
}

// SalesItemLineDetail carries the item reference and pricing of a sales line.
type SalesItemLineDetail struct {
	ItemRef   *Ref            `json:"ItemRef,omitempty"`
	Qty       decimal.Decimal `json:"Qty"`
	UnitPrice decimal.Decimal `json:"UnitPrice"`
}

// Line is one invoice line. DetailType is always "SalesItemLineDetail" for
// lines this service writes.
type Line struct {
	ID                  string               `json:"Id,omitempty"`
	LineNum             int                  `json:"LineNum,omitempty"`
	Description         string               `json:"Description,omitempty"`
	Amount              decimal.Decimal      `json:"Amount"`
	DetailType          string               `json:"DetailType"`
	SalesItemLineDetail *SalesItemLineDetail `json:"SalesItemLineDetail,omitempty"`
}

// Invoice is the full read shape returned by QuickBooks, including the
// fields the remote side owns (SyncToken, TotalAmt, Balance).
type Invoice struct {
	ID           string          `json:"Id"`
	SyncToken    string          `json:"SyncToken"`
	DocNumber    string          `json:"DocNumber"`
	TxnDate      string          `json:"TxnDate,omitempty"`
	DueDate      string          `json:"DueDate,omitempty"`
	CustomerRef  *Ref            `json:"CustomerRef,omitempty"`
	Line         []Line          `json:"Line,omitempty"`
	BillAddr     *Address        `json:"BillAddr,omitempty"`
	ShipAddr     *Address        `json:"ShipAddr,omitempty"`
	SalesTermRef *Ref            `json:"SalesTermRef,omitempty"`
	CustomerMemo *MemoRef        `json:"CustomerMemo,omitempty"`
	PrivateNote  string          `json:"PrivateNote,omitempty"`
	TxnTaxDetail json.RawMessage `json:"TxnTaxDetail,omitempty"`
	TotalAmt     decimal.Decimal `json:"TotalAmt"`
	Balance      decimal.Decimal `json:"Balance"`
}

// InvoiceUpsert is the write shape for creates and sparse updates. It has no
// TotalAmt, Balance, or other remote-computed fields, so those can never be
// transmitted. Id and SyncToken stay empty on create; the reconciler fills
// them for updates.
type InvoiceUpsert struct {
	ID           string          `json:"Id,omitempty"`
	SyncToken    string          `json:"SyncToken,omitempty"`
	Sparse       bool            `json:"sparse,omitempty"`
	DocNumber    string          `json:"DocNumber,omitempty"`
	TxnDate      string          `json:"TxnDate,omitempty"`
	DueDate      string          `json:"DueDate,omitempty"`
	CustomerRef  *Ref            `json:"CustomerRef,omitempty"`
	Line         []Line          `json:"Line,omitempty"`
	BillAddr     *Address        `json:"BillAddr,omitempty"`
	ShipAddr     *Address        `json:"ShipAddr,omitempty"`
	SalesTermRef *Ref            `json:"SalesTermRef,omitempty"`
	CustomerMemo *MemoRef        `json:"CustomerMemo,omitempty"`
	PrivateNote  string          `json:"PrivateNote,omitempty"`
	TxnTaxDetail json.RawMessage `json:"TxnTaxDetail,omitempty"`
}

// Customer is the QuickBooks customer entity, read and write.
type Customer struct {
	ID          string   `json:"Id,omitempty"`
	SyncToken   string   `json:"SyncToken,omitempty"`
	DisplayName string   `json:"DisplayName,omitempty"`
	CompanyName string   `json:"CompanyName,omitempty"`
	BillAddr    *Address `json:"BillAddr,omitempty"`
	ShipAddr    *Address `json:"ShipAddr,omitempty"`
}

// Item is a product/service catalog entry.
type Item struct {
	ID               string `json:"Id,omitempty"`
	SyncToken        string `json:"SyncToken,omitempty"`
	Name             string `json:"Name,omitempty"`
	Type             string `json:"Type,omitempty"`
	IncomeAccountRef *Ref   `json:"IncomeAccountRef,omitempty"`
}

// Account is a chart-of-accounts entry; the importer needs one income-type
// account to create a default item against.
type Account struct {
	ID          string `json:"Id,omitempty"`
	Name        string `json:"Name,omitempty"`
	AccountType string `json:"AccountType,omitempty"`
}

// Term is a payment-terms entry (e.g. "Net 30").
type Term struct {
	ID   string `json:"Id,omitempty"`
	Name string `json:"Name,omitempty"`
}

// LinkedTxn links a payment line back to the transaction it pays.
type LinkedTxn struct {
	TxnID   string `json:"TxnId"`
	TxnType string `json:"TxnType"`
}

// PaymentLine applies part of a payment to linked transactions.
type PaymentLine struct {
	Amount    decimal.Decimal `json:"Amount"`
	LinkedTxn []LinkedTxn     `json:"LinkedTxn,omitempty"`
}

// Payment records money received against one or more invoices.
type Payment struct {
	ID          string          `json:"Id,omitempty"`
	SyncToken   string          `json:"SyncToken,omitempty"`
	TotalAmt    decimal.Decimal `json:"TotalAmt"`
	CustomerRef *Ref            `json:"CustomerRef,omitempty"`
	TxnDate     string          `json:"TxnDate,omitempty"`
	Line        []PaymentLine   `json:"Line,omitempty"`
}

// QueryResponse is the polymorphic result block of the query endpoint; only
// the slice matching the queried entity is populated.
type QueryResponse struct {
	Invoice       []Invoice  `json:"Invoice,omitempty"`
	Customer      []Customer `json:"Customer,omitempty"`
	Item          []Item     `json:"Item,omitempty"`
	Account       []Account  `json:"Account,omitempty"`
	Term          []Term     `json:"Term,omitempty"`
	StartPosition int        `json:"startPosition,omitempty"`
	MaxResults    int        `json:"maxResults,omitempty"`
}
