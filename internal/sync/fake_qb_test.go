// sync/fake_qb_test.go
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// fakeQB is an in-memory stand-in for the QuickBooks company API, covering
// the subset of query and write endpoints the reconciler uses.
type fakeQB struct {
	mu sync.Mutex

	invoices  map[string]*qbclient.Invoice
	customers map[string]*qbclient.Customer
	items     []qbclient.Item
	terms     []qbclient.Term
	accounts  []qbclient.Account

	nextID          int
	invoiceCreates  int
	invoiceUpdates  int
	customerCreates int

	// staleUpdates rejects that many updates with a stale-object fault
	// before accepting one.
	staleUpdates int

	server *httptest.Server
}

func newFakeQB() *fakeQB {
	f := &fakeQB{
		invoices:  make(map[string]*qbclient.Invoice),
		customers: make(map[string]*qbclient.Customer),
		items: []qbclient.Item{
			{ID: "10", Name: "Hourly Labor", Type: "Service"},
			{ID: "11", Name: "Services", Type: "Service"},
		},
		terms:    []qbclient.Term{{ID: "3", Name: "Net 30"}},
		accounts: []qbclient.Account{{ID: "80", Name: "Sales", AccountType: "Income"}},
		nextID:   100,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeQB) Close() { f.server.Close() }

type fakeTokens struct{}

func (fakeTokens) Token(ctx context.Context, realmID string) (string, error) {
	return "test-token", nil
}

func (f *fakeQB) client() *qbclient.Client {
	log := testLogger()
	c := qbclient.NewClient(qbclient.Sandbox, "75", fakeTokens{}, log)
	return c.WithBaseURL(f.server.URL).WithRealm("realm-1")
}

func (f *fakeQB) allocID() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

var docNumberQueryRe = regexp.MustCompile(`DocNumber = '((?:\\.|[^'])*)'`)
var displayNameQueryRe = regexp.MustCompile(`DisplayName = '((?:\\.|[^'])*)'`)
var itemNameQueryRe = regexp.MustCompile(`Name = '((?:\\.|[^'])*)'`)

func unescapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\'`, `'`)
	return strings.ReplaceAll(s, `\\`, `\`)
}

func (f *fakeQB) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/realm-1")
	switch {
	case path == "/query":
		f.handleQuery(w, r)
	case path == "/invoice" && r.Method == http.MethodPost:
		f.handleInvoiceWrite(w, r)
	case strings.HasPrefix(path, "/invoice/") && r.Method == http.MethodGet:
		inv, ok := f.invoices[strings.TrimPrefix(path, "/invoice/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.respondEntity(w, "Invoice", inv)
	case path == "/customer" && r.Method == http.MethodPost:
		f.handleCustomerCreate(w, r)
	case path == "/item" && r.Method == http.MethodPost:
		f.handleItemCreate(w, r)
	case path == "/payment" && r.Method == http.MethodPost:
		f.handlePaymentCreate(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeQB) handleQuery(w http.ResponseWriter, r *http.Request) {
	expr, _ := url.QueryUnescape(r.URL.Query().Get("query"))

	resp := qbclient.QueryResponse{}
	switch {
	case strings.Contains(expr, "FROM Invoice"):
		if m := docNumberQueryRe.FindStringSubmatch(expr); m != nil {
			doc := unescapeQueryValue(m[1])
			for _, inv := range f.invoices {
				if inv.DocNumber == doc {
					resp.Invoice = append(resp.Invoice, *inv)
				}
			}
		}
	case strings.Contains(expr, "FROM Customer"):
		if m := displayNameQueryRe.FindStringSubmatch(expr); m != nil {
			name := unescapeQueryValue(m[1])
			for _, c := range f.customers {
				if c.DisplayName == name {
					resp.Customer = append(resp.Customer, *c)
				}
			}
		}
	case strings.Contains(expr, "FROM Item"):
		if m := itemNameQueryRe.FindStringSubmatch(expr); m != nil {
			name := unescapeQueryValue(m[1])
			for _, item := range f.items {
				if item.Name == name {
					resp.Item = append(resp.Item, item)
				}
			}
		} else {
			resp.Item = f.items
		}
	case strings.Contains(expr, "FROM Account"):
		resp.Account = f.accounts
	case strings.Contains(expr, "FROM Term"):
		resp.Term = f.terms
	}

	json.NewEncoder(w).Encode(map[string]interface{}{"QueryResponse": resp})
}

func (f *fakeQB) handleInvoiceWrite(w http.ResponseWriter, r *http.Request) {
	var payload qbclient.InvoiceUpsert
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if payload.ID == "" {
		f.invoiceCreates++
		inv := invoiceFromUpsert(&payload)
		inv.ID = f.allocID()
		inv.SyncToken = "0"
		f.invoices[inv.ID] = inv
		f.respondEntity(w, "Invoice", inv)
		return
	}

	existing, ok := f.invoices[payload.ID]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if f.staleUpdates > 0 || payload.SyncToken != existing.SyncToken {
		if f.staleUpdates > 0 {
			f.staleUpdates--
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"Fault":{"type":"ValidationFault","Error":[{"Message":"Stale Object Error","code":"5010"}]}}`)
		return
	}

	f.invoiceUpdates++
	inv := invoiceFromUpsert(&payload)
	inv.ID = existing.ID
	token, _ := strconv.Atoi(existing.SyncToken)
	inv.SyncToken = strconv.Itoa(token + 1)
	f.invoices[inv.ID] = inv
	f.respondEntity(w, "Invoice", inv)
}

// invoiceFromUpsert materializes the remote-computed fields a real company
// file would: totals from the lines, balance equal to the total.
func invoiceFromUpsert(payload *qbclient.InvoiceUpsert) *qbclient.Invoice {
	total := decimal.Zero
	for _, line := range payload.Line {
		total = total.Add(line.Amount)
	}
	return &qbclient.Invoice{
		DocNumber:    payload.DocNumber,
		TxnDate:      payload.TxnDate,
		DueDate:      payload.DueDate,
		CustomerRef:  payload.CustomerRef,
		Line:         payload.Line,
		BillAddr:     payload.BillAddr,
		ShipAddr:     payload.ShipAddr,
		SalesTermRef: payload.SalesTermRef,
		CustomerMemo: payload.CustomerMemo,
		PrivateNote:  payload.PrivateNote,
		TxnTaxDetail: payload.TxnTaxDetail,
		TotalAmt:     total,
		Balance:      total,
	}
}

func (f *fakeQB) handleCustomerCreate(w http.ResponseWriter, r *http.Request) {
	var cust qbclient.Customer
	if err := json.NewDecoder(r.Body).Decode(&cust); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.customerCreates++
	cust.ID = f.allocID()
	f.customers[cust.ID] = &cust
	f.respondEntity(w, "Customer", &cust)
}

func (f *fakeQB) handleItemCreate(w http.ResponseWriter, r *http.Request) {
	var item qbclient.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item.ID = f.allocID()
	f.items = append(f.items, item)
	f.respondEntity(w, "Item", &item)
}

func (f *fakeQB) handlePaymentCreate(w http.ResponseWriter, r *http.Request) {
	var p qbclient.Payment
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.ID = f.allocID()

	// Reduce the linked invoice's balance the way the real ledger would.
	for _, line := range p.Line {
		for _, linked := range line.LinkedTxn {
			if inv, ok := f.invoices[linked.TxnID]; ok {
				inv.Balance = inv.Balance.Sub(line.Amount)
			}
		}
	}
	f.respondEntity(w, "Payment", &p)
}

func (f *fakeQB) respondEntity(w http.ResponseWriter, name string, entity interface{}) {
	json.NewEncoder(w).Encode(map[string]interface{}{name: entity})
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
