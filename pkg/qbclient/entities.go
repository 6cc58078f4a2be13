// qbclient/entities.go
package qbclient

import (
	"context"
	"fmt"
	"net/http"
)

// FindInvoiceByDocNumber looks an invoice up by its document number.
// Returns (nil, nil) when no invoice carries that number.
func (c *Client) FindInvoiceByDocNumber(ctx context.Context, docNumber string) (*Invoice, error) {
	expr := fmt.Sprintf("SELECT * FROM Invoice WHERE DocNumber = '%s'", EscapeQueryValue(docNumber))
	resp, err := c.Query(ctx, expr)
	if err != nil {
		return nil, err
	}
	if len(resp.Invoice) == 0 {
		return nil, nil
	}
	return &resp.Invoice[0], nil
}

// GetInvoice reads one invoice by id, including its current SyncToken.
func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var envelope struct {
		Invoice Invoice `json:"Invoice"`
	}
	if err := c.Do(ctx, http.MethodGet, "/invoice/"+id, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Invoice, nil
}

// CreateInvoice creates a new invoice and returns the remote entity, which
// carries the computed totals.
func (c *Client) CreateInvoice(ctx context.Context, inv *InvoiceUpsert) (*Invoice, error) {
	var envelope struct {
		Invoice Invoice `json:"Invoice"`
	}
	if err := c.Do(ctx, http.MethodPost, "/invoice", inv, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Invoice, nil
}

// UpdateInvoice submits a sparse update. inv must carry Id and the current
// SyncToken or QuickBooks rejects the write.
func (c *Client) UpdateInvoice(ctx context.Context, inv *InvoiceUpsert) (*Invoice, error) {
	if inv.ID == "" || inv.SyncToken == "" {
		return nil, fmt.Errorf("invoice update requires Id and SyncToken")
	}
	inv.Sparse = true
	var envelope struct {
		Invoice Invoice `json:"Invoice"`
	}
	if err := c.Do(ctx, http.MethodPost, "/invoice", inv, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Invoice, nil
}

// FindCustomerByName looks a customer up by exact display name.
// Returns (nil, nil) when absent.
func (c *Client) FindCustomerByName(ctx context.Context, name string) (*Customer, error) {
	expr := fmt.Sprintf("SELECT * FROM Customer WHERE DisplayName = '%s'", EscapeQueryValue(name))
	resp, err := c.Query(ctx, expr)
	if err != nil {
		return nil, err
	}
	if len(resp.Customer) == 0 {
		return nil, nil
	}
	return &resp.Customer[0], nil
}

// CreateCustomer creates a customer.
func (c *Client) CreateCustomer(ctx context.Context, cust *Customer) (*Customer, error) {
	var envelope struct {
		Customer Customer `json:"Customer"`
	}
	if err := c.Do(ctx, http.MethodPost, "/customer", cust, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Customer, nil
}

// ListItems fetches the service/product catalog in one read, for snapshot
// caching during a translation batch.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	resp, err := c.Query(ctx, "SELECT Id, Name, Type FROM Item MAXRESULTS 1000")
	if err != nil {
		return nil, err
	}
	return resp.Item, nil
}

// FindItemByName looks a catalog item up by exact name. Returns (nil, nil)
// when absent.
func (c *Client) FindItemByName(ctx context.Context, name string) (*Item, error) {
	expr := fmt.Sprintf("SELECT * FROM Item WHERE Name = '%s'", EscapeQueryValue(name))
	resp, err := c.Query(ctx, expr)
	if err != nil {
		return nil, err
	}
	if len(resp.Item) == 0 {
		return nil, nil
	}
	return &resp.Item[0], nil
}

// CreateItem creates a catalog item.
func (c *Client) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	var envelope struct {
		Item Item `json:"Item"`
	}
	if err := c.Do(ctx, http.MethodPost, "/item", item, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Item, nil
}

// FirstIncomeAccount returns the first income-type account, used when a
// default catalog item has to be created. Returns (nil, nil) when the chart
// of accounts has none.
func (c *Client) FirstIncomeAccount(ctx context.Context) (*Account, error) {
	resp, err := c.Query(ctx, "SELECT Id, Name, AccountType FROM Account WHERE AccountType = 'Income' MAXRESULTS 1")
	if err != nil {
		return nil, err
	}
	if len(resp.Account) == 0 {
		return nil, nil
	}
	return &resp.Account[0], nil
}

// ListTerms fetches all payment terms for name resolution.
func (c *Client) ListTerms(ctx context.Context) ([]Term, error) {
	resp, err := c.Query(ctx, "SELECT Id, Name FROM Term MAXRESULTS 1000")
	if err != nil {
		return nil, err
	}
	return resp.Term, nil
}

// CreatePayment records a payment, typically linked to an invoice.
func (c *Client) CreatePayment(ctx context.Context, p *Payment) (*Payment, error) {
	var envelope struct {
		Payment Payment `json:"Payment"`
	}
	if err := c.Do(ctx, http.MethodPost, "/payment", p, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Payment, nil
}
