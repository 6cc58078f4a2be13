// translate/translator_test.go
package translate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eGGnogSC/booksync/internal/record"
	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

func testCatalog() *Catalog {
	return NewCatalog([]qbclient.Item{
		{ID: "10", Name: "Hourly Labor"},
		{ID: "11", Name: "Materials"},
	}, qbclient.Ref{Value: "1", Name: "Services"})
}

func testInput(rec *record.ServiceRecord) BuildInput {
	return BuildInput{
		Record:   rec,
		Customer: qbclient.Ref{Value: "7", Name: "Acme Co"},
		Catalog:  testCatalog(),
		Terms:    []qbclient.Term{{ID: "3", Name: "Net 30"}},
	}
}

func TestBuildInvoiceBasic(t *testing.T) {
	tr := New(Options{})
	rec := &record.ServiceRecord{
		DocNumber: "INV-100",
		TxnDate:   "2024-03-01",
		DueDate:   "2024-03-31",
		LineItems: []record.LineItem{
			{ActivityLabel: "Hourly Labor", Description: "Diagnostics", Quantity: "2", UnitRate: "85"},
			{ActivityLabel: "Unknown Work", Description: "Misc", Quantity: "1", UnitRate: "40"},
		},
		PaymentTerms: "Net 30",
		Memo:         "Thanks for your business",
	}

	inv, err := tr.BuildInvoice(testInput(rec))
	require.NoError(t, err)

	assert.Equal(t, "INV-100", inv.DocNumber)
	assert.Equal(t, "7", inv.CustomerRef.Value)
	require.Len(t, inv.Line, 2)

	first := inv.Line[0]
	assert.Equal(t, 1, first.LineNum)
	assert.Equal(t, "SalesItemLineDetail", first.DetailType)
	assert.Equal(t, "10", first.SalesItemLineDetail.ItemRef.Value)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(170)), "amount defaults to qty*rate")

	// Unmatched activity labels fall back to the default item.
	assert.Equal(t, "1", inv.Line[1].SalesItemLineDetail.ItemRef.Value)

	require.NotNil(t, inv.SalesTermRef)
	assert.Equal(t, "3", inv.SalesTermRef.Value)
	require.NotNil(t, inv.CustomerMemo)
	assert.Equal(t, "Thanks for your business", inv.CustomerMemo.Value)
}

func TestBuildInvoiceSkipsInvalidLines(t *testing.T) {
	tr := New(Options{})
	rec := &record.ServiceRecord{
		DocNumber: "INV-101",
		LineItems: []record.LineItem{
			{Quantity: "0", UnitRate: "85"},
			{Quantity: "2", UnitRate: "abc"},
			{Quantity: "-1", UnitRate: "40"},
			{Quantity: "3", UnitRate: "$25.00", Description: "kept"},
		},
	}

	inv, err := tr.BuildInvoice(testInput(rec))
	require.NoError(t, err)
	require.Len(t, inv.Line, 1)
	assert.Equal(t, "kept", inv.Line[0].Description)
	assert.True(t, inv.Line[0].Amount.Equal(decimal.NewFromInt(75)))
}

func TestBuildInvoiceFailsWithNoValidLines(t *testing.T) {
	tr := New(Options{})
	rec := &record.ServiceRecord{
		DocNumber: "INV-102",
		LineItems: []record.LineItem{
			{Quantity: "0", UnitRate: "85"},
			{Quantity: "x", UnitRate: "40"},
		},
	}

	_, err := tr.BuildInvoice(testInput(rec))
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestBuildInvoiceSuppliedAmountWins(t *testing.T) {
	tr := New(Options{})
	rec := &record.ServiceRecord{
		DocNumber: "INV-103",
		LineItems: []record.LineItem{
			{Quantity: "2", UnitRate: "50", Amount: "95.00"},
		},
	}

	inv, err := tr.BuildInvoice(testInput(rec))
	require.NoError(t, err)
	assert.True(t, inv.Line[0].Amount.Equal(decimal.RequireFromString("95.00")))
}

func TestBuildPrivateNoteCombinesRefs(t *testing.T) {
	tr := New(Options{WorkOrderPrefix: "WO-", AutoPrefix: true})
	rec := &record.ServiceRecord{
		DocNumber:     "INV-104",
		PrivateNote:   "crew of two",
		WorkOrderRefs: []string{"1042", "wo-1043"},
		LineItems:     []record.LineItem{{Quantity: "1", UnitRate: "10"}},
	}

	inv, err := tr.BuildInvoice(testInput(rec))
	require.NoError(t, err)
	assert.Equal(t, "crew of two WO-1042 WO-1043", inv.PrivateNote)
}

func TestRemoteFieldsFromInvoice(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		balance int64
		status  string
		paid    int64
	}{
		{"unpaid", 100, 100, record.PaymentStatusUnpaid, 0},
		{"partial", 100, 40, record.PaymentStatusPartial, 60},
		{"paid", 100, 0, record.PaymentStatusPaid, 100},
		{"zero total", 0, 0, record.PaymentStatusUnpaid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := RemoteFieldsFromInvoice(&qbclient.Invoice{
				ID:       "42",
				TotalAmt: decimal.NewFromInt(tt.total),
				Balance:  decimal.NewFromInt(tt.balance),
			})
			assert.Equal(t, "42", fields.InvoiceID)
			assert.Equal(t, tt.status, fields.PaymentStatus)
			assert.True(t, fields.TotalPaid.Equal(decimal.NewFromInt(tt.paid)))
			assert.False(t, fields.SyncedAt.IsZero())
		})
	}
}

func TestCleanNumeric(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1,250.50", "1250.5", false},
		{"$85.00", "85", false},
		{"€ 40", "40", false},
		{" 3 ", "3", false},
		{"-12.5", "-12.5", false},
		{"", "", true},
		{"abc", "", true},
		{"12.3.4", "", true},
		{"10%", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanNumeric(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestResolveTerms(t *testing.T) {
	terms := []qbclient.Term{{ID: "3", Name: "Net 30"}, {ID: "4", Name: "Due on receipt"}}

	ref := ResolveTerms("net 30", terms)
	require.NotNil(t, ref)
	assert.Equal(t, "3", ref.Value)

	// Numeric labels pass through as ids.
	ref = ResolveTerms("17", terms)
	require.NotNil(t, ref)
	assert.Equal(t, "17", ref.Value)

	assert.Nil(t, ResolveTerms("Net 90", terms))
	assert.Nil(t, ResolveTerms("", terms))
}

func TestCatalogResolve(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, "11", c.Resolve("  materials ").Value)
	assert.Equal(t, "1", c.Resolve("no such item").Value)
	assert.Equal(t, "1", c.Resolve("").Value)
}
