// importer/table_test.go
package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "invoiceno", normalizeHeader("Invoice No."))
	assert.Equal(t, "invoiceno", normalizeHeader("invoice_no"))
	assert.Equal(t, "invoiceno", normalizeHeader("  InvoiceNo "))
	assert.Equal(t, "unitprice", normalizeHeader("Unit Price ($)"))
}

func TestCanonicalColumn(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Invoice No.", colDocNumber},
		{"Doc Number", colDocNumber},
		{"Customer Name", colCustomer},
		{"Client", colCustomer},
		{"Qty", colQuantity},
		{"Unit Price", colRate},
		{"Amount", colTotal},
		{"Open Balance", colBalance},
		{"Amount Paid", colPaid},
		{"Payment Terms", colTerms},
		{"Wholly Unknown", "whollyunknown"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalColumn(tt.header))
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', DetectDelimiter("a,b,c"))
	assert.Equal(t, '\t', DetectDelimiter("a\tb\tc"))
	assert.Equal(t, ';', DetectDelimiter("a;b;c"))
	assert.Equal(t, '|', DetectDelimiter("a|b|c"))
	// Comma wins ties and empty headers.
	assert.Equal(t, ',', DetectDelimiter("single"))
}

func TestParseCSVBasic(t *testing.T) {
	csv := "Invoice No.,Customer,Qty,Unit Price\nINV-1,Acme,2,85\nINV-2,Globex,1,40\n"

	table, err := ParseCSV(strings.NewReader(csv), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{colDocNumber, colCustomer, colQuantity, colRate}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "INV-1", table.Rows[0][colDocNumber])
	assert.Equal(t, "Globex", table.Rows[1][colCustomer])
}

func TestParseCSVAutoDetectsSemicolon(t *testing.T) {
	csv := "Invoice No.;Customer;Qty\nINV-1;Acme;2\n"

	table, err := ParseCSV(strings.NewReader(csv), 0)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Acme", table.Rows[0][colCustomer])
}

func TestParseCSVStripsBOMAndSkipsEmptyRows(t *testing.T) {
	csv := "\ufeffInvoice No.,Customer\nINV-1,Acme\n,,\n\nINV-2,Globex\n"

	table, err := ParseCSV(strings.NewReader(csv), ',')
	require.NoError(t, err)
	assert.Equal(t, colDocNumber, table.Columns[0])
	require.Len(t, table.Rows, 2)
}

func TestParseCSVShortRowsPadded(t *testing.T) {
	csv := "Invoice No.,Customer,Qty\nINV-1,Acme\n"

	table, err := ParseCSV(strings.NewReader(csv), ',')
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "", table.Rows[0][colQuantity])
}

func TestParseCSVEmptyFile(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("   "), ',')
	assert.Error(t, err)
}

func TestParseFileDispatch(t *testing.T) {
	// Non-xlsx names go through the CSV path.
	table, err := ParseFile("export.csv", strings.NewReader("Customer\nAcme\n"), ',')
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	// An .xlsx name hits the workbook reader, which rejects non-zip input.
	_, err = ParseFile("export.xlsx", strings.NewReader("not a workbook"), ',')
	assert.Error(t, err)
}
