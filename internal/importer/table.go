// importer/table.go
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Canonical column keys rows are normalized onto.
const (
	colDocNumber   = "docnumber"
	colCustomer    = "customer"
	colTxnDate     = "txndate"
	colDueDate     = "duedate"
	colDescription = "description"
	colItem        = "item"
	colQuantity    = "quantity"
	colRate        = "rate"
	colTotal       = "totalamt"
	colBalance     = "balance"
	colPaid        = "paid"
	colPaymentDate = "paymentdate"
	colTerms       = "terms"
)

// columnSynonyms maps normalized header spellings to canonical keys.
// Headers are normalized case- and punctuation-insensitively before lookup.
var columnSynonyms = map[string]string{
	"docnumber":     colDocNumber,
	"docno":         colDocNumber,
	"invoiceno":     colDocNumber,
	"invoicenumber": colDocNumber,
	"invoice":       colDocNumber,
	"customer":      colCustomer,
	"customername":  colCustomer,
	"client":        colCustomer,
	"clientname":    colCustomer,
	"txndate":       colTxnDate,
	"date":          colTxnDate,
	"invoicedate":   colTxnDate,
	"duedate":       colDueDate,
	"due":           colDueDate,
	"description":   colDescription,
	"desc":          colDescription,
	"memo":          colDescription,
	"details":       colDescription,
	"item":          colItem,
	"activity":      colItem,
	"service":       colItem,
	"product":       colItem,
	"quantity":      colQuantity,
	"qty":           colQuantity,
	"rate":          colRate,
	"unitrate":      colRate,
	"unitprice":     colRate,
	"price":         colRate,
	"totalamt":      colTotal,
	"total":         colTotal,
	"amount":        colTotal,
	"balance":       colBalance,
	"openbalance":   colBalance,
	"balancedue":    colBalance,
	"paid":          colPaid,
	"amountpaid":    colPaid,
	"paymentdate":   colPaymentDate,
	"datepaid":      colPaymentDate,
	"paidon":        colPaymentDate,
	"terms":         colTerms,
	"paymentterms":  colTerms,
}

// Table is a parsed import file with rows keyed by canonical column name.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// normalizeHeader lowercases and strips everything but letters and digits,
// so "Invoice No.", "invoice_no" and "InvoiceNo" all collide.
func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// canonicalColumn resolves a raw header to its canonical key, keeping
// unrecognized headers under their normalized spelling.
func canonicalColumn(header string) string {
	normalized := normalizeHeader(header)
	if canonical, ok := columnSynonyms[normalized]; ok {
		return canonical
	}
	return normalized
}

// DetectDelimiter counts candidate delimiters in the header line and picks
// the most frequent; comma wins ties.
func DetectDelimiter(headerLine string) rune {
	candidates := []rune{',', '\t', ';', '|'}
	best := ','
	bestCount := 0
	for _, candidate := range candidates {
		count := strings.Count(headerLine, string(candidate))
		if count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}

// ParseCSV reads delimited text into a Table. A zero delimiter enables
// auto-detection from the header line.
func ParseCSV(r io.Reader, delimiter rune) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("import file is empty")
	}

	if delimiter == 0 {
		headerLine := text
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			headerLine = text[:idx]
		}
		delimiter = DetectDelimiter(headerLine)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}

	return tableFromRows(records)
}

// ParseXLSX reads the first sheet of a workbook into a Table.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return tableFromRows(rows)
}

// ParseFile dispatches on file extension: .xlsx goes through excelize,
// everything else is treated as delimited text.
func ParseFile(name string, r io.Reader, delimiter rune) (*Table, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return ParseXLSX(r)
	}
	return ParseCSV(r, delimiter)
}

func tableFromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("import file has no header row")
	}

	columns := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		columns[i] = canonicalColumn(header)
	}

	table := &Table{Columns: columns}
	for _, raw := range rows[1:] {
		if isEmptyRow(raw) {
			continue
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(raw) {
				row[col] = strings.TrimSpace(raw[i])
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
