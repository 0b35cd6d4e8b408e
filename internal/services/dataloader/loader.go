// Package dataloader assembles a ledger snapshot from the data directory:
// ledger.json holds categories, budgets, goals and the opening balance, and
// every *.csv file holds imported bank transactions.
package dataloader

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/classifier"
	"budgetinsights/internal/services/storage"
)

// LedgerFile is the JSON document with everything except imported rows
const LedgerFile = "ledger.json"

// idNamespace seeds the ids generated for rows without an id column
var idNamespace = uuid.MustParse("8c6f2f0e-4b1d-5a57-9e1a-3f7d2c9b0a64")

// DataLoader reads ledger files through the storage layer
type DataLoader struct {
	store *storage.Storage
	log   *logrus.Entry

	// Counts from the last Load
	FilteredTransferCount int
	DuplicateCount        int
}

// columnMappings maps bank export column names (lowercase) to our standard names
var columnMappings = map[string][]string{
	"ID": {
		"id", "transaction id", "reference", "ref", "fitid",
	},
	"Date": {
		"date", "transaction date", "posted date", "post date",
		"trans date", "posting date",
	},
	"Description": {
		"description", "memo", "details", "payee", "name",
		"transaction description", "merchant", "narrative",
	},
	"Amount": {
		"amount", "value", "transaction amount", "sum",
	},
	"Category": {
		"category", "category name", "category id", "category_id",
	},
	"Type": {
		"type", "transaction type", "direction",
	},
	"Debit": {
		"debit", "withdrawal", "withdrawals", "money out",
	},
	"Credit": {
		"credit", "deposit", "deposits", "money in",
	},
}

var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// New creates a loader. A nil log discards output.
func New(store *storage.Storage, log *logrus.Entry) *DataLoader {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	return &DataLoader{store: store, log: log}
}

// normalizeColumnName maps a bank export column name to our standard name
func normalizeColumnName(col string) string {
	col = strings.TrimSpace(col)
	lower := strings.ToLower(col)
	for standard, variants := range columnMappings {
		for _, variant := range variants {
			if lower == variant {
				return standard
			}
		}
	}
	return col
}

// buildColumnIndex creates a normalized column index; the first match wins
func buildColumnIndex(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumnName(strings.TrimPrefix(col, "\ufeff"))
		if _, exists := colIndex[normalized]; !exists {
			colIndex[normalized] = i
		}
	}
	return colIndex
}

// Load reads the ledger and every CSV import into one validated snapshot.
// Internal transfers and duplicate rows among the imports are dropped.
func (dl *DataLoader) Load() (*models.Snapshot, error) {
	snap, err := dl.loadLedger()
	if err != nil {
		return nil, err
	}

	files, err := dl.store.Glob("*.csv")
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}

	resolver := newCategoryResolver(snap.Categories)
	var imported []models.Transaction
	for _, file := range files {
		txns, err := dl.loadCSVFile(file, resolver)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(file), err)
		}
		dl.log.WithFields(logrus.Fields{
			"file": filepath.Base(file),
			"rows": len(txns),
		}).Debug("Loaded import")
		imported = append(imported, txns...)
	}

	imported = dl.filterInternalTransfers(imported)
	snap.Transactions = dl.deduplicateTransactions(snap.Transactions, imported)

	if err := snap.Validate(); err != nil {
		return nil, err
	}

	dl.log.WithFields(logrus.Fields{
		"transactions": len(snap.Transactions),
		"files":        len(files),
		"categories":   len(snap.Categories),
	}).Info("Ledger loaded")

	return snap, nil
}

// loadLedger decodes ledger.json; a missing file yields an empty ledger
func (dl *DataLoader) loadLedger() (*models.Snapshot, error) {
	snap := &models.Snapshot{}

	data, err := dl.store.ReadFile(LedgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		dl.log.Debug("No ledger.json, using an empty ledger")
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", LedgerFile, err)
	}

	if err := json.Unmarshal(data, snap); err != nil {
		if errors.Is(err, models.ErrInvalidSnapshot) {
			return nil, fmt.Errorf("%s: %w", LedgerFile, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", models.ErrInvalidSnapshot, LedgerFile, err)
	}
	for i := range snap.Transactions {
		snap.Transactions[i].Hash = snap.Transactions[i].ComputeHash()
	}
	return snap, nil
}

// loadCSVFile parses one import. A row that cannot be parsed rejects the file.
func (dl *DataLoader) loadCSVFile(filePath string, resolver *categoryResolver) ([]models.Transaction, error) {
	file, err := dl.store.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", models.ErrInvalidSnapshot, err)
	}

	colIndex := buildColumnIndex(header)

	_, hasAmount := colIndex["Amount"]
	_, hasDebit := colIndex["Debit"]
	_, hasCredit := colIndex["Credit"]
	useDebitCredit := !hasAmount && (hasDebit || hasCredit)

	if _, ok := colIndex["Date"]; !ok {
		return nil, fmt.Errorf("%w: missing required column Date (tried: %v)", models.ErrInvalidSnapshot, columnMappings["Date"])
	}
	if _, ok := colIndex["Description"]; !ok {
		return nil, fmt.Errorf("%w: missing required column Description (tried: %v)", models.ErrInvalidSnapshot, columnMappings["Description"])
	}
	if !hasAmount && !useDebitCredit {
		return nil, fmt.Errorf("%w: missing required column Amount or Debit/Credit (tried: %v)", models.ErrInvalidSnapshot, columnMappings["Amount"])
	}

	if useDebitCredit {
		dl.log.WithField("file", filepath.Base(filePath)).Debug("Using Debit/Credit columns instead of Amount")
	}

	var transactions []models.Transaction
	sourceFile := filepath.Base(filePath)
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrInvalidSnapshot, lineNum, err)
		}

		t, err := parseRecord(record, colIndex, useDebitCredit, resolver)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if t.ID == "" {
			t.ID = uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s:%d:%s", sourceFile, lineNum, t.Hash))).String()
		}
		transactions = append(transactions, t)
	}

	return transactions, nil
}

func parseRecord(record []string, colIndex map[string]int, useDebitCredit bool, resolver *categoryResolver) (models.Transaction, error) {
	var t models.Transaction

	dateStr := field(record, colIndex, "Date")
	date, ok := parseDate(dateStr)
	if !ok {
		return t, fmt.Errorf("%w: unparsable date %q", models.ErrInvalidSnapshot, dateStr)
	}
	t.Date = date

	var signed decimal.Decimal
	var err error
	if useDebitCredit {
		signed, err = parseDebitCredit(record, colIndex)
	} else {
		signed, err = parseAmount(field(record, colIndex, "Amount"))
	}
	if err != nil {
		return t, err
	}

	t.ID = field(record, colIndex, "ID")
	t.Description = field(record, colIndex, "Description")

	rawCategory := field(record, colIndex, "Category")
	category, known := resolver.resolve(rawCategory)
	t.CategoryID = category.ID

	switch typ := strings.ToLower(field(record, colIndex, "Type")); typ {
	case "income", "credit":
		t.Type = models.Income
	case "expense", "debit":
		t.Type = models.Expense
	case "":
		if known && category.Type.Valid() {
			t.Type = category.Type
		} else {
			t.Type = classifier.Classify(t.Description, rawCategory, signed)
		}
	default:
		return t, fmt.Errorf("%w: unknown type %q", models.ErrInvalidSnapshot, typ)
	}

	t.Amount = signed.Abs()
	t.Hash = t.ComputeHash()
	return t, nil
}

func field(record []string, colIndex map[string]int, name string) string {
	if idx, ok := colIndex[name]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

// parseDebitCredit combines Debit and Credit columns into one signed amount.
// Credits are positive and debits negative; a debit wins when both are set.
func parseDebitCredit(record []string, colIndex map[string]int) (decimal.Decimal, error) {
	amount := decimal.Zero

	if s := field(record, colIndex, "Credit"); s != "" {
		credit, err := parseAmount(s)
		if err != nil {
			return amount, err
		}
		amount = credit.Abs()
	}

	if s := field(record, colIndex, "Debit"); s != "" {
		debit, err := parseAmount(s)
		if err != nil {
			return amount, err
		}
		if !debit.IsZero() {
			amount = debit.Abs().Neg()
		}
	}

	return amount, nil
}

// parseDate tries the known bank date formats
func parseDate(s string) (time.Time, bool) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return models.DateOf(t), true
		}
	}
	return time.Time{}, false
}

// parseAmount parses an amount, handling currency symbols, thousands
// separators and accounting parentheses
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(s, "$", "")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)

	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		clean = "-" + clean[1:len(clean)-1]
	}

	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unparsable amount %q", models.ErrInvalidSnapshot, s)
	}
	return amount, nil
}

// filterInternalTransfers removes moves between own accounts to avoid double-counting
func (dl *DataLoader) filterInternalTransfers(transactions []models.Transaction) []models.Transaction {
	filtered := make([]models.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if !classifier.IsInternalTransfer(t.Description, t.CategoryID) {
			filtered = append(filtered, t)
		}
	}

	dl.FilteredTransferCount = len(transactions) - len(filtered)
	if dl.FilteredTransferCount > 0 {
		dl.log.WithField("count", dl.FilteredTransferCount).Info("Filtered internal transfers")
	}
	return filtered
}

// deduplicateTransactions keeps the first transaction per id. Imported rows
// are also dropped when their content hash was already seen, which removes
// overlap between exports of the same account.
func (dl *DataLoader) deduplicateTransactions(ledger, imported []models.Transaction) []models.Transaction {
	seenID := make(map[string]bool)
	seenHash := make(map[string]bool)
	unique := make([]models.Transaction, 0, len(ledger)+len(imported))

	for _, t := range ledger {
		if t.ID != "" {
			if seenID[t.ID] {
				continue
			}
			seenID[t.ID] = true
		}
		seenHash[t.Hash] = true
		unique = append(unique, t)
	}
	for _, t := range imported {
		if seenID[t.ID] || seenHash[t.Hash] {
			continue
		}
		seenID[t.ID] = true
		seenHash[t.Hash] = true
		unique = append(unique, t)
	}

	dl.DuplicateCount = len(ledger) + len(imported) - len(unique)
	if dl.DuplicateCount > 0 {
		dl.log.WithField("count", dl.DuplicateCount).Info("Removed duplicate transactions")
	}
	return unique
}

// Sources describes the CSV imports in the data directory
func (dl *DataLoader) Sources() ([]models.SourceFile, error) {
	files, err := dl.store.Glob("*.csv")
	if err != nil {
		return nil, err
	}

	sources := make([]models.SourceFile, 0, len(files))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		src := models.SourceFile{Name: filepath.Base(file), Size: info.Size()}

		rows, minD, maxD, err := dl.scanCSVMetadata(file)
		if err != nil {
			dl.log.WithError(err).WithField("file", src.Name).Warn("Could not scan import")
		} else {
			src.Rows = rows
			if !minD.IsZero() {
				src.MinDate = minD.Format(models.DateLayout)
				src.MaxDate = maxD.Format(models.DateLayout)
			}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// scanCSVMetadata counts rows and finds the date range without full parsing
func (dl *DataLoader) scanCSVMetadata(filePath string) (int, time.Time, time.Time, error) {
	file, err := dl.store.OpenFile(filePath)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, time.Time{}, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	colIndex := buildColumnIndex(header)

	var rows int
	var minDate, maxDate time.Time
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, time.Time{}, time.Time{}, err
		}
		rows++
		if d, ok := parseDate(field(record, colIndex, "Date")); ok {
			if minDate.IsZero() || d.Before(minDate) {
				minDate = d
			}
			if d.After(maxDate) {
				maxDate = d
			}
		}
	}
	return rows, minDate, maxDate, nil
}
