package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType indicates whether a transaction is income or an expense
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether the type is one of the known values
func (tt TransactionType) Valid() bool {
	return tt == Income || tt == Expense
}

// DateLayout is the calendar-date format used on the wire
const DateLayout = "2006-01-02"

// Transaction represents a single ledger entry. Amount is never negative;
// direction is carried by Type.
type Transaction struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description,omitempty"`

	// Derived (computed, not stored)
	Hash string `json:"-"`
}

type transactionJSON struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description,omitempty"`
}

// MarshalJSON writes the date as a calendar date
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:          t.ID,
		CategoryID:  t.CategoryID,
		Amount:      t.Amount,
		Date:        t.Date.Format(DateLayout),
		Type:        t.Type,
		Description: t.Description,
	})
}

// UnmarshalJSON accepts calendar dates or RFC 3339 timestamps
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return fmt.Errorf("transaction %q: %w", raw.ID, err)
	}
	*t = Transaction{
		ID:          raw.ID,
		CategoryID:  raw.CategoryID,
		Amount:      raw.Amount,
		Date:        date,
		Type:        raw.Type,
		Description: raw.Description,
	}
	return nil
}

// ParseDate parses a calendar date (or RFC 3339 timestamp) and truncates it to
// midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparsable date %q", ErrInvalidSnapshot, s)
	}
	return DateOf(ts), nil
}

// DateOf drops the time of day, keeping the calendar date in UTC
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// ComputeHash generates a hash used for duplicate detection
func (t *Transaction) ComputeHash() string {
	desc := strings.ToLower(strings.TrimSpace(t.Description))
	input := fmt.Sprintf("%s|%s|%s|%s", t.Date.Format(DateLayout), desc, t.Amount.StringFixed(2), t.Type)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// TransactionSet wraps a slice with filtering/aggregation methods
type TransactionSet struct {
	Transactions []Transaction
}

// NewTransactionSet creates a new TransactionSet from a slice
func NewTransactionSet(transactions []Transaction) *TransactionSet {
	return &TransactionSet{Transactions: transactions}
}

// Len returns the number of transactions
func (ts *TransactionSet) Len() int {
	return len(ts.Transactions)
}

// FilterByType returns transactions of the specified type
func (ts *TransactionSet) FilterByType(tt TransactionType) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.Type == tt {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterByDateRange returns transactions dated within [start, end] (inclusive, by calendar day)
func (ts *TransactionSet) FilterByDateRange(start, end time.Time) *TransactionSet {
	result := &TransactionSet{}
	startDay := DateOf(start)
	endDay := DateOf(end)

	for _, t := range ts.Transactions {
		d := DateOf(t.Date)
		if !d.Before(startDay) && !d.After(endDay) {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterOnOrBefore returns transactions dated on or before the given day
func (ts *TransactionSet) FilterOnOrBefore(day time.Time) *TransactionSet {
	result := &TransactionSet{}
	limit := DateOf(day)
	for _, t := range ts.Transactions {
		if !DateOf(t.Date).After(limit) {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterByCategory returns transactions with the given category id
func (ts *TransactionSet) FilterByCategory(categoryID string) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.CategoryID == categoryID {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterBySearch returns transactions whose description contains search, ignoring case
func (ts *TransactionSet) FilterBySearch(search string) *TransactionSet {
	result := &TransactionSet{}
	needle := strings.ToLower(search)
	for _, t := range ts.Transactions {
		if strings.Contains(strings.ToLower(t.Description), needle) {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// SumAmount returns the sum of all transaction amounts
func (ts *TransactionSet) SumAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range ts.Transactions {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// Net returns income minus expenses
func (ts *TransactionSet) Net() decimal.Decimal {
	return ts.FilterByType(Income).SumAmount().Sub(ts.FilterByType(Expense).SumAmount())
}

// GroupByMonth groups transactions by month ("2006-01")
func (ts *TransactionSet) GroupByMonth() map[string]*TransactionSet {
	result := make(map[string]*TransactionSet)
	for _, t := range ts.Transactions {
		month := t.Date.Format("2006-01")
		if result[month] == nil {
			result[month] = &TransactionSet{}
		}
		result[month].Transactions = append(result[month].Transactions, t)
	}
	return result
}

// GroupByCategory groups transactions by category id
func (ts *TransactionSet) GroupByCategory() map[string]*TransactionSet {
	result := make(map[string]*TransactionSet)
	for _, t := range ts.Transactions {
		if result[t.CategoryID] == nil {
			result[t.CategoryID] = &TransactionSet{}
		}
		result[t.CategoryID].Transactions = append(result[t.CategoryID].Transactions, t)
	}
	return result
}

// SortByDate returns a copy ordered by date, then id. This is the canonical
// order every order-sensitive computation starts from.
func (ts *TransactionSet) SortByDate() *TransactionSet {
	sorted := make([]Transaction, len(ts.Transactions))
	copy(sorted, ts.Transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &TransactionSet{Transactions: sorted}
}

// MinDate returns the earliest transaction date
func (ts *TransactionSet) MinDate() time.Time {
	if len(ts.Transactions) == 0 {
		return time.Time{}
	}
	minDate := ts.Transactions[0].Date
	for _, t := range ts.Transactions[1:] {
		if t.Date.Before(minDate) {
			minDate = t.Date
		}
	}
	return minDate
}

// MaxDate returns the latest transaction date
func (ts *TransactionSet) MaxDate() time.Time {
	if len(ts.Transactions) == 0 {
		return time.Time{}
	}
	maxDate := ts.Transactions[0].Date
	for _, t := range ts.Transactions[1:] {
		if t.Date.After(maxDate) {
			maxDate = t.Date
		}
	}
	return maxDate
}

// Paginate returns one page of transactions. Pages start at 1; pages past the
// end are empty.
func (ts *TransactionSet) Paginate(page, perPage int) *TransactionSet {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}
	if page > ts.TotalPages(perPage) {
		return &TransactionSet{}
	}

	start := (page - 1) * perPage
	end := len(ts.Transactions)
	if end-start > perPage {
		end = start + perPage
	}
	return &TransactionSet{Transactions: ts.Transactions[start:end]}
}

// TotalPages returns the number of pages for the given page size
func (ts *TransactionSet) TotalPages(perPage int) int {
	if perPage < 1 {
		perPage = 25
	}
	n := len(ts.Transactions)
	pages := n / perPage
	if n%perPage != 0 {
		pages++
	}
	return pages
}
