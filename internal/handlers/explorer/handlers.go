// Package explorer lists ledger transactions with filtering, sorting and
// paging.
package explorer

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	apphttp "budgetinsights/internal/http"
	"budgetinsights/internal/models"
)

const (
	defaultPerPage = 25
	maxPerPage     = 500
)

// Loader supplies the ledger snapshot
type Loader interface {
	Load() (*models.Snapshot, error)
}

var (
	loader Loader
	log    logrus.FieldLogger = logrus.StandardLogger()
)

// Initialize sets up the explorer package with required dependencies
func Initialize(l Loader, logger logrus.FieldLogger) {
	loader = l
	if logger != nil {
		log = logger
	}
}

// RegisterRoutes registers all explorer routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/transactions", handleTransactions)
}

// Page is one page of filtered transactions with totals over the whole filter
type Page struct {
	Transactions  []models.Transaction `json:"transactions"`
	Page          int                  `json:"page"`
	PerPage       int                  `json:"per_page"`
	TotalPages    int                  `json:"total_pages"`
	TotalCount    int                  `json:"total_count"`
	TotalIncome   decimal.Decimal      `json:"total_income"`
	TotalExpenses decimal.Decimal      `json:"total_expenses"`
	Net           decimal.Decimal      `json:"net"`
	Start         string               `json:"start,omitempty"`
	End           string               `json:"end,omitempty"`
}

func handleTransactions(w http.ResponseWriter, r *http.Request) {
	snap, err := loader.Load()
	if err != nil {
		apphttp.Failed(w, err)
		return
	}

	q := r.URL.Query()
	sortField := q.Get("sort")
	if sortField == "" {
		sortField = "date"
	}
	order := q.Get("order")
	if order == "" {
		order = "desc"
	}
	if order != "asc" && order != "desc" {
		apphttp.ErrorResponse(w, "order must be asc or desc", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	all := models.NewTransactionSet(snap.Transactions)
	filtered := all
	var startStr, endStr string
	if all.Len() > 0 {
		start, end, err := apphttp.ParseDateRange(q.Get("start"), q.Get("end"), all.MinDate(), all.MaxDate())
		if err != nil {
			apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		filtered = filtered.FilterByDateRange(start, end)
		startStr, endStr = start.Format(models.DateLayout), end.Format(models.DateLayout)
	}

	if category := q.Get("category"); category != "" {
		filtered = filtered.FilterByCategory(category)
	}
	if search := q.Get("search"); search != "" {
		filtered = filtered.FilterBySearch(search)
	}
	if t := q.Get("type"); t != "" {
		tt := models.TransactionType(strings.ToLower(t))
		if !tt.Valid() {
			apphttp.ErrorResponse(w, "type must be income or expense", http.StatusBadRequest)
			return
		}
		filtered = filtered.FilterByType(tt)
	}

	sorted, err := sortTransactions(filtered, sortField, order)
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	totalPages := sorted.TotalPages(perPage)
	if page > totalPages && totalPages > 0 {
		page = totalPages
	}
	paged := sorted.Paginate(page, perPage).Transactions
	if paged == nil {
		paged = []models.Transaction{}
	}

	income := filtered.FilterByType(models.Income).SumAmount()
	expenses := filtered.FilterByType(models.Expense).SumAmount()

	log.WithFields(logrus.Fields{
		"matched": filtered.Len(),
		"page":    page,
	}).Debug("Listed transactions")

	apphttp.WriteJSON(w, http.StatusOK, Page{
		Transactions:  paged,
		Page:          page,
		PerPage:       perPage,
		TotalPages:    totalPages,
		TotalCount:    filtered.Len(),
		TotalIncome:   income,
		TotalExpenses: expenses,
		Net:           income.Sub(expenses),
		Start:         startStr,
		End:           endStr,
	})
}

// sortTransactions orders a copy of the set by field. Ties keep date order.
func sortTransactions(ts *models.TransactionSet, field, order string) (*models.TransactionSet, error) {
	sorted := ts.SortByDate()
	txns := sorted.Transactions

	var less func(a, b models.Transaction) bool
	switch field {
	case "date":
		less = func(a, b models.Transaction) bool { return a.Date.Before(b.Date) }
	case "description":
		less = func(a, b models.Transaction) bool {
			return strings.ToLower(a.Description) < strings.ToLower(b.Description)
		}
	case "category":
		less = func(a, b models.Transaction) bool { return a.CategoryID < b.CategoryID }
	case "amount":
		less = func(a, b models.Transaction) bool { return a.Amount.LessThan(b.Amount) }
	case "type":
		less = func(a, b models.Transaction) bool { return a.Type < b.Type }
	default:
		return nil, errors.New("sort must be one of date, description, category, amount, type")
	}

	sort.SliceStable(txns, func(i, j int) bool {
		if order == "asc" {
			return less(txns[i], txns[j])
		}
		return less(txns[j], txns[i])
	})
	return sorted, nil
}
