package explorer

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/dataloader"
	"budgetinsights/internal/services/storage"
	"budgetinsights/internal/testutil"
)

// setup serves the explorer over a scratch copy of the sample ledger
func setup(t *testing.T) (*testutil.TestServer, *storage.Storage) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()

	store, err := storage.New(testutil.CopyTestData(t), nil)
	require.NoError(t, err)
	store.SetWorkFactor(10)

	Initialize(dataloader.New(store, nil), logger)
	r := chi.NewRouter()
	RegisterRoutes(r)
	return testutil.NewTestServer(t, r), store
}

func page(t *testing.T, ts *testutil.TestServer, query map[string]string) Page {
	t.Helper()
	var p Page
	testutil.AssertResponse(t, ts.GETWithQuery("/api/transactions", query)).
		StatusOK().
		ContentTypeJSON().
		Decode(&p)
	return p
}

func TestListDefaults(t *testing.T) {
	ts, _ := setup(t)

	p := page(t, ts, nil)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 25, p.PerPage)
	assert.Equal(t, 30, p.TotalCount, "transfers to savings are not transactions")
	assert.Equal(t, 2, p.TotalPages)
	require.Len(t, p.Transactions, 25)
	assert.Equal(t, "Corner Bistro", p.Transactions[0].Description, "newest first")
	assert.Equal(t, "2023-10-01", p.Start)
	assert.Equal(t, "2024-03-18", p.End)

	testutil.AssertDecimal(t, "25200", p.TotalIncome)
	testutil.AssertDecimal(t, "11744.82", p.TotalExpenses)
	testutil.AssertDecimal(t, "13455.18", p.Net)
}

func TestListFilters(t *testing.T) {
	ts, _ := setup(t)

	tests := []struct {
		name  string
		query map[string]string
		count int
		first string
	}{
		{"category by amount", map[string]string{"category": "dining", "sort": "amount", "order": "asc"}, 6, "38.5"},
		{"search ignores case", map[string]string{"search": "grocer", "type": "expense", "sort": "date", "order": "asc"}, 6, "212.4"},
		{"date range", map[string]string{"start": "2024-01-01", "end": "2024-01-31", "sort": "amount"}, 5, "4200"},
		{"income only", map[string]string{"type": "Income"}, 6, "4200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := page(t, ts, tt.query)
			assert.Equal(t, tt.count, p.TotalCount)
			require.NotEmpty(t, p.Transactions)
			testutil.AssertDecimal(t, tt.first, p.Transactions[0].Amount)
		})
	}

	dining := page(t, ts, map[string]string{"category": "dining"})
	testutil.AssertDecimal(t, "482.75", dining.TotalExpenses)
	assert.True(t, dining.TotalIncome.IsZero())
}

func TestListPaging(t *testing.T) {
	ts, _ := setup(t)

	p := page(t, ts, map[string]string{"page": "9", "per_page": "25"})
	assert.Equal(t, 2, p.Page, "clamped to the last page")
	assert.Len(t, p.Transactions, 5)

	p = page(t, ts, map[string]string{"per_page": "100000"})
	assert.Equal(t, maxPerPage, p.PerPage)
	assert.Len(t, p.Transactions, 30)

	p = page(t, ts, map[string]string{"search": "no such payee"})
	assert.Equal(t, 0, p.TotalPages)
	assert.NotNil(t, p.Transactions)
	assert.Empty(t, p.Transactions)

	p = page(t, ts, map[string]string{"search": "no such payee", "page": "368934881474191034"})
	assert.Empty(t, p.Transactions)

	p = page(t, ts, map[string]string{"page": "9223372036854775807"})
	assert.Equal(t, 2, p.Page)
	assert.Len(t, p.Transactions, 5)
}

func TestListBadRequests(t *testing.T) {
	ts, _ := setup(t)

	for _, q := range []map[string]string{
		{"order": "up"},
		{"sort": "colour"},
		{"type": "transfer"},
		{"start": "last tuesday"},
		{"start": "2024-03-01", "end": "2024-02-01"},
	} {
		testutil.AssertResponse(t, ts.GETWithQuery("/api/transactions", q)).
			Status(http.StatusBadRequest).
			HasKeys("error")
	}
}

func TestLockedLedger(t *testing.T) {
	ts, store := setup(t)
	require.NoError(t, store.EnableEncryption("sample ledger passphrase"))
	store.Lock()

	testutil.AssertResponse(t, ts.GET("/api/transactions")).
		Status(http.StatusLocked)

	require.NoError(t, store.Unlock("sample ledger passphrase"))
	assert.Equal(t, 30, page(t, ts, nil).TotalCount)
}

func TestSortTransactions(t *testing.T) {
	set := models.NewTransactionSet([]models.Transaction{
		testutil.Expense("b", "rent", "10", "2024-01-02"),
		testutil.Expense("a", "dining", "10", "2024-01-01"),
		testutil.Income("c", "salary", "5", "2024-01-03"),
	})

	ids := func(ts *models.TransactionSet) []string {
		var out []string
		for _, tx := range ts.Transactions {
			out = append(out, tx.ID)
		}
		return out
	}

	sorted, err := sortTransactions(set, "amount", "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(sorted), "equal amounts stay in date order")

	sorted, err = sortTransactions(set, "category", "asc")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(sorted))

	assert.Equal(t, []string{"b", "a", "c"}, ids(set), "input is untouched")

	_, err = sortTransactions(set, "weight", "asc")
	assert.Error(t, err)
}
