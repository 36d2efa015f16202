package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
	"envelope/internal/services"
)

func newTestServer() (*Server, *ledger.Ledger) {
	led := ledger.New("test")
	led.AddAccount(&core.Account{ID: "acc-1", Name: "Checking", Type: core.AccountBudget})
	led.AddAccount(&core.Account{ID: "acc-2", Name: "Broker", Type: core.AccountTracking})
	led.AddBudget(&core.Budget{ID: "bud-inflow", Name: "To be budgeted", Inflow: true})
	led.AddBudget(&core.Budget{ID: "bud-rent", Name: "Rent"})
	led.AddPayee(&core.Payee{ID: "pay-1", Name: "Landlord"})
	return NewServer(":0", led, services.NewScheduler(nil), nil), led
}

func doJSON(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateTransaction(t *testing.T) {
	s, led := newTestServer()

	rec := doJSON(t, s, "POST", "/api/transactions", `{
		"date": "2024-01-15",
		"account_id": "acc-1",
		"payee_id": "pay-1",
		"status": "cleared",
		"postings": [{"amount": "-900,00", "budget_id": "bud-rent", "note": "rent"}]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		ID          string `json:"id"`
		AmountCents int64  `json:"amount_cents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AmountCents != -90000 {
		t.Errorf("amount = %d, want -90000 (decimal string parsed)", resp.AmountCents)
	}

	tx := led.TransactionByID(resp.ID)
	if tx == nil {
		t.Fatal("transaction not in ledger")
	}
	if tx.Status != core.StatusCleared || tx.PayeeID != "pay-1" {
		t.Errorf("transaction fields wrong: %+v", tx)
	}
}

func TestCreateTransactionRejectsEmptyPostings(t *testing.T) {
	s, _ := newTestServer()
	rec := doJSON(t, s, "POST", "/api/transactions", `{
		"date": "2024-01-15", "account_id": "acc-1", "postings": []
	}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s, led := newTestServer()
	tx, err := core.NewTransaction(time.Now(), "acc-1", core.Posting{
		ID: core.NewID(), Amount: core.Money{Cents: -100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := led.AddTransaction(tx); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, "DELETE", "/api/transactions/"+tx.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if led.TransactionByID(tx.ID) != nil {
		t.Error("transaction still present after delete")
	}

	rec = doJSON(t, s, "DELETE", "/api/transactions/"+tx.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestBudgetsMonthView(t *testing.T) {
	s, led := newTestServer()
	led.AddAssignment(&core.Assignment{
		ID: core.NewID(), Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		BudgetID: "bud-rent", Amount: core.Money{Cents: 90000},
	})

	rec := doJSON(t, s, "GET", "/api/budgets?month=2024-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Month   string           `json:"month"`
		Budgets []budgetResponse `json:"budgets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Month != "2024-01" {
		t.Errorf("month = %q", resp.Month)
	}

	byID := map[string]budgetResponse{}
	for _, b := range resp.Budgets {
		byID[b.ID] = b
	}
	if got := byID["bud-rent"].AvailableCents; got != 90000 {
		t.Errorf("rent available = %d, want 90000", got)
	}
	if got := byID["bud-inflow"].AvailableCents; got != -90000 {
		t.Errorf("inflow available = %d, want -90000 (assigned out)", got)
	}
}

func TestBudgetsMonthRejectsBadMonth(t *testing.T) {
	s, _ := newTestServer()
	rec := doJSON(t, s, "GET", "/api/budgets?month=January", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateTransferValidation(t *testing.T) {
	s, _ := newTestServer()
	rec := doJSON(t, s, "POST", "/api/transfers", `{
		"date": "2024-01-10",
		"from_account_id": "acc-1",
		"to_account_id": "acc-1",
		"amount_cents": 5000
	}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for same-account transfer", rec.Code)
	}
}

func TestCreateAndDeleteTransfer(t *testing.T) {
	s, led := newTestServer()
	rec := doJSON(t, s, "POST", "/api/transfers", `{
		"date": "2024-01-10",
		"from_account_id": "acc-1",
		"to_account_id": "acc-2",
		"amount_cents": 5000,
		"from_status": "cleared"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if tr := led.TransferByID(resp.ID); tr == nil || tr.FromStatus != core.StatusCleared || tr.ToStatus != core.StatusOpen {
		t.Errorf("transfer wrong: %+v", tr)
	}

	rec = doJSON(t, s, "DELETE", "/api/transfers/"+resp.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
}

func TestCreateAssignmentUnknownBudget(t *testing.T) {
	s, _ := newTestServer()
	rec := doJSON(t, s, "POST", "/api/assignments", `{
		"date": "2024-01-01", "budget_id": "nope", "amount_cents": 100
	}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestSchedulerRunEndpoint(t *testing.T) {
	s, led := newTestServer()
	led.AddTemplate(&core.RecurringTemplate{
		ID:            "tmpl-1",
		Rule:          "FREQ=MONTHLY;BYMONTHDAY=1",
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NextScheduled: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AccountID:     "acc-1",
		BudgetID:      "bud-rent",
		Amount:        core.Money{Cents: -90000},
	})

	rec := doJSON(t, s, "POST", "/api/scheduler/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Created int `json:"created"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Created != 1 {
		t.Errorf("created = %d, want 1", resp.Created)
	}
}

func TestSnapshotWithoutStore(t *testing.T) {
	s, _ := newTestServer()
	rec := doJSON(t, s, "POST", "/api/snapshots", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestLedgerInfo(t *testing.T) {
	s, _ := newTestServer()
	rec := doJSON(t, s, "GET", "/api/ledger", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Name     string `json:"name"`
		Accounts int    `json:"accounts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Name != "test" || resp.Accounts != 2 {
		t.Errorf("info wrong: %+v", resp)
	}
}
