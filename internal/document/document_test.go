package document

import (
	"strings"
	"testing"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

const sampleDocument = `{
  "name": "Household",
  "accounts": [
    {"id": "acc-1", "name": "Checking", "type": "budget", "archived": false},
    {"id": "acc-2", "name": "Broker", "type": "tracking", "archived": false}
  ],
  "budget_categories": [
    {"id": "cat-1", "name": "Essentials"}
  ],
  "budgets": [
    {"id": "bud-inflow", "name": "To be budgeted", "budget_category_id": null, "is_to_be_budgeted": true},
    {"id": "bud-rent", "name": "Rent", "budget_category_id": "cat-1", "is_to_be_budgeted": false}
  ],
  "payees": [
    {"id": "pay-1", "name": "Landlord"}
  ],
  "transactions": [
    {
      "id": "tx-1",
      "account_id": "acc-1",
      "payee_id": "pay-1",
      "transaction_posting_ids": ["po-1"],
      "status": "cleared",
      "date": "2024-01-15T00:00:00Z",
      "recurring_template_id": null
    }
  ],
  "transaction_postings": [
    {"id": "po-1", "budget_id": "bud-rent", "amount": -90000, "note": "january rent"}
  ],
  "recurring_templates": [
    {
      "id": "tmpl-1",
      "rrule_string": "FREQ=MONTHLY;BYMONTHDAY=15",
      "next_scheduled_date": "2024-02-15T00:00:00Z",
      "start_date": "2024-01-01T00:00:00Z",
      "end_date": null,
      "account_id": "acc-1",
      "amount": -90000,
      "budget_id": "bud-rent",
      "payee_id": "pay-1",
      "note": "rent"
    }
  ],
  "assignments": [
    {"id": "as-1", "date": "2024-01-01T00:00:00Z", "budget_id": "bud-rent", "amount": 90000}
  ],
  "transfers": [
    {
      "id": "tr-1",
      "from_account_id": "acc-1",
      "to_account_id": "acc-2",
      "amount": 5000,
      "from_status": "cleared",
      "to_status": "open",
      "date": "2024-01-20T00:00:00Z",
      "note": "",
      "budget_id": "bud-rent"
    }
  ]
}`

func TestLoadBuildsLedger(t *testing.T) {
	led, err := Load([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if led.Name != "Household" {
		t.Errorf("name = %q", led.Name)
	}
	if got := len(led.Accounts); got != 2 {
		t.Fatalf("accounts = %d, want 2", got)
	}
	if a := led.AccountByID("acc-2"); a == nil || a.Type != core.AccountTracking {
		t.Errorf("tracking account not loaded: %+v", a)
	}
	if b := led.InflowBudget(); b == nil || b.ID != "bud-inflow" {
		t.Errorf("inflow budget not identified: %+v", b)
	}
	if b := led.BudgetByID("bud-rent"); b == nil || b.CategoryID != "cat-1" {
		t.Errorf("budget category link lost: %+v", b)
	}

	tx := led.TransactionByID("tx-1")
	if tx == nil {
		t.Fatal("transaction tx-1 not loaded")
	}
	if tx.Status != core.StatusCleared || tx.PayeeID != "pay-1" {
		t.Errorf("transaction fields wrong: %+v", tx)
	}
	if len(tx.Postings) != 1 || tx.Postings[0].Amount.Cents != -90000 {
		t.Errorf("postings wrong: %+v", tx.Postings)
	}
	if ref, ok := led.PostingByID("po-1"); !ok || ref.Transaction != tx {
		t.Error("posting index not built during load")
	}

	tmpl := led.TemplateByID("tmpl-1")
	if tmpl == nil {
		t.Fatal("template tmpl-1 not loaded")
	}
	if !tmpl.NextScheduled.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("template cursor = %v", tmpl.NextScheduled)
	}
	if !tmpl.EndDate.IsZero() {
		t.Errorf("null end_date loaded as %v", tmpl.EndDate)
	}

	if tr := led.TransferByID("tr-1"); tr == nil || tr.BudgetID != "bud-rent" {
		t.Errorf("transfer not loaded: %+v", tr)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	led, err := Load([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := Save(led)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatalf("Load(Save(...)): %v", err)
	}

	if again.Name != led.Name {
		t.Errorf("name changed across round trip: %q", again.Name)
	}
	if len(again.Transactions) != len(led.Transactions) ||
		len(again.Transfers) != len(led.Transfers) ||
		len(again.Assignments) != len(led.Assignments) ||
		len(again.Templates) != len(led.Templates) {
		t.Error("collection sizes changed across round trip")
	}

	a, b := led.TransactionByID("tx-1"), again.TransactionByID("tx-1")
	if !a.Date.Equal(b.Date) || a.Amount() != b.Amount() || a.PayeeID != b.PayeeID {
		t.Errorf("transaction changed across round trip: %+v vs %+v", a, b)
	}
}

func TestLoadRejectsMissingCollections(t *testing.T) {
	for _, missing := range []string{"accounts", "transaction_postings", "transfers"} {
		t.Run(missing, func(t *testing.T) {
			doc := strings.Replace(sampleDocument, `"`+missing+`"`, `"renamed_`+missing+`"`, 1)
			_, err := Load([]byte(doc))
			if err == nil {
				t.Fatal("Load accepted a document with a missing collection")
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("error %q does not name the missing collection", err)
			}
		})
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	if _, err := Load([]byte(`{"name": `)); err == nil {
		t.Error("Load accepted truncated JSON")
	}
}

func TestLoadMigratesLegacyPayees(t *testing.T) {
	doc := `{
  "name": "Legacy",
  "accounts": [{"id": "acc-1", "name": "Checking", "type": "budget", "archived": false}],
  "budget_categories": [],
  "budgets": [],
  "payees": [
    {"id": "pay-1", "name": "Grocer"},
    {"id": "pay-2", "name": "Cafe"}
  ],
  "transactions": [
    {
      "id": "tx-1",
      "account_id": "acc-1",
      "payee_id": null,
      "transaction_posting_ids": ["po-1", "po-2"],
      "status": "open",
      "date": "2024-03-01T00:00:00Z",
      "recurring_template_id": null
    }
  ],
  "transaction_postings": [
    {"id": "po-1", "budget_id": null, "amount": -1200, "note": "", "payee_id": "pay-1"},
    {"id": "po-2", "budget_id": null, "amount": -800, "note": "", "payee_id": "pay-2"}
  ],
  "recurring_templates": [],
  "assignments": [],
  "transfers": []
}`

	led, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tx := led.TransactionByID("tx-1")
	if tx == nil {
		t.Fatal("transaction not loaded")
	}
	if tx.PayeeID != "pay-1" {
		t.Errorf("payee = %q, want first posting's payee lifted", tx.PayeeID)
	}

	out, err := Save(led)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.Contains(string(out), `"payee_id": "pay-2"`) {
		t.Error("legacy posting payee survived a save")
	}
}

func TestLoadKeepsExplicitTransactionPayee(t *testing.T) {
	// A transaction-level payee always wins over a legacy posting payee.
	doc := strings.Replace(sampleDocument,
		`{"id": "po-1", "budget_id": "bud-rent", "amount": -90000, "note": "january rent"}`,
		`{"id": "po-1", "budget_id": "bud-rent", "amount": -90000, "note": "january rent", "payee_id": "pay-other"}`, 1)

	led, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := led.TransactionByID("tx-1").PayeeID; got != "pay-1" {
		t.Errorf("payee = %q, want transaction-level payee kept", got)
	}
}

func TestLoadSkipsEmptyTransactions(t *testing.T) {
	// A transaction whose postings cannot be resolved is dropped, not fatal.
	doc := strings.Replace(sampleDocument,
		`"transaction_posting_ids": ["po-1"]`,
		`"transaction_posting_ids": ["po-missing"]`, 1)

	led, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(led.Transactions) != 0 {
		t.Errorf("transactions = %d, want 0", len(led.Transactions))
	}
}

func TestSaveOmitsEmptyGoals(t *testing.T) {
	led := ledger.New("g")
	led.AddBudget(&core.Budget{ID: "b-1", Name: "Trip"})
	out, err := Save(led)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), `"goals"`) {
		t.Error("goals key emitted for a ledger without goals")
	}
}

func TestSaveGoalsRoundTrip(t *testing.T) {
	led := ledger.New("g")
	led.AddBudget(&core.Budget{ID: "b-1", Name: "Trip", Goal: &core.Goal{
		ID: "goal-1", Type: core.GoalAvailable, Target: core.Money{Cents: 50000},
		BudgetID: "b-1", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}})
	led.AddAccount(&core.Account{ID: "a", Name: "A", Type: core.AccountBudget})

	out, err := Save(led)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	b := again.BudgetByID("b-1")
	if b == nil || b.Goal == nil {
		t.Fatal("goal lost across round trip")
	}
	if b.Goal.Type != core.GoalAvailable || b.Goal.Target.Cents != 50000 {
		t.Errorf("goal fields changed: %+v", b.Goal)
	}
}
