package http

import (
	"log/slog"
	"net/http"
	"time"

	"envelope/internal/core"
	"envelope/internal/document"
	"envelope/internal/recurrence"
	"envelope/internal/services"
)

func (s *Server) handleLedgerInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"name":         s.led.Name,
		"version":      s.led.Version(),
		"accounts":     len(s.led.Accounts),
		"budgets":      len(s.led.Budgets),
		"transactions": len(s.led.Transactions),
		"transfers":    len(s.led.Transfers),
		"templates":    len(s.led.Templates),
	})
}

type accountResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Archived       bool   `json:"archived"`
	BalanceCents   int64  `json:"balance_cents"`
	ClearedCents   int64  `json:"cleared_cents"`
	UnclearedCents int64  `json:"uncleared_cents"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]accountResponse, 0, len(s.led.Accounts))
	for _, a := range s.led.Accounts {
		accounts = append(accounts, accountResponse{
			ID:             a.ID,
			Name:           a.Name,
			Type:           string(a.Type),
			Archived:       a.Archived,
			BalanceCents:   s.led.CurrentBalance(a).Cents,
			ClearedCents:   s.led.ClearedBalance(a).Cents,
			UnclearedCents: s.led.UnclearedBalance(a).Cents,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accounts":        accounts,
		"net_worth_cents": s.led.NetWorth().Cents,
	})
}

type goalResponse struct {
	Type         string `json:"type"`
	TargetCents  int64  `json:"target_cents"`
	CurrentCents int64  `json:"current_cents"`
	Percent      int    `json:"percent"`
	Complete     bool   `json:"complete"`
}

type budgetResponse struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	CategoryID     string        `json:"category_id,omitempty"`
	Inflow         bool          `json:"inflow"`
	AssignedCents  int64         `json:"assigned_cents"`
	ActivityCents  int64         `json:"activity_cents"`
	AvailableCents int64         `json:"available_cents"`
	Goal           *goalResponse `json:"goal,omitempty"`
}

func (s *Server) handleBudgetsMonth(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	budgets := make([]budgetResponse, 0, len(s.led.Budgets))
	for _, b := range s.led.Budgets {
		row := budgetResponse{
			ID:             b.ID,
			Name:           b.Name,
			CategoryID:     b.CategoryID,
			Inflow:         b.Inflow,
			AssignedCents:  s.led.BudgetAssignedForMonth(b, month).Cents,
			ActivityCents:  s.led.BudgetActivityForMonth(b, month).Cents,
			AvailableCents: s.led.BudgetAvailableForMonth(b, month).Cents,
		}
		if progress, ok := services.GoalProgressFor(s.led, b, month); ok {
			row.Goal = &goalResponse{
				Type:         string(b.Goal.Type),
				TargetCents:  progress.Target.Cents,
				CurrentCents: progress.Current.Cents,
				Percent:      progress.Percent,
				Complete:     progress.Complete,
			}
		}
		budgets = append(budgets, row)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"month":   core.MonthStart(month).Format("2006-01"),
		"budgets": budgets,
	})
}

type postingRequest struct {
	AmountCents *int64 `json:"amount_cents"`
	Amount      string `json:"amount"` // decimal string alternative
	BudgetID    string `json:"budget_id"`
	Note        string `json:"note"`
}

type transactionRequest struct {
	Date      string           `json:"date"`
	AccountID string           `json:"account_id"`
	PayeeID   string           `json:"payee_id"`
	Status    string           `json:"status"`
	Postings  []postingRequest `json:"postings"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := dateField(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	postings := make([]core.Posting, 0, len(req.Postings))
	for _, p := range req.Postings {
		cents, err := postingAmount(p)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		postings = append(postings, core.Posting{
			ID:       core.NewID(),
			Amount:   core.Money{Cents: cents},
			BudgetID: p.BudgetID,
			Note:     p.Note,
		})
	}

	tx, err := core.NewTransaction(date, req.AccountID, postings...)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tx.PayeeID = req.PayeeID
	if req.Status != "" {
		tx.Status = core.TransactionStatus(req.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.led.AddTransaction(tx); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           tx.ID,
		"amount_cents": tx.Amount().Cents,
		"version":      s.led.Version(),
	})
}

func postingAmount(p postingRequest) (int64, error) {
	if p.AmountCents != nil {
		return *p.AmountCents, nil
	}
	return core.ParseAmountToCents(p.Amount)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.led.DeleteTransaction(id) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "version": s.led.Version()})
}

type transferRequest struct {
	Date          string `json:"date"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	AmountCents   int64  `json:"amount_cents"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	Note          string `json:"note"`
	BudgetID      string `json:"budget_id"`
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := dateField(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tr := &core.Transfer{
		ID:            core.NewID(),
		Date:          date,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        core.Money{Cents: req.AmountCents},
		FromStatus:    core.StatusOpen,
		ToStatus:      core.StatusOpen,
		Note:          req.Note,
		BudgetID:      req.BudgetID,
	}
	if req.FromStatus != "" {
		tr.FromStatus = core.TransactionStatus(req.FromStatus)
	}
	if req.ToStatus != "" {
		tr.ToStatus = core.TransactionStatus(req.ToStatus)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.led.AddTransfer(tr); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": tr.ID, "version": s.led.Version()})
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.led.DeleteTransfer(id) {
		writeError(w, http.StatusNotFound, "transfer not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "version": s.led.Version()})
}

type assignmentRequest struct {
	Date        string `json:"date"`
	BudgetID    string `json:"budget_id"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := dateField(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.BudgetByID(req.BudgetID) == nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown budget")
		return
	}

	a := &core.Assignment{
		ID:       core.NewID(),
		Date:     date,
		BudgetID: req.BudgetID,
		Amount:   core.Money{Cents: req.AmountCents},
	}
	s.led.AddAssignment(a)
	writeJSON(w, http.StatusCreated, map[string]any{"id": a.ID, "version": s.led.Version()})
}

type templateRequest struct {
	Rule        string `json:"rule"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	AccountID   string `json:"account_id"`
	PayeeID     string `json:"payee_id"`
	BudgetID    string `json:"budget_id"`
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start, err := dateField(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tmpl := &core.RecurringTemplate{
		ID:            core.NewID(),
		Rule:          req.Rule,
		StartDate:     core.StartOfDay(start),
		NextScheduled: core.StartOfDay(start),
		AccountID:     req.AccountID,
		PayeeID:       req.PayeeID,
		BudgetID:      req.BudgetID,
		Amount:        core.Money{Cents: req.AmountCents},
		Note:          req.Note,
	}
	if req.EndDate != "" {
		end, err := dateField(req.EndDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		tmpl.EndDate = core.StartOfDay(end)
	}
	if err := tmpl.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// A malformed rule is accepted but degrades to the default monthly rule
	// when scheduled, so warn loudly here.
	if _, err := recurrence.Parse(req.Rule); err != nil {
		slog.WarnContext(r.Context(), "Template created with unparseable rule",
			"template_id", tmpl.ID,
			"rule", req.Rule,
			"error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.led.AddTemplate(tmpl)
	writeJSON(w, http.StatusCreated, map[string]any{"id": tmpl.ID, "version": s.led.Version()})
}

func (s *Server) handleSchedulerRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.scheduler.ProcessDue(r.Context(), s.led, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": created, "version": s.led.Version()})
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	s.mu.Lock()
	data, err := document.Save(s.led)
	name, version := s.led.Name, s.led.Version()
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id, err := s.snapshots.SaveSnapshot(r.Context(), name, version, data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"snapshot_id": id, "version": version})
}
