package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
)

const (
	incomesTable  = "incomes"
	expensesTable = "expenses"
)

func tableFor(kind model.TransactionKind) string {
	if kind == model.KindExpense {
		return expensesTable
	}
	return incomesTable
}

// record is the raw shape both collections share on the wire.
type record struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Date        model.Date `json:"date"`
	Category    string     `json:"category"`
	Source      string     `json:"source"`
	Notes       string     `json:"notes"`
	IsRecurring bool       `json:"is_recurring"`
}

// transaction maps a raw record into the unified shape.
func (r record) transaction(kind model.TransactionKind) model.Transaction {
	classification := r.Category
	if kind == model.KindIncome {
		classification = r.Source
	}
	return model.Transaction{
		ID:             r.ID,
		Title:          r.Description,
		Amount:         r.Amount,
		Kind:           kind,
		OccurredOn:     r.Date,
		Classification: classification,
		Notes:          r.Notes,
		IsRecurring:    r.IsRecurring,
		OwnerID:        r.UserID,
	}
}

// ListAll queries both collections for ownerID concurrently and
// returns the concatenated, unsorted result. An empty owner means an
// empty ledger with no network calls.
func (c *Client) ListAll(ctx context.Context, ownerID string) ([]model.Transaction, error) {
	if ownerID == "" {
		return nil, nil
	}

	var (
		wg         sync.WaitGroup
		incomes    []model.Transaction
		expenses   []model.Transaction
		incomeErr  error
		expenseErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		incomes, incomeErr = c.list(ctx, incomesTable, model.KindIncome, ownerID)
	}()
	go func() {
		defer wg.Done()
		expenses, expenseErr = c.list(ctx, expensesTable, model.KindExpense, ownerID)
	}()
	wg.Wait()

	if err := errors.Join(incomeErr, expenseErr); err != nil {
		return nil, err
	}
	return append(incomes, expenses...), nil
}

func (c *Client) list(ctx context.Context, table string, kind model.TransactionKind, ownerID string) ([]model.Transaction, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+ownerID)
	query.Set("select", "*")

	resp, err := c.do(ctx, http.MethodGet, "/rest/v1/"+table, query, nil, "")
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(resp)
	if err != nil {
		return nil, err
	}

	transactions := make([]model.Transaction, 0, len(records))
	for _, r := range records {
		transactions = append(transactions, r.transaction(kind))
	}
	return transactions, nil
}

// Create validates tx, writes it to the collection matching its kind
// and returns it with the server-assigned id.
func (c *Client) Create(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	if err := validateCreate(tx); err != nil {
		return model.Transaction{}, err
	}

	owner, err := c.owner(ctx)
	if err != nil {
		return model.Transaction{}, err
	}

	payload := createPayload(tx, owner)

	// PostgREST inserts take an array of rows.
	resp, err := c.do(ctx, http.MethodPost, "/rest/v1/"+tableFor(tx.Kind), nil, []map[string]any{payload}, "return=representation")
	if err != nil {
		return model.Transaction{}, err
	}

	records, err := decodeRecords(resp)
	if err != nil {
		return model.Transaction{}, err
	}
	if len(records) == 0 {
		return model.Transaction{}, fmt.Errorf("create in %s returned no representation", tableFor(tx.Kind))
	}
	return records[0].transaction(tx.Kind), nil
}

// Update applies a partial patch to the record scoped to id and the
// current owner, and returns the updated transaction.
func (c *Client) Update(ctx context.Context, id string, kind model.TransactionKind, patch service.TransactionPatch) (model.Transaction, error) {
	if err := validatePatch(kind, patch); err != nil {
		return model.Transaction{}, err
	}

	owner, err := c.owner(ctx)
	if err != nil {
		return model.Transaction{}, err
	}

	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+owner)

	resp, err := c.do(ctx, http.MethodPatch, "/rest/v1/"+tableFor(kind), query, patchPayload(kind, patch), "return=representation")
	if err != nil {
		return model.Transaction{}, err
	}

	records, err := decodeRecords(resp)
	if err != nil {
		return model.Transaction{}, err
	}
	// No row matched the id/owner scope.
	if len(records) == 0 {
		return model.Transaction{}, fmt.Errorf("update %s %s: %w", kind, id, common.ErrNotFound)
	}
	return records[0].transaction(kind), nil
}

// Delete removes the record scoped to id and the current owner from
// the kind's collection.
func (c *Client) Delete(ctx context.Context, id string, kind model.TransactionKind) error {
	if !kind.Valid() {
		return common.NewValidationError("kind", "must be income or expense")
	}

	owner, err := c.owner(ctx)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+owner)

	resp, err := c.do(ctx, http.MethodDelete, "/rest/v1/"+tableFor(kind), query, nil, "return=representation")
	if err != nil {
		return err
	}

	records, err := decodeRecords(resp)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("delete %s %s: %w", kind, id, common.ErrNotFound)
	}
	return nil
}

// owner resolves the identity stamped on every write.
func (c *Client) owner(ctx context.Context) (string, error) {
	id, err := c.identity.OwnerID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", common.ErrNoIdentity
	}
	return id, nil
}

// createPayload builds the kind-specific insert row.
func createPayload(tx model.Transaction, owner string) map[string]any {
	payload := map[string]any{
		"user_id":     owner,
		"description": tx.Title,
		"amount":      tx.Amount,
		"date":        tx.OccurredOn.String(),
	}
	switch tx.Kind {
	case model.KindExpense:
		payload["category"] = tx.Classification
		if tx.Notes != "" {
			payload["notes"] = tx.Notes
		}
	case model.KindIncome:
		payload["source"] = tx.Classification
	}
	if tx.IsRecurring {
		payload["is_recurring"] = true
	}
	return payload
}

// patchPayload builds a partial update from only the set fields.
func patchPayload(kind model.TransactionKind, patch service.TransactionPatch) map[string]any {
	payload := map[string]any{}
	if patch.Title != nil {
		payload["description"] = *patch.Title
	}
	if patch.Amount != nil {
		payload["amount"] = *patch.Amount
	}
	if patch.OccurredOn != nil {
		payload["date"] = patch.OccurredOn.String()
	}
	if patch.Classification != nil {
		switch kind {
		case model.KindExpense:
			payload["category"] = *patch.Classification
		case model.KindIncome:
			payload["source"] = *patch.Classification
			// Income rows keep category mirrored to source.
			payload["category"] = *patch.Classification
		}
	}
	if patch.Notes != nil && kind == model.KindExpense {
		payload["notes"] = *patch.Notes
	}
	if patch.IsRecurring != nil {
		payload["is_recurring"] = *patch.IsRecurring
	}
	return payload
}

// validateCreate enforces the write preconditions. Violations fail
// fast and never reach the network.
func validateCreate(tx model.Transaction) error {
	if !tx.Kind.Valid() {
		return common.NewValidationError("kind", "must be income or expense")
	}
	if strings.TrimSpace(tx.Title) == "" {
		return common.NewValidationError("title", "must not be blank")
	}
	if tx.Amount <= 0 {
		return common.NewValidationError("amount", "must be greater than zero")
	}
	if tx.OccurredOn.IsZero() {
		return common.NewValidationError("date", "must be a valid calendar date")
	}
	if strings.TrimSpace(tx.Classification) == "" {
		if tx.Kind == model.KindIncome {
			return common.NewValidationError("source", "required for income")
		}
		return common.NewValidationError("category", "required for expense")
	}
	return nil
}

// validatePatch enforces the same preconditions on the fields a
// partial update touches.
func validatePatch(kind model.TransactionKind, patch service.TransactionPatch) error {
	if !kind.Valid() {
		return common.NewValidationError("kind", "must be income or expense")
	}
	if patch.IsEmpty() {
		return common.NewValidationError("patch", "no fields to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return common.NewValidationError("title", "must not be blank")
	}
	if patch.Amount != nil && *patch.Amount <= 0 {
		return common.NewValidationError("amount", "must be greater than zero")
	}
	if patch.OccurredOn != nil && patch.OccurredOn.IsZero() {
		return common.NewValidationError("date", "must be a valid calendar date")
	}
	if patch.Classification != nil && strings.TrimSpace(*patch.Classification) == "" {
		if kind == model.KindIncome {
			return common.NewValidationError("source", "required for income")
		}
		return common.NewValidationError("category", "required for expense")
	}
	return nil
}
