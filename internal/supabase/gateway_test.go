package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIdentity string

func (s staticIdentity) OwnerID(context.Context) (string, error) {
	return string(s), nil
}

// fakeStore emulates the PostgREST surface of the two collections.
type fakeStore struct {
	t *testing.T

	mu       sync.Mutex
	rows     map[string][]map[string]any // keyed by table name
	requests int
	authFail bool
}

func newFakeStore(t *testing.T) *fakeStore {
	return &fakeStore{
		t:    t,
		rows: map[string][]map[string]any{"incomes": {}, "expenses": {}},
	}
}

func (f *fakeStore) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeStore) failAuth() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authFail = true
}

func (f *fakeStore) insert(table string, row map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}
	f.rows[table] = append(f.rows[table], row)
}

func queryFilter(r *http.Request, key string) (string, bool) {
	v := r.URL.Query().Get(key)
	if !strings.HasPrefix(v, "eq.") {
		return "", false
	}
	return strings.TrimPrefix(v, "eq."), true
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	assert.NotEmpty(f.t, r.Header.Get("apikey"), "apikey header required")
	assert.True(f.t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "), "bearer token required")

	if f.authFail {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	rows, ok := f.rows[table]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(f.t, json.NewEncoder(w).Encode(v))
	}

	matches := func(row map[string]any) bool {
		if owner, ok := queryFilter(r, "user_id"); ok && row["user_id"] != owner {
			return false
		}
		if id, ok := queryFilter(r, "id"); ok && row["id"] != id {
			return false
		}
		return true
	}

	switch r.Method {
	case http.MethodGet:
		out := []map[string]any{}
		for _, row := range rows {
			if matches(row) {
				out = append(out, row)
			}
		}
		writeJSON(out)

	case http.MethodPost:
		var incoming []map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&incoming))
		created := []map[string]any{}
		for _, row := range incoming {
			row["id"] = uuid.NewString()
			f.rows[table] = append(f.rows[table], row)
			created = append(created, row)
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(created)

	case http.MethodPatch:
		var patch map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&patch))
		updated := []map[string]any{}
		for _, row := range rows {
			if matches(row) {
				for k, v := range patch {
					row[k] = v
				}
				updated = append(updated, row)
			}
		}
		writeJSON(updated)

	case http.MethodDelete:
		kept := []map[string]any{}
		deleted := []map[string]any{}
		for _, row := range rows {
			if matches(row) {
				deleted = append(deleted, row)
			} else {
				kept = append(kept, row)
			}
		}
		f.rows[table] = kept
		writeJSON(deleted)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestGateway(t *testing.T) (*Client, *fakeStore) {
	t.Helper()
	store := newFakeStore(t)
	server := httptest.NewServer(store)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "anon-key", StaticToken("token"), staticIdentity("user-1"))
	return client, store
}

func TestListAllMergesBothCollections(t *testing.T) {
	client, store := newTestGateway(t)
	store.insert("incomes", map[string]any{
		"user_id": "user-1", "description": "Salary", "amount": 3000.0,
		"date": "2024-05-01", "source": "Salary",
	})
	store.insert("expenses", map[string]any{
		"user_id": "user-1", "description": "Lunch", "amount": 25.50,
		"date": "2024-05-01", "category": "Food", "notes": "with coworkers",
	})
	store.insert("expenses", map[string]any{
		"user_id": "someone-else", "description": "Not mine", "amount": 10.0,
		"date": "2024-05-01", "category": "Other",
	})

	got, err := client.ListAll(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	byKind := map[model.TransactionKind]model.Transaction{}
	for _, tx := range got {
		byKind[tx.Kind] = tx
	}

	income := byKind[model.KindIncome]
	assert.Equal(t, "Salary", income.Title)
	assert.Equal(t, "Salary", income.Classification)
	assert.InDelta(t, 3000, income.Amount, 1e-9)

	expense := byKind[model.KindExpense]
	assert.Equal(t, "Lunch", expense.Title)
	assert.Equal(t, "Food", expense.Classification)
	assert.Equal(t, "with coworkers", expense.Notes)
	assert.Equal(t, "user-1", expense.OwnerID)
}

func TestListAllWithoutIdentitySkipsNetwork(t *testing.T) {
	client, store := newTestGateway(t)

	got, err := client.ListAll(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, store.requestCount())
}

func TestCreateExpense(t *testing.T) {
	client, store := newTestGateway(t)

	created, err := client.Create(context.Background(), model.Transaction{
		Title:          "Lunch",
		Amount:         25.50,
		Kind:           model.KindExpense,
		OccurredOn:     model.NewDate(2024, time.May, 1),
		Classification: "Food",
		Notes:          "quick bite",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Lunch", created.Title)
	assert.Equal(t, model.KindExpense, created.Kind)
	assert.Equal(t, "Food", created.Classification)
	assert.Equal(t, "user-1", created.OwnerID)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.rows["expenses"], 1)
	row := store.rows["expenses"][0]
	assert.Equal(t, "Lunch", row["description"])
	assert.Equal(t, "Food", row["category"])
	assert.Equal(t, "quick bite", row["notes"])
	assert.Equal(t, "2024-05-01", row["date"])
	_, hasSource := row["source"]
	assert.False(t, hasSource, "expense payload must not carry a source")
	assert.Empty(t, store.rows["incomes"])
}

func TestCreateIncome(t *testing.T) {
	client, store := newTestGateway(t)

	created, err := client.Create(context.Background(), model.Transaction{
		Title:          "Salary",
		Amount:         3000,
		Kind:           model.KindIncome,
		OccurredOn:     model.NewDate(2024, time.May, 1),
		Classification: "Salary",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.KindIncome, created.Kind)
	assert.Equal(t, "Salary", created.Classification)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.rows["incomes"], 1)
	row := store.rows["incomes"][0]
	assert.Equal(t, "Salary", row["source"])
	_, hasCategory := row["category"]
	assert.False(t, hasCategory, "income insert payload must not carry a category")
	assert.Empty(t, store.rows["expenses"])
}

func TestCreateValidationNeverReachesNetwork(t *testing.T) {
	client, store := newTestGateway(t)
	valid := model.Transaction{
		Title:          "Lunch",
		Amount:         25.50,
		Kind:           model.KindExpense,
		OccurredOn:     model.NewDate(2024, time.May, 1),
		Classification: "Food",
	}

	tests := []struct {
		name   string
		mutate func(*model.Transaction)
	}{
		{"blank title", func(tx *model.Transaction) { tx.Title = "  " }},
		{"zero amount", func(tx *model.Transaction) { tx.Amount = 0 }},
		{"negative amount", func(tx *model.Transaction) { tx.Amount = -5 }},
		{"zero date", func(tx *model.Transaction) { tx.OccurredOn = model.Date{} }},
		{"missing category", func(tx *model.Transaction) { tx.Classification = "" }},
		{"unknown kind", func(tx *model.Transaction) { tx.Kind = "transfer" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			_, err := client.Create(context.Background(), tx)
			assert.True(t, common.IsValidation(err), "want validation error, got %v", err)
		})
	}

	assert.Equal(t, 0, store.requestCount())
}

func TestUpdateSendsOnlyPatchedFields(t *testing.T) {
	client, store := newTestGateway(t)
	store.insert("expenses", map[string]any{
		"id": "E1", "user_id": "user-1", "description": "Lunch", "amount": 25.50,
		"date": "2024-05-01", "category": "Food",
	})

	amount := 30.0
	updated, err := client.Update(context.Background(), "E1", model.KindExpense, service.TransactionPatch{
		Amount: &amount,
	})
	require.NoError(t, err)

	assert.InDelta(t, 30, updated.Amount, 1e-9)
	assert.Equal(t, "Lunch", updated.Title, "unpatched fields must survive")
	assert.Equal(t, "Food", updated.Classification)
}

func TestUpdateIncomeMirrorsSourceIntoCategory(t *testing.T) {
	client, store := newTestGateway(t)
	store.insert("incomes", map[string]any{
		"id": "I1", "user_id": "user-1", "description": "Salary", "amount": 3000.0,
		"date": "2024-05-01", "source": "Salary",
	})

	source := "Freelance"
	_, err := client.Update(context.Background(), "I1", model.KindIncome, service.TransactionPatch{
		Classification: &source,
	})
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	row := store.rows["incomes"][0]
	assert.Equal(t, "Freelance", row["source"])
	assert.Equal(t, "Freelance", row["category"])
}

func TestUpdateMissingRecord(t *testing.T) {
	client, _ := newTestGateway(t)

	title := "Renamed"
	_, err := client.Update(context.Background(), "nope", model.KindExpense, service.TransactionPatch{
		Title: &title,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete(t *testing.T) {
	client, store := newTestGateway(t)
	store.insert("expenses", map[string]any{
		"id": "E1", "user_id": "user-1", "description": "Lunch", "amount": 25.50,
		"date": "2024-05-01", "category": "Food",
	})

	require.NoError(t, client.Delete(context.Background(), "E1", model.KindExpense))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.rows["expenses"])
}

func TestDeleteMissingRecord(t *testing.T) {
	client, _ := newTestGateway(t)
	err := client.Delete(context.Background(), "nope", model.KindExpense)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExpiredCredential(t *testing.T) {
	client, store := newTestGateway(t)
	store.failAuth()

	_, err := client.ListAll(context.Background(), "user-1")
	assert.ErrorIs(t, err, common.ErrAuthExpired)
}
