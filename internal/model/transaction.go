// Package model defines the domain types shared across the application.
package model

// TransactionKind discriminates the two remote record kinds. Only the
// persistence gateway is allowed to switch on it when choosing a
// collection and payload shape.
type TransactionKind string

const (
	// KindIncome marks records stored in the incomes collection.
	KindIncome TransactionKind = "income"
	// KindExpense marks records stored in the expenses collection.
	KindExpense TransactionKind = "expense"
)

// Valid reports whether k is one of the known kinds.
func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is the unified, client-facing shape for both record kinds.
type Transaction struct {
	ID             string // server-assigned, empty before first create, immutable after
	Title          string
	Amount         float64 // always in the base storage currency
	Kind           TransactionKind
	OccurredOn     Date
	Classification string // category for an expense, source for an income
	Notes          string // expenses only
	IsRecurring    bool
	OwnerID        string // stamped by the gateway at write time
}
