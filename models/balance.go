package models

import "github.com/google/uuid"

// Balance is a single pairwise claim read out of a group's ledger: From
// owes To the given amount, already netted against every other claim
// between the same two participants.
type Balance struct {
	From     uuid.UUID `json:"from"`
	FromName string    `json:"from_name"`
	To       uuid.UUID `json:"to"`
	ToName   string    `json:"to_name"`
	Amount   float64   `json:"amount"`
	Currency string    `json:"currency"`
}

// FriendBalance is the net amount owed between the current user and a
// single other participant, aggregated across every shared group.
type FriendBalance struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Amount    float64   `json:"amount"` // positive = they owe you, negative = you owe them
	Currency  string    `json:"currency"`
}

// GroupBalanceSummary is returned for GET /api/groups/:id/balances. Balances
// is a direct view over the group's ledger.GetCreditors() — each nonzero
// debtor record becomes one Balance entry.
type GroupBalanceSummary struct {
	GroupID    uuid.UUID `json:"group_id"`
	GroupName  string    `json:"group_name"`
	Balances   []Balance `json:"balances"`
	TotalSpent float64   `json:"total_spent"`
}

// OverallBalanceSummary is returned for GET /api/balances.
type OverallBalanceSummary struct {
	TotalOwed  float64         `json:"total_owed"`  // total others owe you
	TotalOwing float64         `json:"total_owing"` // total you owe others
	Friends    []FriendBalance `json:"friends"`
}

// ExpenseHistoryEntry is one adjustment in a single debt's running balance,
// as recorded by the ledger's per-debt history.
type ExpenseHistoryEntry struct {
	CausedByExpenseID int64   `json:"caused_by_expense_id"`
	GrantedAmount     float64 `json:"granted_amount"`
	RunningAmount     float64 `json:"running_amount"`
}

// DebtorHistory is one split's worth of history: how the amount this
// debtor owes the payer for this expense was adjusted over time by later
// expenses or settlements netting against it.
type DebtorHistory struct {
	DebtorID   uuid.UUID             `json:"debtor_id"`
	DebtorName string                `json:"debtor_name"`
	History    []ExpenseHistoryEntry `json:"history"`
}

// ExpenseHistoryResponse is returned for
// GET /api/groups/:id/expenses/:eid/history.
type ExpenseHistoryResponse struct {
	ExpenseID uuid.UUID       `json:"expense_id"`
	PaidBy    uuid.UUID       `json:"paid_by"`
	Currency  string          `json:"currency"`
	Debtors   []DebtorHistory `json:"debtors"`
}
