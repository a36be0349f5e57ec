package domain

// TransactionView is a transaction with both parties resolved to names.
type TransactionView struct {
	Transaction
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
}

// BorrowerSummary describes one debtor from the lender's point of view.
type BorrowerSummary struct {
	BorrowerID   string `json:"borrower_id"`
	BorrowerName string `json:"borrower_name"`
	AmountOwed   Money  `json:"amount_owed"`

	// RecentTransactions are the borrower's last few transactions, oldest first.
	RecentTransactions []Transaction `json:"recent_transactions"`

	// SharedPurchases are purchases the borrower made while owing the lender.
	SharedPurchases []Transaction `json:"shared_purchases"`
}
