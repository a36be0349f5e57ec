package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/repository"
)

type snapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Save replaces the stored state with s inside one database transaction.
func (r *snapshotRepository) Save(ctx context.Context, s *domain.Snapshot) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `TRUNCATE member_debts, members, families, transactions, money_requests, merchants, reconciliations`); err != nil {
		return fmt.Errorf("failed to clear tables: %w", err)
	}

	for _, f := range s.Families {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO families (id, name, member_ids, request_ids, created_at) VALUES ($1, $2, $3, $4, $5)`,
			f.ID, f.Name, pq.Array(nonNil(f.MemberIDs)), pq.Array(nonNil(f.RequestIDs)), f.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save family %s: %w", f.ID, err)
		}
	}

	for _, m := range s.Members {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO members (id, first_name, last_name, balance_cents, family_id, customer_ref, account_ref,
			                      transaction_ids, shared_transaction_ids, active_request_ids, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			m.ID, m.FirstName, m.LastName, int64(m.Balance), m.FamilyID, m.CustomerRef, m.AccountRef,
			pq.Array(nonNil(m.TransactionIDs)), pq.Array(nonNil(m.SharedTransactionIDs)), pq.Array(nonNil(m.ActiveRequestIDs)),
			m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save member %s: %w", m.ID, err)
		}
		for lenderID, amount := range m.Debts {
			if amount <= 0 {
				continue
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO member_debts (borrower_id, lender_id, amount_cents) VALUES ($1, $2, $3)`,
				m.ID, lenderID, int64(amount))
			if err != nil {
				return fmt.Errorf("failed to save debt of %s to %s: %w", m.ID, lenderID, err)
			}
		}
	}

	for _, t := range s.Transactions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions (id, kind, from_id, to_id, amount_cents, from_debt_cents, to_debt_cents, description, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			t.ID, string(t.Kind), t.FromID, t.ToID, int64(t.Amount), int64(t.FromDebt), int64(t.ToDebt), t.Description, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", t.ID, err)
		}
	}

	for _, req := range s.MoneyRequests {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO money_requests (id, from_id, to_id, amount_cents, status, description, created_at, resolved_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			req.ID, req.FromID, req.ToID, int64(req.Amount), string(req.Status), req.Description, req.CreatedAt, nullTime(req.ResolvedAt))
		if err != nil {
			return fmt.Errorf("failed to save money request %s: %w", req.ID, err)
		}
	}

	for _, m := range s.Merchants {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO merchants (id, name, category, location, external_ref, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, m.Name, m.Category, m.Location, m.ExternalRef, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save merchant %s: %w", m.ID, err)
		}
	}

	for _, rec := range s.Reconciliations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reconciliations (id, operation, funding_id, receiving_id, funding_account, receiving_account,
			                              amount_cents, withdrawal_id, request_id, cause, created_at, closed_at, note)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			rec.ID, string(rec.Operation), rec.FundingID, rec.ReceivingID, rec.FundingAccount, rec.ReceivingAccount,
			int64(rec.Amount), rec.WithdrawalID, rec.RequestID, rec.Cause, rec.CreatedAt, nullTime(rec.ClosedAt), rec.Note)
		if err != nil {
			return fmt.Errorf("failed to save reconciliation %s: %w", rec.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Load reads the stored state. It returns repository.ErrNoSnapshot when the
// tables hold no members, families or merchants.
func (r *snapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	s := &domain.Snapshot{TakenAt: time.Now()}

	members, err := r.loadMembers(ctx)
	if err != nil {
		return nil, err
	}
	s.Members = members

	if s.Families, err = r.loadFamilies(ctx); err != nil {
		return nil, err
	}
	if s.Transactions, err = r.loadTransactions(ctx); err != nil {
		return nil, err
	}
	if s.MoneyRequests, err = r.loadRequests(ctx); err != nil {
		return nil, err
	}
	if s.Merchants, err = r.loadMerchants(ctx); err != nil {
		return nil, err
	}
	if s.Reconciliations, err = r.loadReconciliations(ctx); err != nil {
		return nil, err
	}

	if s.IsEmpty() {
		return nil, repository.ErrNoSnapshot
	}
	return s, nil
}

func (r *snapshotRepository) loadMembers(ctx context.Context) ([]domain.Member, error) {
	query := `SELECT id, first_name, last_name, balance_cents, COALESCE(family_id, ''), COALESCE(customer_ref, ''),
	                 COALESCE(account_ref, ''), transaction_ids, shared_transaction_ids, active_request_ids, created_at
	          FROM members ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	index := make(map[string]int)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Balance, &m.FamilyID, &m.CustomerRef, &m.AccountRef,
			pq.Array(&m.TransactionIDs), pq.Array(&m.SharedTransactionIDs), pq.Array(&m.ActiveRequestIDs), &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Debts = make(map[string]domain.Money)
		index[m.ID] = len(members)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	debtRows, err := r.db.QueryContext(ctx, `SELECT borrower_id, lender_id, amount_cents FROM member_debts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load debts: %w", err)
	}
	defer debtRows.Close()

	for debtRows.Next() {
		var borrowerID, lenderID string
		var amount domain.Money
		if err := debtRows.Scan(&borrowerID, &lenderID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		i, ok := index[borrowerID]
		if !ok {
			return nil, fmt.Errorf("debt references unknown member %s", borrowerID)
		}
		members[i].Debts[lenderID] = amount
	}
	return members, debtRows.Err()
}

func (r *snapshotRepository) loadFamilies(ctx context.Context) ([]domain.Family, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, member_ids, request_ids, created_at FROM families ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load families: %w", err)
	}
	defer rows.Close()

	var families []domain.Family
	for rows.Next() {
		var f domain.Family
		if err := rows.Scan(&f.ID, &f.Name, pq.Array(&f.MemberIDs), pq.Array(&f.RequestIDs), &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

func (r *snapshotRepository) loadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	query := `SELECT id, kind, from_id, to_id, amount_cents, from_debt_cents, to_debt_cents, COALESCE(description, ''), created_at
	          FROM transactions ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Kind, &t.FromID, &t.ToID, &t.Amount, &t.FromDebt, &t.ToDebt, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *snapshotRepository) loadRequests(ctx context.Context) ([]domain.MoneyRequest, error) {
	query := `SELECT id, from_id, to_id, amount_cents, status, COALESCE(description, ''), created_at, resolved_at
	          FROM money_requests ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load money requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.MoneyRequest
	for rows.Next() {
		var req domain.MoneyRequest
		var resolvedAt sql.NullTime
		if err := rows.Scan(&req.ID, &req.FromID, &req.ToID, &req.Amount, &req.Status, &req.Description, &req.CreatedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan money request: %w", err)
		}
		req.ResolvedAt = timePtr(resolvedAt)
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *snapshotRepository) loadMerchants(ctx context.Context) ([]domain.Merchant, error) {
	query := `SELECT id, name, COALESCE(category, ''), COALESCE(location, ''), COALESCE(external_ref, ''), created_at
	          FROM merchants ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchants: %w", err)
	}
	defer rows.Close()

	var merchants []domain.Merchant
	for rows.Next() {
		var m domain.Merchant
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.Location, &m.ExternalRef, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan merchant: %w", err)
		}
		merchants = append(merchants, m)
	}
	return merchants, rows.Err()
}

func (r *snapshotRepository) loadReconciliations(ctx context.Context) ([]domain.Reconciliation, error) {
	query := `SELECT id, operation, funding_id, receiving_id, COALESCE(funding_account, ''), COALESCE(receiving_account, ''),
	                 amount_cents, COALESCE(withdrawal_id, ''), COALESCE(request_id, ''), COALESCE(cause, ''),
	                 created_at, closed_at, COALESCE(note, '')
	          FROM reconciliations ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load reconciliations: %w", err)
	}
	defer rows.Close()

	var recs []domain.Reconciliation
	for rows.Next() {
		var rec domain.Reconciliation
		var closedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Operation, &rec.FundingID, &rec.ReceivingID, &rec.FundingAccount, &rec.ReceivingAccount,
			&rec.Amount, &rec.WithdrawalID, &rec.RequestID, &rec.Cause, &rec.CreatedAt, &closedAt, &rec.Note); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		rec.ClosedAt = timePtr(closedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
