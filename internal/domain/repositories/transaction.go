package repositories

import "context"

// TxFn is a function executed within a transaction. The transaction is
// carried in the context so repositories participate automatically.
type TxFn func(ctx context.Context) error

// TransactionManager runs functions inside a database transaction.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
