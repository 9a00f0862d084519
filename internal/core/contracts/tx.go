package contracts

import "context"

// TxRunner wraps a function in a database transaction. The transaction is
// carried on the context for repositories to pick up.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
