package authkit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Transaction executes a function within a database transaction with
// automatic commit/rollback. The closure receives a service bound to the
// transaction; every statement issued through it runs on the transaction.
// If the function returns an error the transaction is rolled back,
// otherwise it is committed.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context, txs *authkit.Service) error {
//	    if err := txs.AddMembership(ctx, actor, groupRef, userA); err != nil {
//	        return err // rollback
//	    }
//	    return txs.AddMembership(ctx, actor, groupRef, userB) // commit on nil
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context, txs *Service) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		// Already in a transaction: nest via savepoint.
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	default:
		err = fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	duration := time.Since(start)
	s.txMonitor.recordTransaction(duration, err)

	return err
}

// TransactionWithOptions executes a function within a database transaction
// with custom options. Supports read-only transactions, isolation levels,
// and other transaction parameters.
//
// Example:
//
//	err := service.TransactionWithOptions(ctx, dbkit.SerializableTxOptions(), func(ctx context.Context, txs *authkit.Service) error {
//	    return txs.PromoteTenantAdmin(ctx, actor, tenantRef, userRef)
//	})
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, txs *Service) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		// Nested transactions use savepoints; options do not apply.
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		err = db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	default:
		err = fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	duration := time.Since(start)
	s.txMonitor.recordTransaction(duration, err)

	return err
}

// ReadOnlyTransaction executes a function within a read-only database
// transaction. Useful for multi-query reads that need a consistent view.
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, txs *Service) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}

// GetTransactionMetrics returns transaction performance statistics recorded
// since service creation or the last ResetTransactionMetrics call.
func (s *Service) GetTransactionMetrics() TransactionMetrics {
	return s.txMonitor.getMetrics()
}

// ResetTransactionMetrics clears the recorded transaction statistics.
func (s *Service) ResetTransactionMetrics() {
	s.txMonitor.reset()
}
