package authkit

import (
	"sync"
	"time"
)

// TransactionMetrics is a snapshot of the transaction statistics recorded
// since service creation or the last reset.
type TransactionMetrics struct {
	TotalTransactions      int64          `json:"total_transactions"`
	SuccessfulTransactions int64          `json:"successful_transactions"`
	FailedTransactions     int64          `json:"failed_transactions"`
	FailuresByKind         map[Kind]int64 `json:"failures_by_kind,omitempty"`
	AverageDuration        time.Duration  `json:"average_duration"`
	MaxDuration            time.Duration  `json:"max_duration"`
	MinDuration            time.Duration  `json:"min_duration"`
	LastReset              time.Time      `json:"last_reset"`
}

// transactionMonitor accumulates transaction outcomes. Failures are
// bucketed by the Kind of the returned error, so a burst of permission
// denials reads differently from the store going away.
type transactionMonitor struct {
	mu             sync.Mutex
	totalCount     int64
	successCount   int64
	failuresByKind map[Kind]int64
	totalDuration  time.Duration
	maxDuration    time.Duration
	minDuration    time.Duration
	lastReset      time.Time
}

func newTransactionMonitor() *transactionMonitor {
	return &transactionMonitor{
		failuresByKind: make(map[Kind]int64),
		lastReset:      time.Now(),
	}
}

// recordTransaction records one completed transaction. A nil err counts as
// success; anything else lands in the bucket of its Kind, with errors the
// table does not know classifying as KindInvariantViolation.
func (tm *transactionMonitor) recordTransaction(duration time.Duration, err error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount++
	tm.totalDuration += duration
	if err == nil {
		tm.successCount++
	} else {
		tm.failuresByKind[KindOf(err)]++
	}

	if duration > tm.maxDuration {
		tm.maxDuration = duration
	}
	if tm.minDuration == 0 || duration < tm.minDuration {
		tm.minDuration = duration
	}
}

// getMetrics returns a copy of the current metrics.
func (tm *transactionMonitor) getMetrics() TransactionMetrics {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var failed int64
	byKind := make(map[Kind]int64, len(tm.failuresByKind))
	for kind, n := range tm.failuresByKind {
		failed += n
		byKind[kind] = n
	}

	var avg time.Duration
	if tm.totalCount > 0 {
		avg = tm.totalDuration / time.Duration(tm.totalCount)
	}

	return TransactionMetrics{
		TotalTransactions:      tm.totalCount,
		SuccessfulTransactions: tm.successCount,
		FailedTransactions:     failed,
		FailuresByKind:         byKind,
		AverageDuration:        avg,
		MaxDuration:            tm.maxDuration,
		MinDuration:            tm.minDuration,
		LastReset:              tm.lastReset,
	}
}

// reset clears all recorded statistics.
func (tm *transactionMonitor) reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount = 0
	tm.successCount = 0
	tm.failuresByKind = make(map[Kind]int64)
	tm.totalDuration = 0
	tm.maxDuration = 0
	tm.minDuration = 0
	tm.lastReset = time.Now()
}
