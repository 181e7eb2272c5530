package listener

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func (l *SettlementListener) isDeferred(txId string) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	_, exists := l.deferredTxIds[txId]
	return exists
}

func (l *SettlementListener) deferredCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return len(l.deferredTxIds)
}

func (l *SettlementListener) markDeferred(txId string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.deferredTxIds[txId] = l.now()
}

// cleanupLoop releases deferred withdrawals once their retry window passes
func (l *SettlementListener) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupDeferred()
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *SettlementListener) cleanupDeferred() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	cutoff := l.now().Add(-l.retryWindow)
	released := 0

	for txId, deferredAt := range l.deferredTxIds {
		if !deferredAt.After(cutoff) {
			delete(l.deferredTxIds, txId)
			released++
		}
	}

	if released > 0 {
		zap.L().Debug("Released deferred withdrawals for retry",
			zap.Int("released", released),
			zap.Int("remaining", len(l.deferredTxIds)))
	}
}
