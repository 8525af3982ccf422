// Package notify delivers order events to suppliers and stakeholders.
// The default implementation only logs; a mail or webhook sender can be
// dropped in behind the same interface.
package notify

import (
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

// Notifier announces settlement events. Implementations must not block
// the caller for long; delivery failures are the implementation's
// problem to log or retry. The token is handed over so a real sender can
// build the response link; it must never be logged whole.
type Notifier interface {
	OrderSent(order *store.PurchaseOrder, token string)
	OrderResponded(order *store.PurchaseOrder)
	ModificationApproved(order *store.PurchaseOrder)
}

// LogNotifier writes notifications to the application log. It stands in
// for a real channel until one is wired up.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) OrderSent(order *store.PurchaseOrder, token string) {
	n.logger.Info("notify", "order %s sent to supplier %q for %0.2f", order.ID, order.Supplier, order.TotalCost)
}

func (n *LogNotifier) OrderResponded(order *store.PurchaseOrder) {
	n.logger.Info("notify", "order %s moved to %s by supplier %q", order.ID, order.Status, order.Supplier)
}

func (n *LogNotifier) ModificationApproved(order *store.PurchaseOrder) {
	n.logger.Info("notify", "order %s modification approved, %0.2f committed", order.ID, order.CommittedTotal)
}
