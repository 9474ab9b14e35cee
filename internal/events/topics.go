package events

// Topic constants for domain events emitted by the engine.
const (
	TopicSaleCommitted = "sale.committed"
	TopicSaleAborted   = "sale.aborted"
	TopicStockLow      = "stock.low"
	TopicStockRestock  = "stock.restocked"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicSaleCommitted,
		TopicSaleAborted,
		TopicStockLow,
		TopicStockRestock,
	}
}
