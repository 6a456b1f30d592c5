package orders

const (
	TopicOrderCreated   = "order.created"
	TopicStockShortfall = "order.stock.shortfall"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
