package events

// Channels exchanged between the coordinator and the participants
const (
	TopicOrderEvents         Topic = "order-events"
	TopicPaymentEvents       Topic = "payment-events"
	TopicPaymentProcessed    Topic = "payment-processed"
	TopicInventoryEvents     Topic = "inventory-events"
	TopicInventoryReserved   Topic = "inventory-reserved"
	TopicCompensatePayment   Topic = "compensate-payment"
	TopicCompensateInventory Topic = "compensate-inventory"
	TopicSagaDeadLetter      Topic = "saga-dead-letter"
)

// AllTopics lists every channel the system uses, in declaration order
func AllTopics() []Topic {
	return []Topic{
		TopicOrderEvents,
		TopicPaymentEvents,
		TopicPaymentProcessed,
		TopicInventoryEvents,
		TopicInventoryReserved,
		TopicCompensatePayment,
		TopicCompensateInventory,
		TopicSagaDeadLetter,
	}
}
