package events

// OrderCreated is the notification published when a saga starts
type OrderCreated struct {
	OrderID    string  `json:"orderId"`
	CustomerID string  `json:"customerId"`
	ProductID  string  `json:"productId"`
	Quantity   int     `json:"quantity"`
	Amount     float64 `json:"amount"`
}

// PaymentCommand asks the payment participant to charge the customer
type PaymentCommand struct {
	OrderID    string  `json:"orderId"`
	CustomerID string  `json:"customerId"`
	Amount     float64 `json:"amount"`
}

// PaymentResult is the payment participant's reply
type PaymentResult struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// InventoryCommand asks the inventory participant to reserve stock
type InventoryCommand struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// InventoryResult is the inventory participant's reply
type InventoryResult struct {
	OrderID       string `json:"orderId"`
	ReservationID string `json:"reservationId,omitempty"`
	Success       bool   `json:"success"`
	Message       string `json:"message"`
}

// CompensatePayment asks the payment participant to refund a payment
type CompensatePayment struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}

// CompensateInventory asks the inventory participant to release a reservation
type CompensateInventory struct {
	OrderID       string `json:"orderId"`
	ReservationID string `json:"reservationId"`
}

// DeadLetter wraps a message that could not be correlated or parsed
type DeadLetter struct {
	Channel string `json:"channel"`
	Key     string `json:"key"`
	EventID string `json:"eventId"`
	Reason  string `json:"reason"`
	Payload []byte `json:"payload"`
}
