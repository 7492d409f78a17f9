package model

import "time"

// OrderStatus — статус заказа в жизненном цикле pending → approved/rejected → delivered
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusApproved  OrderStatus = "approved"
	StatusRejected  OrderStatus = "rejected"
	StatusDelivered OrderStatus = "delivered"
)

// OrderStatuses — фиксированный порядок категорий на графике статусов
var OrderStatuses = []OrderStatus{StatusPending, StatusApproved, StatusRejected, StatusDelivered}

// Order — заказ пользователя; данные принадлежат внешнему хранилищу и здесь только читаются
type Order struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	Status      OrderStatus `json:"status"`
	Delivered   bool        `json:"delivered"`
	CreatedAt   time.Time   `json:"created_at"`
	ApprovedAt  *time.Time  `json:"approved_at,omitempty"`
	DeliveredAt *time.Time  `json:"delivered_at,omitempty"`
	RejectedAt  *time.Time  `json:"rejected_at,omitempty"`
}

// IsDelivered сообщает, считается ли заказ доставленным
// флаг delivered и статус delivered не синхронизированы у писателей,
// поэтому оба признака равноправны и объединяются через ИЛИ
func (o Order) IsDelivered() bool {
	return o.Delivered || o.Status == StatusDelivered
}

// User — сотрудник, оформляющий заказы
type User struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Matricule      *string `json:"matricule,omitempty"`
	Administration *string `json:"administration,omitempty"`
	Status         string  `json:"status"`
}

// OrderItem — строка заказа
type OrderItem struct {
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// Product — товар из каталога
type Product struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
