// Package document defines the per-order document persisted to the store and
// the builder that produces it from a denormalized row.
package document

import (
	"errors"
	"fmt"
	"time"

	"orderdocs/internal/pipeline"
)

// ErrInvalid is wrapped by Validate.
var ErrInvalid = errors.New("invalid document")

// Order holds the order header.
type Order struct {
	Status                *string    `bson:"status" json:"status"`
	PurchaseTimestamp     *time.Time `bson:"purchase_timestamp" json:"purchase_timestamp"`
	ApprovedAt            *time.Time `bson:"approved_at" json:"approved_at"`
	DeliveredCustomerDate *time.Time `bson:"delivered_customer_date" json:"delivered_customer_date"`
	EstimatedDeliveryDate *time.Time `bson:"estimated_delivery_date" json:"estimated_delivery_date"`
}

// Customer is the buyer of an order. Every field but ID is nil when the
// order's customer_id matched no customers row.
type Customer struct {
	ID            *string `bson:"id" json:"id"`
	UniqueID      *string `bson:"unique_id" json:"unique_id"`
	ZipCodePrefix *string `bson:"zip_code_prefix" json:"zip_code_prefix"`
	City          *string `bson:"city" json:"city"`
	State         *string `bson:"state" json:"state"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	OrderItemID     int     `bson:"order_item_id" json:"order_item_id"`
	ProductID       string  `bson:"product_id" json:"product_id"`
	ProductCategory string  `bson:"product_category" json:"product_category"`
	Price           float64 `bson:"price" json:"price"`
	FreightValue    float64 `bson:"freight_value" json:"freight_value"`
}

// Payment is one payment of an order.
type Payment struct {
	PaymentSequential   int     `bson:"payment_sequential" json:"payment_sequential"`
	PaymentType         *string `bson:"payment_type" json:"payment_type"`
	PaymentInstallments int     `bson:"payment_installments" json:"payment_installments"`
	PaymentValue        float64 `bson:"payment_value" json:"payment_value"`
}

// Document is the denormalized order. ID is the order_id.
type Document struct {
	ID       string      `bson:"_id" json:"_id"`
	Order    Order       `bson:"order" json:"order"`
	Customer Customer    `bson:"customer" json:"customer"`
	Items    []OrderItem `bson:"items" json:"items"`
	Payments []Payment   `bson:"payments" json:"payments"`
}

// Validate checks the structural invariants of d.
func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty _id", ErrInvalid)
	}
	if d.Items == nil {
		return fmt.Errorf("%w: order %s: items is nil", ErrInvalid, d.ID)
	}
	if d.Payments == nil {
		return fmt.Errorf("%w: order %s: payments is nil", ErrInvalid, d.ID)
	}
	return nil
}

// Normalize replaces nil Items and Payments with empty slices. Decoders
// return nil for an empty array.
func (d *Document) Normalize() {
	if d.Items == nil {
		d.Items = []OrderItem{}
	}
	if d.Payments == nil {
		d.Payments = []Payment{}
	}
}

// Fields renders d as a pipeline document with the stored field names.
// Null timestamps and customer fields become nil values.
func (d Document) Fields() pipeline.Doc {
	items := make([]any, len(d.Items))
	for i, it := range d.Items {
		items[i] = map[string]any{
			"order_item_id":    it.OrderItemID,
			"product_id":       it.ProductID,
			"product_category": it.ProductCategory,
			"price":            it.Price,
			"freight_value":    it.FreightValue,
		}
	}
	payments := make([]any, len(d.Payments))
	for i, p := range d.Payments {
		payments[i] = map[string]any{
			"payment_sequential":   p.PaymentSequential,
			"payment_type":         strValue(p.PaymentType),
			"payment_installments": p.PaymentInstallments,
			"payment_value":        p.PaymentValue,
		}
	}
	return pipeline.Doc{
		"_id": d.ID,
		"order": map[string]any{
			"status":                  strValue(d.Order.Status),
			"purchase_timestamp":      timeValue(d.Order.PurchaseTimestamp),
			"approved_at":             timeValue(d.Order.ApprovedAt),
			"delivered_customer_date": timeValue(d.Order.DeliveredCustomerDate),
			"estimated_delivery_date": timeValue(d.Order.EstimatedDeliveryDate),
		},
		"customer": map[string]any{
			"id":              strValue(d.Customer.ID),
			"unique_id":       strValue(d.Customer.UniqueID),
			"zip_code_prefix": strValue(d.Customer.ZipCodePrefix),
			"city":            strValue(d.Customer.City),
			"state":           strValue(d.Customer.State),
		},
		"items":    items,
		"payments": payments,
	}
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func strValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
