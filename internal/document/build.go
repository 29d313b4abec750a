package document

import (
	"fmt"

	"orderdocs/internal/denorm"
	"orderdocs/internal/schema"
	"orderdocs/internal/transformer/builtin"
)

// Build maps one wide row into a Document. Numeric cast failures are
// returned as errors naming the order and field; they wrap
// builtin.ErrNotNumeric.
func Build(row denorm.WideRow) (Document, error) {
	d := Document{
		ID: row.OrderID,
		Order: Order{
			Status:                row.Status,
			PurchaseTimestamp:     row.PurchaseTimestamp,
			ApprovedAt:            row.ApprovedAt,
			DeliveredCustomerDate: row.DeliveredCustomerDate,
			EstimatedDeliveryDate: row.EstimatedDeliveryDate,
		},
		Customer: Customer{
			ID:            row.CustomerID,
			UniqueID:      row.CustomerUniqueID,
			ZipCodePrefix: row.CustomerZipCodePrefix,
			City:          builtin.TitleCase(row.CustomerCity),
			State:         builtin.UpperCase(row.CustomerState),
		},
		Items:    make([]OrderItem, 0, len(row.Items)),
		Payments: make([]Payment, 0, len(row.Payments)),
	}

	for i, it := range row.Items {
		var (
			item OrderItem
			err  error
		)
		if item.OrderItemID, err = builtin.ParseInt(it.OrderItemID); err != nil {
			return Document{}, fieldErr(row.OrderID, "items", i, "order_item_id", err)
		}
		if item.Price, err = builtin.ParseFloat(it.Price); err != nil {
			return Document{}, fieldErr(row.OrderID, "items", i, "price", err)
		}
		if item.FreightValue, err = builtin.ParseFloat(it.FreightValue); err != nil {
			return Document{}, fieldErr(row.OrderID, "items", i, "freight_value", err)
		}
		item.ProductID = schema.Str(it.ProductID)
		item.ProductCategory = it.ProductCategory
		d.Items = append(d.Items, item)
	}

	for i, p := range row.Payments {
		var (
			pay Payment
			err error
		)
		if pay.PaymentSequential, err = builtin.ParseInt(p.PaymentSequential); err != nil {
			return Document{}, fieldErr(row.OrderID, "payments", i, "payment_sequential", err)
		}
		if pay.PaymentInstallments, err = builtin.ParseInt(p.PaymentInstallments); err != nil {
			return Document{}, fieldErr(row.OrderID, "payments", i, "payment_installments", err)
		}
		if pay.PaymentValue, err = builtin.ParseFloat(p.PaymentValue); err != nil {
			return Document{}, fieldErr(row.OrderID, "payments", i, "payment_value", err)
		}
		pay.PaymentType = p.PaymentType
		d.Payments = append(d.Payments, pay)
	}

	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}

// BuildAll builds every row, stopping at the first error.
func BuildAll(rows []denorm.WideRow) ([]Document, error) {
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		d, err := Build(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func fieldErr(orderID, list string, i int, field string, err error) error {
	return fmt.Errorf("order %s: %s[%d].%s: %w", orderID, list, i, field, err)
}
