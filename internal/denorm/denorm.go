// Package denorm joins the five input tables into one wide row per order
// with its items and payments embedded.
//
// The join is two passes over each child table: first an index from
// order_id to the child rows in input order, then one lookup per order.
// Every step is O(n) in the size of its input.
package denorm

import (
	"errors"
	"fmt"
	"log"
	"time"

	"orderdocs/internal/extract"
	"orderdocs/internal/schema"
	"orderdocs/internal/transformer/builtin"
)

// UnknownCategory labels items whose product is missing or uncategorized.
const UnknownCategory = "unknown"

// ErrEmptyOrderID is returned for an orders row without an order_id.
var ErrEmptyOrderID = errors.New("order row without order_id")

// ItemRow is one order item with its product category attached. Numeric
// fields stay raw; the document builder coerces them.
type ItemRow struct {
	OrderItemID     *string
	ProductID       *string
	ProductCategory string
	Price           *string
	FreightValue    *string
}

// PaymentRow is one payment of an order.
type PaymentRow struct {
	PaymentSequential   *string
	PaymentType         *string
	PaymentInstallments *string
	PaymentValue        *string
}

// WideRow is one order joined with its customer, items and payments. Items
// and Payments are never nil.
type WideRow struct {
	OrderID    string
	CustomerID *string
	Status     *string

	PurchaseTimestamp     *time.Time
	ApprovedAt            *time.Time
	DeliveredCustomerDate *time.Time
	EstimatedDeliveryDate *time.Time

	// CustomerMatched is false when no customers row carries CustomerID;
	// the remaining customer fields are then nil.
	CustomerMatched       bool
	CustomerUniqueID      *string
	CustomerZipCodePrefix *string
	CustomerCity          *string
	CustomerState         *string

	Items    []ItemRow
	Payments []PaymentRow
}

// Stats counts the irregularities the join tolerates.
type Stats struct {
	Orders             int
	Items              int
	Payments           int
	DuplicateOrders    int
	OrphanItems        int
	OrphanPayments     int
	UnmatchedCustomers int
	UnknownCategories  int
}

// Result is the output of Denormalize.
type Result struct {
	Rows  []WideRow
	Stats Stats
}

type customerRow struct {
	uniqueID, zip, city, state *string
}

// Denormalize joins t into one WideRow per distinct order_id, in the order
// the orders first appear. Later duplicates of an order_id are dropped and
// counted. Item and payment rows whose order_id matches no order are dropped
// and counted. Missing required columns fail before any row is read.
func Denormalize(t extract.Tables) (Result, error) {
	if err := t.Check(); err != nil {
		return Result{}, err
	}
	var res Result

	// Orders, with timestamps parsed once.
	orders := t.Orders
	var (
		oID        = orders.Col("order_id")
		oCustomer  = orders.Col("customer_id")
		oStatus    = orders.Col("order_status")
		oPurchase  = orders.Col("order_purchase_timestamp")
		oApproved  = orders.Col("order_approved_at")
		oDelivered = orders.Col("order_delivered_customer_date")
		oEstimated = orders.Col("order_estimated_delivery_date")
	)
	rows := make([]WideRow, 0, orders.Len())
	pos := make(map[string]int, orders.Len())
	for i := 0; i < orders.Len(); i++ {
		id := schema.Str(oID(i))
		if id == "" {
			return Result{}, fmt.Errorf("orders row %d: %w", i+1, ErrEmptyOrderID)
		}
		if _, dup := pos[id]; dup {
			res.Stats.DuplicateOrders++
			continue
		}
		pos[id] = len(rows)
		rows = append(rows, WideRow{
			OrderID:               id,
			CustomerID:            oCustomer(i),
			Status:                oStatus(i),
			PurchaseTimestamp:     builtin.ParseTimestamp(oPurchase(i)),
			ApprovedAt:            builtin.ParseTimestamp(oApproved(i)),
			DeliveredCustomerDate: builtin.ParseTimestamp(oDelivered(i)),
			EstimatedDeliveryDate: builtin.ParseTimestamp(oEstimated(i)),
		})
	}

	// Customers: left join on customer_id, first row wins.
	customers := indexCustomers(t.Customers)
	for i := range rows {
		c, ok := customers[schema.Str(rows[i].CustomerID)]
		if !ok {
			res.Stats.UnmatchedCustomers++
			continue
		}
		rows[i].CustomerMatched = true
		rows[i].CustomerUniqueID = c.uniqueID
		rows[i].CustomerZipCodePrefix = c.zip
		rows[i].CustomerCity = c.city
		rows[i].CustomerState = c.state
	}

	// Items: product lookup, then grouped by order in input order.
	categories := indexCategories(t.Products)
	items := t.OrderItems
	var (
		iOrder   = items.Col("order_id")
		iItemID  = items.Col("order_item_id")
		iProduct = items.Col("product_id")
		iPrice   = items.Col("price")
		iFreight = items.Col("freight_value")
	)
	for i := 0; i < items.Len(); i++ {
		at, ok := pos[schema.Str(iOrder(i))]
		if !ok {
			res.Stats.OrphanItems++
			continue
		}
		cat, ok := categories[schema.Str(iProduct(i))]
		if !ok || cat == "" {
			cat = UnknownCategory
			res.Stats.UnknownCategories++
		}
		rows[at].Items = append(rows[at].Items, ItemRow{
			OrderItemID:     iItemID(i),
			ProductID:       iProduct(i),
			ProductCategory: cat,
			Price:           iPrice(i),
			FreightValue:    iFreight(i),
		})
		res.Stats.Items++
	}

	// Payments, grouped the same way.
	payments := t.Payments
	var (
		pOrder        = payments.Col("order_id")
		pSequential   = payments.Col("payment_sequential")
		pType         = payments.Col("payment_type")
		pInstallments = payments.Col("payment_installments")
		pValue        = payments.Col("payment_value")
	)
	for i := 0; i < payments.Len(); i++ {
		at, ok := pos[schema.Str(pOrder(i))]
		if !ok {
			res.Stats.OrphanPayments++
			continue
		}
		rows[at].Payments = append(rows[at].Payments, PaymentRow{
			PaymentSequential:   pSequential(i),
			PaymentType:         pType(i),
			PaymentInstallments: pInstallments(i),
			PaymentValue:        pValue(i),
		})
		res.Stats.Payments++
	}

	// A left join with no match leaves nil; the document shape wants [].
	for i := range rows {
		if rows[i].Items == nil {
			rows[i].Items = []ItemRow{}
		}
		if rows[i].Payments == nil {
			rows[i].Payments = []PaymentRow{}
		}
	}

	res.Rows = rows
	res.Stats.Orders = len(rows)
	log.Printf("denorm: orders=%d items=%d payments=%d duplicate_orders=%d orphan_items=%d orphan_payments=%d unmatched_customers=%d unknown_categories=%d",
		res.Stats.Orders, res.Stats.Items, res.Stats.Payments, res.Stats.DuplicateOrders,
		res.Stats.OrphanItems, res.Stats.OrphanPayments, res.Stats.UnmatchedCustomers, res.Stats.UnknownCategories)
	return res, nil
}

func indexCustomers(t *schema.Table) map[string]customerRow {
	var (
		id     = t.Col("customer_id")
		unique = t.Col("customer_unique_id")
		zip    = t.Col("customer_zip_code_prefix")
		city   = t.Col("customer_city")
		state  = t.Col("customer_state")
	)
	out := make(map[string]customerRow, t.Len())
	for i := 0; i < t.Len(); i++ {
		k := schema.Str(id(i))
		if k == "" {
			continue
		}
		if _, seen := out[k]; seen {
			continue
		}
		out[k] = customerRow{uniqueID: unique(i), zip: zip(i), city: city(i), state: state(i)}
	}
	return out
}

func indexCategories(t *schema.Table) map[string]string {
	var (
		id  = t.Col("product_id")
		cat = t.Col("product_category_name")
	)
	out := make(map[string]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		k := schema.Str(id(i))
		if k == "" {
			continue
		}
		if _, seen := out[k]; !seen {
			out[k] = schema.Str(builtin.Clean(cat(i)))
		}
	}
	return out
}
