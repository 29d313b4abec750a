// Package schema describes the tabular inputs of the order ETL: the in-memory
// Table produced by the parsers and the Contract each logical input must meet
// before any transformation runs.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Logical table names. These are the keys the loader and the denormalizer
// agree on.
const (
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableCustomers  = "customers"
	TableProducts   = "products"
	TablePayments   = "payments"
)

// ErrMissingColumn is returned (wrapped) when a table lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Field is one column a contract expects.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "text" | "int" | "real" | "timestamp"
	Required bool   `json:"required,omitempty"`
}

// Contract lists the columns a named input table must carry.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// RequiredColumns returns the names of the required fields in declaration order.
func (c Contract) RequiredColumns() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Check verifies that t carries every required column of c. All missing
// columns are reported in a single error wrapping ErrMissingColumn.
func (c Contract) Check(t *Table) error {
	if t == nil {
		return fmt.Errorf("%s: table not loaded: %w", c.Name, ErrMissingColumn)
	}
	var missing []string
	for _, col := range c.RequiredColumns() {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w: %s", c.Name, ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Contracts returns the contracts of the five inputs keyed by table name.
func Contracts() map[string]Contract {
	return map[string]Contract{
		TableOrders: {
			Name: TableOrders,
			Fields: []Field{
				{Name: "order_id", Type: "text", Required: true},
				{Name: "customer_id", Type: "text", Required: true},
				{Name: "order_status", Type: "text", Required: true},
				{Name: "order_purchase_timestamp", Type: "timestamp", Required: true},
				{Name: "order_approved_at", Type: "timestamp", Required: true},
				{Name: "order_delivered_customer_date", Type: "timestamp", Required: true},
				{Name: "order_estimated_delivery_date", Type: "timestamp", Required: true},
			},
		},
		TableOrderItems: {
			Name: TableOrderItems,
			Fields: []Field{
				{Name: "order_id", Type: "text", Required: true},
				{Name: "order_item_id", Type: "int", Required: true},
				{Name: "product_id", Type: "text", Required: true},
				{Name: "price", Type: "real", Required: true},
				{Name: "freight_value", Type: "real", Required: true},
			},
		},
		TableCustomers: {
			Name: TableCustomers,
			Fields: []Field{
				{Name: "customer_id", Type: "text", Required: true},
				{Name: "customer_unique_id", Type: "text", Required: true},
				{Name: "customer_zip_code_prefix", Type: "text", Required: true},
				{Name: "customer_city", Type: "text", Required: true},
				{Name: "customer_state", Type: "text", Required: true},
			},
		},
		TableProducts: {
			Name: TableProducts,
			Fields: []Field{
				{Name: "product_id", Type: "text", Required: true},
				{Name: "product_category_name", Type: "text", Required: true},
			},
		},
		TablePayments: {
			Name: TablePayments,
			Fields: []Field{
				{Name: "order_id", Type: "text", Required: true},
				{Name: "payment_sequential", Type: "int", Required: true},
				{Name: "payment_type", Type: "text", Required: true},
				{Name: "payment_installments", Type: "int", Required: true},
				{Name: "payment_value", Type: "real", Required: true},
			},
		},
	}
}

// TableNames returns the logical input names in load order.
func TableNames() []string {
	return []string{TableOrders, TableOrderItems, TableCustomers, TableProducts, TablePayments}
}
