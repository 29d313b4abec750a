// Package kpi declares the five order KPIs as pipelines and runs them over
// the stored documents.
package kpi

import "orderdocs/internal/pipeline"

// KPI names, used in logs, metrics and the HTTP surface.
const (
	RevenueByCategoryName  = "revenue_by_category"
	RevenueByStateName     = "revenue_by_state"
	AvgDeliveryDelayName   = "avg_delivery_delay"
	RepeatCustomerRateName = "repeat_customer_rate"
	PaymentMixName         = "payment_mix"
)

// DefaultLimit caps the revenue rankings when the caller passes 0.
const DefaultLimit = 10

const msPerDay = 24 * 60 * 60 * 1000.0

// Names lists the KPIs in report order.
func Names() []string {
	return []string{
		RevenueByCategoryName,
		RevenueByStateName,
		AvgDeliveryDelayName,
		RepeatCustomerRateName,
		PaymentMixName,
	}
}

func itemRevenue() pipeline.Stage {
	return pipeline.Derive{
		Name: "revenue",
		Expr: pipeline.Add(pipeline.Field("items.price"), pipeline.Field("items.freight_value")),
	}
}

// RevenueByCategoryPipeline ranks product categories by item revenue
// (price plus freight).
func RevenueByCategoryPipeline(limit int) pipeline.Pipeline {
	return pipeline.Pipeline{
		Name: RevenueByCategoryName,
		Stages: []pipeline.Stage{
			pipeline.Unwind{Path: "items"},
			itemRevenue(),
			pipeline.GroupBy{
				Key: pipeline.Field("items.product_category"),
				Accs: []pipeline.Accumulator{
					pipeline.Sum("total_revenue", pipeline.Field("revenue")),
					pipeline.Count("items_count"),
				},
			},
			pipeline.SortLimit{Path: "total_revenue", Desc: true, Limit: limit},
		},
	}
}

// RevenueByStatePipeline ranks customer states by item revenue.
func RevenueByStatePipeline(limit int) pipeline.Pipeline {
	return pipeline.Pipeline{
		Name: RevenueByStateName,
		Stages: []pipeline.Stage{
			pipeline.Unwind{Path: "items"},
			itemRevenue(),
			pipeline.GroupBy{
				Key: pipeline.Field("customer.state"),
				Accs: []pipeline.Accumulator{
					pipeline.Sum("total_revenue", pipeline.Field("revenue")),
					pipeline.Count("items_count"),
				},
			},
			pipeline.SortLimit{Path: "total_revenue", Desc: true, Limit: limit},
		},
	}
}

// AvgDeliveryDelayPipeline averages delivered minus estimated delivery date
// in real-valued days over orders carrying both dates. Positive means late.
func AvgDeliveryDelayPipeline() pipeline.Pipeline {
	delivered := pipeline.Field("order.delivered_customer_date")
	estimated := pipeline.Field("order.estimated_delivery_date")
	return pipeline.Pipeline{
		Name: AvgDeliveryDelayName,
		Stages: []pipeline.Stage{
			pipeline.Match{Pred: pipeline.And(pipeline.NotNull(delivered), pipeline.NotNull(estimated))},
			pipeline.Derive{
				Name: "delay_days",
				Expr: pipeline.Divide(pipeline.Subtract(delivered, estimated), pipeline.Const(msPerDay)),
			},
			pipeline.GroupBy{
				Accs: []pipeline.Accumulator{
					pipeline.Avg("avg_delay", pipeline.Field("delay_days")),
					pipeline.Count("orders"),
				},
			},
		},
	}
}

// RepeatCustomerRatePipeline computes the share of customer ids with two or
// more orders.
func RepeatCustomerRatePipeline() pipeline.Pipeline {
	repeat := pipeline.Cond(
		pipeline.Gte(pipeline.Field("orders_count"), pipeline.Const(2)),
		pipeline.Const(1),
		pipeline.Const(0),
	)
	return pipeline.Pipeline{
		Name: RepeatCustomerRateName,
		Stages: []pipeline.Stage{
			pipeline.GroupBy{
				Key:  pipeline.Field("customer.id"),
				Accs: []pipeline.Accumulator{pipeline.Count("orders_count")},
			},
			pipeline.GroupBy{
				Accs: []pipeline.Accumulator{
					pipeline.Count("total_customers"),
					pipeline.Sum("repeat_customers", repeat),
				},
			},
			pipeline.Project{Fields: []pipeline.Named{
				pipeline.As("total_customers", pipeline.Field("total_customers")),
				pipeline.As("repeat_customers", pipeline.Field("repeat_customers")),
				pipeline.As("repeat_customer_rate_pct", pipeline.Multiply(
					pipeline.Const(100),
					pipeline.Divide(pipeline.Field("repeat_customers"), pipeline.Field("total_customers")),
				)),
			}},
		},
	}
}

// PaymentMixPipeline breaks payments down by type with each type's share of
// the payment count.
func PaymentMixPipeline() pipeline.Pipeline {
	return pipeline.Pipeline{
		Name: PaymentMixName,
		Stages: []pipeline.Stage{
			pipeline.Unwind{Path: "payments"},
			pipeline.GroupBy{
				Key: pipeline.Field("payments.payment_type"),
				Accs: []pipeline.Accumulator{
					pipeline.Count("count"),
					pipeline.Sum("total_value", pipeline.Field("payments.payment_value")),
				},
			},
			pipeline.GroupBy{
				Accs: []pipeline.Accumulator{
					pipeline.Sum("total", pipeline.Field("count")),
					pipeline.Push("methods", pipeline.Object(
						pipeline.As("payment_type", pipeline.Field("_id")),
						pipeline.As("count", pipeline.Field("count")),
						pipeline.As("total_value", pipeline.Field("total_value")),
					)),
				},
			},
			pipeline.Unwind{Path: "methods"},
			pipeline.Project{Fields: []pipeline.Named{
				pipeline.As("payment_type", pipeline.Field("methods.payment_type")),
				pipeline.As("count", pipeline.Field("methods.count")),
				pipeline.As("total_value", pipeline.Field("methods.total_value")),
				pipeline.As("percentage", pipeline.Multiply(
					pipeline.Const(100),
					pipeline.Divide(pipeline.Field("methods.count"), pipeline.Field("total")),
				)),
			}},
			pipeline.SortLimit{Path: "percentage", Desc: true},
		},
	}
}
