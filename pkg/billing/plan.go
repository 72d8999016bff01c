package billing

// Plan describes one row of the static price catalog. Product ids are the
// payment provider's identifiers for the plan+interval combination; the cost
// fields stay nil until the caller asks for price enrichment.
type Plan struct {
	Kind                 Kind
	Generation           int
	MonthlyProductID     string
	YearlyProductID      string
	MonthlyPageviewLimit int64
	Volume               string // human-readable tier label, e.g. "1M"
	MonthlyCost          *Money
	YearlyCost           *Money
}

// ProductID returns the product id for the given billing interval.
// Returns an empty string for intervals the plan is not sold under.
func (p Plan) ProductID(interval BillingInterval) string {
	switch interval {
	case IntervalMonthly:
		return p.MonthlyProductID
	case IntervalYearly:
		return p.YearlyProductID
	default:
		return ""
	}
}

// HasProduct reports whether the given product id belongs to this plan,
// under either billing interval.
func (p Plan) HasProduct(productID string) bool {
	return productID != "" &&
		(productID == p.MonthlyProductID || productID == p.YearlyProductID)
}
