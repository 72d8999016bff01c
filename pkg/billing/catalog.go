package billing

import (
	"fmt"
	"slices"
)

// Catalog is the immutable, versioned table of standard plans. It is built
// once at startup and only read afterwards, so it is safe for concurrent use.
type Catalog struct {
	plans       []Plan
	byProductID map[string]int // product id -> index into plans
	legacy      map[string]LegacyPlan

	legacyYearlyIDs []string // sorted, for stable YearlyProductIDs output

	latestGrowthGen   int
	latestBusinessGen int
}

// LegacyPlan describes a product id retired from sale whose holders keep
// their subscription. It carries just enough to resolve the holder's
// generation and billing interval; retired tiers are never listed for
// purchase.
type LegacyPlan struct {
	Generation int
	Interval   BillingInterval
}

// businessGenerationByGrowth maps a growth generation to the business
// generation sold alongside it. Business pricing was introduced with the
// third catalog revision, so earlier growth generations all map there.
var businessGenerationByGrowth = map[int]int{
	1: 3,
	2: 3,
	3: 3,
	4: 4,
}

// NewCatalog validates and indexes the given plans. Plans must be listed in
// ascending pageview-limit order within each kind+generation group, and every
// product id must be unique. The legacy map binds retired product ids to the
// generation and billing interval their holders are grandfathered into.
func NewCatalog(plans []Plan, legacy map[string]LegacyPlan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		plans:       slices.Clone(plans),
		byProductID: make(map[string]int, len(plans)*2),
		legacy:      make(map[string]LegacyPlan, len(legacy)),
	}

	type group struct {
		kind Kind
		gen  int
	}
	lastLimit := make(map[group]int64) // previous limit per kind+generation
	for i, p := range c.plans {
		if p.Kind != KindGrowth && p.Kind != KindBusiness {
			return nil, fmt.Errorf("%w: plan %d has kind %q", ErrInvalidCatalog, i, p.Kind)
		}
		if p.Generation < 1 {
			return nil, fmt.Errorf("%w: plan %d has generation %d", ErrInvalidCatalog, i, p.Generation)
		}
		if p.MonthlyProductID == "" || p.YearlyProductID == "" {
			return nil, fmt.Errorf("%w: plan %d is missing a product id", ErrInvalidCatalog, i)
		}
		for _, id := range []string{p.MonthlyProductID, p.YearlyProductID} {
			if _, dup := c.byProductID[id]; dup {
				return nil, fmt.Errorf("%w: duplicate product id %s", ErrInvalidCatalog, id)
			}
			c.byProductID[id] = i
		}

		key := group{p.Kind, p.Generation}
		if prev, ok := lastLimit[key]; ok && p.MonthlyPageviewLimit <= prev {
			return nil, fmt.Errorf("%w: %s generation %d tiers are not ascending",
				ErrInvalidCatalog, p.Kind, p.Generation)
		}
		lastLimit[key] = p.MonthlyPageviewLimit

		switch p.Kind {
		case KindGrowth:
			c.latestGrowthGen = max(c.latestGrowthGen, p.Generation)
		case KindBusiness:
			c.latestBusinessGen = max(c.latestBusinessGen, p.Generation)
		}
	}

	for id, lp := range legacy {
		if _, clash := c.byProductID[id]; clash {
			return nil, fmt.Errorf("%w: legacy id %s is still in the catalog", ErrInvalidCatalog, id)
		}
		if lp.Generation < 1 {
			return nil, fmt.Errorf("%w: legacy id %s has generation %d", ErrInvalidCatalog, id, lp.Generation)
		}
		if lp.Interval != IntervalMonthly && lp.Interval != IntervalYearly {
			return nil, fmt.Errorf("%w: legacy id %s has interval %q", ErrInvalidCatalog, id, lp.Interval)
		}
		c.legacy[id] = lp
		if lp.Interval == IntervalYearly {
			c.legacyYearlyIDs = append(c.legacyYearlyIDs, id)
		}
	}
	slices.Sort(c.legacyYearlyIDs)

	return c, nil
}

// ByProductID returns the catalog plan owning the given product id.
func (c *Catalog) ByProductID(productID string) (Plan, bool) {
	i, ok := c.byProductID[productID]
	if !ok {
		return Plan{}, false
	}
	return c.plans[i], true
}

// LegacyPlan returns the grandfathered generation and interval for a retired
// product id.
func (c *Catalog) LegacyPlan(productID string) (LegacyPlan, bool) {
	lp, ok := c.legacy[productID]
	return lp, ok
}

// Plans returns plans of the given kind and generation in catalog order,
// which is ascending by pageview limit.
func (c *Catalog) Plans(kind Kind, generation int) []Plan {
	var out []Plan
	for _, p := range c.plans {
		if p.Kind == kind && p.Generation == generation {
			out = append(out, p)
		}
	}
	return out
}

// LatestGeneration returns the newest generation available for a kind.
func (c *Catalog) LatestGeneration(kind Kind) int {
	switch kind {
	case KindBusiness:
		return c.latestBusinessGen
	default:
		return c.latestGrowthGen
	}
}

// BusinessGenerationFor maps a growth generation to the matching business
// generation. Unknown generations map to the latest business generation.
func (c *Catalog) BusinessGenerationFor(growthGeneration int) int {
	if gen, ok := businessGenerationByGrowth[growthGeneration]; ok {
		return gen
	}
	return c.latestBusinessGen
}

// YearlyProductIDs returns every yearly product id the catalog knows about:
// current rows in declaration order, then retired yearly ids. Enterprise
// product ids are not included; their intervals live in the enterprise plan
// store and are resolved per subscription. The order carries no meaning but
// stays stable across calls.
func (c *Catalog) YearlyProductIDs() []string {
	ids := make([]string, 0, len(c.plans)+len(c.legacyYearlyIDs))
	for _, p := range c.plans {
		ids = append(ids, p.YearlyProductID)
	}
	return append(ids, c.legacyYearlyIDs...)
}

// row is a constructor shorthand for the static tables below.
func row(kind Kind, gen int, volume string, limit int64, monthlyID, yearlyID string) Plan {
	return Plan{
		Kind:                 kind,
		Generation:           gen,
		Volume:               volume,
		MonthlyPageviewLimit: limit,
		MonthlyProductID:     monthlyID,
		YearlyProductID:      yearlyID,
	}
}

// defaultPlans is the production catalog. Rows are grouped by kind and
// generation, ascending by volume. Product ids are assigned by the payment
// provider and must never be reused across rows.
var defaultPlans = []Plan{
	// Growth, generation 1
	row(KindGrowth, 1, "10k", 10_000, "552110", "552111"),
	row(KindGrowth, 1, "100k", 100_000, "552112", "552113"),
	row(KindGrowth, 1, "1M", 1_000_000, "552114", "552115"),
	row(KindGrowth, 1, "2M", 2_000_000, "552116", "552117"),
	row(KindGrowth, 1, "5M", 5_000_000, "552118", "552119"),
	row(KindGrowth, 1, "10M", 10_000_000, "552120", "552121"),
	// Growth, generation 2
	row(KindGrowth, 2, "10k", 10_000, "563110", "563111"),
	row(KindGrowth, 2, "100k", 100_000, "563112", "563113"),
	row(KindGrowth, 2, "1M", 1_000_000, "563114", "563115"),
	row(KindGrowth, 2, "2M", 2_000_000, "563116", "563117"),
	row(KindGrowth, 2, "5M", 5_000_000, "563118", "563119"),
	row(KindGrowth, 2, "10M", 10_000_000, "563120", "563121"),
	// Growth, generation 3
	row(KindGrowth, 3, "10k", 10_000, "574210", "574211"),
	row(KindGrowth, 3, "100k", 100_000, "574212", "574213"),
	row(KindGrowth, 3, "1M", 1_000_000, "574214", "574215"),
	row(KindGrowth, 3, "2M", 2_000_000, "574216", "574217"),
	row(KindGrowth, 3, "5M", 5_000_000, "574218", "574219"),
	row(KindGrowth, 3, "10M", 10_000_000, "574220", "574221"),
	// Growth, generation 4
	row(KindGrowth, 4, "10k", 10_000, "585310", "585311"),
	row(KindGrowth, 4, "100k", 100_000, "585312", "585313"),
	row(KindGrowth, 4, "1M", 1_000_000, "585314", "585315"),
	row(KindGrowth, 4, "2M", 2_000_000, "585316", "585317"),
	row(KindGrowth, 4, "5M", 5_000_000, "585318", "585319"),
	row(KindGrowth, 4, "10M", 10_000_000, "585320", "585321"),
	// Business, generation 3
	row(KindBusiness, 3, "10k", 10_000, "574910", "574911"),
	row(KindBusiness, 3, "100k", 100_000, "574912", "574913"),
	row(KindBusiness, 3, "1M", 1_000_000, "574914", "574915"),
	row(KindBusiness, 3, "2M", 2_000_000, "574916", "574917"),
	row(KindBusiness, 3, "5M", 5_000_000, "574918", "574919"),
	row(KindBusiness, 3, "10M", 10_000_000, "574920", "574921"),
	// Business, generation 4
	row(KindBusiness, 4, "10k", 10_000, "585910", "585911"),
	row(KindBusiness, 4, "100k", 100_000, "585912", "585913"),
	row(KindBusiness, 4, "1M", 1_000_000, "585914", "585915"),
	row(KindBusiness, 4, "2M", 2_000_000, "585916", "585917"),
	row(KindBusiness, 4, "5M", 5_000_000, "585918", "585919"),
	row(KindBusiness, 4, "10M", 10_000_000, "585920", "585921"),
}

// defaultLegacyPlans binds product ids retired before the generation scheme
// to the generation and interval their subscribers are grandfathered into.
var defaultLegacyPlans = map[string]LegacyPlan{
	"493453": {Generation: 1, Interval: IntervalMonthly},
	"493457": {Generation: 1, Interval: IntervalYearly},
	"648089": {Generation: 1, Interval: IntervalYearly},
}

// DefaultCatalog returns the production plan catalog.
// Panics on an invalid table to fail fast at startup.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultPlans, defaultLegacyPlans)
	if err != nil {
		panic("billing: invalid default catalog: " + err.Error())
	}
	return c
}
