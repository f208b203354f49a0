package analytics

// Category is the item classification used by per-account stats.
type Category int

const (
	CategoryCurrency Category = iota
	CategoryGem
	CategoryOther
)

// Classifier assigns items to categories from the configured membership
// lists. Currency needs both a known currency item AND a currency stash tab;
// loose currency dropped in a dump tab does not count toward balances.
type Classifier struct {
	currencyItems map[string]struct{}
	gemItems      map[string]struct{}
	currencyTabs  map[string]struct{}
}

func NewClassifier(currencyItems, gemItems, currencyTabs []string) *Classifier {
	return &Classifier{
		currencyItems: toSet(currencyItems),
		gemItems:      toSet(gemItems),
		currencyTabs:  toSet(currencyTabs),
	}
}

func (c *Classifier) Classify(item, stash string) Category {
	if _, ok := c.currencyItems[item]; ok {
		if _, ok := c.currencyTabs[stash]; ok {
			return CategoryCurrency
		}
	}
	if _, ok := c.gemItems[item]; ok {
		return CategoryGem
	}
	return CategoryOther
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
