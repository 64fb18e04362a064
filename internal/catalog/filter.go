package catalog

// HeaderTag marks the item whose title prefixes page titles.
const HeaderTag = "section-header"

// Criteria selects at most MaxItems items carrying all RequiredTags.
type Criteria struct {
	MaxItems     int      `json:"maxItems"`
	RequiredTags []string `json:"requiredTags,omitempty"`
}

// Filter scans items in order and returns up to c.MaxItems of those whose
// tags include every required tag. The result is never nil and items is
// never modified.
func Filter(items []Item, c Criteria) []Item {
	out := make([]Item, 0, min(max(c.MaxItems, 0), len(items)))
	if c.MaxItems <= 0 {
		return out
	}
	for _, it := range items {
		if !it.HasTags(c.RequiredTags) {
			continue
		}
		out = append(out, it)
		if len(out) == c.MaxItems {
			break
		}
	}
	return out
}

func HeaderCriteria() Criteria {
	return Criteria{MaxItems: 1, RequiredTags: []string{HeaderTag}}
}

// HeaderItem returns the first item tagged section-header.
func HeaderItem(items []Item) (Item, bool) {
	found := Filter(items, HeaderCriteria())
	if len(found) == 0 {
		return Item{}, false
	}
	return found[0], true
}
