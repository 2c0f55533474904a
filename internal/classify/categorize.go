package classify

import (
	"context"
	"strings"
)

// DefaultCategory is assigned when no rule matches or categorization fails.
const DefaultCategory = "other"

// CategoryRules map a category to merchant/line-item keywords. Order matters:
// the first category with a match wins.
var CategoryRules = []struct {
	Category string
	Keywords []string
}{
	{"groceries", []string{"supermarket", "grocer", "market", "spar", "checkers", "woolworths", "pick n pay", "aldi", "lidl", "tesco"}},
	{"dining", []string{"restaurant", "cafe", "coffee", "pizza", "burger", "diner", "bistro", "takeaway", "sushi"}},
	{"transport", []string{"uber", "bolt", "taxi", "fuel", "petrol", "gas station", "parking", "toll", "airline", "flight"}},
	{"health", []string{"pharmacy", "clinic", "doctor", "dental", "optom", "hospital", "medic"}},
	{"utilities", []string{"electric", "water", "internet", "fibre", "mobile", "airtime", "prepaid", "municipal"}},
	{"office", []string{"stationery", "printer", "toner", "software", "subscription", "hosting", "domain"}},
	{"hardware", []string{"hardware", "tools", "timber", "paint", "builders"}},
	{"clothing", []string{"apparel", "clothing", "shoes", "outfitters", "boutique"}},
}

// RuleCategorizer assigns a spending category from keyword tables. It stands
// in for an external categorization capability and never fails.
type RuleCategorizer struct{}

// Categorize picks a category for a receipt from its store name and items.
func (RuleCategorizer) Categorize(ctx context.Context, storeName string, items []string, total string) (string, error) {
	haystack := strings.ToLower(storeName + " " + strings.Join(items, " "))
	for _, rule := range CategoryRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(haystack, keyword) {
				return rule.Category, nil
			}
		}
	}
	return DefaultCategory, nil
}
