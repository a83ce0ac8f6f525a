package core

import "strings"

// Category classifies transfers and recurring definitions. The set is closed.
type Category string

const (
	Bills         Category = "BILLS"
	Groceries     Category = "GROCERIES"
	Entertainment Category = "ENTERTAINMENT"
	Transport     Category = "TRANSPORT"
	Health        Category = "HEALTH"
	Other         Category = "OTHER"
)

var categoryLabels = map[Category]string{
	Bills:         "Bills",
	Groceries:     "Groceries",
	Entertainment: "Entertainment",
	Transport:     "Transport",
	Health:        "Health",
	Other:         "Other",
}

// Categories returns every category in its fixed reporting order.
func Categories() []Category {
	return []Category{Bills, Groceries, Entertainment, Transport, Health, Other}
}

// Label returns the stable display label.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) Validate() error {
	if _, ok := categoryLabels[c]; !ok {
		return ErrInvalidCategory
	}
	return nil
}

// ParseCategory accepts either the code ("BILLS") or the label ("Bills"),
// case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, c.Label()) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}
