package models

// Domain is the subject area an intent classifier assigns to a query.
type Domain string

const (
	DomainHealth        Domain = "health"
	DomainFinance       Domain = "finance"
	DomainTech          Domain = "tech"
	DomainEntertainment Domain = "entertainment"
	DomainScience       Domain = "science"
	DomainGeneral       Domain = "general"
)

// Valid returns true if the domain is a known value.
func (d Domain) Valid() bool {
	switch d {
	case DomainHealth, DomainFinance, DomainTech, DomainEntertainment, DomainScience, DomainGeneral:
		return true
	default:
		return false
	}
}

// Category groups data sources by the kind of content they return.
type Category string

const (
	CategoryAcademic       Category = "academic"
	CategoryOfficialHealth Category = "official_health"
	CategoryStatistics     Category = "statistics"
	CategoryBooks          Category = "books"
	CategoryWeb            Category = "web"
)

// Valid returns true if the category is a known value.
func (c Category) Valid() bool {
	switch c {
	case CategoryAcademic, CategoryOfficialHealth, CategoryStatistics, CategoryBooks, CategoryWeb:
		return true
	default:
		return false
	}
}

// domainCategories maps each domain to the categories fetched for it.
var domainCategories = map[Domain][]Category{
	DomainHealth:        {CategoryAcademic, CategoryOfficialHealth, CategoryBooks},
	DomainFinance:       {CategoryAcademic, CategoryStatistics, CategoryWeb},
	DomainTech:          {CategoryAcademic, CategoryWeb, CategoryBooks},
	DomainEntertainment: {CategoryWeb, CategoryBooks},
	DomainScience:       {CategoryAcademic, CategoryBooks, CategoryWeb},
	DomainGeneral:       {CategoryAcademic, CategoryOfficialHealth, CategoryBooks, CategoryWeb},
}

// CategoriesFor returns a copy of the categories mapped to the domain.
// Unknown domains get the general mapping.
func CategoriesFor(d Domain) []Category {
	cats, ok := domainCategories[d]
	if !ok {
		cats = domainCategories[DomainGeneral]
	}
	out := make([]Category, len(cats))
	copy(out, cats)
	return out
}

// ParseCategories converts raw strings to categories, dropping unknown values
// and duplicates while preserving order.
func ParseCategories(raw []string) []Category {
	seen := make(map[Category]bool, len(raw))
	var out []Category
	for _, s := range raw {
		c := Category(s)
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
