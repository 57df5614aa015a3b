package model

import (
	"encoding/json"
	"time"
)

// ProviderTag identifies a search provider in a contact's attempt history.
type ProviderTag string

const (
	TagApolloSearch        ProviderTag = "apollo_search"
	TagContactEnrichment   ProviderTag = "contact_enrichment"
	TagHunterSearch        ProviderTag = "hunter_search"
	TagComprehensiveSearch ProviderTag = "comprehensive_search"
)

// waterfallOrder defines the total order of provider tags. Lower runs first;
// comprehensive_search is the terminal marker, never executed as a provider.
var waterfallOrder = map[ProviderTag]int{
	TagApolloSearch:        0,
	TagContactEnrichment:   1,
	TagHunterSearch:        2,
	TagComprehensiveSearch: 3,
}

// Known reports whether the tag belongs to the provider registry.
func (t ProviderTag) Known() bool {
	_, ok := waterfallOrder[t]
	return ok
}

// Order returns the tag's position in the waterfall. Unknown tags sort last.
func (t ProviderTag) Order() int {
	if o, ok := waterfallOrder[t]; ok {
		return o
	}
	return len(waterfallOrder)
}

// TagSet is the set of providers already attempted for a contact.
type TagSet map[ProviderTag]bool

// NewTagSet builds a TagSet from a list of tags, dropping unknown ones.
func NewTagSet(tags ...ProviderTag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		if t.Known() {
			s[t] = true
		}
	}
	return s
}

// Has reports whether the tag is in the set.
func (s TagSet) Has(t ProviderTag) bool { return s[t] }

// Add inserts a known tag into the set.
func (s TagSet) Add(t ProviderTag) {
	if t.Known() {
		s[t] = true
	}
}

// Sorted returns the tags in waterfall order, for stable persistence.
func (s TagSet) Sorted() []ProviderTag {
	out := make([]ProviderTag, 0, len(s))
	for _, t := range []ProviderTag{TagApolloSearch, TagContactEnrichment, TagHunterSearch, TagComprehensiveSearch} {
		if s[t] {
			out = append(out, t)
		}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array, for stable persistence.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON accepts an array of tags; unknown tags are dropped.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []ProviderTag
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// Clone returns an independent copy of the set.
func (s TagSet) Clone() TagSet {
	c := make(TagSet, len(s))
	for t := range s {
		c[t] = true
	}
	return c
}

// Contact is a person associated with one company.
type Contact struct {
	ID                  string     `json:"id"`
	CompanyID           string     `json:"company_id"`
	Name                string     `json:"name"`
	Role                string     `json:"role,omitempty"`
	Email               string     `json:"email,omitempty"`
	AlternativeEmails   []string   `json:"alternative_emails,omitempty"`
	Probability         int        `json:"probability"`
	NameConfidenceScore int        `json:"name_confidence_score"`
	CompletedSearches   TagSet     `json:"completed_searches"`
	LastValidated       *time.Time `json:"last_validated,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasEmail reports whether the contact already carries a verified email.
// A contact with an email never re-enters the provider waterfall.
func (c *Contact) HasEmail() bool { return c.Email != "" }

// Exhausted reports whether all providers have been tried without success.
func (c *Contact) Exhausted() bool {
	return c.CompletedSearches.Has(TagComprehensiveSearch)
}

// ContactUpdate is a partial update applied to a persisted contact.
// Nil fields are left untouched (last-write-wins per terminal transition).
type ContactUpdate struct {
	Email             *string
	Role              *string
	AlternativeEmails []string
	Probability       *int
	CompletedSearches TagSet
	LastValidated     *time.Time
}
