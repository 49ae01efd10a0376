package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/orgscope/models"
)

// Field names, matching the JSON keys of models.CompanyProfile.
const (
	FieldName         = "name"
	FieldFollowers    = "followers"
	FieldTagline      = "tagline"
	FieldDescription  = "description"
	FieldIndustry     = "industry"
	FieldWebsite      = "website"
	FieldHeadquarters = "headquarters"
	FieldFounded      = "founded"
	FieldCompanySize  = "company_size"
	FieldSpecialties  = "specialties"
	FieldEmployees    = "employees_on_linkedin"
)

// PrimaryFields are read from the company's top-card page.
func PrimaryFields() []FieldSpec {
	return []FieldSpec{
		{Name: FieldName, Kind: Text, Strategies: []QuerySpec{
			{Selector: "h1.org-top-card-summary__title"},
			{Selector: "h1"},
		}},
		{Name: FieldFollowers, Kind: Count, Strategies: []QuerySpec{
			{Selector: "div.org-top-card-summary__followers-count"},
			{Selector: "span", Contains: "followers"},
			{Selector: "a", Contains: "followers"},
		}},
		{Name: FieldTagline, Kind: Text, Strategies: []QuerySpec{
			{Selector: "p.org-top-card-summary__tagline"},
			{Selector: "div.org-top-card-summary__tagline"},
		}},
	}
}

// DetailsFields are read from the company's about page.
func DetailsFields() []FieldSpec {
	return []FieldSpec{
		{Name: FieldDescription, Kind: Text, Strategies: []QuerySpec{
			{Selector: "h2", Contains: "About", Sibling: "p"},
			{Selector: "h2", Contains: "Overview", Sibling: "p"},
			Labeled("About"),
		}},
		{Name: FieldIndustry, Kind: Text, Strategies: []QuerySpec{Labeled("Industry")}},
		{Name: FieldWebsite, Kind: Text, Strategies: []QuerySpec{
			{Selector: "dt", Contains: "Website", Sibling: "dd", Within: "a", Attr: "href"},
		}},
		{Name: FieldHeadquarters, Kind: Text, Strategies: []QuerySpec{Labeled("Headquarters")}},
		{Name: FieldFounded, Kind: Text, Strategies: []QuerySpec{Labeled("Founded")}},
		{Name: FieldCompanySize, Kind: Text, Strategies: []QuerySpec{Labeled("Company size")}},
		{Name: FieldSpecialties, Kind: Text, Strategies: []QuerySpec{Labeled("Specialties")}},
		{Name: FieldEmployees, Kind: Text, Strategies: []QuerySpec{Labeled("Employees on LinkedIn")}},
	}
}

// ApplyOverrides replaces the strategy list of every field named in
// overrides. Names that match no field are ignored; see UnknownFields.
func ApplyOverrides(fields []FieldSpec, overrides map[string][]QuerySpec) ([]FieldSpec, error) {
	out := make([]FieldSpec, len(fields))
	copy(out, fields)

	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.Name] = i
	}
	for name, strategies := range overrides {
		i, ok := index[name]
		if !ok {
			continue
		}
		if len(strategies) == 0 {
			return nil, fmt.Errorf("extract: override for %q has no strategies", name)
		}
		out[i].Strategies = strategies
	}
	return out, nil
}

// UnknownFields returns override keys that match no field in any of sets.
func UnknownFields(overrides map[string][]QuerySpec, sets ...[]FieldSpec) []string {
	known := make(map[string]bool)
	for _, set := range sets {
		for _, f := range set {
			known[f.Name] = true
		}
	}
	var unknown []string
	for name := range overrides {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateSelectors compiles every CSS selector in fields and returns the
// first failure. Sibling is a tag name and is checked as a selector too.
func ValidateSelectors(fields []FieldSpec) error {
	for _, f := range fields {
		if len(f.Strategies) == 0 {
			return fmt.Errorf("extract: field %q has no strategies", f.Name)
		}
		for i, q := range f.Strategies {
			if q.Selector == "" {
				return fmt.Errorf("extract: field %q strategy %d has no selector", f.Name, i)
			}
			for _, sel := range []string{q.Selector, q.Sibling, q.Within} {
				if err := CompileSelector(sel); err != nil {
					return fmt.Errorf("extract: field %q strategy %d: %w", f.Name, i, err)
				}
			}
		}
	}
	return nil
}

// CompileSelector checks that sel is a valid CSS selector list. An empty
// selector is accepted.
func CompileSelector(sel string) error {
	if sel == "" {
		return nil
	}
	if _, err := cascadia.ParseGroup(sel); err != nil {
		return fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	return nil
}

// Profile builds the result record from accumulated values.
func (v *Values) Profile(sourceAboutURL string) models.CompanyProfile {
	return models.CompanyProfile{
		Name:                v.Text(FieldName),
		Followers:           v.Count(FieldFollowers),
		Tagline:             v.Text(FieldTagline),
		Description:         v.Text(FieldDescription),
		Industry:            v.Text(FieldIndustry),
		Website:             v.Text(FieldWebsite),
		Headquarters:        v.Text(FieldHeadquarters),
		Founded:             v.Text(FieldFounded),
		CompanySize:         v.Text(FieldCompanySize),
		Specialties:         v.Text(FieldSpecialties),
		EmployeesOnLinkedIn: v.Text(FieldEmployees),
		SourceAboutURL:      sourceAboutURL,
	}
}
