package models

import "time"

// CompanyProfile is the structured result of one extraction run.
//
// Every field except SourceAboutURL is nullable: nil means the field was not
// found on the page (or the page that carries it was never reached).
type CompanyProfile struct {
	Name                *string `json:"name"`
	Followers           *int64  `json:"followers"`
	Tagline             *string `json:"tagline"`
	Description         *string `json:"description"`
	Industry            *string `json:"industry"`
	Website             *string `json:"website"`
	Headquarters        *string `json:"headquarters"`
	Founded             *string `json:"founded"`
	CompanySize         *string `json:"company_size"`
	Specialties         *string `json:"specialties"`
	EmployeesOnLinkedIn *string `json:"employees_on_linkedin"`

	// SourceAboutURL is the canonical details address used for the run.
	SourceAboutURL string `json:"source_about_url"`
}

// CompanyRecord is the persisted form of a CompanyProfile, keyed by the
// company slug. Records are replaced wholesale, never patched.
type CompanyRecord struct {
	PageID    string         `json:"page_id"`
	Profile   CompanyProfile `json:"data"`
	Partial   bool           `json:"partial"`
	ScrapedAt time.Time      `json:"scraped_at"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
