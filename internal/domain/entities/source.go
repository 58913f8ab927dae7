package entities

// SourceRecord is a raw record read from one of the source feeds. The set of
// implementations is closed: CompanyRecord, InvestorRecord, FundRecord and
// PersonRecord. Adding a feed means adding a type here with its own
// Consolidate.
type SourceRecord interface {
	// Kind returns the entity type the record maps to.
	Kind() EntityType

	// Consolidate maps the record to a Row. It returns false when the
	// record has no usable name and must be dropped.
	Consolidate() (Row, bool)

	sourceRecord()
}

// CompanyRecord is a row of the company feed.
type CompanyRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	Continent   string `json:"continent"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// InvestorRecord is a row of the investor feed.
type InvestorRecord struct {
	Name     string `json:"name"`
	SourceID string `json:"source_id"`
}

// FundRecord is a row of the fund feed.
type FundRecord struct {
	Name       string `json:"name"`
	InvestorID string `json:"investor_id"`
}

// PersonRecord is a row of the people feed.
type PersonRecord struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	LinkedInURL   string `json:"linkedin_url"`
	TwitterURL    string `json:"twitter_url"`
	GitHubURL     string `json:"github_url"`
	CompanyName   string `json:"company_name"`
	CompanyDomain string `json:"company_domain"`
	CompanyID     string `json:"company_id"`
}

func (CompanyRecord) sourceRecord()  {}
func (InvestorRecord) sourceRecord() {}
func (FundRecord) sourceRecord()     {}
func (PersonRecord) sourceRecord()   {}

// Kind implements SourceRecord.
func (CompanyRecord) Kind() EntityType { return EntityTypeCompany }

// Kind implements SourceRecord.
func (InvestorRecord) Kind() EntityType { return EntityTypeInvestor }

// Kind implements SourceRecord.
func (FundRecord) Kind() EntityType { return EntityTypeFund }

// Kind implements SourceRecord.
func (PersonRecord) Kind() EntityType { return EntityTypePerson }

// Consolidate implements SourceRecord.
func (r CompanyRecord) Consolidate() (Row, bool) {
	name := Clean(r.Name)
	if name == nil {
		return Row{}, false
	}

	country := Clean(r.Country)

	var idTag *string
	if id := Clean(r.ID); id != nil {
		tag := "CompanyID=" + *id
		idTag = &tag
	}

	return Row{
		Type: EntityTypeCompany,
		Name: Truncate(*name, MaxNameLength),
		AltNames: ComposeAltNames(
			Clean(r.Description),
			Clean(r.Website),
			Clean(r.Industry),
			Clean(r.Continent),
			country,
			idTag,
		),
		Country: TruncatePtr(country, MaxCountryLength),
	}, true
}

// Consolidate implements SourceRecord.
func (r InvestorRecord) Consolidate() (Row, bool) {
	name := Clean(r.Name)
	if name == nil {
		return Row{}, false
	}
	return Row{
		Type:     EntityTypeInvestor,
		Name:     Truncate(*name, MaxNameLength),
		AltNames: ComposeAltNames(Clean(r.SourceID)),
	}, true
}

// Consolidate implements SourceRecord.
func (r FundRecord) Consolidate() (Row, bool) {
	name := Clean(r.Name)
	if name == nil {
		return Row{}, false
	}
	return Row{
		Type:     EntityTypeFund,
		Name:     Truncate(*name, MaxNameLength),
		AltNames: ComposeAltNames(Clean(r.InvestorID)),
	}, true
}

// Consolidate implements SourceRecord.
func (r PersonRecord) Consolidate() (Row, bool) {
	name := r.displayName()
	if name == nil {
		return Row{}, false
	}

	first := Clean(r.FirstName)
	last := Clean(r.LastName)

	return Row{
		Type: EntityTypePerson,
		Name: Truncate(*name, MaxNameLength),
		AltNames: ComposeAltNames(
			first,
			last,
			Clean(r.LinkedInURL),
			Clean(r.TwitterURL),
			Clean(r.GitHubURL),
			Clean(r.CompanyName),
			Clean(r.CompanyDomain),
			Clean(r.CompanyID),
			Clean(r.ID),
		),
	}, true
}

// displayName prefers the full name and falls back to "first last".
func (r PersonRecord) displayName() *string {
	if full := Clean(r.FullName); full != nil {
		return full
	}
	parts := make([]*string, 0, 2)
	if first := Clean(r.FirstName); first != nil {
		parts = append(parts, first)
	}
	if last := Clean(r.LastName); last != nil {
		parts = append(parts, last)
	}
	return ComposeAltNames(parts...)
}
