package feeds

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

// field is one attribute of a source record and the column names it is
// read from. Aliases are in normalized form, see normalizeColumn.
type field struct {
	name    string
	aliases []string
}

var feedFields = map[entities.EntityType][]field{
	entities.EntityTypeCompany: {
		{"id", []string{"id", "companyid"}},
		{"name", []string{"name", "companyname"}},
		{"country", []string{"country", "hqcountry"}},
		{"continent", []string{"continent", "hqcontinent"}},
		{"industry", []string{"industry", "primaryindustry"}},
		{"description", []string{"description", "businessdescription", "shortdescription"}},
		{"website", []string{"website", "url", "domain"}},
	},
	entities.EntityTypeInvestor: {
		{"name", []string{"name", "investorname", "investor"}},
		{"source_id", []string{"pbid", "sourceid", "investorid", "id"}},
	},
	entities.EntityTypeFund: {
		{"name", []string{"name", "fundname"}},
		{"investor_id", []string{"investorid", "investor"}},
	},
	entities.EntityTypePerson: {
		{"id", []string{"personid", "id"}},
		{"full_name", []string{"fullname", "name"}},
		{"first_name", []string{"firstname"}},
		{"last_name", []string{"lastname"}},
		{"linkedin_url", []string{"linkedinurl", "linkedin"}},
		{"twitter_url", []string{"twitterurl", "twitter"}},
		{"github_url", []string{"githuburl", "github"}},
		{"company_name", []string{"companyname", "currentpositioncompanyname"}},
		{"company_domain", []string{"companydomain", "currentpositioncompanydomain"}},
		{"company_id", []string{"companyid", "currentcompanyid"}},
	},
}

// nameFields lists the fields a header must provide at least one of.
var nameFields = map[entities.EntityType][]string{
	entities.EntityTypeCompany:  {"name"},
	entities.EntityTypeInvestor: {"name"},
	entities.EntityTypeFund:     {"name"},
	entities.EntityTypePerson:   {"full_name", "first_name", "last_name"},
}

func missingNameError(location string, kind entities.EntityType) error {
	return fmt.Errorf("%s: header has no %s column", location, strings.Join(nameFields[kind], " or "))
}

// companyDatasetColumns is the layout of the repaired, headerless company
// dataset.
var companyDatasetColumns = []string{
	"country", "founded", "id", "industry", "linkedin_url",
	"locality", "name", "region", "size", "website",
}

// normalizeColumn lowercases a column name and drops everything but
// letters and digits, so CompanyName, company_name and COMPANY NAME match.
func normalizeColumn(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// values holds the fields of one raw row keyed by field name.
type values map[string]string

// columnMap maps field names to column positions.
type columnMap map[string]int

// mapHeader resolves the fields of kind against a header row. ok is false
// when the header has no column for any of the name fields.
func mapHeader(kind entities.EntityType, header []string) (columnMap, bool) {
	positions := make(map[string]int, len(header))
	for i, col := range header {
		key := normalizeColumn(col)
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	cols := make(columnMap)
	for _, f := range feedFields[kind] {
		for _, alias := range f.aliases {
			if idx, ok := positions[alias]; ok {
				cols[f.name] = idx
				break
			}
		}
	}

	for _, name := range nameFields[kind] {
		if _, ok := cols[name]; ok {
			return cols, true
		}
	}
	return cols, false
}

// companyDatasetMap maps company fields onto the headerless dataset layout.
func companyDatasetMap() columnMap {
	cols := make(columnMap)
	for i, name := range companyDatasetColumns {
		cols[name] = i
	}
	return cols
}

// pick reads the mapped fields of a row.
func (c columnMap) pick(row []string) values {
	v := make(values, len(c))
	for name, idx := range c {
		if idx < len(row) {
			v[name] = row[idx]
		}
	}
	return v
}

// objectValues reads the fields of kind from a decoded JSON object.
func objectValues(kind entities.EntityType, obj map[string]string) values {
	normalized := make(map[string]string, len(obj))
	for k, val := range obj {
		key := normalizeColumn(k)
		if _, dup := normalized[key]; !dup {
			normalized[key] = val
		}
	}

	v := make(values)
	for _, f := range feedFields[kind] {
		for _, alias := range f.aliases {
			if val, ok := normalized[alias]; ok {
				v[f.name] = val
				break
			}
		}
	}
	return v
}

// record builds the source record of kind from raw values.
func record(kind entities.EntityType, v values) entities.SourceRecord {
	switch kind {
	case entities.EntityTypeCompany:
		return entities.CompanyRecord{
			ID:          v["id"],
			Name:        v["name"],
			Country:     v["country"],
			Continent:   v["continent"],
			Industry:    v["industry"],
			Description: v["description"],
			Website:     v["website"],
		}
	case entities.EntityTypeInvestor:
		return entities.InvestorRecord{
			Name:     v["name"],
			SourceID: v["source_id"],
		}
	case entities.EntityTypeFund:
		return entities.FundRecord{
			Name:       v["name"],
			InvestorID: v["investor_id"],
		}
	case entities.EntityTypePerson:
		return entities.PersonRecord{
			ID:            v["id"],
			FullName:      v["full_name"],
			FirstName:     v["first_name"],
			LastName:      v["last_name"],
			LinkedInURL:   v["linkedin_url"],
			TwitterURL:    v["twitter_url"],
			GitHubURL:     v["github_url"],
			CompanyName:   v["company_name"],
			CompanyDomain: v["company_domain"],
			CompanyID:     v["company_id"],
		}
	default:
		return nil
	}
}
