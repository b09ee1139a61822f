package domain

import (
	"regexp"
	"sort"
	"strings"
)

// Authorities that own a set of country codes.
const (
	AuthorityVIES = "vies" // EU VAT Information Exchange System (REST)
	AuthorityUID  = "uid"  // Swiss UID register (SOAP)
)

// Country describes a supported country code and the shape its VAT numbers take.
type Country struct {
	Code      string
	Name      string
	Authority string
	pattern   *regexp.Regexp
}

// Matches reports whether vat has the shape expected for the country.
// The number is expected to carry its country prefix.
func (c Country) Matches(vat string) bool {
	return c.pattern.MatchString(strings.ToUpper(strings.TrimSpace(vat)))
}

func country(code, name, authority, expr string) Country {
	return Country{Code: code, Name: name, Authority: authority, pattern: regexp.MustCompile(expr)}
}

var countries = map[string]Country{}

func init() {
	for _, c := range []Country{
		country("AT", "Austria", AuthorityVIES, `^ATU\d{8}$`),
		country("BE", "Belgium", AuthorityVIES, `^BE[01]\d{9}$`),
		country("BG", "Bulgaria", AuthorityVIES, `^BG\d{9,10}$`),
		country("CY", "Cyprus", AuthorityVIES, `^CY\d{8}[A-Z]$`),
		country("CZ", "Czechia", AuthorityVIES, `^CZ\d{8,10}$`),
		country("DE", "Germany", AuthorityVIES, `^DE\d{9}$`),
		country("DK", "Denmark", AuthorityVIES, `^DK\d{8}$`),
		country("EE", "Estonia", AuthorityVIES, `^EE\d{9}$`),
		country("EL", "Greece", AuthorityVIES, `^(EL|GR)\d{9}$`),
		country("ES", "Spain", AuthorityVIES, `^ES[A-Z0-9]?\d{7}[A-Z0-9]$`),
		country("FI", "Finland", AuthorityVIES, `^FI\d{8}$`),
		country("FR", "France", AuthorityVIES, `^FR[A-HJ-NP-Z0-9]{2}\d{9}$`),
		country("HR", "Croatia", AuthorityVIES, `^HR\d{11}$`),
		country("HU", "Hungary", AuthorityVIES, `^HU\d{8}$`),
		country("IE", "Ireland", AuthorityVIES, `^IE(\d{7}[A-W][A-I]?|\d[A-Z+*]\d{5}[A-W])$`),
		country("IT", "Italy", AuthorityVIES, `^IT\d{11}$`),
		country("LT", "Lithuania", AuthorityVIES, `^LT(\d{9}|\d{12})$`),
		country("LU", "Luxembourg", AuthorityVIES, `^LU\d{8}$`),
		country("LV", "Latvia", AuthorityVIES, `^LV\d{11}$`),
		country("MT", "Malta", AuthorityVIES, `^MT\d{8}$`),
		country("NL", "Netherlands", AuthorityVIES, `^NL\d{9}B\d{2}$`),
		country("PL", "Poland", AuthorityVIES, `^PL\d{10}$`),
		country("PT", "Portugal", AuthorityVIES, `^PT\d{9}$`),
		country("RO", "Romania", AuthorityVIES, `^RO\d{2,10}$`),
		country("SE", "Sweden", AuthorityVIES, `^SE\d{12}$`),
		country("SI", "Slovenia", AuthorityVIES, `^SI\d{8}$`),
		country("SK", "Slovakia", AuthorityVIES, `^SK\d{10}$`),
		country("XI", "Northern Ireland", AuthorityVIES, `^XI(\d{9}|\d{12}|GD\d{3}|HA\d{3})$`),
		country("CH", "Switzerland", AuthorityUID, `^CHE-?\d{3}\.?\d{3}\.?\d{3}( ?(MWST|TVA|IVA))?$`),
	} {
		countries[c.Code] = c
	}
}

// LookupCountry returns the country registered under code (case-insensitive).
func LookupCountry(code string) (Country, bool) {
	c, ok := countries[strings.ToUpper(code)]
	return c, ok
}

// Countries returns every known country sorted by code.
func Countries() []Country {
	out := make([]Country, 0, len(countries))
	for _, c := range countries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CountryCodesFor returns the sorted country codes owned by an authority.
func CountryCodesFor(authority string) []string {
	var codes []string
	for _, c := range Countries() {
		if c.Authority == authority {
			codes = append(codes, c.Code)
		}
	}
	return codes
}
