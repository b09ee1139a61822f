package domain

import "testing"

func TestCountryMatches(t *testing.T) {
	valid := map[string]string{
		"AT": "ATU63611700",
		"BE": "BE0417497106",
		"BG": "BG131129282",
		"HR": "HR91127208369",
		"CY": "CY99000230P",
		"CZ": "CZ00177041",
		"DK": "DK53139655",
		"EE": "EE102090374",
		"FI": "FI01120389",
		"FR": "FR59542051180",
		"DE": "DE129274202",
		"EL": "EL090027346",
		"HU": "HU17781774",
		"IE": "IE4749148U",
		"IT": "IT00159560366",
		"LV": "LV40003245752",
		"LT": "LT223513811",
		"LU": "LU16805119",
		"MT": "MT18852233",
		"NL": "NL803441526B01",
		"PL": "PL7342867148",
		"PT": "PT500100144",
		"RO": "RO18189442",
		"SK": "SK2020317068",
		"SI": "SI82646716",
		"ES": "ES15075062",
		"SE": "SE556703748501",
		"CH": "CHE-116.281.710",
	}

	for code, vat := range valid {
		c, ok := LookupCountry(code)
		if !ok {
			t.Errorf("country %s not registered", code)
			continue
		}
		if !c.Matches(vat) {
			t.Errorf("%s: expected %q to match", code, vat)
		}
	}

	invalid := map[string]string{
		"DE": "DE1234567890",
		"FR": "FR1234567890",
		"CH": "CH123",
		"AT": "AT12345678",
	}
	for code, vat := range invalid {
		c, _ := LookupCountry(code)
		if c.Matches(vat) {
			t.Errorf("%s: expected %q to be rejected", code, vat)
		}
	}
}

func TestLookupCountryCaseInsensitive(t *testing.T) {
	c, ok := LookupCountry("de")
	if !ok || c.Code != "DE" {
		t.Fatalf("expected DE, got %+v (%v)", c, ok)
	}
	if _, ok := LookupCountry("US"); ok {
		t.Error("US must not be registered")
	}
}

func TestCountryCodesFor(t *testing.T) {
	eu := CountryCodesFor(AuthorityVIES)
	if len(eu) != 28 {
		t.Errorf("expected 27 member states plus XI, got %d", len(eu))
	}
	for _, code := range eu {
		if code == "CH" {
			t.Error("CH must not be owned by VIES")
		}
	}

	ch := CountryCodesFor(AuthorityUID)
	if len(ch) != 1 || ch[0] != "CH" {
		t.Errorf("expected [CH], got %v", ch)
	}
}
