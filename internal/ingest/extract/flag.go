package extract

import "strings"

// alpha2ToAlpha3 covers the registries currently ingested: EU member
// states plus the North Atlantic flags that show up in their exports.
var alpha2ToAlpha3 = map[string]string{
	"AT": "AUT", "BE": "BEL", "BG": "BGR", "HR": "HRV", "CY": "CYP",
	"CZ": "CZE", "DK": "DNK", "EE": "EST", "FI": "FIN", "FR": "FRA",
	"DE": "DEU", "GR": "GRC", "EL": "GRC", "HU": "HUN", "IE": "IRL",
	"IT": "ITA", "LV": "LVA", "LT": "LTU", "LU": "LUX", "MT": "MLT",
	"NL": "NLD", "PL": "POL", "PT": "PRT", "RO": "ROU", "SK": "SVK",
	"SI": "SVN", "ES": "ESP", "SE": "SWE", "GB": "GBR", "NO": "NOR",
	"IS": "ISL", "FO": "FRO", "GL": "GRL", "RU": "RUS", "US": "USA",
	"CA": "CAN", "TR": "TUR", "UA": "UKR", "MA": "MAR", "SN": "SEN",
	"MR": "MRT",
}

// nonstandardToAlpha3 fixes the recurring hand-typed codes seen in
// jurisdiction exports that are neither alpha-2 nor alpha-3.
var nonstandardToAlpha3 = map[string]string{
	"UK":  "GBR",
	"GER": "DEU",
	"NED": "NLD",
	"POR": "PRT",
	"GRE": "GRC",
	"DEN": "DNK",
	"IRE": "IRL",
}

// NormalizeFlag maps a raw flag code to ISO alpha-3. Alpha-2 inputs and the
// common nonstandard spellings are converted; a code already three letters
// long is uppercased and passed through; anything unrecognizable returns
// empty.
func NormalizeFlag(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return ""
	}
	if mapped, ok := nonstandardToAlpha3[code]; ok {
		return mapped
	}
	if mapped, ok := alpha2ToAlpha3[code]; ok {
		return mapped
	}
	if len(code) == 3 && isAlpha(code) {
		return code
	}
	return ""
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
