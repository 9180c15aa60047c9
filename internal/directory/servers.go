package directory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const regionNorthAmerica = "North America"

// Server is one relay as shown to the user.
type Server struct {
	ID          string `json:"id" yaml:"id"`
	Region      string `json:"region" yaml:"region"`
	Country     string `json:"country" yaml:"country"`
	CountryCode string `json:"country_code" yaml:"country_code"`
	Name        string `json:"name" yaml:"name"`
	IP          string `json:"ip" yaml:"ip"`
	Flag        string `json:"flag" yaml:"flag"`
}

type location struct {
	region   string
	code     string
	country  string
	keywords []string
}

// locations is matched in order against a pop description; pops matching
// none are dropped.
var locations = []location{
	{regionNorthAmerica, "US", "United States", []string{"Virginia", "Washington", "Chicago", "Atlanta"}},
	{"Europe", "DE", "Germany", []string{"Germany", "Frankfurt"}},
	{"Europe", "NL", "Netherlands", []string{"Netherlands", "Amsterdam"}},
	{"Europe", "FI", "Finland", []string{"Finland", "Helsinki"}},
	{"Europe", "GB", "United Kingdom", []string{"UK", "London"}},
	{"Europe", "ES", "Spain", []string{"Spain", "Madrid"}},
	{"Europe", "FR", "France", []string{"France", "Paris"}},
	{"Europe", "SE", "Sweden", []string{"Sweden", "Stockholm"}},
	{"Europe", "AT", "Austria", []string{"Austria", "Vienna"}},
	{"Europe", "PL", "Poland", []string{"Poland", "Warsaw"}},
	{"Europe", "RU", "Russia", []string{"Russia", "Moscow"}},
}

func classify(desc string) (location, bool) {
	for _, loc := range locations {
		for _, kw := range loc.keywords {
			if strings.Contains(desc, kw) {
				return loc, true
			}
		}
	}
	return location{}, false
}

// Build turns the raw pop map into named servers. Pops are visited in key
// order and contribute their first relay's IPv4 address.
func Build(pops map[string]sdrPop) []Server {
	keys := make([]string, 0, len(pops))
	for k := range pops {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type entry struct {
		loc location
		ip  string
	}

	var entries []entry
	perCountry := make(map[string]int)

	for _, k := range keys {
		pop := pops[k]
		loc, ok := classify(pop.Desc)
		if !ok || len(pop.Relays) == 0 || pop.Relays[0].IPv4 == "" {
			continue
		}
		entries = append(entries, entry{loc: loc, ip: pop.Relays[0].IPv4})
		perCountry[loc.country]++
	}

	servers := make([]Server, 0, len(entries))
	seen := make(map[string]int)

	for i, e := range entries {
		seen[e.loc.country]++

		prefix := e.loc.country
		if e.loc.region == regionNorthAmerica {
			prefix = "US"
		}

		servers = append(servers, Server{
			ID:          fmt.Sprintf("server_%d", i),
			Region:      e.loc.region,
			Country:     CountryName(e.loc.code),
			CountryCode: e.loc.code,
			Name:        fmt.Sprintf("%s Server %s", prefix, ordinal(seen[e.loc.country])),
			IP:          e.ip,
			Flag:        Flag(e.loc.code),
		})
	}

	return servers
}

var romans = []string{"I", "II", "III", "IV", "V"}

// ordinal renders n as a Roman numeral up to V and in Arabic digits past it.
func ordinal(n int) string {
	if n >= 1 && n <= len(romans) {
		return romans[n-1]
	}
	return strconv.Itoa(n)
}
