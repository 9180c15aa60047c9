package directory

type country struct {
	name string
	flag string
}

var countries = map[string]country{
	"US": {"United States", "🇺🇸"},
	"NL": {"Netherlands", "🇳🇱"},
	"DE": {"Germany", "🇩🇪"},
	"FI": {"Finland", "🇫🇮"},
	"GB": {"United Kingdom", "🇬🇧"},
	"ES": {"Spain", "🇪🇸"},
	"FR": {"France", "🇫🇷"},
	"SE": {"Sweden", "🇸🇪"},
	"AT": {"Austria", "🇦🇹"},
	"PL": {"Poland", "🇵🇱"},
	"RU": {"Russia", "🇷🇺"},
	"BR": {"Brazil", "🇧🇷"},
	"CL": {"Chile", "🇨🇱"},
	"PE": {"Peru", "🇵🇪"},
	"AR": {"Argentina", "🇦🇷"},
	"HK": {"Hong Kong", "🇭🇰"},
	"KR": {"South Korea", "🇰🇷"},
	"SG": {"Singapore", "🇸🇬"},
	"JP": {"Japan", "🇯🇵"},
	"AU": {"Australia", "🇦🇺"},
	"ZA": {"South Africa", "🇿🇦"},
	"AE": {"United Arab Emirates", "🇦🇪"},
}

// CountryName returns the display name for an ISO country code.
func CountryName(code string) string {
	if c, ok := countries[code]; ok {
		return c.name
	}
	return "Unknown"
}

// Flag returns the emoji flag for an ISO country code.
func Flag(code string) string {
	if c, ok := countries[code]; ok {
		return c.flag
	}
	return "🌐"
}
