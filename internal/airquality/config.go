package airquality

import "time"

// EU27Countries is the fixed set of ISO2 country codes the acquisition
// covers.
var EU27Countries = []string{
	"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE",
	"GR", "HU", "IE", "IT", "LV", "LT", "LU", "MT", "NL", "PL",
	"PT", "RO", "SK", "SI", "ES", "SE",
}

// countryCityLimits caps the number of city targets per country. Small
// member states get one or two targets, the large ones up to ten.
var countryCityLimits = map[string]int{
	"LU": 1, "MT": 1, "EE": 2, "LV": 2, "CY": 2,
	"HR": 3, "SI": 3, "SK": 3, "BG": 3, "LT": 3,
	"AT": 5, "BE": 5, "CZ": 5, "DK": 5, "FI": 5,
	"GR": 5, "HU": 5, "IE": 5, "NL": 5, "PT": 5, "SE": 5,
	"PL": 8, "ES": 8, "IT": 8,
	"FR": 10, "DE": 10,
}

// defaultCityLimit applies to countries absent from countryCityLimits.
const defaultCityLimit = 3

// CityLimit returns the maximum number of city targets for a country.
func CityLimit(country string) int {
	if n, ok := countryCityLimits[country]; ok {
		return n
	}
	return defaultCityLimit
}

// CityTarget is a configured (country, city) acquisition target.
// Targets are priority-ordered; Rank 1 is fetched first.
type CityTarget struct {
	Country string
	City    string
	Rank    int
}

// defaultCities lists priority-ordered target cities per country.
// English spellings; locale variants are handled by pkg/normalize.
var defaultCities = map[string][]string{
	"AT": {"Vienna", "Graz", "Linz"},
	"BE": {"Brussels", "Antwerp", "Ghent"},
	"BG": {"Sofia", "Plovdiv", "Varna"},
	"HR": {"Zagreb", "Split", "Rijeka"},
	"CY": {"Nicosia", "Limassol"},
	"CZ": {"Prague", "Brno", "Ostrava"},
	"DK": {"Copenhagen", "Aarhus", "Odense"},
	"EE": {"Tallinn", "Tartu"},
	"FI": {"Helsinki", "Tampere", "Turku"},
	"FR": {"Paris", "Marseille", "Lyon", "Toulouse", "Lille"},
	"DE": {"Berlin", "Hamburg", "Munich", "Cologne", "Frankfurt"},
	"GR": {"Athens", "Thessaloniki", "Patras"},
	"HU": {"Budapest", "Debrecen", "Szeged"},
	"IE": {"Dublin", "Cork", "Limerick"},
	"IT": {"Rome", "Milan", "Naples", "Turin", "Palermo"},
	"LV": {"Riga", "Daugavpils"},
	"LT": {"Vilnius", "Kaunas", "Klaipeda"},
	"LU": {"Luxembourg"},
	"MT": {"Valletta"},
	"NL": {"Amsterdam", "Rotterdam", "The Hague", "Utrecht", "Eindhoven"},
	"PL": {"Warsaw", "Krakow", "Lodz", "Wroclaw", "Poznan"},
	"PT": {"Lisbon", "Porto", "Braga"},
	"RO": {"Bucharest", "Cluj-Napoca", "Timisoara"},
	"SK": {"Bratislava", "Kosice", "Presov"},
	"SI": {"Ljubljana", "Maribor"},
	"ES": {"Madrid", "Barcelona", "Valencia", "Seville", "Zaragoza"},
	"SE": {"Stockholm", "Gothenburg", "Malmo"},
}

// DefaultCityTargets returns the configured city targets for a country,
// truncated to the per-country limit, in priority order.
func DefaultCityTargets(country string) []CityTarget {
	cities := defaultCities[country]
	limit := CityLimit(country)
	if len(cities) > limit {
		cities = cities[:limit]
	}
	targets := make([]CityTarget, 0, len(cities))
	for i, city := range cities {
		targets = append(targets, CityTarget{Country: country, City: city, Rank: i + 1})
	}
	return targets
}

// DefaultPollutants are the pollutants of interest with their OpenAQ
// parameter ids, in acquisition order.
var DefaultPollutants = []Pollutant{
	{ID: 2, Name: "pm25"},
	{ID: 1, Name: "pm10"},
	{ID: 5, Name: "no2"},
	{ID: 3, Name: "o3"},
	{ID: 4, Name: "co"},
	{ID: 6, Name: "so2"},
}

// Acquisition window defaults. The open end of the range is resolved at
// run time.
const DefaultDateFrom = "2014-01-01"

// DateLayout is the wire format for date-range query parameters.
const DateLayout = "2006-01-02"

// DefaultDateTo returns today's date in UTC.
func DefaultDateTo() string {
	return time.Now().UTC().Format(DateLayout)
}
