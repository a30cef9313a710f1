package dashboard

import "strings"

// LatLng is an approximate map position
type LatLng struct {
	Lat float64
	Lng float64
}

// CountryCenter is used for provinces the table does not know
var CountryCenter = LatLng{Lat: -38.4161, Lng: -63.6167}

var provinceCoordinates = map[string]LatLng{
	"buenos aires":                    {-36.6769, -60.5588},
	"ciudad autónoma de buenos aires": {-34.6037, -58.3816},
	"catamarca":                       {-28.4696, -65.7852},
	"chaco":                           {-27.4514, -58.9867},
	"chubut":                          {-43.2934, -65.1115},
	"córdoba":                         {-31.4201, -64.1888},
	"corrientes":                      {-27.4692, -58.8306},
	"entre ríos":                      {-31.7319, -60.5238},
	"formosa":                         {-26.1775, -58.1781},
	"jujuy":                           {-24.1858, -65.2995},
	"la pampa":                        {-36.6167, -64.2833},
	"la rioja":                        {-29.4131, -66.8558},
	"mendoza":                         {-32.8895, -68.8458},
	"misiones":                        {-27.3671, -55.8961},
	"neuquén":                         {-38.9516, -68.0591},
	"río negro":                       {-40.8135, -62.9967},
	"salta":                           {-24.7821, -65.4232},
	"san juan":                        {-31.5375, -68.5364},
	"san luis":                        {-33.2950, -66.3356},
	"santa cruz":                      {-51.6230, -69.2168},
	"santa fe":                        {-31.6333, -60.7000},
	"santiago del estero":             {-27.7834, -64.2642},
	"tierra del fuego":                {-54.8019, -68.3030},
	"tucumán":                         {-26.8083, -65.2176},
}

var provinceAliases = map[string]string{
	"caba":                   "ciudad autónoma de buenos aires",
	"capital federal":        "ciudad autónoma de buenos aires",
	"ciudad de buenos aires": "ciudad autónoma de buenos aires",
	"tierra del fuego, antártida e islas del atlántico sur": "tierra del fuego",
}

// Coordinates returns the map position of a province name. Unknown names
// get the center of the country.
func Coordinates(province string) LatLng {
	key := strings.ToLower(strings.TrimSpace(province))
	if alias, ok := provinceAliases[key]; ok {
		key = alias
	}
	if c, ok := provinceCoordinates[key]; ok {
		return c
	}
	return CountryCenter
}
