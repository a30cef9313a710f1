package geo

// FallbackProvinces returns the 24 Argentine jurisdictions
func FallbackProvinces() []string {
	return []string{
		"Buenos Aires",
		"Catamarca",
		"Chaco",
		"Chubut",
		"Ciudad Autónoma de Buenos Aires",
		"Corrientes",
		"Córdoba",
		"Entre Ríos",
		"Formosa",
		"Jujuy",
		"La Pampa",
		"La Rioja",
		"Mendoza",
		"Misiones",
		"Neuquén",
		"Río Negro",
		"Salta",
		"San Juan",
		"San Luis",
		"Santa Cruz",
		"Santa Fe",
		"Santiago del Estero",
		"Tierra del Fuego, Antártida e Islas del Atlántico Sur",
		"Tucumán",
	}
}

// FallbackCountries is used when REST Countries cannot be reached
func FallbackCountries() []string {
	return []string{
		"Argentina",
		"Bolivia",
		"Brasil",
		"Chile",
		"Colombia",
		"Ecuador",
		"España",
		"Paraguay",
		"Perú",
		"Uruguay",
		"Venezuela",
		"Otro",
	}
}
