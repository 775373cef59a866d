package catalog

import (
	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/JonMunkholm/wms/internal/modules"
)

func init() {
	register(definition{
		Key:    "countries",
		Name:   "Country",
		Label:  "Countries",
		Target: lookup.Country,
		Fields: []modules.FieldSpec{
			{Key: "countryName", Header: "Country Name", Required: true},
			{Key: "countryCode", Header: "Country Code", IsOptional: true},
			status,
		},
	})

	register(definition{
		Key:    "states",
		Name:   "State",
		Label:  "States",
		Target: lookup.State,
		Scope:  []string{"countryID"},
		Fields: []modules.FieldSpec{
			{Key: "countryID", Header: "Country Name", Required: true, ResolvesTo: &lookup.Country},
			{Key: "stateName", Header: "State Name", Required: true},
			{Key: "stateCode", Header: "State Code", IsOptional: true},
			status,
		},
	})

	register(definition{
		Key:    "cities",
		Name:   "City",
		Label:  "Cities",
		Target: lookup.City,
		Scope:  []string{"stateID"},
		Fields: []modules.FieldSpec{
			{Key: "countryID", Header: "Country Name", Required: true, ResolvesTo: &lookup.Country},
			{Key: "stateID", Header: "State Name", Required: true, ResolvesTo: &lookup.State, Parent: lookup.Country.Key},
			{Key: "cityName", Header: "City Name", Required: true},
			status,
		},
	})

	register(definition{
		Key:    "currencies",
		Name:   "Currency",
		Label:  "Currencies",
		Target: lookup.Currency,
		Fields: []modules.FieldSpec{
			{Key: "currencyName", Header: "Currency Name", Required: true},
			{Key: "currencyCode", Header: "Currency Code", Required: true},
			{Key: "symbol", Header: "Symbol", IsOptional: true},
			status,
		},
	})
}
