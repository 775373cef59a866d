package catalog

import (
	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/JonMunkholm/wms/internal/modules"
)

func init() {
	register(definition{
		Key:    "vendors",
		Name:   "Vendor",
		Label:  "Vendors",
		Target: lookup.Vendor,
		Fields: []modules.FieldSpec{
			{Key: "vendorName", Header: "Vendor Name", Required: true},
			{Key: "vendorCode", Header: "Vendor Code", IsOptional: true},
			{Key: "contactPerson", Header: "Contact Person", IsOptional: true},
			{Key: "email", Header: "Email", IsOptional: true},
			{Key: "phone", Header: "Phone", IsOptional: true},
			{Key: "countryID", Header: "Country Name", IsOptional: true, ResolvesTo: &lookup.Country},
			{Key: "stateID", Header: "State Name", IsOptional: true, ResolvesTo: &lookup.State, Parent: lookup.Country.Key},
			{Key: "cityID", Header: "City Name", IsOptional: true, ResolvesTo: &lookup.City, Parent: lookup.State.Key},
			{Key: "currencyID", Header: "Currency Name", IsOptional: true, ResolvesTo: &lookup.Currency},
			{Key: "creditLimit", Header: "Credit Limit", Type: modules.FieldDecimal},
			{Key: "paymentTermsDays", Header: "Payment Terms (Days)", Type: modules.FieldInteger},
			status,
		},
	})
}
