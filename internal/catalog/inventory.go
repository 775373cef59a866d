package catalog

import (
	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/JonMunkholm/wms/internal/modules"
)

func init() {
	register(definition{
		Key:    "storage-types",
		Name:   "Storage Type",
		Label:  "Storage Types",
		Target: lookup.StorageType,
		Fields: []modules.FieldSpec{
			{Key: "storageTypeName", Header: "Storage Type", Required: true},
			{Key: "description", Header: "Description", IsOptional: true},
			status,
		},
	})

	register(definition{
		Key:    "uoms",
		Name:   "Unit of Measure",
		Label:  "Units of Measure",
		Target: lookup.UOM,
		Fields: []modules.FieldSpec{
			{Key: "uomName", Header: "UOM", Required: true},
			{Key: "uomCode", Header: "UOM Code", IsOptional: true},
			{Key: "decimalPlaces", Header: "Decimal Places", Type: modules.FieldInteger},
			status,
		},
	})

	register(definition{
		Key:    "brands",
		Name:   "Brand",
		Label:  "Brands",
		Target: lookup.Brand,
		Fields: []modules.FieldSpec{
			{Key: "brandName", Header: "Brand Name", Required: true},
			{Key: "description", Header: "Description", IsOptional: true},
			status,
		},
	})

	register(definition{
		Key:    "warehouses",
		Name:   "Warehouse",
		Label:  "Warehouses",
		Target: lookup.Warehouse,
		Fields: []modules.FieldSpec{
			{Key: "warehouseName", Header: "Warehouse Name", Required: true},
			{Key: "warehouseCode", Header: "Warehouse Code", IsOptional: true},
			{Key: "address", Header: "Address", IsOptional: true},
			{Key: "countryID", Header: "Country Name", Required: true, ResolvesTo: &lookup.Country},
			{Key: "stateID", Header: "State Name", IsOptional: true, ResolvesTo: &lookup.State, Parent: lookup.Country.Key},
			{Key: "cityID", Header: "City Name", IsOptional: true, ResolvesTo: &lookup.City, Parent: lookup.State.Key},
			{Key: "capacity", Header: "Capacity", Type: modules.FieldDecimal},
			{Key: "openedOn", Header: "Opened On", Type: modules.FieldDate},
			status,
		},
	})

	register(definition{
		Key:    "bins",
		Name:   "Bin",
		Label:  "Bins",
		Target: lookup.Target{Key: "Bin", Table: "bins", IDColumn: "binID", NameColumn: "binName"},
		Scope:  []string{"warehouseID"},
		Fields: []modules.FieldSpec{
			{Key: "binName", Header: "Bin Name", Required: true},
			{Key: "warehouseID", Header: "Warehouse Name", Required: true, ResolvesTo: &lookup.Warehouse},
			{Key: "storageTypeID", Header: "Storage Type", IsOptional: true, ResolvesTo: &lookup.StorageType},
			{Key: "uomID", Header: "UOM", IsOptional: true, ResolvesTo: &lookup.UOM},
			{Key: "capacity", Header: "Capacity", Type: modules.FieldDecimal},
			status,
		},
	})
}
