// Package lookup declares the foreign-key targets that human-readable names
// resolve against during import, and that list queries join to during export.
package lookup

import "sort"

// Target identifies where a name resolves to an id.
type Target struct {
	Key        string // Registry key: "Country"
	Table      string // Table holding the rows: "countries"
	IDColumn   string // Primary key column: "countryID"
	NameColumn string // Display column matched against the raw value: "countryName"
}

// Scope restricts a lookup to rows belonging to an already resolved parent.
// Column is the child table column holding the parent id.
type Scope struct {
	Key    string // Parent target key, used in error messages
	Column string
	Value  any
}

var (
	Country = Target{Key: "Country", Table: "countries", IDColumn: "countryID", NameColumn: "countryName"}
	State   = Target{Key: "State", Table: "states", IDColumn: "stateID", NameColumn: "stateName"}
	City    = Target{Key: "City", Table: "cities", IDColumn: "cityID", NameColumn: "cityName"}

	Currency    = Target{Key: "Currency", Table: "currencies", IDColumn: "currencyID", NameColumn: "currencyName"}
	Warehouse   = Target{Key: "Warehouse", Table: "warehouses", IDColumn: "warehouseID", NameColumn: "warehouseName"}
	StorageType = Target{Key: "StorageType", Table: "storage_types", IDColumn: "storageTypeID", NameColumn: "storageTypeName"}
	UOM         = Target{Key: "UOM", Table: "uoms", IDColumn: "uomID", NameColumn: "uomName"}
	Brand       = Target{Key: "Brand", Table: "brands", IDColumn: "brandID", NameColumn: "brandName"}
	Vendor      = Target{Key: "Vendor", Table: "vendors", IDColumn: "vendorID", NameColumn: "vendorName"}
)

var targets = map[string]Target{}

func init() {
	for _, t := range []Target{Country, State, City, Currency, Warehouse, StorageType, UOM, Brand, Vendor} {
		targets[t.Key] = t
	}
}

// ByKey returns the target registered under key.
func ByKey(key string) (Target, bool) {
	t, ok := targets[key]
	return t, ok
}

// All returns every target sorted by key.
func All() []Target {
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ScopeFor builds the scope a child lookup uses when its parent resolved to id.
// Child tables reference their parent through a column named like the
// parent's id column.
func ScopeFor(parent Target, id any) *Scope {
	return &Scope{Key: parent.Key, Column: parent.IDColumn, Value: id}
}
