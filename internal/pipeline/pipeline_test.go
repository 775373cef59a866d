package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/JonMunkholm/wms/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow is one row of a lookup table known to fakeResolver.
type fakeRow struct {
	id     int64
	name   string
	parent map[string]any // scope column -> parent id
}

type fakeResolver struct {
	tables map[string][]fakeRow
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, _ store.DBTX, target lookup.Target, name string, scope *lookup.Scope) (any, bool, error) {
	f.calls++
	for _, r := range f.tables[target.Table] {
		if !strings.EqualFold(r.name, strings.TrimSpace(name)) {
			continue
		}
		if scope != nil && r.parent[scope.Column] != scope.Value {
			continue
		}
		return r.id, true, nil
	}
	return nil, false, nil
}

func geoResolver() *fakeResolver {
	return &fakeResolver{tables: map[string][]fakeRow{
		"countries": {
			{id: 1, name: "USA"},
			{id: 2, name: "Canada"},
		},
		"states": {
			{id: 10, name: "Illinois", parent: map[string]any{"countryID": int64(1)}},
			{id: 11, name: "Oregon", parent: map[string]any{"countryID": int64(1)}},
			{id: 12, name: "Ontario", parent: map[string]any{"countryID": int64(2)}},
		},
		"cities": {
			{id: 100, name: "Springfield", parent: map[string]any{"stateID": int64(10)}},
			{id: 101, name: "Portland", parent: map[string]any{"stateID": int64(11)}},
		},
	}}
}

// fakeCreator records every record handed to the create capability.
type fakeCreator struct {
	created []store.Record
	users   []string
	reject  map[string]error // name -> error
	nameKey string
}

func (c *fakeCreator) create(_ context.Context, _ store.DBTX, rec store.Record, userID string) (store.Record, error) {
	if name, ok := rec[c.nameKey].(string); ok {
		if err, bad := c.reject[name]; bad {
			return nil, err
		}
	}
	c.created = append(c.created, rec)
	c.users = append(c.users, userID)
	return rec, nil
}

func warehouseModule(creator *fakeCreator) *modules.ModuleConfig {
	return &modules.ModuleConfig{
		Key:  "warehouses",
		Name: "Warehouse",
		Fields: []modules.FieldSpec{
			{Key: "warehouseName", Header: "Warehouse Name", Required: true},
			{Key: "countryID", Header: "Country Name", Required: true, ResolvesTo: &lookup.Country},
			{Key: "stateID", Header: "State Name", IsOptional: true, ResolvesTo: &lookup.State, Parent: lookup.Country.Key},
			{Key: "cityID", Header: "City Name", IsOptional: true, ResolvesTo: &lookup.City, Parent: lookup.State.Key},
			{Key: "docks", Header: "Docks", Type: modules.FieldInteger},
			{Key: "capacity", Header: "Capacity", Type: modules.FieldDecimal},
			{Key: "openedOn", Header: "Opened On", Type: modules.FieldDate},
			{Key: "isActive", Header: "Status", Type: modules.FieldBoolean},
		},
		Create: creator.create,
	}
}

const warehouseHeader = "Warehouse Name (REQUIRED),Country Name (REQUIRED),State Name (Optional),City Name (Optional),Docks (Optional),Capacity (Optional),Opened On (Optional),Status (Optional)\n"

func newTestPipeline(t *testing.T, cfgs ...*modules.ModuleConfig) (*Pipeline, *fakeResolver) {
	t.Helper()
	reg := modules.NewRegistry()
	for _, c := range cfgs {
		reg.Register(c)
	}
	res := geoResolver()
	return New(reg, res), res
}

func TestImport_HappyPath(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	csv := warehouseHeader +
		"North DC,USA,Illinois,Springfield,4,\"$1,250.50\",2024-03-09,Active\n"

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(csv), "wh.csv", "user-7")
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 0, report.ErrorCount)
	assert.Empty(t, report.Errors)

	require.Len(t, creator.created, 1)
	rec := creator.created[0]
	assert.Equal(t, "North DC", rec["warehouseName"])
	assert.Equal(t, int64(1), rec["countryID"])
	assert.Equal(t, int64(10), rec["stateID"])
	assert.Equal(t, int64(100), rec["cityID"])
	assert.Equal(t, int64(4), rec["docks"])
	assert.Equal(t, 1250.5, rec["capacity"])
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), rec["openedOn"])
	assert.Equal(t, true, rec["isActive"])
	assert.Equal(t, []string{"user-7"}, creator.users)
}

func TestImport_LookupFailureIsIsolated(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	csv := warehouseHeader +
		"W1,USA,,,,,,\n" +
		"W2,Canada,,,,,,\n" +
		"W3,Atlantis,,,,,,\n" +
		"W4,usa,,,,,,\n" +
		"W5, Canada ,,,,,,\n"

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(csv), "wh.csv", "u")
	require.NoError(t, err)
	assert.Equal(t, 4, report.SuccessCount)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, []string{"Row 5: Could not find a match for 'Atlantis' in countries."}, report.Errors)

	names := make([]string, 0, len(creator.created))
	for _, r := range creator.created {
		names = append(names, r["warehouseName"].(string))
	}
	assert.Equal(t, []string{"W1", "W2", "W4", "W5"}, names)
}

func TestImport_ParentScoping(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	csv := warehouseHeader +
		"A,USA,Illinois,Springfield,,,,\n" +
		"B,USA,Oregon,Springfield,,,,\n" +
		"C,Canada,Illinois,,,,,\n"

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(csv), "wh.csv", "u")
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, []string{
		"Row 4: Could not find a match for 'Springfield' in cities for the selected State.",
		"Row 5: Could not find a match for 'Illinois' in states for the selected Country.",
	}, report.Errors)
}

func TestImport_ParentBlankResolvesUnscoped(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	csv := warehouseHeader + "A,USA,,Portland,,,,\n"

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(csv), "wh.csv", "u")
	require.NoError(t, err)
	require.Equal(t, 1, report.SuccessCount, report.Errors)
	assert.Equal(t, int64(101), creator.created[0]["cityID"])
	assert.Nil(t, creator.created[0]["stateID"])
}

func TestImport_RequiredField(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, res := newTestPipeline(t, warehouseModule(creator))

	csv := warehouseHeader +
		"  ,USA,,,,,,\n" +
		"W2,,,,,,,\n" +
		"W3,N/A,,,,,,\n"

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(csv), "wh.csv", "u")
	require.NoError(t, err)
	assert.Equal(t, 0, report.SuccessCount)
	assert.Equal(t, 3, report.ErrorCount)
	assert.Equal(t, []string{
		"Row 3: Missing required value for column 'Warehouse Name'.",
		"Row 4: Missing required value for column 'Country Name'.",
		"Row 5: Missing required value for column 'Country Name'.",
	}, report.Errors)
	assert.Empty(t, creator.created)
	assert.Equal(t, 1, res.calls, "blank lookups must not hit the resolver")
}

func TestImport_BooleanCoercion(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	values := map[string]bool{
		"Active": true, "active": true, "1": true, "yes": true, "TRUE": true,
		"Inactive": false, "no": false, "0": false, "enabled": false,
	}
	var b strings.Builder
	b.WriteString(warehouseHeader)
	for v := range values {
		b.WriteString(v + ",USA,,,,,," + v + "\n")
	}

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(b.String()), "wh.csv", "u")
	require.NoError(t, err)
	require.Equal(t, len(values), report.SuccessCount, report.Errors)

	for _, rec := range creator.created {
		name := rec["warehouseName"].(string)
		assert.Equal(t, values[name], rec["isActive"], "value %q", name)
	}
}

func TestImport_TypeErrors(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	csv := warehouseHeader +
		"W1,USA,,,four,,,\n" +
		"W2,USA,,,,lots,,\n" +
		"W3,USA,,,,,someday,\n" +
		"W4,USA,,,N/A,(12.5),n/a,\n"

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(csv), "wh.csv", "u")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Row 3: Invalid integer 'four' for column 'Docks'.",
		"Row 4: Invalid number 'lots' for column 'Capacity'.",
		"Row 5: Invalid date 'someday' for column 'Opened On'.",
	}, report.Errors)

	require.Len(t, creator.created, 1)
	rec := creator.created[0]
	assert.Nil(t, rec["docks"])
	assert.Equal(t, -12.5, rec["capacity"])
	assert.Nil(t, rec["openedOn"])
	assert.Nil(t, rec["isActive"])
}

func TestImport_CreateFailureIsIsolated(t *testing.T) {
	creator := &fakeCreator{
		nameKey: "warehouseName",
		reject:  map[string]error{"Dup": &store.DuplicateError{Table: "warehouses", Name: "Dup"}},
	}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	csv := warehouseHeader + "A,USA,,,,,,\nDup,USA,,,,,,\nB,USA,,,,,,\n"

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(csv), "wh.csv", "u")
	require.NoError(t, err)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, []string{"Row 4: duplicate key: 'Dup' already exists in warehouses"}, report.Errors)
}

func TestImport_AcceptsExportHeaders(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	csv := "Warehouse Name,Country Name,Status\nW1,Canada,Inactive\n"

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(csv), "export.csv", "u")
	require.NoError(t, err)
	require.Equal(t, 1, report.SuccessCount, report.Errors)
	assert.Equal(t, int64(2), creator.created[0]["countryID"])
	assert.Equal(t, false, creator.created[0]["isActive"])
}

func TestImport_SampleHeadersAreImportKeys(t *testing.T) {
	creator := &fakeCreator{nameKey: "warehouseName"}
	p, _ := newTestPipeline(t, warehouseModule(creator))

	sample, err := p.Sample("warehouses", tabular.FormatCSV)
	require.NoError(t, err)
	header := strings.SplitN(string(sample), "\n", 2)[0] + "\n"
	assert.Equal(t, warehouseHeader, header)

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(header+"W1,USA,,,,,,\n"), "filled.csv", "u")
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
}

func TestImport_EmptyFile(t *testing.T) {
	p, _ := newTestPipeline(t, warehouseModule(&fakeCreator{}))

	report, err := p.Import(context.Background(), nil, "warehouses", []byte(warehouseHeader), "wh.csv", "u")
	require.NoError(t, err)
	assert.Zero(t, report.SuccessCount)
	assert.Zero(t, report.ErrorCount)

	body, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"successCount":0,"errorCount":0,"errors":[]}`, string(body))
}

func TestImport_FatalErrors(t *testing.T) {
	p, _ := newTestPipeline(t,
		warehouseModule(&fakeCreator{}),
		&modules.ModuleConfig{Key: "readonly", Fields: []modules.FieldSpec{{Key: "a", Header: "A"}}},
	)
	ctx := context.Background()

	t.Run("malformed file", func(t *testing.T) {
		report, err := p.Import(ctx, nil, "warehouses", []byte("a,b\n\"x,y\n"), "bad.csv", "u")
		assert.Nil(t, report)
		var pe *tabular.ParseError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("unknown module", func(t *testing.T) {
		_, err := p.Import(ctx, nil, "planets", []byte(warehouseHeader), "x.csv", "u")
		var ce *modules.ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "planets", ce.Module)
	})

	t.Run("missing create capability", func(t *testing.T) {
		_, err := p.Import(ctx, nil, "readonly", []byte("A\nx\n"), "x.csv", "u")
		var ce *modules.ConfigurationError
		assert.ErrorAs(t, err, &ce)
	})
}

func TestImport_LimiterBusy(t *testing.T) {
	reg := modules.NewRegistry()
	reg.Register(warehouseModule(&fakeCreator{}))
	limiter := NewLimiter(1, 10*time.Millisecond)
	p := New(reg, geoResolver(), WithLimiter(limiter))

	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	_, err := p.Import(context.Background(), nil, "warehouses", []byte(warehouseHeader), "wh.csv", "u")
	assert.ErrorIs(t, err, ErrBusy)
}

type recorded struct {
	module            string
	succeeded, failed int
	rows              int
	err               error
}

type fakeRecorder struct{ calls []recorded }

func (f *fakeRecorder) ImportFinished(module string, succeeded, failed int, _ time.Duration) {
	f.calls = append(f.calls, recorded{module: module, succeeded: succeeded, failed: failed})
}

func (f *fakeRecorder) ExportFinished(module string, rows int, _ time.Duration, err error) {
	f.calls = append(f.calls, recorded{module: module, rows: rows, err: err})
}

func TestImport_RecordsOutcome(t *testing.T) {
	reg := modules.NewRegistry()
	reg.Register(warehouseModule(&fakeCreator{nameKey: "warehouseName"}))
	rec := &fakeRecorder{}
	p := New(reg, geoResolver(), WithRecorder(rec))

	_, err := p.Import(context.Background(), nil, "warehouses", []byte(warehouseHeader+"A,USA,,,,,,\nB,Mars,,,,,,\n"), "wh.csv", "u")
	require.NoError(t, err)
	assert.Equal(t, []recorded{{module: "warehouses", succeeded: 1, failed: 1}}, rec.calls)
}

func exportModule(fetch modules.FetchFunc) *modules.ModuleConfig {
	return &modules.ModuleConfig{
		Key: "states",
		Fields: []modules.FieldSpec{
			{Key: "stateName", Header: "State Name", Required: true},
			{Key: "countryID", Header: "Country Name", Required: true, ResolvesTo: &lookup.Country},
			{Key: "isActive", Header: "Status", Type: modules.FieldBoolean},
		},
		Fetch: fetch,
	}
}

func TestExport(t *testing.T) {
	rows := []store.Record{
		{"stateID": int64(10), "stateName": "Illinois", "countryID": int64(1), "countryName": "USA", "isActive": true},
		{"stateID": int64(12), "stateName": "Ontario", "countryID": int64(2), "countryName": "Canada", "isActive": false},
	}
	want := "State Name,Country Name,Status\nIllinois,USA,Active\nOntario,Canada,Inactive\n"

	shapes := map[string]any{
		"slice":        rows,
		"page":         store.Page{Data: rows, Total: 2},
		"page pointer": &store.Page{Data: rows},
	}
	for name, result := range shapes {
		t.Run(name, func(t *testing.T) {
			var got store.ListParams
			p, _ := newTestPipeline(t, exportModule(func(_ context.Context, _ store.DBTX, params store.ListParams) (any, error) {
				got = params
				return result, nil
			}))

			out, err := p.Export(context.Background(), nil, "states", store.ListParams{Search: "o"})
			require.NoError(t, err)
			assert.Equal(t, want, string(out))
			assert.Equal(t, "o", got.Search)
		})
	}
}

func TestExport_XLSX(t *testing.T) {
	p, _ := newTestPipeline(t, exportModule(func(context.Context, store.DBTX, store.ListParams) (any, error) {
		return []store.Record{{"stateName": "Oregon", "countryName": "USA", "isActive": true}}, nil
	}))

	out, err := p.ExportAs(context.Background(), nil, "states", store.ListParams{}, tabular.FormatXLSX)
	require.NoError(t, err)

	rows, err := tabular.ParseTable(out, "states-export.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, tabular.Row{"State Name": "Oregon", "Country Name": "USA", "Status": "Active"}, rows[0])
}

func TestExport_Errors(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("fetch failure", func(t *testing.T) {
		rec := &fakeRecorder{}
		reg := modules.NewRegistry()
		reg.Register(exportModule(func(context.Context, store.DBTX, store.ListParams) (any, error) {
			return nil, boom
		}))
		p := New(reg, geoResolver(), WithRecorder(rec))

		_, err := p.Export(context.Background(), nil, "states", store.ListParams{})
		var ee *ExportError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, "states", ee.Module)
		assert.ErrorIs(t, err, boom)
		require.Len(t, rec.calls, 1)
		assert.ErrorIs(t, rec.calls[0].err, boom)
	})

	t.Run("unexpected result", func(t *testing.T) {
		p, _ := newTestPipeline(t, exportModule(func(context.Context, store.DBTX, store.ListParams) (any, error) {
			return 42, nil
		}))
		_, err := p.Export(context.Background(), nil, "states", store.ListParams{})
		var ee *ExportError
		assert.ErrorAs(t, err, &ee)
	})

	t.Run("no fetch capability", func(t *testing.T) {
		p, _ := newTestPipeline(t, exportModule(nil))
		_, err := p.Export(context.Background(), nil, "states", store.ListParams{})
		var ce *modules.ConfigurationError
		assert.ErrorAs(t, err, &ce)
	})

	t.Run("unknown module", func(t *testing.T) {
		p, _ := newTestPipeline(t)
		_, err := p.Export(context.Background(), nil, "planets", store.ListParams{})
		var ce *modules.ConfigurationError
		assert.ErrorAs(t, err, &ce)
	})
}

func TestSample(t *testing.T) {
	p, _ := newTestPipeline(t, exportModule(nil))

	out, err := p.Sample("states", tabular.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t,
		"State Name (REQUIRED),Country Name (REQUIRED),Status (Optional)\n"+
			"(Required value),\"e.g., A valid Country Name\",(Leave blank or use 'N/A')\n",
		string(out))

	_, err = p.Sample("planets", tabular.FormatCSV)
	var ce *modules.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}
