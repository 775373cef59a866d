package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodySize     = 1 << 20
)

// FieldError rejects one value of a JSON request body.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// listParams reads search, status, page, pageSize and filter[column]=value
// from the query string. paged=false leaves pagination off.
func listParams(q url.Values, paged bool) (store.ListParams, error) {
	p := store.ListParams{Search: strings.TrimSpace(q.Get("search"))}

	status, err := parseStatus(q.Get("status"))
	if err != nil {
		return p, err
	}
	p.Status = status

	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		column := key[len("filter[") : len(key)-1]
		if column == "" || len(values) == 0 || values[0] == "" {
			continue
		}
		if p.Filters == nil {
			p.Filters = map[string]any{}
		}
		p.Filters[column] = filterValue(values[0])
	}

	if paged {
		p.Page = intParam(q, "page", 1)
		p.PageSize = min(intParam(q, "pageSize", defaultPageSize), maxPageSize)
	}
	return p, nil
}

func parseStatus(s string) (store.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return store.StatusAll, nil
	case "active":
		return store.StatusActive, nil
	case "inactive":
		return store.StatusInactive, nil
	}
	return "", fmt.Errorf("%w: invalid status %q", store.ErrInvalidParams, s)
}

// filterValue types a query value so it compares against BIGINT and BOOLEAN
// columns.
func filterValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func intParam(q url.Values, name string, def int) int {
	n, err := strconv.Atoi(q.Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// exportRequest is the optional JSON body of POST /export/{module}.
type exportRequest struct {
	Search  string         `json:"search"`
	Status  string         `json:"status"`
	Format  string         `json:"format"`
	Filters map[string]any `json:"filters"`
}

// exportParams merges an optional JSON body over the query string.
func exportParams(r *http.Request) (store.ListParams, string, error) {
	q := r.URL.Query()
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var body exportRequest
		if err := decodeJSON(r, &body); err != nil {
			return store.ListParams{}, "", err
		}
		if body.Search != "" {
			q.Set("search", body.Search)
		}
		if body.Status != "" {
			q.Set("status", body.Status)
		}
		if body.Format != "" {
			q.Set("format", body.Format)
		}
		for k, v := range body.Filters {
			q.Set("filter["+k+"]", fmt.Sprint(v))
		}
	}
	p, err := listParams(q, false)
	return p, q.Get("format"), err
}

func recordID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errBadID
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// decodeRecord converts a JSON object into a store.Record typed by the
// module's columns. Unknown keys are rejected. With partial=false every
// required column must be present.
func decodeRecord(r *http.Request, cfg *modules.ModuleConfig, partial bool) (store.Record, error) {
	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		return nil, err
	}

	columns := map[string]modules.FieldSpec{}
	for _, c := range cfg.Columns {
		columns[c.RecordKey()] = c
	}

	rec := store.Record{}
	for key, v := range raw {
		col, ok := columns[key]
		if !ok {
			return nil, &FieldError{Field: key, Reason: "unknown field"}
		}
		val, err := jsonValue(col, v)
		if err != nil {
			return nil, &FieldError{Field: key, Reason: err.Error()}
		}
		rec[key] = val
	}

	if !partial {
		for _, c := range cfg.Columns {
			if !c.Required {
				continue
			}
			if v, ok := rec[c.RecordKey()]; !ok || v == nil || v == "" {
				return nil, &FieldError{Field: c.RecordKey(), Reason: "is required"}
			}
		}
	}
	return rec, nil
}

func jsonValue(col modules.FieldSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case col.ResolvesTo != nil || col.Type == modules.FieldInteger:
		return jsonInt(v)
	case col.Type == modules.FieldDecimal:
		return jsonFloat(v)
	case col.Type == modules.FieldBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean")
		}
		return b, nil
	case col.Type == modules.FieldDate:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected date string")
		}
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("expected YYYY-MM-DD date")
		}
		return t, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string")
	}
	return strings.TrimSpace(s), nil
}

func jsonInt(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected integer")
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected integer")
	}
	return int64(f), nil
}

func jsonFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("expected number")
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected number")
}
