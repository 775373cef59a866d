package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/pipeline"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/JonMunkholm/wms/internal/tabular"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown module", &modules.ConfigurationError{Module: "x", Reason: modules.ReasonUnregistered}, http.StatusNotFound, "CFG001"},
		{"missing capability", &modules.ConfigurationError{Module: "x", Reason: "no create capability"}, http.StatusBadRequest, "CFG002"},
		{"parse", &tabular.ParseError{Filename: "a.csv", Err: errors.New("bad quote")}, http.StatusBadRequest, "FILE002"},
		{"too large", errTooLarge, http.StatusRequestEntityTooLarge, "FILE001"},
		{"busy", pipeline.ErrBusy, http.StatusTooManyRequests, "RATE002"},
		{"not found", fmt.Errorf("get bins: %w", store.ErrNotFound), http.StatusNotFound, "REC001"},
		{"duplicate", &store.DuplicateError{Table: "bins", Name: "A1"}, http.StatusConflict, "DB001"},
		{"bad params", fmt.Errorf("%w: invalid status", store.ErrInvalidParams), http.StatusBadRequest, "VAL001"},
		{"field", &FieldError{Field: "x", Reason: "unknown field"}, http.StatusBadRequest, "VAL001"},
		{"unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), http.StatusConflict, "DB002"},
		{"fk violation", &pgconn.PgError{Code: "23503"}, http.StatusBadRequest, "DB003"},
		{"other pg error", &pgconn.PgError{Code: "XX000"}, http.StatusInternalServerError, "ERR000"},
		{"timeout", fmt.Errorf("list: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "DB006"},
		{"export", &pipeline.ExportError{Module: "bins", Err: errors.New("boom")}, http.StatusInternalServerError, "EXP001"},
		{"export wraps bad params", &pipeline.ExportError{Module: "bins", Err: store.ErrInvalidParams}, http.StatusBadRequest, "VAL001"},
		{"connection refused", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "DB004"},
		{"unknown", errors.New("something odd"), http.StatusInternalServerError, "ERR000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}

	assert.Equal(t, UserMessage{}, MapError(nil))
}

func TestListParams(t *testing.T) {
	q := url.Values{
		"search":              {"  north "},
		"status":              {"Active"},
		"page":                {"3"},
		"pageSize":            {"10000"},
		"filter[countryID]":   {"7"},
		"filter[isActive]":    {"false"},
		"filter[binCode]":     {"A-1"},
		"filter[]":            {"x"},
		"filter[warehouseID]": {""},
	}
	p, err := listParams(q, true)
	require.NoError(t, err)

	assert.Equal(t, "north", p.Search)
	assert.Equal(t, store.StatusActive, p.Status)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, maxPageSize, p.PageSize)
	assert.Equal(t, map[string]any{
		"countryID": int64(7),
		"isActive":  false,
		"binCode":   "A-1",
	}, p.Filters)

	p, err = listParams(url.Values{"page": {"-1"}}, false)
	require.NoError(t, err)
	assert.Zero(t, p.Page, "unpaged")

	p, err = listParams(url.Values{"page": {"0"}}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, defaultPageSize, p.PageSize)

	_, err = listParams(url.Values{"status": {"archived"}}, true)
	assert.ErrorIs(t, err, store.ErrInvalidParams)
}
