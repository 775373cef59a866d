package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/wms/internal/modules"
)

type moduleInfo struct {
	Key     string       `json:"key"`
	Name    string       `json:"name"`
	Label   string       `json:"label"`
	Columns []columnInfo `json:"columns"`
}

type columnInfo struct {
	Key       string `json:"key"`
	Header    string `json:"header"`
	Type      string `json:"type,omitempty"`
	Required  bool   `json:"required"`
	Lookup    string `json:"lookup,omitempty"`
	Parent    string `json:"parent,omitempty"`
	ExportKey string `json:"exportKey,omitempty"`
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	out := make([]moduleInfo, 0, len(s.registry.Keys()))
	for _, key := range s.registry.Keys() {
		cfg, err := s.registry.Get(key)
		if err != nil {
			respondError(w, r, err)
			return
		}
		info := moduleInfo{Key: cfg.Key, Name: cfg.Name, Label: cfg.Label}
		for _, c := range cfg.Columns {
			ci := columnInfo{
				Key:       c.RecordKey(),
				Header:    c.Header,
				Type:      string(c.Type),
				Required:  c.Required,
				Parent:    c.Parent,
				ExportKey: c.ExportKey,
			}
			if c.ResolvesTo != nil {
				ci.Lookup = c.ResolvesTo.Table
			}
			info.Columns = append(info.Columns, ci)
		}
		out = append(out, info)
	}
	writeJSON(w, out)
}

// module loads the {module} config and checks it supports op.
func (s *Server) module(r *http.Request, op string) (*modules.ModuleConfig, error) {
	cfg, err := s.registry.Get(chi.URLParam(r, "module"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Require(op); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.module(r, "fetch")
	if err != nil {
		respondError(w, r, err)
		return
	}
	params, err := listParams(r.URL.Query(), true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	result, err := cfg.Fetch(r.Context(), s.db, params)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleLite(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.module(r, "lite")
	if err != nil {
		respondError(w, r, err)
		return
	}
	params, err := listParams(r.URL.Query(), false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	recs, err := cfg.Lite(r.Context(), s.db, params)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, recs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.module(r, "get")
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := recordID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := cfg.Get(r.Context(), s.db, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.module(r, "create")
	if err != nil {
		respondError(w, r, err)
		return
	}
	in, err := decodeRecord(r, cfg, false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := cfg.Create(r.Context(), s.db, in, s.userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.module(r, "update")
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := recordID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	in, err := decodeRecord(r, cfg, true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := cfg.Update(r.Context(), s.db, id, in, s.userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.module(r, "delete")
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := recordID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := cfg.Delete(r.Context(), s.db, id, s.userID(r)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
