package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/search"
	"github.com/poiesic/catalogsync/transform"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

type fullSyncRequest struct {
	Endpoint string `json:"endpoint"`
	Force    bool   `json:"force"`
}

type transformRequest struct {
	Endpoint        string `json:"endpoint"`
	IncludeInvalid  bool   `json:"include_invalid"`
	DuplicatePolicy string `json:"duplicate_policy"`
}

type embeddingSyncRequest struct {
	Force     bool `json:"force"`
	BatchSize int  `json:"batch_size"`
}

type incrementalRequest struct {
	Endpoint string `json:"endpoint"`
}

type syncProductsRequest struct {
	SKUs  []string `json:"skus"`
	Force bool     `json:"force"`
}

type searchRequest struct {
	Query    string           `json:"query"`
	Limit    int              `json:"limit"`
	Category string           `json:"category"`
	MinStock *int64           `json:"min_stock"`
	MinPrice *decimal.Decimal `json:"min_price"`
	MaxPrice *decimal.Decimal `json:"max_price"`
}

func (r *searchRequest) filter() *core.SearchFilter {
	if r.Category == "" && r.MinStock == nil && r.MinPrice == nil && r.MaxPrice == nil {
		return nil
	}
	return &core.SearchFilter{
		Category: r.Category,
		MinStock: r.MinStock,
		MinPrice: r.MinPrice,
		MaxPrice: r.MaxPrice,
	}
}

// SearchHit is the wire form of one search result.
type SearchHit struct {
	SKU       string          `json:"sku"`
	ProductID uuid.UUID       `json:"product_id"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Stock     int64           `json:"stock"`
	Text      string          `json:"text"`
	Score     float32         `json:"score"`
}

// NewSearchHits converts search results to their wire form.
func NewSearchHits(results []*core.SearchResult) []SearchHit {
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			SKU:       r.Record.SKU,
			ProductID: r.Record.ProductID,
			Category:  r.Record.Category,
			Price:     r.Record.Price,
			Stock:     r.Record.Stock,
			Text:      r.Record.Text,
			Score:     r.Score,
		})
	}
	return hits
}

type searchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// decodeBody reads an optional JSON body into v. An empty body keeps the
// zero value.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("error writing response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.service.HealthCheck(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.CollectionInfo(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleFullSync(w http.ResponseWriter, r *http.Request) {
	var req fullSyncRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.RunFullSync(r.Context(), req.Endpoint, req.Force))
}

func (s *Server) handleTransformAndLoad(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var policy transform.DuplicatePolicy
	if req.DuplicatePolicy != "" {
		var err error
		if policy, err = transform.ParseDuplicatePolicy(req.DuplicatePolicy); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, s.service.RunTransformAndLoad(r.Context(), req.Endpoint, req.IncludeInvalid, policy))
}

func (s *Server) handleEmbeddingSync(w http.ResponseWriter, r *http.Request) {
	var req embeddingSyncRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.BatchSize < 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("batch_size cannot be negative"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.RunEmbeddingSync(r.Context(), req.Force, req.BatchSize))
}

func (s *Server) handleDeletionSync(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.RunDeletionSync(r.Context()))
}

func (s *Server) handleIncremental(w http.ResponseWriter, r *http.Request) {
	var req incrementalRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.RunIncremental(r.Context(), req.Endpoint))
}

func (s *Server) handleSyncProducts(w http.ResponseWriter, r *http.Request) {
	var req syncProductsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.SKUs) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("skus is required"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.RunForProducts(r.Context(), req.SKUs, req.Force))
}

// handleSyncProduct takes the source endpoint from the "endpoint" query
// parameter.
func (s *Server) handleSyncProduct(w http.ResponseWriter, r *http.Request) {
	sku := strings.TrimSpace(r.PathValue("sku"))
	if sku == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("sku is required"))
		return
	}
	endpoint := r.URL.Query().Get("endpoint")
	s.writeJSON(w, http.StatusOK, s.service.RunSingleProduct(r.Context(), endpoint, sku))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	results, err := s.service.Search(r.Context(), req.Query, req.Limit, req.filter())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, search.ErrEmptyQuery) || errors.Is(err, search.ErrInvalidPriceRange) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Query: req.Query, Results: NewSearchHits(results)})
}
