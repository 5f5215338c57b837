package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"news-crawler/pkg/domain"
	"news-crawler/pkg/newsservice"
	"news-crawler/pkg/registry"
)

const (
	defaultSource      = "vnexpress"
	errInvalidSource   = "Invalid source. Must be either vnexpress or vietnamnet"
	errInvalidCategory = "Invalid category ID for %s"
)

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := queryString(q.Get("source"), defaultSource)

	if _, err := s.service.Registry().Source(source); err != nil {
		s.respondWithError(w, http.StatusBadRequest, errInvalidSource)
		return
	}
	categoryID, err := strconv.Atoi(q.Get("category_id"))
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, fmt.Sprintf(errInvalidCategory, source))
		return
	}

	res, err := s.service.Crawl(r.Context(), newsservice.Request{
		Source:   source,
		Category: strconv.Itoa(categoryID),
		Pages:    queryInt(q.Get("num_pages"), newsservice.DefaultPages),
		Articles: queryInt(q.Get("num_articles"), newsservice.DefaultArticles),
	})
	switch {
	case errors.Is(err, registry.ErrUnknownCategory):
		s.respondWithError(w, http.StatusBadRequest, fmt.Sprintf(errInvalidCategory, source))
		return
	case errors.Is(err, registry.ErrUnknownSource):
		s.respondWithError(w, http.StatusBadRequest, errInvalidSource)
		return
	case err != nil:
		s.logger.Error("Crawl request failed",
			zap.String("source", source),
			zap.Int("category_id", categoryID),
			zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	articles := res.Articles
	if articles == nil {
		articles = []domain.Article{}
	}
	s.respondWithJSON(w, http.StatusOK, articles)
}

type categoriesResponse struct {
	Categories    map[string]int `json:"categories"`
	CategoryNames map[int]string `json:"category_names"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	source := queryString(r.URL.Query().Get("source"), defaultSource)
	src, err := s.service.Registry().Source(source)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, errInvalidSource)
		return
	}
	s.respondWithJSON(w, http.StatusOK, categoriesResponse{
		Categories:    src.CategoryIDs(),
		CategoryNames: src.CategoryNames(),
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// queryInt parses v, falling back to def when it is missing or malformed.
func queryInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}
