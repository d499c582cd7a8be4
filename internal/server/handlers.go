// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/smartbi/internal/audit"
	"github.com/pdiddy/smartbi/internal/catalog"
	"github.com/pdiddy/smartbi/internal/normalize"
	"github.com/pdiddy/smartbi/pkg/types"
)

type normalizeRequest struct {
	Text           string            `json:"text"`
	UserContext    types.UserContext `json:"user_context"`
	RequestContext types.RequestMeta `json:"request_context"`

	// ReferenceTime anchors relative time phrases (RFC 3339). Empty means now.
	ReferenceTime string `json:"reference_time,omitempty"`

	Debug bool `json:"debug,omitempty"`
}

type normalizeResponse struct {
	Request *types.NormalizedRequest `json:"request"`
	Debug   string                   `json:"debug,omitempty"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleNormalize(c *gin.Context) {
	var body normalizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if body.Text == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	var ref time.Time
	if body.ReferenceTime != "" {
		t, err := time.Parse(time.RFC3339, body.ReferenceTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "reference_time must be RFC 3339"})
			return
		}
		ref = t
	}

	meta := body.RequestContext
	if meta.RequestID == "" {
		meta.RequestID = requestIDFrom(c)
	}
	if meta.RequestTS == "" {
		meta.RequestTS = time.Now().Format(time.RFC3339)
	}

	var debug bytes.Buffer
	opts := normalize.Options{}
	if body.Debug {
		opts.Debug = &debug
	}

	req, err := s.normalizer.Normalize(c.Request.Context(), normalize.Input{
		Text:      body.Text,
		User:      body.UserContext,
		Request:   meta,
		Reference: ref,
	}, opts)
	s.record(c, body.Text, meta, req, err)

	if err != nil {
		var ne *normalize.NormalizationError
		if errors.As(err, &ne) {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "normalization failed", Errors: ne.Errors})
			return
		}
		s.logger.Error("normalize", "request_id", meta.RequestID, "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, normalizeResponse{Request: req, Debug: debug.String()})
}

func (s *Server) record(c *gin.Context, text string, meta types.RequestMeta, req *types.NormalizedRequest, err error) {
	if s.recorder == nil {
		return
	}
	if meta.Channel == "" {
		meta.Channel = "api"
	}
	if _, rerr := s.recorder.Record(c.Request.Context(), audit.NewRecord(text, meta, req, err)); rerr != nil {
		s.logger.Warn("audit record failed", "request_id", meta.RequestID, "err", rerr)
	}
}

func (s *Server) handleValidate(c *gin.Context) {
	var doc types.Document
	if err := c.ShouldBindJSON(&doc); err != nil || doc == nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be a JSON object"})
		return
	}
	ok, errs := s.validator.Validate(doc)
	if errs == nil {
		errs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": ok, "errors": errs})
}

func (s *Server) handleHints(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}
	topK := catalog.DefaultTopK
	if v := c.Query("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "top_k must be a positive integer"})
			return
		}
		topK = n
	}

	path := s.catalogPath
	if path == "" {
		path = catalog.DefaultPath
	}
	entries, err := catalog.Load(path)
	if err != nil {
		s.logger.Error("catalog", "path", path, "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	scores := catalog.Score(text, entries)
	if scores == nil {
		scores = []types.MetricScore{}
	}
	c.JSON(http.StatusOK, gin.H{
		"metric_hints": nonNil(catalog.Retrieve(text, entries, topK)),
		"scores":       scores,
	})
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
