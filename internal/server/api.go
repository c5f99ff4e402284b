package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/stockdiary/internal/analysis"
	"github.com/TobiSchelling/stockdiary/internal/observation"
)

type tickerJSON struct {
	analysis.TickerSummary
	Change string `json:"change"`
}

type analysisJSON struct {
	Window            []string            `json:"window"`
	PerTicker         []tickerJSON        `json:"perTicker"`
	IndustryTagCounts []analysis.TagCount `json:"industryTagCounts"`
	ConceptTagCounts  []analysis.TagCount `json:"conceptTagCounts"`
}

func apiError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (s *Server) apiObservations(c *gin.Context) {
	obs, err := s.svc.Observations(c.Request.Context(), c.Query("q"))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, obs)
}

func (s *Server) apiObservation(c *gin.Context) {
	o, ok, err := s.svc.Observation(c.Request.Context(), c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "observation not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) apiAnalysis(c *gin.Context) {
	r, err := s.svc.Analysis(c.Request.Context())
	if err != nil {
		apiError(c, err)
		return
	}

	out := analysisJSON{
		Window:            r.Window,
		PerTicker:         make([]tickerJSON, 0, len(r.PerTicker)),
		IndustryTagCounts: r.IndustryTagCounts,
		ConceptTagCounts:  r.ConceptTagCounts,
	}
	for _, t := range r.PerTicker {
		out.PerTicker = append(out.PerTicker, tickerJSON{TickerSummary: t, Change: t.ChangeText()})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) apiQuotes(c *gin.Context) {
	rows, err := s.svc.Quotes(c.Request.Context())
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) apiDrafts(c *gin.Context) {
	drafts, err := s.svc.Drafts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, drafts)
}

func (s *Server) apiSaveDraft(c *gin.Context) {
	var in observation.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := c.Param("id")
	if id != "" {
		existing, err := s.svc.Draft(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if existing == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
			return
		}
	}

	o, err := s.svc.SaveDraft(c.Request.Context(), id, in)
	if err != nil {
		if isValidation(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusCreated
	if id != "" {
		status = http.StatusOK
	}
	c.JSON(status, o)
}

func (s *Server) apiDeleteDraft(c *gin.Context) {
	removed, err := s.svc.RemoveDraft(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) apiSubmit(c *gin.Context) {
	res, err := s.svc.Submit(c.Request.Context())
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
