package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/stockdiary/internal/observation"
	"github.com/TobiSchelling/stockdiary/internal/store"
)

// entryForm is the add page form state.
type entryForm struct {
	ID       string
	Date     string
	Code     string
	Name     string
	Price    string
	Industry string
	Concept  string
	Forecast string
	Comment  string
}

func formFromInput(id string, in observation.Input) entryForm {
	return entryForm{
		ID:       id,
		Date:     in.Date,
		Code:     in.TickerCode,
		Name:     in.TickerName,
		Price:    in.Price,
		Industry: strings.Join(in.Industry, ", "),
		Concept:  strings.Join(in.Concept, ", "),
		Forecast: in.Forecast,
		Comment:  in.Comment,
	}
}

// postedInput reads the entry form. Tag fields may be repeated or hold a
// comma separated list.
func postedInput(c *gin.Context) observation.Input {
	return observation.Input{
		Date:       c.PostForm("date"),
		TickerCode: c.PostForm("stockNumber"),
		TickerName: c.PostForm("stockName"),
		Price:      c.PostForm("price"),
		Industry:   observation.ParseTags(strings.Join(c.PostFormArray("industry"), ",")),
		Concept:    observation.ParseTags(strings.Join(c.PostFormArray("notion"), ",")),
		Forecast:   c.PostForm("future"),
		Comment:    c.PostForm("comment"),
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	fl := flashFrom(c)

	obs, err := s.svc.Observations(c.Request.Context(), query)
	if err != nil {
		fl = &flash{Message: "Could not load the journal: " + err.Error(), Error: true}
	}

	s.render(c, http.StatusOK, "index.html", gin.H{
		"Observations": obs,
		"Query":        query,
		"Flash":        fl,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	snap, err := s.svc.Refresh(c.Request.Context())
	if err != nil {
		redirect(c, "/", "Refresh failed: "+err.Error(), true)
		return
	}
	redirect(c, "/", fmt.Sprintf("Loaded %d observations", len(snap.Observations)), false)
}

func (s *Server) handleAdd(c *gin.Context) {
	fl := flashFrom(c)
	form := entryForm{Date: s.svc.LastDate(), Forecast: string(observation.ForecastNone)}

	if id := c.Query("edit"); id != "" {
		d, err := s.svc.Draft(id)
		switch {
		case err != nil:
			fl = &flash{Message: err.Error(), Error: true}
		case d == nil:
			fl = &flash{Message: "Draft not found", Error: true}
		default:
			form = formFromInput(d.ID, observation.FromObservation(*d))
		}
	}

	s.renderAdd(c, http.StatusOK, form, fl)
}

func (s *Server) renderAdd(c *gin.Context, status int, form entryForm, fl *flash) {
	drafts, err := s.svc.Drafts()
	if err != nil && fl == nil {
		fl = &flash{Message: err.Error(), Error: true}
	}
	s.render(c, status, "add.html", gin.H{
		"Drafts": drafts,
		"Form":   form,
		"Flash":  fl,
	})
}

func (s *Server) handleSaveDraft(c *gin.Context) {
	id := c.PostForm("uuid")
	in := postedInput(c)

	if _, err := s.svc.SaveDraft(c.Request.Context(), id, in); err != nil {
		status := http.StatusInternalServerError
		if isValidation(err) {
			status = http.StatusUnprocessableEntity
		}
		s.renderAdd(c, status, formFromInput(id, in), &flash{Message: err.Error(), Error: true})
		return
	}
	redirect(c, "/add", "Draft saved", false)
}

func (s *Server) handleDeleteDraft(c *gin.Context) {
	if _, err := s.svc.RemoveDraft(c.Param("id")); err != nil {
		redirect(c, "/add", err.Error(), true)
		return
	}
	redirect(c, "/add", "", false)
}

func (s *Server) handleSubmit(c *gin.Context) {
	res, err := s.svc.Submit(c.Request.Context())
	if err != nil {
		msg := err.Error()
		if errors.Is(err, store.ErrConflict) {
			msg = "The journal changed since it was loaded. Your drafts are kept; submit again."
		}
		redirect(c, "/add", msg, true)
		return
	}
	redirect(c, "/", fmt.Sprintf("Submitted %d observations", res.Submitted), false)
}

func (s *Server) handleAnalysis(c *gin.Context) {
	var fl *flash
	result, err := s.svc.Analysis(c.Request.Context())
	if err != nil {
		fl = &flash{Message: "Could not load the journal: " + err.Error(), Error: true}
	}
	s.render(c, http.StatusOK, "analysis.html", gin.H{
		"Result": result,
		"Flash":  fl,
	})
}

func (s *Server) handleQuotes(c *gin.Context) {
	var fl *flash
	rows, err := s.svc.Quotes(c.Request.Context())
	if err != nil {
		fl = &flash{Message: "Could not load prices: " + err.Error(), Error: true}
	}
	s.render(c, http.StatusOK, "quotes.html", gin.H{
		"Rows":  rows,
		"Flash": fl,
	})
}
