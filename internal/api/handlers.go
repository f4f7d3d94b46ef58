package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/christophergentle/mooddiary/internal/diary"
	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/sparkline"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/christophergentle/mooddiary/internal/stats"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	dateLayout       = "2006-01-02"
	defaultListLimit = 50
	defaultChartDays = 30
)

type createEntryRequest struct {
	Mood mood.Category `json:"mood"`
	Note string        `json:"note"`
}

type scoreRequest struct {
	Note string `json:"note"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

type recommendationRequest struct {
	Mood  mood.Category `json:"mood"`
	Score *float64      `json:"score"`
	Note  string        `json:"note"`
}

type recommendationResponse struct {
	Message string `json:"message"`
	Rule    string `json:"rule"`
}

type listResponse struct {
	Entries []state.MoodEntry `json:"entries"`
	Count   int               `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	result, err := s.service.Save(r.Context(), req.Mood, req.Note)
	switch {
	case errors.Is(err, diary.ErrInvalidMood):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to save entry")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var entries []state.MoodEntry
	var err error
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, perr := s.parseRange(q.Get("from"), q.Get("to"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		entries, err = s.service.Range(r.Context(), from, to)
	} else {
		limit, lerr := intParam(q.Get("limit"), defaultListLimit)
		offset, oerr := intParam(q.Get("offset"), 0)
		if lerr != nil || oerr != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "limit and offset must be non-negative integers")
			return
		}
		entries, err = s.service.List(r.Context(), limit, offset)
	}
	if err != nil {
		s.storeError(w, err)
		return
	}

	if entries == nil {
		entries = []state.MoodEntry{}
	}
	writeJSON(w, http.StatusOK, listResponse{Entries: entries, Count: len(entries)})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.Today(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRescore(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.Rescore(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
		return
	}

	entries, err := s.service.LastDays(r.Context(), days)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(entries, s.now()))
}

func (s *Server) handleMoodCounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := s.parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	counts, err := s.service.MoodCounts(r.Context(), from, to)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleSparkline(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), defaultChartDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
		return
	}

	entries, err := s.service.LastDays(r.Context(), days)
	if err != nil {
		s.storeError(w, err)
		return
	}

	img, err := s.sparklines.GenerateMoodSparkline(stats.Daily(entries, s.location))
	s.writePNG(w, img, err)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r.URL.Query().Get("year"), s.now().Year())
	if err != nil || year == 0 {
		writeError(w, http.StatusBadRequest, "year must be a positive integer")
		return
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.location)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, s.location)
	entries, err := s.service.Range(r.Context(), from, to)
	if err != nil {
		s.storeError(w, err)
		return
	}

	img, err := s.calendars.GenerateYearCalendar(year, stats.Daily(entries, s.location))
	s.writePNG(w, img, err)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Score: s.service.Score(req.Note)})
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if !req.Mood.Valid() {
		writeError(w, http.StatusBadRequest, "mood is required")
		return
	}

	message, rule := s.service.Recommend(req.Mood, req.Score, req.Note)
	writeJSON(w, http.StatusOK, recommendationResponse{Message: message, Rule: rule.String()})
}

func (s *Server) writePNG(w http.ResponseWriter, img []byte, err error) {
	switch {
	case errors.Is(err, sparkline.ErrNoData):
		writeError(w, http.StatusNotFound, "no entries in range")
		return
	case err != nil:
		logrus.WithError(err).Error("Failed to render chart")
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	logrus.WithError(err).Error("Store request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := s.now().In(s.location)
	from, to := now, now
	var err error
	if fromStr != "" {
		if from, err = time.ParseInLocation(dateLayout, fromStr, s.location); err != nil {
			return from, to, errors.New("from must be YYYY-MM-DD")
		}
	}
	if toStr != "" {
		if to, err = time.ParseInLocation(dateLayout, toStr, s.location); err != nil {
			return from, to, errors.New("to must be YYYY-MM-DD")
		}
	}
	if from.After(to) {
		return from, to, errors.New("from must not be after to")
	}
	return from, to, nil
}

func intParam(value string, defaultValue int) (int, error) {
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
