package http

import (
	"net/http"
	"time"

	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/services"
)

type dailyReportResponse struct {
	core.DailyReport
	Breakdown core.ReportBreakdown `json:"breakdown"`
}

// handleListTransactions lists the whole ledger newest first, or one day
// with ?date=YYYY-MM-DD.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	v := r.URL.Query().Get("date")
	if v == "" {
		writeJSON(w, http.StatusOK, s.deps.Ledger.All())
		return
	}
	day, ok := s.dayParam(w, v)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.dailyReport(r, day).Transactions)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var in core.NewTransaction
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	in.Description = sanitizeInput(in.Description)
	tx, err := s.deps.Cashier.RecordTransaction(r.Context(), sess, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	if !s.deps.Ledger.Remove(r.Context(), r.PathValue("id")) {
		handleServiceError(w, r, core.ErrNotFound)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	writeJSON(w, http.StatusOK, s.deps.Ledger.Totals())
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	day, ok := s.dayParam(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}
	report := s.dailyReport(r, day)
	writeJSON(w, http.StatusOK, dailyReportResponse{DailyReport: report, Breakdown: report.Breakdown()})
}

// handleDailyReportPage renders the printable daily report.
func (s *Server) handleDailyReportPage(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	day, err := parseDay(r.URL.Query().Get("date"), s.today(), s.deps.Ledger.Location())
	if err != nil {
		http.Error(w, "Data inválida (use AAAA-MM-DD)", http.StatusBadRequest)
		return
	}
	report := s.dailyReport(r, day)
	data := struct {
		Report      core.DailyReport
		Breakdown   core.ReportBreakdown
		Manager     string
		GeneratedAt time.Time
	}{
		Report:      report,
		Breakdown:   report.Breakdown(),
		Manager:     sess.ManagerName(),
		GeneratedAt: s.today(),
	}
	s.render(w, r, "report.html", data)
}

func (s *Server) dayParam(w http.ResponseWriter, v string) (time.Time, bool) {
	day, err := parseDay(v, s.today(), s.deps.Ledger.Location())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Data inválida (use AAAA-MM-DD)", Field: "date"})
		return time.Time{}, false
	}
	return day, true
}

// dailyReport returns day's report, caching it unless day is today.
func (s *Server) dailyReport(r *http.Request, day time.Time) core.DailyReport {
	loc := s.deps.Ledger.Location()
	if core.SameDay(day, s.today(), loc) {
		return s.deps.Ledger.ReportForDay(day)
	}

	key := day.In(loc).Format(dayLayout)
	if report, found := s.reports.Get(key); found {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Report cache hit", "day", key)
		return report
	}
	report := s.deps.Ledger.ReportForDay(day)
	s.reports.Set(key, report)
	return report
}
