package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mkraev/freedom-calculator/internal/export"
	"github.com/mkraev/freedom-calculator/internal/model"
	"github.com/mkraev/freedom-calculator/internal/pipeline"
)

// 32 MiB covers any broker report seen so far.
const maxUploadBytes = 32 << 20

var currencies = []string{"USD", "EUR", "GBP"}

type indexData struct {
	Runs            []*Run
	Currencies      []string
	DefaultCurrency string
	Error           string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index", indexData{
		Runs:            s.store.List(),
		Currencies:      currencies,
		DefaultCurrency: s.cfg.Currency,
		Error:           r.URL.Query().Get("error"),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.uploads.Allow() {
		http.Error(w, "too many uploads, slow down", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.uploadError(w, r, "upload too large or malformed")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	dir, err := os.MkdirTemp(s.cfg.Workdir, "run-*")
	if err != nil {
		// Workdir may not exist when serve was started directly.
		dir, err = os.MkdirTemp("", "freedom-run-*")
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	defer func() { _ = os.RemoveAll(dir) }()

	brokerPath, brokerName, err := s.saveUpload(r, "broker", dir)
	if err != nil {
		s.uploadError(w, r, "broker report is required")
		return
	}

	ratesPath, _, err := s.saveUpload(r, "rates", dir)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		s.uploadError(w, r, "rates file could not be read")
		return
	}

	previousPaths, err := s.savePrevious(r, dir)
	if err != nil {
		s.uploadError(w, r, "previous report could not be read")
		return
	}

	currency := r.FormValue("currency")
	if currency == "" {
		currency = s.cfg.Currency
	}

	report, err := pipeline.Run(r.Context(), pipeline.Options{
		BrokerPath:    brokerPath,
		RatesPath:     ratesPath,
		PreviousPaths: previousPaths,
		Currency:      currency,
		RatesBaseURL:  s.cfg.Rates.BaseURL,
	})
	if err != nil {
		s.metrics.runFails.Inc()
		log.Error().Err(err).Str("broker", brokerName).Msg("report run failed")
		s.uploadError(w, r, err.Error())
		return
	}

	s.metrics.runs.Inc()
	run := s.store.Add(brokerName, report)
	http.Redirect(w, r, "/reports/"+run.ID, http.StatusSeeOther)
}

// saveUpload stores one uploaded form file into dir and returns its
// path and original name.
func (s *Server) saveUpload(r *http.Request, field, dir string) (path, name string, err error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = file.Close() }()

	name = filepath.Base(header.Filename)
	path = filepath.Join(dir, field+filepath.Ext(name))
	if err := writeFile(path, file); err != nil {
		return "", "", err
	}
	return path, name, nil
}

func (s *Server) savePrevious(r *http.Request, dir string) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var paths []string
	for i, header := range r.MultipartForm.File["previous"] {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("previous-%d%s", i, filepath.Ext(header.Filename)))
		err = writeFile(path, file)
		_ = file.Close()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, src multipart.File) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()
	_, err = io.Copy(dst, src)
	return err
}

func (s *Server) uploadError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

type runData struct {
	Run             *Run
	Negative        []model.TickerSummary
	Trades          []model.ProcessedTrade
	Tickers         []string
	Operations      []string
	TickerFilter    string
	OperationFilter string
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	tickerFilter := r.URL.Query().Get("ticker")
	operationFilter := r.URL.Query().Get("operation")

	var trades []model.ProcessedTrade
	tickerSet := map[string]bool{}
	operationSet := map[string]bool{}
	var tickers, operations []string
	for _, pt := range run.Report.Trades {
		if !tickerSet[pt.Ticker] {
			tickerSet[pt.Ticker] = true
			tickers = append(tickers, pt.Ticker)
		}
		if !operationSet[pt.Operation.String()] {
			operationSet[pt.Operation.String()] = true
			operations = append(operations, pt.Operation.String())
		}
		if tickerFilter != "" && pt.Ticker != tickerFilter {
			continue
		}
		if operationFilter != "" && pt.Operation.String() != operationFilter {
			continue
		}
		trades = append(trades, pt)
	}

	s.render(w, "run", runData{
		Run:             run,
		Negative:        run.Report.NegativeTickers(),
		Trades:          trades,
		Tickers:         tickers,
		Operations:      operations,
		TickerFilter:    tickerFilter,
		OperationFilter: operationFilter,
	})
}

func (s *Server) handleDetailsCSV(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, export.DetailsFile, export.DetailRows)
}

func (s *Server) handleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, export.SummaryFile, export.SummaryRows)
}

func (s *Server) handleClosedCSV(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, export.ClosedFile, export.ClosedRows)
}

func (s *Server) serveCSV(w http.ResponseWriter, r *http.Request, name string, rows func(*model.Report) [][]string) {
	run, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := export.RenderCSV(rows(run.Report))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleClosedPDF(w http.ResponseWriter, r *http.Request) {
	run, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := export.RenderPDF(run.Report)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="closed.pdf"`)
	_, _ = w.Write(data)
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	type listItem struct {
		ID        string `json:"id"`
		Broker    string `json:"broker"`
		Currency  string `json:"currency"`
		CreatedAt string `json:"createdAt"`
	}

	runs := s.store.List()
	items := make([]listItem, 0, len(runs))
	for _, run := range runs {
		items = append(items, listItem{
			ID:        run.ID,
			Broker:    run.Broker,
			Currency:  run.Report.Currency,
			CreatedAt: run.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"runs":   s.store.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("json encode failed")
	}
}
