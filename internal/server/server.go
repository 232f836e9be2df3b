// Package server exposes the dashboard state and rendered charts over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"OrderFlowDash/internal/api"
	"OrderFlowDash/internal/config"
	"OrderFlowDash/internal/model"
	"OrderFlowDash/internal/view"
)

// bootTimeout bounds the synchronous part of a route change.
const bootTimeout = 60 * time.Second

// Server serves one App.
type Server struct {
	app     *view.App
	router  *mux.Router
	metrics *httpMetrics
	srv     *http.Server
}

// New builds the router. Metrics are registered with reg and served from
// gatherer; either may be nil.
func New(app *view.App, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Server {
	s := &Server{app: app, router: mux.NewRouter(), metrics: newHTTPMetrics(reg)}
	s.router.Use(s.metrics.instrument)

	s.router.HandleFunc("/charts", s.listCharts).Methods(http.MethodGet)
	s.router.HandleFunc("/charts/{name}", s.getChart).Methods(http.MethodGet)
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiRouter.Use(ZstdMiddleware)
	for _, r := range s.routes() {
		apiRouter.HandleFunc(r.Path, r.Handler).Methods(r.Method)
	}
	return s
}

type apiRoute struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

func (s *Server) routes() []apiRoute {
	return []apiRoute{
		{Path: "/state", Method: http.MethodGet, Handler: s.getState},
		{Path: "/route", Method: http.MethodPost, Handler: s.postRoute},
		{Path: "/resize", Method: http.MethodPost, Handler: s.postResize},
		{Path: "/trend", Method: http.MethodPost, Handler: s.postTrend},
		{Path: "/history", Method: http.MethodPost, Handler: s.postHistory},
		{Path: "/daily/{type}/sort", Method: http.MethodPost, Handler: s.postDailySort},
		{Path: "/daily/{type}/visible", Method: http.MethodPost, Handler: s.postDailyVisible},
		{Path: "/daily/{type}/page", Method: http.MethodPost, Handler: s.postDailyPage},
		{Path: "/daily/{type}/batch", Method: http.MethodPost, Handler: s.postBatch},
		{Path: "/settings", Method: http.MethodGet, Handler: s.getSettings},
		{Path: "/settings/{form}", Method: http.MethodPost, Handler: s.postSettings},
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr in the background.
func (s *Server) Start(addr string) {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[INFO] dashboard server listening on %s", addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] dashboard server: %v", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}

func boardType(r *http.Request) (model.BoardType, error) {
	t := model.BoardType(mux.Vars(r)["type"])
	if !t.Valid() {
		return "", fmt.Errorf("unknown board type %q", t)
	}
	return t, nil
}

func (s *Server) listCharts(w http.ResponseWriter, r *http.Request) {
	sink := s.app.Sink()
	out := make([]any, 0, sink.Len())
	for _, name := range sink.Names() {
		if img, ok := sink.Get(name); ok {
			out = append(out, img)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	img, ok := s.app.Sink().Get(mux.Vars(r)["name"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
	w.Header().Set("Last-Modified", img.UpdatedAt.UTC().Format(http.TimeFormat))
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(img.PNG); err != nil {
		log.Printf("[WARN] write chart: %v", err)
	}
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.State())
}

type routeRequest struct {
	// Location is a hash such as "#/trend?board=BK0475"; it wins over Route.
	Location string            `json:"location"`
	Route    string            `json:"route"`
	Query    map[string]string `json:"query"`
}

func (s *Server) postRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	route, query := view.ParseRoute(req.Route), req.Query
	if req.Location != "" {
		route, query = view.ParseLocation(req.Location)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), bootTimeout)
	defer cancel()
	s.app.Boot(ctx, route, query)
	writeJSON(w, http.StatusOK, s.app.State())
}

type resizeRequest struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

func (s *Server) postResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Width <= 0 || req.Height <= 0 || req.DPR <= 0 || req.DPR > 4 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid surface %dx%d@%v", req.Width, req.Height, req.DPR))
		return
	}
	s.app.Resize(req.Width, req.Height, req.DPR)
	writeJSON(w, http.StatusOK, map[string]int{"charts": s.app.Sink().Len()})
}

func (s *Server) postTrend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Board string `json:"board"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.LoadTrendView(r.Context(), req.Board); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"board": s.app.TrendCode()})
}

func (s *Server) postHistory(w http.ResponseWriter, r *http.Request) {
	var q view.HistoryQuery
	if err := decode(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.LoadHistory(r.Context(), q); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.History())
}

func (s *Server) postDailySort(w http.ResponseWriter, r *http.Request) {
	t, err := boardType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Sort   string `json:"sort"`
		Filter string `json:"filter"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"order": s.app.SortDaily(t, req.Sort, req.Filter)})
}

func (s *Server) postDailyVisible(w http.ResponseWriter, r *http.Request) {
	t, err := boardType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Codes []string `json:"codes"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.app.SetVisible(t, req.Codes)
	writeJSON(w, http.StatusOK, s.app.DailyCards(t))
}

func (s *Server) postDailyPage(w http.ResponseWriter, r *http.Request) {
	t, err := boardType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Page int `json:"page"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.app.ShowPage(t, req.Page)
	writeJSON(w, http.StatusOK, s.app.DailyCards(t))
}

func (s *Server) postBatch(w http.ResponseWriter, r *http.Request) {
	t, err := boardType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if err := s.app.StartBatch(r.Context(), t, limit); err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && se.Status == http.StatusConflict {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": s.app.Batch(t), "text": s.app.BatchText(t)})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Settings())
}

func (s *Server) postSettings(w http.ResponseWriter, r *http.Request) {
	var bad, err error
	switch form := mux.Vars(r)["form"]; form {
	case "realtime":
		var f view.RealtimeForm
		if bad = decode(r, &f); bad == nil {
			_, err = s.app.SaveRealtime(r.Context(), f)
		}
	case "boards":
		var f view.BoardsForm
		if bad = decode(r, &f); bad == nil {
			_, err = s.app.SaveBoards(r.Context(), f)
		}
	case "market_agg":
		var f view.MarketAggForm
		if bad = decode(r, &f); bad == nil {
			_, err = s.app.SaveMarketAgg(r.Context(), f)
		}
	case "watchlist":
		var f struct {
			Text string `json:"text"`
		}
		if bad = decode(r, &f); bad == nil {
			_, err = s.app.SaveWatchlist(r.Context(), f.Text)
		}
	case "board_trend":
		var f config.BoardTrend
		if bad = decode(r, &f); bad == nil {
			_, err = s.app.SaveBoardTrend(r.Context(), f)
		}
	default:
		http.NotFound(w, r)
		return
	}
	if bad != nil {
		writeError(w, http.StatusBadRequest, bad)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Settings())
}
