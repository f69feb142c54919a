package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AndrewLester/ntpal-client/internal/system"
	"github.com/AndrewLester/ntpal-client/internal/templates"
	"github.com/AndrewLester/ntpal-client/pkg/ntpal"
	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SyncRequest struct {
	Orig string
}

type SyncResponse struct {
	Orig, Recv, Xmt string
}

type TimeResponse struct {
	Host   string       `json:"host"`
	Cached bool         `json:"cached"`
	Record ntpal.Record `json:"record"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type reportServer struct {
	log     *slog.Logger
	client  *ntpal.Client
	cache   *ttlcache.Cache[string, ntpal.Record]
	timeout time.Duration
	version ntpal.Version
}

func newReportServer(log *slog.Logger, client *ntpal.Client, cacheTTL, timeout time.Duration, version ntpal.Version) *reportServer {
	return &reportServer{
		log:     log,
		client:  client,
		cache:   ttlcache.New(ttlcache.WithTTL[string, ntpal.Record](cacheTTL)),
		timeout: timeout,
		version: version,
	}
}

func (s *reportServer) router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/time/{host}", s.handleTime).Methods(http.MethodGet)
	router.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return router
}

func (s *reportServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := templates.Index{
		Region: strings.ToUpper(os.Getenv("FLY_REGION")),
		Time:   time.Now().UTC().Format(time.RFC3339Nano),
	}

	// Cross-origin isolation raises performance.now() precision for /sync clients.
	headerMap := w.Header()
	headerMap.Add("Cross-Origin-Opener-Policy", "same-origin")
	headerMap.Add("Cross-Origin-Embedder-Policy", "require-corp")

	if err := templates.TemplateExecutor.ExecuteTemplate(w, "index.tmpl.html", data); err != nil {
		s.log.Error("render index", "error", err)
	}
}

func (s *reportServer) handleTime(w http.ResponseWriter, r *http.Request) {
	host := mux.Vars(r)["host"]

	port := ntpal.DefaultPort
	if value := r.URL.Query().Get("port"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "port must be an integer"})
			return
		}
		port = parsed
	}
	version := s.version
	if value := r.URL.Query().Get("version"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 || parsed > 255 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unsupported version " + value})
			return
		}
		version = ntpal.Version(parsed)
	}

	key := host + "|" + strconv.Itoa(port) + "|" + strconv.Itoa(int(version))
	if item := s.cache.Get(key); item != nil {
		writeJSON(w, http.StatusOK, TimeResponse{Host: host, Cached: true, Record: item.Value()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	result, err := s.client.RequestTime(ctx, host, port, version)
	if err != nil {
		s.log.Warn("ntp query failed", "host", host, "port", port, "error", err)
		writeJSON(w, statusForError(err), ErrorResponse{Error: err.Error()})
		return
	}

	record := result.Record()
	s.cache.Set(key, record, ttlcache.DefaultTTL)
	writeJSON(w, http.StatusOK, TimeResponse{Host: host, Record: record})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ntpal.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *reportServer) handleSync(w http.ResponseWriter, r *http.Request) {
	var syncRequest SyncRequest
	err := json.NewDecoder(r.Body).Decode(&syncRequest)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recv := strconv.FormatUint(system.GetSystemTime(), 10)

	syncResponse := SyncResponse{
		Orig: syncRequest.Orig,
		Recv: recv,
		Xmt:  "",
	}

	syncResponse.Xmt = strconv.FormatUint(system.GetSystemTime(), 10)
	writeJSON(w, http.StatusOK, syncResponse)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
