package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/engine"
	"ipv4intel/internal/ipcheck"
	"ipv4intel/internal/ipv4"
	"ipv4intel/internal/resolver"
	"ipv4intel/internal/scoring"
)

// MaxGenerate caps the count accepted by /v1/generate
const MaxGenerate = 100

// MaxBatch caps the number of addresses in one batch request
const MaxBatch = 1000

// Options wires the lookup services into the HTTP API. Geo and Hostnames
// may be nil to disable their routes.
type Options struct {
	Reputation     engine.ReputationChecker
	Network        engine.NetworkResolver
	Geo            ipcheck.GeoLocator
	Hostnames      engine.HostnameResolver
	Inspector      *engine.Inspector
	Scheduler      *engine.Scheduler
	RateLimitRPS   int
	RateLimitBurst int
	RequestTimeout time.Duration
}

// Handler manages HTTP endpoints for the ipintel service
type Handler struct {
	opts    Options
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewHandler creates a new Handler
func NewHandler(opts Options, logger *slog.Logger) *Handler {
	initMetrics()

	limit := rate.Inf
	if opts.RateLimitRPS > 0 {
		limit = rate.Limit(opts.RateLimitRPS)
	}
	burst := opts.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &Handler{
		opts:    opts,
		logger:  logger.With("module", "server.handler"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Router builds the route table with its middleware chain
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, instrument(h.logger))

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// health and metrics stay reachable under load
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(rateLimit(h.limiter, h.logger))
	v1.HandleFunc("/ip/{ip}", h.handleInspect).Methods(http.MethodGet)
	v1.HandleFunc("/ip/{ip}/reputation", h.handleReputation).Methods(http.MethodGet)
	v1.HandleFunc("/ip/{ip}/network", h.handleNetwork).Methods(http.MethodGet)
	v1.HandleFunc("/ip/{ip}/geo", h.handleGeo).Methods(http.MethodGet)
	v1.HandleFunc("/ip/{ip}/dns", h.handleDNS).Methods(http.MethodGet)
	v1.HandleFunc("/ip/{ip}/class", h.handleClass).Methods(http.MethodGet)
	v1.HandleFunc("/generate", h.handleGenerate).Methods(http.MethodGet)
	v1.HandleFunc("/convert/{n}", h.handleConvert).Methods(http.MethodGet)
	v1.HandleFunc("/batch", h.handleBatch).Methods(http.MethodPost)
	v1.HandleFunc("/stream", h.handleStream).Methods(http.MethodGet)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

type reputationResponse struct {
	domain.ReputationRecord
	Score domain.ReputationScore `json:"score"`
}

func (h *Handler) handleReputation(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.parseAddr(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	rec := h.opts.Reputation.Check(ctx, addr)
	writeJSON(w, http.StatusOK, reputationResponse{
		ReputationRecord: rec,
		Score:            scoring.ComputeScore(rec),
	})
}

func (h *Handler) handleNetwork(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.parseAddr(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	data, err := h.opts.Network.Resolve(ctx, addr)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) handleGeo(w http.ResponseWriter, r *http.Request) {
	if h.opts.Geo == nil {
		writeError(w, http.StatusNotImplemented, "geolocation disabled")
		return
	}
	addr, ok := h.parseAddr(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	geo, err := h.opts.Geo.Locate(ctx, addr)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if expected := r.URL.Query().Get("expected_country"); expected != "" {
		match := ipcheck.CheckGeoMatch(h.logger, expected, geo.CountryCode, geo.IP)
		geo.CountryMatch = &match
	}

	writeJSON(w, http.StatusOK, geo)
}

func (h *Handler) handleDNS(w http.ResponseWriter, r *http.Request) {
	if h.opts.Hostnames == nil {
		writeError(w, http.StatusNotImplemented, "hostname lookup disabled")
		return
	}
	addr, ok := h.parseAddr(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	data, err := h.opts.Hostnames.Lookup(ctx, addr)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) handleClass(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.parseAddr(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, domain.ClassInfo{
		IP:      addr.String(),
		Class:   string(ipv4.ClassOf(addr)),
		Integer: ipv4.ToUint32(addr),
	})
}

func (h *Handler) handleInspect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	report, err := h.opts.Inspector.Inspect(ctx, mux.Vars(r)["ip"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	class, err := ipv4.ParseClass(q.Get("class"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count := 1
	if raw := q.Get("count"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 1 || count > MaxGenerate {
			writeError(w, http.StatusBadRequest, "count must be between 1 and "+strconv.Itoa(MaxGenerate))
			return
		}
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	addrs := make([]string, count)
	for i := range addrs {
		addrs[i] = ipv4.Generate(class, rng).String()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"class":     string(class),
		"addresses": addrs,
	})
}

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["n"]
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "not a 32-bit unsigned integer: "+raw)
		return
	}
	addr := ipv4.FromUint32(uint32(n))
	writeJSON(w, http.StatusOK, domain.ClassInfo{
		IP:      addr.String(),
		Class:   string(ipv4.ClassOf(addr)),
		Integer: uint32(n),
	})
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid batch request",
			"error_detail", err.Error(),
		)
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if len(req.Addresses) == 0 {
		writeError(w, http.StatusBadRequest, "no addresses provided")
		return
	}
	if len(req.Addresses) > MaxBatch {
		writeError(w, http.StatusBadRequest, "too many addresses, max "+strconv.Itoa(MaxBatch))
		return
	}

	batchID := uuid.NewString()
	h.logger.Info("Batch received",
		"batch_id", batchID,
		"address_count", len(req.Addresses),
		"async", req.CallbackURL != "",
		"request_id", w.Header().Get(requestIDHeader),
	)

	if req.CallbackURL != "" {
		go h.opts.Scheduler.RunAndDeliver(context.Background(), batchID, req.Addresses, req.CallbackURL)

		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"batch_id": batchID,
			"accepted": len(req.Addresses),
		})
		return
	}

	result := h.opts.Scheduler.RunBatch(r.Context(), batchID, req.Addresses)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseAddr(w http.ResponseWriter, r *http.Request) (ipv4.Address, bool) {
	addr, err := ipv4.Parse(mux.Vars(r)["ip"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return ipv4.Address{}, false
	}
	return addr, true
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.opts.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), h.opts.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// fail maps lookup errors to status codes. Bad input is 400, a missing
// PTR record 404, a timeout 504 and any other upstream failure 502.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	h.logger.Warn("Lookup fail",
		"path", r.URL.Path,
		"status", status,
		"error_detail", err.Error(),
		"request_id", w.Header().Get(requestIDHeader),
	)

	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ipv4.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, ipcheck.ErrResolutionFailed), errors.Is(err, ipcheck.ErrGeoLookup):
		return http.StatusBadGateway
	case errors.Is(err, ipcheck.ErrNoHostnames), resolver.IsNotFound(err):
		return http.StatusNotFound
	case resolver.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
