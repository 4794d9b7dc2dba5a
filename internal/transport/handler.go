// Package transport exposes the furnace controller over HTTP.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/roach88/kiln/internal/furnace"
	"github.com/roach88/kiln/internal/ident"
	"github.com/roach88/kiln/internal/metrics"
)

// AuthorityHeader carries the caller identity.
const AuthorityHeader = "X-Kiln-Authority"

const maxBodyBytes = 1 << 16

// Service is the controller surface served over HTTP.
type Service interface {
	Ignite(ctx context.Context, caller ident.Identity, target ident.Address, initialTemp uint64) (furnace.Furnace, error)
	SinterBatch(ctx context.Context, caller ident.Identity, target ident.Address, dataHash ident.Digest, pressure uint64) (furnace.SinterResult, error)
	EmergencyCooldown(ctx context.Context, caller ident.Identity, target ident.Address) (furnace.Furnace, error)
	Furnace(ctx context.Context, addr ident.Address) (furnace.Furnace, error)
	Block(ctx context.Context, addr ident.Address) (furnace.SinteredBlock, error)
	Blocks(ctx context.Context, target ident.Address) ([]furnace.SinteredBlock, error)
	Events(ctx context.Context, target ident.Address) ([]furnace.Event, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the furnace HTTP API.
type Handler struct {
	svc     Service
	health  Pinger
	logger  *zap.Logger
	metrics *metrics.HTTP
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(svc Service, health Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:     svc,
		health:  health,
		logger:  logger,
		metrics: metrics.NewHTTP(),
	}
}

// Routes returns the API mux wrapped in permissive CORS.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "POST /furnaces/{address}/ignite", h.ignite)
	h.handle(mux, "POST /furnaces/{address}/sinter", h.sinter)
	h.handle(mux, "POST /furnaces/{address}/cooldown", h.cooldown)
	h.handle(mux, "GET /furnaces/{address}", h.getFurnace)
	h.handle(mux, "GET /furnaces/{address}/blocks", h.listBlocks)
	h.handle(mux, "GET /furnaces/{address}/events", h.listEvents)
	h.handle(mux, "GET /blocks/{address}", h.getBlock)
	h.handle(mux, "GET /healthz", h.healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", AuthorityHeader},
	}).Handler(mux)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) (any, error)

func (h *Handler) handle(mux *http.ServeMux, pattern string, fn handlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		data, err := fn(w, r)
		status := http.StatusOK
		if err != nil {
			status = h.writeError(w, r, err)
		} else {
			writeJSON(w, status, Response{Status: "ok", Data: data})
		}
		h.metrics.Observe(pattern, status, started)
	})
}

type igniteRequest struct {
	InitialTemp *uint64 `json:"initial_temp"`
}

type sinterRequest struct {
	DataHash *ident.Digest `json:"data_hash"`
	Pressure *uint64       `json:"pressure"`
}

func (h *Handler) ignite(w http.ResponseWriter, r *http.Request) (any, error) {
	caller, target, err := callerAndTarget(r)
	if err != nil {
		return nil, err
	}
	var req igniteRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}
	if req.InitialTemp == nil {
		return nil, furnace.NewInvalidRequestError("initial_temp is required")
	}
	return h.svc.Ignite(r.Context(), caller, target, *req.InitialTemp)
}

func (h *Handler) sinter(w http.ResponseWriter, r *http.Request) (any, error) {
	caller, target, err := callerAndTarget(r)
	if err != nil {
		return nil, err
	}
	var req sinterRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}
	if req.DataHash == nil || req.Pressure == nil {
		return nil, furnace.NewInvalidRequestError("data_hash and pressure are required")
	}
	return h.svc.SinterBatch(r.Context(), caller, target, *req.DataHash, *req.Pressure)
}

func (h *Handler) cooldown(_ http.ResponseWriter, r *http.Request) (any, error) {
	caller, target, err := callerAndTarget(r)
	if err != nil {
		return nil, err
	}
	return h.svc.EmergencyCooldown(r.Context(), caller, target)
}

func (h *Handler) getFurnace(_ http.ResponseWriter, r *http.Request) (any, error) {
	addr, err := pathAddress(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Furnace(r.Context(), addr)
}

func (h *Handler) listBlocks(_ http.ResponseWriter, r *http.Request) (any, error) {
	addr, err := pathAddress(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Blocks(r.Context(), addr)
}

func (h *Handler) listEvents(_ http.ResponseWriter, r *http.Request) (any, error) {
	addr, err := pathAddress(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Events(r.Context(), addr)
}

func (h *Handler) getBlock(_ http.ResponseWriter, r *http.Request) (any, error) {
	addr, err := pathAddress(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Block(r.Context(), addr)
}

func (h *Handler) healthz(_ http.ResponseWriter, r *http.Request) (any, error) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			return nil, fmt.Errorf("store ping: %w", err)
		}
	}
	return map[string]string{"store": "ok"}, nil
}

func pathAddress(r *http.Request) (ident.Address, error) {
	addr, err := ident.ParseAddress(r.PathValue("address"))
	if err != nil {
		return ident.Address{}, furnace.NewInvalidRequestError("address: %v", err)
	}
	return addr, nil
}

func callerAndTarget(r *http.Request) (ident.Identity, ident.Address, error) {
	raw := r.Header.Get(AuthorityHeader)
	if raw == "" {
		return "", ident.Address{}, errMissingAuthority
	}
	caller, err := ident.ParseIdentity(raw)
	if err != nil {
		return "", ident.Address{}, furnace.NewInvalidRequestError("%s: %v", AuthorityHeader, err)
	}
	target, err := pathAddress(r)
	if err != nil {
		return "", ident.Address{}, err
	}
	return caller, target, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return furnace.NewInvalidRequestError("request body: %v", err)
	}
	return nil
}

var errMissingAuthority = &furnace.Error{
	Code:    furnace.CodeUnauthorized,
	Message: "missing " + AuthorityHeader + " header",
}

// StatusFor maps err to an HTTP status code.
func StatusFor(err error) int {
	switch furnace.CodeOf(err) {
	case furnace.CodeUnauthorized:
		return http.StatusUnauthorized
	case furnace.CodeNotFound:
		return http.StatusNotFound
	case furnace.CodeStaleCounter, furnace.CodeAddressInUse:
		return http.StatusConflict
	case furnace.CodeInvalidRequest:
		return http.StatusBadRequest
	case furnace.CodeExceedsMaxTemperature,
		furnace.CodeFurnaceInactive,
		furnace.CodeInsufficientPressure,
		furnace.CodeCapacityExceeded,
		furnace.CodeThermalDeficiency:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) int {
	status := StatusFor(err)

	var fe *furnace.Error
	if errors.As(err, &fe) {
		writeJSON(w, status, Response{Status: "error", Error: &ErrorBody{
			Code:    string(fe.Code),
			Message: fe.Message,
			Details: fe.Details,
		}})
		return status
	}

	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, status, Response{Status: "error", Error: &ErrorBody{
		Code:    "Internal",
		Message: http.StatusText(status),
	}})
	return status
}
