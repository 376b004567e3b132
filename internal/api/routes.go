// 包 api：集中注册 HTTP API 路由以解耦主入口，便于在 API_BASE 前缀下挂载
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"parcel-api/internal/cadastre"
	"parcel-api/internal/metrics"
	"parcel-api/internal/session"

	"github.com/gorilla/websocket"
)

// Deps：路由依赖
// AllowedOrigins 为 websocket 握手允许的 Origin，规则见 checkOrigin
type Deps struct {
	Dataset        *cadastre.Dataset
	Locator        *cadastre.Locator
	Resolver       *ResolveService
	Sessions       *session.Registry
	AdminToken     string
	AllowedOrigins []string
	Log            *slog.Logger
}

type handlers struct {
	Deps
	upgrader websocket.Upgrader
}

// BuildRoutes：独立 ServeMux，便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	h := &handlers{Deps: d, upgrader: newUpgrader(d.AllowedOrigins)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /parcels", h.parcels)
	mux.HandleFunc("GET /parcels/resolve", h.resolve)
	mux.HandleFunc("GET /parcels/cca/{cca}", h.byCCA)
	mux.HandleFunc("GET /session", h.session)
	mux.HandleFunc("POST /admin/reload", h.reload)
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func (h *handlers) parcels(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Dataset.EnsureLoaded(r.Context())
	if err != nil {
		h.Log.Error("parcels_load_error", "err", err)
		writeError(w, http.StatusServiceUnavailable, "dataset unavailable")
		return
	}
	w.Header().Set("cache-control", "public, max-age=300")
	writeJSON(w, http.StatusOK, snap.GeoJSON())
}

func (h *handlers) resolve(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseLatLon(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := h.Resolver.Resolve(r.Context(), lat, lon)
	if err != nil {
		h.Log.Error("resolve_error", "lat", lat, "lon", lon, "err", err)
		writeError(w, http.StatusServiceUnavailable, "dataset unavailable")
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "no parcel at coordinate")
		return
	}
	w.Header().Set("cache-control", "no-store")
	writeJSON(w, http.StatusOK, pickedAt(f, lat, lon))
}

func (h *handlers) byCCA(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Dataset.EnsureLoaded(r.Context())
	if err != nil {
		h.Log.Error("parcels_load_error", "err", err)
		writeError(w, http.StatusServiceUnavailable, "dataset unavailable")
		return
	}
	f, ok := snap.ByCCA(r.PathValue("cca"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown CCA")
		return
	}
	writeJSON(w, http.StatusOK, f.GeoJSON())
}

// reload：管理端重新加载地籍文件，失败时旧快照继续服务；令牌为空时接口关闭
func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	t := r.Header.Get("x-admin-token")
	if h.AdminToken == "" || t != h.AdminToken {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	snap, err := h.Dataset.Reload(r.Context())
	h.Locator.Purge()
	if err != nil {
		h.Log.Error("dataset_reload_error", "err", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.Log.Info("dataset_reloaded", "features", snap.Len(), "digest", snap.Digest)
	writeJSON(w, http.StatusOK, map[string]any{
		"features":  snap.Len(),
		"skipped":   snap.Skipped,
		"digest":    snap.Digest,
		"loaded_at": snap.LoadedAt,
	})
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	snap := h.Dataset.Snapshot()
	w.Header().Set("cache-control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"dataset":  snap != nil,
		"features": snap.Len(),
		"sessions": h.Sessions.Len(),
	})
}

var errBadCoord = errors.New("lat and lon must be finite numbers within WGS84 range")

func parseLatLon(r *http.Request) (float64, float64, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("lat: %w", errBadCoord)
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("lon: %w", errBadCoord)
	}
	if !validCoord(lat, lon) {
		return 0, 0, errBadCoord
	}
	return lat, lon, nil
}

func validCoord(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("cache-control", "no-store")
	writeJSON(w, status, map[string]string{"error": msg})
}
