// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/otp"
)

// IdentityCounter reports how many identities exist per role.
type IdentityCounter interface {
	Counts(ctx context.Context) (map[core.Role]int, error)
}

// CodeCounter reports live one-time codes per purpose.
type CodeCounter interface {
	Outstanding(ctx context.Context) (map[otp.Purpose]int, error)
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	StoreSize  func() int
	Identities IdentityCounter
	Codes      CodeCounter
}

type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	middlewares ...func(http.Handler) http.Handler,
) {
	r.Route("/admin/stats", func(r chi.Router) {
		for _, mw := range middlewares {
			if mw != nil {
				r.Use(mw)
			}
		}

		r.Get("/", h.GetSystemStats)
		r.Get("/identities", h.GetIdentityStats)
		r.Get("/codes", h.GetCodeStats)
	})
}

// GetSystemStats is the operator overview: marketplace population, pending
// verification work, and the health of the backing services.
func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identities, err := h.identityStats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	codes, err := h.codeStats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	response := SystemStatsResponse{
		Identities: identities,
		Codes:      codes,
		Database: DatabaseStatus{
			Healthy: healthy(ctx, h.cfg.DBPing),
			Stats:   h.dbPool(),
		},
		Redis: RedisStatus{
			Healthy: healthy(ctx, h.cfg.RedisPing),
			Stats:   h.redisPool(),
		},
		Runtime: runtimeStats(),
	}
	if h.cfg.StoreSize != nil {
		size := h.cfg.StoreSize()
		response.StoreEntries = &size
	}

	core.OK(w, response)
}

// GetIdentityStats returns identity totals per role.
func (h *Handler) GetIdentityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.identityStats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, stats)
}

func (h *Handler) GetCodeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.codeStats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, stats)
}

func (h *Handler) identityStats(ctx context.Context) (*IdentityStats, error) {
	if h.cfg.Identities == nil {
		return nil, nil
	}

	counts, err := h.cfg.Identities.Counts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &IdentityStats{
		Workers:    counts[core.RoleWorker],
		Households: counts[core.RoleHousehold],
		Admins:     counts[core.RoleAdmin],
	}
	stats.Total = stats.Workers + stats.Households + stats.Admins
	return stats, nil
}

func (h *Handler) codeStats(ctx context.Context) (*CodeStats, error) {
	if h.cfg.Codes == nil {
		return nil, nil
	}

	counts, err := h.cfg.Codes.Outstanding(ctx)
	if err != nil {
		return nil, err
	}

	stats := &CodeStats{
		Registration:      counts[otp.PurposeRegistration],
		PasswordReset:     counts[otp.PurposePasswordReset],
		PhoneVerification: counts[otp.PurposePhoneVerification],
		EmailVerification: counts[otp.PurposeEmailVerification],
	}
	stats.Total = stats.Registration + stats.PasswordReset +
		stats.PhoneVerification + stats.EmailVerification
	return stats, nil
}

func healthy(ctx context.Context, ping func(context.Context) error) bool {
	return ping == nil || ping(ctx) == nil
}

func (h *Handler) dbPool() *DBPoolStats {
	if h.cfg.DBStats == nil {
		return nil
	}

	stats := h.cfg.DBStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) redisPool() *RedisPoolStats {
	if h.cfg.RedisStats == nil {
		return nil
	}

	stats := h.cfg.RedisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

func runtimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     mem.Alloc,
		NumGC:        mem.NumGC,
	}
}

type SystemStatsResponse struct {
	Identities   *IdentityStats `json:"identities,omitempty"`
	Codes        *CodeStats     `json:"codes,omitempty"`
	Database     DatabaseStatus `json:"database"`
	Redis        RedisStatus    `json:"redis"`
	Runtime      RuntimeStats   `json:"runtime"`
	StoreEntries *int           `json:"store_entries,omitempty"`
}

type IdentityStats struct {
	Workers    int `json:"workers"`
	Households int `json:"households"`
	Admins     int `json:"admins"`
	Total      int `json:"total"`
}

// CodeStats counts codes that are unconsumed and unexpired.
type CodeStats struct {
	Registration      int `json:"registration"`
	PasswordReset     int `json:"password_reset"`
	PhoneVerification int `json:"phone_verification"`
	EmailVerification int `json:"email_verification"`
	Total             int `json:"total"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
