// 包 middleware：入口 HTTP 中间件
package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"parcel-api/internal/config"

	"golang.org/x/time/rate"
)

// 文档注释：按客户端 IP 的令牌桶限流
// 背景：解析接口在指针移动时可能被高频调用；每个来源独立限速，避免单一客户端拖垮共享数据集。
// 约束：不排队，超限直接返回 429 与 JSON 错误体；websocket 只在握手时计一次。
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *slog.Logger
}

func NewIPRateLimiter(qps float64, burst int, log *slog.Logger) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{rate: rate.Limit(qps), burst: burst, log: log}
}

func (i *IPRateLimiter) limiter(ip string) *rate.Limiter {
	if l, ok := i.limiters.Load(ip); ok {
		return l.(*rate.Limiter)
	}
	l, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return l.(*rate.Limiter)
}

func (i *IPRateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !i.limiter(ip).Allow() {
			if i.log != nil {
				i.log.Warn("rate_limit_exceeded", "ip", ip, "path", r.URL.Path)
			}
			w.Header().Set("content-type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：按配置挂载限流；未开启时原样返回
func Wrap(cfg *config.Config, log *slog.Logger, next http.Handler) http.Handler {
	if !cfg.RateLimitEnabled {
		return next
	}
	return NewIPRateLimiter(cfg.RateLimitQPS, cfg.RateLimitBurst, log).Wrap(next)
}

// ClientIP：解析访问者 IP，优先常见反向代理头，最后回退到连接地址
func ClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip"} {
		if x := h.Get(k); x != "" {
			return x
		}
	}
	if x := h.Get("forwarded"); x != "" {
		i := strings.Index(strings.ToLower(x), "for=")
		if i >= 0 {
			y := x[i+4:]
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\" ")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
