package authapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"blog/cmd/internal/httpx"
)

const actionLoginFailed = "auth.login.failed"

// loginThrottled reports whether ip has used up its failed-login budget for the window.
// Counter errors fail open.
func (h *Handler) loginThrottled(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration) {
	if h.failures == nil || ip == nil || h.cfg.LoginIPMax <= 0 {
		return false, 0
	}
	count, err := h.failures.LoginFailuresByIP(ctx, ip, now.Add(-h.cfg.LoginIPWindow))
	if err != nil {
		h.log.Warn("auth.login.throttle.count_fail", "err", err)
		return false, 0
	}
	if count >= h.cfg.LoginIPMax {
		return true, h.cfg.LoginIPWindow
	}
	return false, 0
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
