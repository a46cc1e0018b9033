package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
)

// 文档注释：来源白名单（IP/CIDR）
// 背景：查询服务部署在内网时，仅允许指定网段直接访问。
// 约束：未配置任何条目时不拦截；真实来源 IP 默认取 RemoteAddr，可通过 API_REAL_IP_HEADER 指定上游头（取首个有效 IP）。
type Allowlist struct {
	l            *slog.Logger
	ips          map[string]struct{}
	cidrs        []*net.IPNet
	realIPHeader string
}

// AllowlistFromEnv：API_ALLOW_IPS / API_ALLOW_CIDRS 为逗号分隔列表，API_ALLOW_LOCAL=true 追加回环地址
func AllowlistFromEnv(l *slog.Logger) *Allowlist {
	a := NewAllowlist(l, splitList(os.Getenv("API_ALLOW_IPS")), splitList(os.Getenv("API_ALLOW_CIDRS")))
	a.realIPHeader = strings.TrimSpace(os.Getenv("API_REAL_IP_HEADER"))
	if len(a.ips)+len(a.cidrs) > 0 && os.Getenv("API_ALLOW_LOCAL") == "true" {
		a.ips["127.0.0.1"] = struct{}{}
		a.ips["::1"] = struct{}{}
	}
	return a
}

// NewAllowlist：无法解析的条目被忽略
func NewAllowlist(l *slog.Logger, ips, cidrs []string) *Allowlist {
	a := &Allowlist{l: l, ips: map[string]struct{}{}}
	for _, p := range ips {
		if ip := net.ParseIP(p); ip != nil {
			a.ips[ip.String()] = struct{}{}
		}
	}
	for _, c := range cidrs {
		if _, n, err := net.ParseCIDR(c); err == nil {
			a.cidrs = append(a.cidrs, n)
		}
	}
	return a
}

func (a *Allowlist) Wrap(next http.Handler) http.Handler {
	if len(a.ips) == 0 && len(a.cidrs) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.extractIP(r)
		if ip != nil && a.allowed(ip) {
			next.ServeHTTP(w, r)
			return
		}
		a.l.Debug("allowlist_block", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
	})
}

func (a *Allowlist) allowed(ip net.IP) bool {
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (a *Allowlist) extractIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
