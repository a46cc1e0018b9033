package middleware

import (
	"net/http"
	"os"
)

// 文档注释：跨域来源白名单
// 背景：落地页与控制台部署在不同子域，需要浏览器直接调用查询接口。
// 约束：
//   - 仅对白名单内的 Origin 回写 Access-Control-Allow-Origin（回显具体来源，允许携带凭证）；
//   - 预检请求（OPTIONS + Access-Control-Request-Method）在此终止，不进入鉴权；
//   - 白名单外来源的预检返回 400，普通请求照常放行但不带跨域头。
type CORS struct {
	origins map[string]struct{}
}

// CORSFromEnv：CORS_ALLOW_ORIGINS 为逗号分隔的来源列表，为空时不启用
func CORSFromEnv() *CORS {
	return NewCORS(splitList(os.Getenv("CORS_ALLOW_ORIGINS")))
}

func NewCORS(origins []string) *CORS {
	c := &CORS{origins: map[string]struct{}{}}
	for _, o := range origins {
		c.origins[o] = struct{}{}
	}
	return c
}

func (c *CORS) Wrap(next http.Handler) http.Handler {
	if len(c.origins) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		_, allowed := c.origins[origin]
		h := w.Header()
		h.Add("Vary", "Origin")
		preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
		if preflight {
			if !allowed {
				http.Error(w, "Disallowed CORS origin", http.StatusBadRequest)
				return
			}
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", r.Header.Get("Access-Control-Request-Method"))
			if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
				h.Set("Access-Control-Allow-Headers", rh)
			}
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if allowed {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		next.ServeHTTP(w, r)
	})
}
