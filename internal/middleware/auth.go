package middleware

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
)

// TokenEnv：查询服务的访问令牌环境变量
const TokenEnv = "TERRITORY_API_TOKEN"

// 文档注释：Bearer 令牌鉴权
// 约束：每次请求读取令牌配置；未配置返回 500；缺少或不匹配返回 401。
// Authorization 头按空白切分后取最后一段，兼容 "Bearer <token>" 与裸令牌。
func BearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(os.Getenv(TokenEnv))
		if token == "" {
			writeError(w, http.StatusInternalServerError, "Missing API token in env var "+TokenEnv)
			return
		}
		provided := ""
		if parts := strings.Fields(r.Header.Get("Authorization")); len(parts) > 0 {
			provided = parts[len(parts)-1]
		}
		switch {
		case provided == "":
			writeError(w, http.StatusUnauthorized, "Missing token")
		case provided != token:
			writeError(w, http.StatusUnauthorized, "Invalid token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func writeError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
