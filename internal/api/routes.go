// 包 api：归属结果只读查询服务的路由注册，与主入口解耦
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"zip-territory/internal/export"
	"zip-territory/internal/logger"
	"zip-territory/internal/middleware"
	"zip-territory/internal/store"
)

// 分页参数上下限
const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Store：路由依赖的只读查询能力
type Store interface {
	ListAssignments(ctx context.Context, f store.Filter, page, size int) (*store.Page, error)
	Stats(ctx context.Context) (*store.Stats, error)
	CountAssignments(ctx context.Context) (int, error)
}

// Options：ExportPath 为流水线 CSV 导出路径（Parquet 路径由其推导）；DataPath 仅用于健康检查展示
type Options struct {
	ExportPath string
	DataPath   string
	CacheTTL   time.Duration
}

type handler struct {
	st    Store
	cache *responseCache
	opts  Options
}

// 文档注释：构建 API 路由
// 约束：所有路由均需 Bearer 鉴权；列表与统计结果经 Redis 缓存（rc 为 nil 时直接读库）
func BuildRoutes(st Store, rc *redis.Client, opts Options) http.Handler {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	h := &handler{st: st, cache: &responseCache{rc: rc, ttl: opts.CacheTTL}, opts: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/assignments", h.assignments)
	mux.HandleFunc("/stats", h.stats)
	mux.HandleFunc("/export.csv", h.exportFile(opts.ExportPath, "text/csv"))
	mux.HandleFunc("/export.parquet", h.exportFile(export.ParquetPath(opts.ExportPath), "application/octet-stream"))
	return middleware.BearerAuth(mux)
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	b, _ := json.Marshal(map[string]string{"detail": detail})
	writeJSON(w, code, b)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	n, err := h.st.CountAssignments(r.Context())
	if err != nil {
		logger.L().Error("health_count_error", "err", err)
		writeDetail(w, http.StatusInternalServerError, "Data not loaded")
		return
	}
	b, _ := json.Marshal(healthResult{Status: "ok", Rows: n, DataPath: h.opts.DataPath})
	writeJSON(w, http.StatusOK, b)
}

// intParam：缺省返回 def；非整数或越界返回 ok=false
func intParam(q string, def, min, max int) (int, bool) {
	if strings.TrimSpace(q) == "" {
		return def, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(q))
	if err != nil || n < min || (max > 0 && n > max) {
		return 0, false
	}
	return n, true
}

func (h *handler) assignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	page, ok := intParam(q.Get("page"), 1, 1, 0)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "page must be an integer >= 1")
		return
	}
	size, ok := intParam(q.Get("size"), defaultPageSize, 1, maxPageSize)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "size must be an integer between 1 and 500")
		return
	}
	f := store.Filter{
		ZIPPrefix: q.Get("zip_prefix"),
		City:      q.Get("city"),
		State:     q.Get("state"),
		Status:    q.Get("status_filter"),
	}
	key := "assignments?" + q.Encode()
	if b, hit := h.cache.get(ctx, key); hit {
		writeJSON(w, http.StatusOK, b)
		return
	}
	res, err := h.st.ListAssignments(ctx, f, page, size)
	if err != nil {
		logger.L().Error("assignments_query_error", "err", err)
		writeDetail(w, http.StatusInternalServerError, "query failed")
		return
	}
	out := pageResult{Total: res.Total, Page: page, Size: size, Items: make([]assignmentItem, 0, len(res.Items))}
	for _, a := range res.Items {
		out.Items = append(out.Items, toItem(a))
	}
	b, err := json.Marshal(out)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "encode failed")
		return
	}
	h.cache.set(ctx, key, b)
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if b, hit := h.cache.get(ctx, "stats"); hit {
		writeJSON(w, http.StatusOK, b)
		return
	}
	st, err := h.st.Stats(ctx)
	if err != nil {
		logger.L().Error("stats_query_error", "err", err)
		writeDetail(w, http.StatusInternalServerError, "query failed")
		return
	}
	b, _ := json.Marshal(st)
	h.cache.set(ctx, "stats", b)
	writeJSON(w, http.StatusOK, b)
}

// exportFile：下载流水线导出的文件，不存在时返回 404
func (h *handler) exportFile(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := os.Open(path)
		if err != nil {
			writeDetail(w, http.StatusNotFound, "export not found")
			return
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil || fi.IsDir() {
			writeDetail(w, http.StatusNotFound, "export not found")
			return
		}
		w.Header().Set("content-type", contentType)
		w.Header().Set("content-disposition", `attachment; filename="`+filepath.Base(path)+`"`)
		http.ServeContent(w, r, filepath.Base(path), fi.ModTime(), f)
	}
}
