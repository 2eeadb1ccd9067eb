// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"geo-directory/internal/cache"
	"geo-directory/internal/directory"
	"geo-directory/internal/logger"
	"geo-directory/internal/metrics"
)

type handlers struct {
	svc   *directory.Service
	cache cache.Cache
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
// 约束：c 为 nil 时不缓存；认证由外层中间件负责
func BuildRoutes(svc *directory.Service, c cache.Cache) *http.ServeMux {
	h := &handlers{svc: svc, cache: c}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/org/coords", h.byCoordinates)
	mux.HandleFunc("GET /v1/org/id", h.byID)
	mux.HandleFunc("GET /v1/org/category", h.byCategory)
	mux.HandleFunc("GET /v1/org/name", h.byName)
	mux.HandleFunc("GET /v1/org/radius", h.byRadius)
	mux.HandleFunc("GET /v1/org/area", h.byArea)
	mux.HandleFunc("GET /v1/category/tree", h.categoryTree)
	return mux
}

func (h *handlers) byCoordinates(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	lon, lat := p.number("lon"), p.number("lat")
	if p.failed(w) {
		return
	}
	h.serve(w, r, cacheKey("coords", lon, lat), func(ctx context.Context) (any, error) {
		return h.svc.ByCoordinates(ctx, lon, lat)
	})
}

func (h *handlers) byID(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	id := p.integer("org_id")
	if p.failed(w) {
		return
	}
	h.serve(w, r, cacheKey("id", id), func(ctx context.Context) (any, error) {
		return h.svc.ByID(ctx, id)
	})
}

func (h *handlers) byCategory(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	id := p.integer("cat_id")
	if p.failed(w) {
		return
	}
	h.serve(w, r, cacheKey("category", id), func(ctx context.Context) (any, error) {
		return h.svc.ByCategoryTree(ctx, id)
	})
}

func (h *handlers) byName(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	name := p.text("name")
	if p.failed(w) {
		return
	}
	h.serve(w, r, cacheKey("name", name), func(ctx context.Context) (any, error) {
		return h.svc.ByName(ctx, name)
	})
}

func (h *handlers) byRadius(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	lon, lat, meters := p.number("lon"), p.number("lat"), p.number("radius_meters")
	if p.failed(w) {
		return
	}
	h.serve(w, r, cacheKey("radius", lon, lat, meters), func(ctx context.Context) (any, error) {
		return h.svc.ByRadius(ctx, lon, lat, meters)
	})
}

func (h *handlers) byArea(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	lon, lat, height, width := p.number("lon"), p.number("lat"), p.number("height"), p.number("width")
	if p.failed(w) {
		return
	}
	h.serve(w, r, cacheKey("area", lon, lat, height, width), func(ctx context.Context) (any, error) {
		return h.svc.ByArea(ctx, lon, lat, height, width)
	})
}

func (h *handlers) categoryTree(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	id := p.integer("cat_id")
	if p.failed(w) {
		return
	}
	h.serve(w, r, "category:tree:"+strconv.FormatInt(id, 10), func(ctx context.Context) (any, error) {
		return h.svc.CategoryTree(ctx, id)
	})
}

// serve：读穿缓存；未命中时执行查询并回填
// 约束：只缓存成功结果；参数错误映射为 400，其余错误为 500 且不向客户端暴露细节
func (h *handlers) serve(w http.ResponseWriter, r *http.Request, key string, query func(ctx context.Context) (any, error)) {
	ctx := r.Context()
	if h.cache != nil {
		if b, ok := h.cache.Get(ctx, key); ok {
			metrics.CacheHitsTotal.Inc()
			writeBody(w, http.StatusOK, b)
			return
		}
		metrics.CacheMissesTotal.Inc()
	}
	res, err := query(ctx)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidArgument) {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.L().Error("query_error", "path", r.URL.Path, "err", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		logger.L().Error("encode_error", "path", r.URL.Path, "err", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if h.cache != nil {
		h.cache.Set(ctx, key, b)
	}
	writeBody(w, http.StatusOK, b)
}

func writeBody(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	b, _ := json.Marshal(map[string]string{"detail": detail})
	writeBody(w, status, b)
}
