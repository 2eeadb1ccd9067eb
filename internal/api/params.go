package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// params：查询参数解析，记录首个错误，处理函数在读取完所有参数后统一检查
type params struct {
	q   url.Values
	err error
}

func newParams(r *http.Request) *params { return &params{q: r.URL.Query()} }

func (p *params) raw(name string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v := strings.TrimSpace(p.q.Get(name))
	if v == "" {
		p.err = fmt.Errorf("query parameter %q is required", name)
		return "", false
	}
	return v, true
}

func (p *params) text(name string) string {
	v, _ := p.raw(name)
	return v
}

func (p *params) integer(name string) int64 {
	v, ok := p.raw(name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("query parameter %q must be an integer", name)
	}
	return n
}

func (p *params) number(name string) float64 {
	v, ok := p.raw(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.err = fmt.Errorf("query parameter %q must be a number", name)
	}
	return f
}

// failed：存在解析错误时写出 422 并返回 true
func (p *params) failed(w http.ResponseWriter) bool {
	if p.err == nil {
		return false
	}
	writeDetail(w, http.StatusUnprocessableEntity, p.err.Error())
	return true
}

// cacheKey：org:<op>:<参数>，浮点数使用最短往返表示
func cacheKey(op string, args ...any) string {
	var b strings.Builder
	b.WriteString("org:")
	b.WriteString(op)
	for _, a := range args {
		b.WriteByte(':')
		switch v := a.(type) {
		case float64:
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		case string:
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
