package memstore

import (
	"geo-directory/internal/geo"
	"geo-directory/internal/store"
)

// 文档注释：地址点的二维 KD-Tree（经纬度）
// 背景：半径与矩形查询先在树上做包络框范围检索，再对候选做精确过滤，避免每次扫描全部地址。
// 约束：构建后只读；按经度/纬度交替分割，中位数左右两侧都可能出现与分割值相等的点。
type kdNode struct {
	a  store.Address
	ax int // 0:lon,1:lat
	l  *kdNode
	r  *kdNode
}

// buildKD：原地重排 as，调用方需传入副本
func buildKD(as []store.Address, depth int) *kdNode {
	if len(as) == 0 {
		return nil
	}
	ax := depth % 2
	mid := len(as) / 2
	selectNth(as, mid, ax)
	node := &kdNode{a: as[mid], ax: ax}
	node.l = buildKD(as[:mid], depth+1)
	node.r = buildKD(as[mid+1:], depth+1)
	return node
}

// 原地 nth 元素选择（轴为经度/纬度）
func selectNth(a []store.Address, n int, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func partition(a []store.Address, lo, hi, pivot, ax int) int {
	pv := a[pivot]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if axisValue(a[j].Point, ax) < axisValue(pv.Point, ax) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func axisValue(p geo.Point, ax int) float64 {
	if ax == 0 {
		return p.Lon
	}
	return p.Lat
}

// within：收集落在 env 内（含边界）的地址，顺序未定义
func (n *kdNode) within(env geo.Envelope, out []store.Address) []store.Address {
	if n == nil {
		return out
	}
	if env.Contains(n.a.Point) {
		out = append(out, n.a)
	}
	key := axisValue(n.a.Point, n.ax)
	lo, hi := env.MinLon, env.MaxLon
	if n.ax == 1 {
		lo, hi = env.MinLat, env.MaxLat
	}
	if lo <= key {
		out = n.l.within(env, out)
	}
	if hi >= key {
		out = n.r.within(env, out)
	}
	return out
}
