package geo

import "math"

// Envelope：坐标空间中的轴对齐矩形（经纬度），用作空间过滤条件
type Envelope struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Contains：点落在包络框内（含边界）
func (e Envelope) Contains(p Point) bool {
	return p.Lon >= e.MinLon && p.Lon <= e.MaxLon && p.Lat >= e.MinLat && p.Lat <= e.MaxLat
}

// AreaEnvelope：以 center 为中心、高 height 米、宽 width 米的查询区域
// 先沿正北/正南各投影 height/2 得到南北两点，再由北点向正东、南点向正西各投影 width/2，
// 得到东北角与西南角，最后在经纬度空间内以两角构造包络框。
// 约束：结果是测地投影角点折算出的坐标框，并非等宽测地带；对外结果依赖这一近似，不要改成严格测地矩形。
func AreaEnvelope(center Point, height, width float64) Envelope {
	north := Project(center, height/2, 0)
	south := Project(center, height/2, 180)
	ne := Project(north, width/2, 90)
	sw := Project(south, width/2, 270)
	return Envelope{MinLon: sw.Lon, MinLat: sw.Lat, MaxLon: ne.Lon, MaxLat: ne.Lat}
}

// Covers：把包络框当作 geography 多边形判断点是否在内（含边界）
// 背景：库表侧以 ST_Intersects(coordinates, envelope::geography) 过滤，四条边是球面大圆弧，
// 南北两边向极地方向拱起；扁宽区域的 MaxLat 可能落在中心点以南，平面比较会漏掉中心点。
// 约束：经度范围不跨越反子午线、宽度小于半球；东西两边是经线，南北两边按大圆弧判定。
func (e Envelope) Covers(p Point) bool {
	if p.Lon < e.MinLon || p.Lon > e.MaxLon {
		return false
	}
	v := unitVector(p)
	sw, se := Point{Lon: e.MinLon, Lat: e.MinLat}, Point{Lon: e.MaxLon, Lat: e.MinLat}
	ne, nw := Point{Lon: e.MaxLon, Lat: e.MaxLat}, Point{Lon: e.MinLon, Lat: e.MaxLat}
	// 逆时针环：内部位于每条有向边的左侧
	return leftOfArc(sw, se, v) && leftOfArc(ne, nw, v)
}

// GeographyBounds：能装下 Covers 区域的最小经纬度框，供按坐标索引取候选
func (e Envelope) GeographyBounds() Envelope {
	out := e
	top := arcMidpoint(Point{Lon: e.MinLon, Lat: e.MaxLat}, Point{Lon: e.MaxLon, Lat: e.MaxLat})
	bottom := arcMidpoint(Point{Lon: e.MinLon, Lat: e.MinLat}, Point{Lon: e.MaxLon, Lat: e.MinLat})
	out.MaxLat = math.Max(e.MaxLat, top.Lat)
	out.MinLat = math.Min(e.MinLat, bottom.Lat)
	return out
}

// 边界上的点因浮点误差可能略微落在外侧；容差以弧度计，约合地面 1 微米
const arcEpsilon = 1e-13

type vec3 [3]float64

func unitVector(p Point) vec3 {
	lat, lon := p.Lat*math.Pi/180, p.Lon*math.Pi/180
	return vec3{math.Cos(lat) * math.Cos(lon), math.Cos(lat) * math.Sin(lon), math.Sin(lat)}
}

func (a vec3) cross(b vec3) vec3 {
	return vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func (a vec3) dot(b vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func leftOfArc(from, to Point, v vec3) bool {
	n := unitVector(from).cross(unitVector(to))
	l := math.Sqrt(n.dot(n))
	if l == 0 {
		return true
	}
	return n.dot(v)/l >= -arcEpsilon
}

// 两点间大圆弧的中点；南北两边两端纬度相同，中点即弧上离赤道最远处
func arcMidpoint(a, b Point) Point {
	u, w := unitVector(a), unitVector(b)
	m := vec3{u[0] + w[0], u[1] + w[1], u[2] + w[2]}
	n := math.Sqrt(m.dot(m))
	if n == 0 {
		return a
	}
	return Point{
		Lon: math.Atan2(m[1], m[0]) * 180 / math.Pi,
		Lat: math.Asin(m[2]/n) * 180 / math.Pi,
	}
}
