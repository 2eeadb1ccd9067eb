// 包 geo：WGS84 椭球面上的点、测地距离与测地投影，以及坐标空间包络框
package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/geodesic"
)

// SRID 为存储坐标使用的空间参考（WGS84 经纬度）
const SRID = 4326

// Point：WGS84 点，经度在前、纬度在后（与库表 geography 的 (lon, lat) 顺序一致）
type Point struct {
	Lon float64
	Lat float64
}

// Valid：经纬度均为有限值且在合法范围内
func (p Point) Valid() bool {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
		return false
	}
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// LatLonString：对外展示格式 "<纬度>, <经度>"
// 约束：顺序与存储顺序相反，客户端依赖该格式，不可调换
func (p Point) LatLonString() string {
	return formatDegrees(p.Lat) + ", " + formatDegrees(p.Lon)
}

// formatDegrees：最短往返位数；整数值保留 ".0"，十进制指数小于 -4 或不小于 16 时用指数形式（如 1e-05）
// 约束：与既有客户端看到的数字写法一致，如 "50.0, 30.0"
func formatDegrees(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	sci := strconv.FormatFloat(v, 'e', -1, 64)
	if _, e, ok := strings.Cut(sci, "e"); ok {
		if exp, err := strconv.Atoi(e); err == nil && (exp < -4 || exp >= 16) {
			return sci
		}
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Distance：两点间测地距离（米），基于 WGS84 椭球的反算
func Distance(a, b Point) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &s12, nil, nil)
	return s12
}

// Project：自 p 沿方位角 azimuth（度，正北为 0，顺时针）前进 meters 米后的点
func Project(p Point, meters, azimuth float64) Point {
	var lat, lon float64
	geodesic.WGS84.Direct(p.Lat, p.Lon, azimuth, meters, &lat, &lon, nil)
	return Point{Lon: lon, Lat: lat}
}
