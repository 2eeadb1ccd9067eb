package geo

import "math"

const meanEarthRadius = 6371008.8

// RadiusBounds：覆盖以 center 为圆心、半径 meters 的测地圆的经纬度包络框，用作空间索引的候选过滤
// 约束：结果只会偏大不会偏小（球面公式外扩 2%）；圆跨越极点或 180° 经线、或半径过大时返回 false，调用方应退回全量扫描
func RadiusBounds(center Point, meters float64) (Envelope, bool) {
	if !center.Valid() || math.IsNaN(meters) || meters < 0 || math.IsInf(meters, 0) {
		return Envelope{}, false
	}
	delta := meters/meanEarthRadius*1.02 + 1e-9
	if delta > math.Pi/4 {
		return Envelope{}, false
	}
	dLat := delta * 180 / math.Pi
	minLat, maxLat := center.Lat-dLat, center.Lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return Envelope{}, false
	}
	s := math.Sin(delta) / math.Cos(center.Lat*math.Pi/180)
	if s >= 1 {
		return Envelope{}, false
	}
	dLon := math.Asin(s) * 180 / math.Pi
	minLon, maxLon := center.Lon-dLon, center.Lon+dLon
	if minLon < -180 || maxLon > 180 {
		return Envelope{}, false
	}
	return Envelope{MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat}, true
}
