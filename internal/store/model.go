package store

import "geo-directory/internal/geo"

// Organization：目录中的机构，恰好绑定一个地址
type Organization struct {
	ID        int64
	Name      string
	AddressID int64
}

// Address：物理地址；Point 在库中为 geography(POINT, 4326)，同一坐标仅对应一行
type Address struct {
	ID      int64
	Point   geo.Point
	Country string
	City    string
	Street  string
	House   string
}

// Category：分类节点，ParentID 为空表示根
type Category struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parent_id"`
	Name     string `json:"name"`
}

// User：凭据校验通过后得到的用户标识
type User struct {
	ID int64 `json:"id"`
}
