// 包 memstore：基于 JSON 快照的内存数据源，提供与 PostgreSQL 相同的 Reader 契约
package memstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"geo-directory/internal/geo"
	"geo-directory/internal/store"
)

// Snapshot：快照文件结构，字段与库表一一对应
type Snapshot struct {
	Addresses              []AddressRow      `json:"addresses"`
	Categories             []store.Category  `json:"categories"`
	Organizations          []OrganizationRow `json:"organizations"`
	OrganizationCategories []OrgCategoryRow  `json:"organization_categories"`
	PhoneNumbers           []PhoneRow        `json:"phone_numbers"`
	APIKeys                []APIKeyRow       `json:"api_keys"`
}

type AddressRow struct {
	ID      int64   `json:"id"`
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Street  string  `json:"street"`
	Home    string  `json:"home"`
}

type OrganizationRow struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AddressID int64  `json:"address_id"`
}

type OrgCategoryRow struct {
	OrgID int64 `json:"org_id"`
	CatID int64 `json:"cat_id"`
}

type PhoneRow struct {
	Number string `json:"number"`
	OrgID  int64  `json:"org_id"`
}

// APIKeyRow：APIKey 为密钥的 sha256 十六进制摘要，不保存明文
type APIKeyRow struct {
	APIKey string `json:"api_key"`
	UserID int64  `json:"user_id"`
}

// LoadSnapshot：从文件读取快照
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	b, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return snap, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}

// dataset：校验并建立索引后的只读数据
type dataset struct {
	addrs    []store.Address
	addrByID map[int64]store.Address
	spatial  *kdNode
	orgs     []store.Organization
	orgByID  map[int64]store.Organization
	cats     []store.Category
	catByID  map[int64]store.Category
	orgCats  map[int64][]int64
	catOrgs  map[int64][]int64
	phones   map[int64][]string
	keys     map[string]int64
}

// 约束：校验规则与库表约束保持一致（坐标唯一、外键存在、关联不重复）
func build(s Snapshot) (*dataset, error) {
	d := &dataset{
		addrByID: make(map[int64]store.Address, len(s.Addresses)),
		orgByID:  make(map[int64]store.Organization, len(s.Organizations)),
		catByID:  make(map[int64]store.Category, len(s.Categories)),
		orgCats:  make(map[int64][]int64),
		catOrgs:  make(map[int64][]int64),
		phones:   make(map[int64][]string),
		keys:     make(map[string]int64, len(s.APIKeys)),
	}
	points := make(map[geo.Point]int64, len(s.Addresses))
	for _, r := range s.Addresses {
		a := store.Address{ID: r.ID, Point: geo.Point{Lon: r.Lon, Lat: r.Lat}, Country: r.Country, City: r.City, Street: r.Street, House: r.Home}
		if !a.Point.Valid() {
			return nil, fmt.Errorf("address %d: coordinates out of range", r.ID)
		}
		if _, dup := d.addrByID[a.ID]; dup {
			return nil, fmt.Errorf("address %d: duplicate id", a.ID)
		}
		if other, dup := points[a.Point]; dup {
			return nil, fmt.Errorf("address %d: coordinates already used by address %d", a.ID, other)
		}
		points[a.Point] = a.ID
		d.addrByID[a.ID] = a
		d.addrs = append(d.addrs, a)
	}
	for _, c := range s.Categories {
		if _, dup := d.catByID[c.ID]; dup {
			return nil, fmt.Errorf("category %d: duplicate id", c.ID)
		}
		d.catByID[c.ID] = c
		d.cats = append(d.cats, c)
	}
	for _, r := range s.Organizations {
		if _, dup := d.orgByID[r.ID]; dup {
			return nil, fmt.Errorf("organization %d: duplicate id", r.ID)
		}
		if _, ok := d.addrByID[r.AddressID]; !ok {
			return nil, fmt.Errorf("organization %d: unknown address %d", r.ID, r.AddressID)
		}
		o := store.Organization{ID: r.ID, Name: r.Name, AddressID: r.AddressID}
		d.orgByID[o.ID] = o
		d.orgs = append(d.orgs, o)
	}
	pairs := make(map[OrgCategoryRow]struct{}, len(s.OrganizationCategories))
	for _, r := range s.OrganizationCategories {
		if _, dup := pairs[r]; dup {
			return nil, fmt.Errorf("organization %d: category %d listed twice", r.OrgID, r.CatID)
		}
		if _, ok := d.orgByID[r.OrgID]; !ok {
			return nil, fmt.Errorf("organization_category: unknown organization %d", r.OrgID)
		}
		if _, ok := d.catByID[r.CatID]; !ok {
			return nil, fmt.Errorf("organization_category: unknown category %d", r.CatID)
		}
		pairs[r] = struct{}{}
		d.orgCats[r.OrgID] = append(d.orgCats[r.OrgID], r.CatID)
		d.catOrgs[r.CatID] = append(d.catOrgs[r.CatID], r.OrgID)
	}
	numbers := make(map[string]struct{}, len(s.PhoneNumbers))
	for _, p := range s.PhoneNumbers {
		if _, dup := numbers[p.Number]; dup {
			return nil, fmt.Errorf("phone number %q: duplicate", p.Number)
		}
		if _, ok := d.orgByID[p.OrgID]; !ok {
			return nil, fmt.Errorf("phone number %q: unknown organization %d", p.Number, p.OrgID)
		}
		numbers[p.Number] = struct{}{}
		d.phones[p.OrgID] = append(d.phones[p.OrgID], p.Number)
	}
	for _, k := range s.APIKeys {
		d.keys[k.APIKey] = k.UserID
	}

	sort.Slice(d.addrs, func(i, j int) bool { return d.addrs[i].ID < d.addrs[j].ID })
	d.spatial = buildKD(append([]store.Address(nil), d.addrs...), 0)
	sort.Slice(d.orgs, func(i, j int) bool { return d.orgs[i].ID < d.orgs[j].ID })
	sort.Slice(d.cats, func(i, j int) bool { return d.cats[i].ID < d.cats[j].ID })
	for _, m := range []map[int64][]int64{d.orgCats, d.catOrgs} {
		for k := range m {
			ids := m[k]
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		}
	}
	for k := range d.phones {
		sort.Strings(d.phones[k])
	}
	return d, nil
}
