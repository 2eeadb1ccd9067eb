package directory

import (
	"strings"

	"geo-directory/internal/store"
)

// Record：对外返回的机构记录
// PhoneNumbers 仅在服务启用 WithPhoneNumbers 时填充，默认不出现在输出中
type Record struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Coordinates  string           `json:"coordinates"`
	Address      string           `json:"address"`
	Categories   []store.Category `json:"categories"`
	PhoneNumbers []string         `json:"phone_numbers,omitempty"`
}

// 文档注释：把原始命中拼装为去重后的记录列表
// 约束：以机构 id 去重并保留首次出现的顺序；分类为机构的完整归属，与触发命中的分类无关；
// 地址缺失的机构（违反每个机构恰有一个地址的约束）被跳过而不是输出半成品；phones 为 nil 时不带电话。
func Assemble(orgs []store.Organization, addrs map[int64]store.Address, cats map[int64][]store.Category, phones map[int64][]string) []Record {
	out := make([]Record, 0, len(orgs))
	seen := make(map[int64]struct{}, len(orgs))
	for _, o := range orgs {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		a, ok := addrs[o.AddressID]
		if !ok {
			continue
		}
		seen[o.ID] = struct{}{}
		rc := cats[o.ID]
		if rc == nil {
			rc = []store.Category{}
		}
		out = append(out, Record{
			ID:           o.ID,
			Name:         o.Name,
			Coordinates:  a.Point.LatLonString(),
			Address:      FormatAddress(a),
			Categories:   rc,
			PhoneNumbers: phones[o.ID],
		})
	}
	return out
}

// FormatAddress："国家, 城市, 街道, 门牌"
func FormatAddress(a store.Address) string {
	return strings.Join([]string{a.Country, a.City, a.Street, a.House}, ", ")
}

// 去重后的机构 id 与地址 id，用于批量取关联数据
func keySets(orgs []store.Organization) (orgIDs, addrIDs []int64) {
	seenOrg := make(map[int64]struct{}, len(orgs))
	seenAddr := make(map[int64]struct{}, len(orgs))
	for _, o := range orgs {
		if _, ok := seenOrg[o.ID]; !ok {
			seenOrg[o.ID] = struct{}{}
			orgIDs = append(orgIDs, o.ID)
		}
		if _, ok := seenAddr[o.AddressID]; !ok {
			seenAddr[o.AddressID] = struct{}{}
			addrIDs = append(addrIDs, o.AddressID)
		}
	}
	return orgIDs, addrIDs
}
