package directory

import (
	"context"
	"sort"

	"geo-directory/internal/store"
)

// Forest：分类森林的内存索引（id → 分类，父 id → 子 id 列表）
// 约束：构建后只读；子节点按 id 升序，保证展开结果稳定
type Forest struct {
	byID     map[int64]store.Category
	children map[int64][]int64
}

func NewForest(cats []store.Category) *Forest {
	f := &Forest{
		byID:     make(map[int64]store.Category, len(cats)),
		children: make(map[int64][]int64),
	}
	for _, c := range cats {
		f.byID[c.ID] = c
		if c.ParentID != nil {
			f.children[*c.ParentID] = append(f.children[*c.ParentID], c.ID)
		}
	}
	for k := range f.children {
		ids := f.children[k]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return f
}

// 文档注释：按层序展开 rootID 及其全部后代
// 返回：根在首位；根不存在时返回空列表（不是错误）。
// 约束：visited 集合以根为种子，父引用成环或多路径可达时每个分类也只出现一次，且循环必然终止。
func (f *Forest) Expand(rootID int64) []store.Category {
	root, ok := f.byID[rootID]
	if !ok {
		return []store.Category{}
	}
	out := []store.Category{root}
	visited := map[int64]struct{}{rootID: {}}
	frontier := []int64{rootID}
	for len(frontier) > 0 {
		var next []int64
		for _, parent := range frontier {
			for _, id := range f.children[parent] {
				if _, seen := visited[id]; seen {
					continue
				}
				visited[id] = struct{}{}
				out = append(out, f.byID[id])
				next = append(next, id)
			}
		}
		frontier = next
	}
	return out
}

// ExpandTree：在当前工作单元内读取分类表并展开子树（每次遍历读取一次）
func ExpandTree(ctx context.Context, r store.Reader, rootID int64) ([]store.Category, error) {
	cats, err := r.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return NewForest(cats).Expand(rootID), nil
}

func categoryIDs(cats []store.Category) []int64 {
	ids := make([]int64, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return ids
}
