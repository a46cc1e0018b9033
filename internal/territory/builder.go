package territory

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// BuildOptions：推断参数
type BuildOptions struct {
	RadiusMiles  float64
	MaxNeighbors int
	// Workers 大于 1 时将未归属邮编分片并行推断，结果按原顺序合并
	Workers int
}

// 默认参数
const (
	DefaultRadiusMiles  = 25.0
	DefaultMaxNeighbors = 15
)

var ErrNilIndex = errors.New("territory: nil index")

// 文档注释：生成全量领地归属
// 约束：每个主数据邮编恰好一条，按 GeoIndex 顺序输出；有活跃负责人走活跃分支，否则走推断分支（可能全空）。
// 并行模式与顺序模式输出完全一致；ctx 取消时返回 ctx.Err()。
func BuildAssignments(ctx context.Context, geoIdx *GeoIndex, owners *OwnerIndex, opts BuildOptions) ([]TerritoryAssignment, error) {
	if geoIdx == nil || owners == nil {
		return nil, ErrNilIndex
	}
	records := geoIdx.Records()
	points := owners.Points(geoIdx)
	out := make([]TerritoryAssignment, len(records))
	var pending []int
	for i, g := range records {
		a := newAssignment(g)
		if w, ok := owners.Get(g.ZIP); ok {
			a.OwnerEmail = w.OwnerEmail
			a.OwnerName = w.OwnerName
			a.OwnerStatus = w.Status
			a.DealCount = w.DealCount
		} else {
			pending = append(pending, i)
		}
		out[i] = a
	}

	infer := func(i int) {
		inf := InferProspectiveOwner(records[i], points, opts.RadiusMiles, opts.MaxNeighbors)
		out[i].ProspectiveOwnerEmail = inf.OwnerEmail
		out[i].ProspectiveOwnerName = inf.OwnerName
		out[i].InferenceReason = inf.Reason
	}

	workers := opts.Workers
	if workers <= 1 || len(pending) < 2 {
		for n, i := range pending {
			if n%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			infer(i)
		}
		return out, nil
	}

	if workers > len(pending) {
		workers = len(pending)
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			// 每个协程只写自己分片对应的下标，无需加锁
			for n := w; n < len(pending); n += workers {
				if (n/workers)%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				infer(pending[n])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary：归属统计
type Summary struct {
	Total       int
	Owned       int
	Prospective int
	Unassigned  int
}

// Summarize：统计活跃归属、推断归属以及无法推断的邮编数
func Summarize(as []TerritoryAssignment) Summary {
	s := Summary{Total: len(as)}
	for _, a := range as {
		switch {
		case a.HasActiveOwner():
			s.Owned++
		case a.HasProspectiveOwner():
			s.Prospective++
		default:
			s.Unassigned++
		}
	}
	return s
}
