package hdmap

import (
	"github.com/tsinghua-fib-lab/scenario-sim/utils/container"
)

// Route 车道级最短路（按车道长度计权），包含起点与终点车道
func (m *Map) Route(from, to int64) ([]int64, bool) {
	if _, ok := m.lanes[from]; !ok {
		return nil, false
	}
	if from == to {
		return []int64{from}, true
	}
	path, _, ok := m.shortestPath([]int64{from}, to)
	return path, ok
}

// shortestPath 多源Dijkstra
// 功能：从sources中任意一条车道的起点出发，沿后继关系到达goal车道的起点
// 返回：路径（含源与终点）、途经车道（不含终点）的长度之和、是否可达
func (m *Map) shortestPath(sources []int64, goal int64) ([]int64, float64, bool) {
	if _, ok := m.lanes[goal]; !ok {
		return nil, 0, false
	}
	dist := make(map[int64]float64)
	prev := make(map[int64]int64)
	done := make(map[int64]bool)
	pq := container.NewPriorityQueue[int64]()
	for _, s := range sources {
		if _, ok := dist[s]; !ok {
			dist[s] = 0
			pq.HeapPush(s, 0)
		}
	}
	for pq.Len() > 0 {
		u, d := pq.HeapPop()
		if done[u] {
			continue
		}
		done[u] = true
		if u == goal {
			path := []int64{u}
			for {
				p, ok := prev[path[0]]
				if !ok {
					break
				}
				path = append([]int64{p}, path...)
			}
			return path, d, true
		}
		l := m.lanes[u]
		for _, v := range l.successors {
			nd := d + l.length
			if old, ok := dist[v]; !ok || nd < old {
				dist[v] = nd
				prev[v] = u
				pq.HeapPush(v, nd)
			}
		}
	}
	return nil, 0, false
}
