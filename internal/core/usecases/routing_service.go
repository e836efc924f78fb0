package usecases

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mytransittn/transitfare/internal/core/domain"
	"github.com/mytransittn/transitfare/internal/core/ports"
	"github.com/mytransittn/transitfare/internal/pkg/metrics"
)

// RoutingService answers route queries over the current network snapshot.
// Queries are read-only and safe to run concurrently; Rebuild swaps the
// snapshot atomically whenever topology changes.
type RoutingService struct {
	lines     ports.LineRepository
	distances *DistanceService

	mu  sync.RWMutex
	net *Network
}

// NewRoutingService creates a RoutingService. Call Rebuild before serving
// queries.
func NewRoutingService(lines ports.LineRepository, distances *DistanceService) *RoutingService {
	return &RoutingService{lines: lines, distances: distances}
}

// Rebuild loads all lines and rebuilds the graph from scratch. There is no
// incremental mutation: the new snapshot replaces the old one wholesale.
func (s *RoutingService) Rebuild(ctx context.Context) error {
	lines, err := s.lines.ListWithStations(ctx)
	if err != nil {
		return fmt.Errorf("load lines: %w", err)
	}

	net := BuildNetwork(ctx, lines, s.distances)

	s.mu.Lock()
	s.net = net
	s.mu.Unlock()

	metrics.NetworkRebuilds.Inc()
	slog.Info("network rebuilt", "lines", len(lines), "stations", len(net.stations))
	return nil
}

func (s *RoutingService) snapshot() *Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.net
}

// Network returns the current snapshot (nil before the first Rebuild).
func (s *RoutingService) Network() *Network {
	return s.snapshot()
}

// ---------------------------------------------------------------------------
// Topology shortest path (Dijkstra, line-agnostic)
// ---------------------------------------------------------------------------

type pqItem struct {
	stationID string
	dist      float64
	index     int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].index = i; pq[j].index = j }
func (pq *priorityQueue) Push(x interface{}) { it := x.(*pqItem); it.index = len(*pq); *pq = append(*pq, it) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return it
}

// FindTopologyRoute runs Dijkstra over the flattened station graph, ignoring
// which line serves which edge. Ties between equal-distance paths resolve to
// whichever was discovered first; that ordering is not a guarantee. An
// unreachable destination yields an empty route, not an error.
func (s *RoutingService) FindTopologyRoute(ctx context.Context, startID, endID string) (*domain.Route, error) {
	net := s.snapshot()
	if net == nil {
		return nil, fmt.Errorf("network not built")
	}
	if startID == endID {
		return nil, domain.ErrSameStation
	}
	start := net.Station(startID)
	if start == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStationNotFound, startID)
	}
	end := net.Station(endID)
	if end == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStationNotFound, endID)
	}

	dist := map[string]float64{startID: 0}
	prev := map[string]string{}
	visited := map[string]bool{}

	pq := priorityQueue{{stationID: startID, dist: 0}}
	heap.Init(&pq)

	for pq.Len() > 0 {
		// Cooperative cancellation between relaxation rounds.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := heap.Pop(&pq).(*pqItem)
		if visited[current.stationID] {
			continue
		}
		visited[current.stationID] = true
		if current.stationID == endID {
			break
		}

		for _, e := range net.adjacent[current.stationID] {
			if visited[e.To.ID] {
				continue
			}
			alt := dist[current.stationID] + e.DistanceKm
			if old, ok := dist[e.To.ID]; !ok || alt < old {
				dist[e.To.ID] = alt
				prev[e.To.ID] = current.stationID
				heap.Push(&pq, &pqItem{stationID: e.To.ID, dist: alt})
			}
		}
	}

	if _, ok := prev[endID]; !ok {
		metrics.RoutesComputed.WithLabelValues("topology", "unreachable").Inc()
		return &domain.Route{}, nil
	}

	// Walk predecessors back to the start.
	var path []domain.Station
	for id := endID; ; id = prev[id] {
		path = append(path, *net.Station(id))
		if id == startID {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	segments, err := s.inferSegments(ctx, net, path)
	if err != nil {
		return nil, err
	}

	metrics.RoutesComputed.WithLabelValues("topology", "ok").Inc()
	return &domain.Route{
		Stations:        path,
		Segments:        segments,
		TotalDistanceKm: dist[endID],
	}, nil
}

// inferSegments assigns lines to a reconstructed station path after the
// fact: consecutive pairs sharing the same line coalesce into one segment.
// A pair with no common line means the graph data is corrupt.
func (s *RoutingService) inferSegments(ctx context.Context, net *Network, path []domain.Station) ([]domain.Segment, error) {
	if len(path) < 2 {
		return nil, nil
	}

	var segments []domain.Segment
	var currentLine *domain.Line
	segStart := 0
	segDist := 0.0

	flush := func(endIdx int) {
		segments = append(segments, domain.Segment{
			LineID:     currentLine.ID,
			LineCode:   currentLine.Code,
			From:       path[segStart],
			To:         path[endIdx],
			DistanceKm: segDist,
		})
	}

	for i := 1; i < len(path); i++ {
		line := net.commonLine(path[i-1].ID, path[i].ID)
		if line == nil {
			slog.Error("route reconstruction hit stations with no common line",
				"from", path[i-1].ID, "to", path[i].ID)
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrDisconnectedRoute, path[i-1].Name, path[i].Name)
		}

		pairDist := s.distances.Distance(ctx, net.Station(path[i-1].ID), net.Station(path[i].ID))

		if currentLine == nil {
			currentLine = line
		} else if currentLine.ID != line.ID {
			flush(i - 1)
			segStart = i - 1
			segDist = 0
			currentLine = line
		}
		segDist += pairDist
	}
	flush(len(path) - 1)

	return segments, nil
}

// ---------------------------------------------------------------------------
// Line-aware planner (direct route, then transfer search)
// ---------------------------------------------------------------------------

// FindLineAwareRoute honors line membership: it prefers a single-line direct
// route, and only when none exists falls back to a breadth-first search over
// (station, line) states that inserts explicit zero-distance transfer
// segments at line changes. When several lines serve both endpoints the
// first in stable line order wins; that preference is deliberate but not an
// optimality guarantee. No route at all yields domain.ErrNoRouteFound.
func (s *RoutingService) FindLineAwareRoute(ctx context.Context, startID, endID string) (*domain.Route, error) {
	net := s.snapshot()
	if net == nil {
		return nil, fmt.Errorf("network not built")
	}
	if startID == endID {
		return nil, domain.ErrSameStation
	}
	start := net.Station(startID)
	if start == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStationNotFound, startID)
	}
	end := net.Station(endID)
	if end == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStationNotFound, endID)
	}

	if route := s.directRoute(ctx, net, start, end); route != nil {
		metrics.RoutesComputed.WithLabelValues("line_aware", "direct").Inc()
		return route, nil
	}

	route, err := s.transferSearch(ctx, net, start, end)
	if err != nil {
		return nil, err
	}
	if route == nil {
		metrics.RoutesComputed.WithLabelValues("line_aware", "unreachable").Inc()
		return nil, domain.ErrNoRouteFound
	}
	metrics.RoutesComputed.WithLabelValues("line_aware", "transfer").Inc()
	return route, nil
}

// directRoute returns the single-line slice between the two stations when
// some line contains both, or nil.
func (s *RoutingService) directRoute(ctx context.Context, net *Network, start, end *domain.Station) *domain.Route {
	for _, line := range net.LinesAt(start.ID) {
		si := line.StationIndex(start.ID)
		ei := line.StationIndex(end.ID)
		if si < 0 || ei < 0 {
			continue
		}

		lo, hi := si, ei
		if lo > hi {
			lo, hi = hi, lo
		}

		total := 0.0
		for i := lo; i < hi; i++ {
			total += s.distances.Distance(ctx,
				net.Station(line.Stations[i].ID),
				net.Station(line.Stations[i+1].ID))
		}

		// Station path in actual travel direction.
		stations := make([]domain.Station, 0, hi-lo+1)
		if si <= ei {
			for i := si; i <= ei; i++ {
				stations = append(stations, line.Stations[i])
			}
		} else {
			for i := si; i >= ei; i-- {
				stations = append(stations, line.Stations[i])
			}
		}

		return &domain.Route{
			Stations: stations,
			Segments: []domain.Segment{{
				LineID:     line.ID,
				LineCode:   line.Code,
				From:       *start,
				To:         *end,
				DistanceKm: total,
			}},
			TotalDistanceKm: total,
		}
	}
	return nil
}

// searchNode is one BFS state: a station reached while riding a given line.
type searchNode struct {
	station *domain.Station
	line    *domain.Line
	parent  *searchNode
	edgeKm  float64 // distance from parent (0 for transfers)
}

func (s *RoutingService) transferSearch(ctx context.Context, net *Network, start, end *domain.Station) (*domain.Route, error) {
	var queue []*searchNode
	seen := map[string]bool{}

	for _, line := range net.LinesAt(start.ID) {
		queue = append(queue, &searchNode{station: start, line: line})
		seen[start.ID+"/"+line.ID] = true
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node := queue[0]
		queue = queue[1:]

		if node.station.ID == end.ID {
			return s.reconstruct(node), nil
		}

		// Ride the current line to an adjacent station.
		for _, next := range net.adjacentOnLine(node.line, node.station.ID) {
			key := next.ID + "/" + node.line.ID
			if seen[key] {
				continue
			}
			seen[key] = true
			d := s.distances.Distance(ctx, node.station, next)
			queue = append(queue, &searchNode{station: next, line: node.line, parent: node, edgeKm: d})
		}

		// Change line at this station. Never at the seed station: the start
		// states already cover every line there.
		if node.parent != nil {
			for _, other := range net.LinesAt(node.station.ID) {
				if other.ID == node.line.ID {
					continue
				}
				key := node.station.ID + "/" + other.ID
				if seen[key] {
					continue
				}
				seen[key] = true
				queue = append(queue, &searchNode{station: node.station, line: other, parent: node})
			}
		}
	}

	return nil, nil
}

// reconstruct collapses the state chain into a route: same-line runs merge
// into distance segments, line switches become zero-distance transfer
// segments at the switch station.
func (s *RoutingService) reconstruct(endNode *searchNode) *domain.Route {
	var chain []*searchNode
	for n := endNode; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	route := &domain.Route{Stations: []domain.Station{*chain[0].station}}

	var run *domain.Segment
	for i := 1; i < len(chain); i++ {
		cur := chain[i]
		prev := chain[i-1]

		if cur.line.ID != prev.line.ID {
			// Line switch: close the open run, then record the transfer on
			// the new line at the switch station.
			if run != nil {
				route.Segments = append(route.Segments, *run)
				run = nil
			}
			route.Segments = append(route.Segments, domain.Segment{
				LineID:   cur.line.ID,
				LineCode: cur.line.Code,
				From:     *prev.station,
				To:       *prev.station,
				Transfer: true,
			})
			continue
		}

		if run == nil {
			run = &domain.Segment{
				LineID:   cur.line.ID,
				LineCode: cur.line.Code,
				From:     *prev.station,
			}
		}
		run.To = *cur.station
		run.DistanceKm += cur.edgeKm
		route.TotalDistanceKm += cur.edgeKm
		route.Stations = append(route.Stations, *cur.station)
	}
	if run != nil {
		route.Segments = append(route.Segments, *run)
	}

	return route
}
