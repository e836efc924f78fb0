package usecases

import (
	"context"
	"sort"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// edge is a directed adjacency entry: you can reach To from the owning
// station over Line at a cost of DistanceKm.
type edge struct {
	To         *domain.Station
	Line       *domain.Line
	DistanceKm float64
}

// Network is an immutable snapshot of the line topology plus the derived
// indexes the planners need: a station adjacency list (all lines flattened)
// and a station → lines membership table. It is a pure function of the Line
// set; callers rebuild it whenever topology changes and never mutate it in
// place, which is what makes concurrent route requests safe.
type Network struct {
	Lines    []domain.Line
	stations map[string]*domain.Station
	adjacent map[string][]edge
	lineIdx  map[string][]*domain.Line // station id → lines serving it
}

// BuildNetwork derives the adjacency structure from the given lines. For
// every consecutive station pair on a line it adds two directed edges (the
// graph is undirected for pathfinding), weighted by the distance service.
// Lines are sorted by ID so membership scans have a stable order.
func BuildNetwork(ctx context.Context, lines []domain.Line, distances *DistanceService) *Network {
	sorted := make([]domain.Line, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	n := &Network{
		Lines:    sorted,
		stations: make(map[string]*domain.Station),
		adjacent: make(map[string][]edge),
		lineIdx:  make(map[string][]*domain.Line),
	}

	for li := range n.Lines {
		line := &n.Lines[li]
		for si := range line.Stations {
			st := &line.Stations[si]
			if _, ok := n.stations[st.ID]; !ok {
				n.stations[st.ID] = st
			}
			n.lineIdx[st.ID] = append(n.lineIdx[st.ID], line)
		}
		for si := 0; si < len(line.Stations)-1; si++ {
			from := n.stations[line.Stations[si].ID]
			to := n.stations[line.Stations[si+1].ID]
			d := distances.Distance(ctx, from, to)
			n.adjacent[from.ID] = append(n.adjacent[from.ID], edge{To: to, Line: line, DistanceKm: d})
			n.adjacent[to.ID] = append(n.adjacent[to.ID], edge{To: from, Line: line, DistanceKm: d})
		}
	}

	return n
}

// Station returns the snapshot's copy of a station, or nil.
func (n *Network) Station(id string) *domain.Station {
	return n.stations[id]
}

// LinesAt returns the lines serving a station, in stable (line id) order.
func (n *Network) LinesAt(stationID string) []*domain.Line {
	return n.lineIdx[stationID]
}

// commonLine returns the first line (stable order) serving both stations,
// or nil when they share none.
func (n *Network) commonLine(aID, bID string) *domain.Line {
	for _, la := range n.lineIdx[aID] {
		for _, lb := range n.lineIdx[bID] {
			if la.ID == lb.ID {
				return la
			}
		}
	}
	return nil
}

// adjacentOnLine returns the stations immediately before and after the given
// station in the line's ordering.
func (n *Network) adjacentOnLine(line *domain.Line, stationID string) []*domain.Station {
	idx := line.StationIndex(stationID)
	if idx < 0 {
		return nil
	}
	var out []*domain.Station
	if idx > 0 {
		out = append(out, n.stations[line.Stations[idx-1].ID])
	}
	if idx < len(line.Stations)-1 {
		out = append(out, n.stations[line.Stations[idx+1].ID])
	}
	return out
}
