package domain

// Segment is a portion of a route traveled on one line between two stations,
// or a zero-distance transfer at a single station (Transfer == true,
// From == To, DistanceKm == 0).
type Segment struct {
	LineID     string  `json:"line_id"`
	LineCode   string  `json:"line_code"`
	From       Station `json:"from"`
	To         Station `json:"to"`
	DistanceKm float64 `json:"distance_km"`
	Transfer   bool    `json:"transfer"`
}

// Route is an ordered station path plus the segments that cover it.
// Segment endpoints are contiguous with the station sequence, and
// TotalDistanceKm equals the sum of non-transfer segment distances.
type Route struct {
	Stations        []Station `json:"stations"`
	Segments        []Segment `json:"segments"`
	TotalDistanceKm float64   `json:"total_distance_km"`
}

// Empty reports whether the route carries no stations (destination
// unreachable).
func (r *Route) Empty() bool {
	return len(r.Stations) == 0
}

// Transfers counts the line changes in the route.
func (r *Route) Transfers() int {
	n := 0
	for _, s := range r.Segments {
		if s.Transfer {
			n++
		}
	}
	return n
}
