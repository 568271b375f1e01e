// Package route orders delivery stops from the warehouse origin under a
// selected objective. Open-path capacitated routing: the vehicle does not
// return to the origin. Small stop sets are solved exactly by permutation
// search; larger ones by greedy construction plus bounded 2-opt. Both paths
// are deterministic for identical inputs.
package route

import (
	"errors"
	"fmt"
	"sort"

	"fleetroute/internal/config"
	"fleetroute/internal/cost"
	"fleetroute/internal/geo"
	"fleetroute/internal/model"
)

// ErrInvalidRequest flags malformed sequencing input: empty stop set,
// duplicate premise ids, or an unknown mode.
var ErrInvalidRequest = errors.New("invalid request")

// Optimization modes.
const (
	ModeFastest  = "fastest"
	ModeCheapest = "cheapest"
	ModeGreenest = "greenest"
	ModeBalanced = "balanced"
)

// ValidMode reports whether mode is recognized.
func ValidMode(mode string) bool {
	switch mode {
	case ModeFastest, ModeCheapest, ModeGreenest, ModeBalanced:
		return true
	}
	return false
}

// Stop pairs a premise with the demand for this call. Demand <= 0 falls back
// to the premise's weekly demand.
type Stop struct {
	Premise model.Premise
	Demand  int
}

// Sequencer searches stop orderings. Stateless across calls; safe for
// concurrent use.
type Sequencer struct {
	est   *geo.Estimator
	costs *cost.Model

	exactMaxStops  int
	twoOptMaxIters int
	wDuration      float64
	wCost          float64
	wCO2           float64
}

// NewSequencer wires the estimator and cost model from startup configuration.
func NewSequencer(cfg config.Config) *Sequencer {
	return &Sequencer{
		est:            geo.NewEstimator(cfg),
		costs:          cost.NewModel(cfg),
		exactMaxStops:  cfg.ExactSearchMaxStops,
		twoOptMaxIters: cfg.TwoOptMaxIterations,
		wDuration:      cfg.BalancedDurationWeight,
		wCost:          cfg.BalancedCostWeight,
		wCO2:           cfg.BalancedCO2Weight,
	}
}

// problem is the per-call state: resolved stops plus the memoized leg matrix
// shared by every ordering evaluated during the search, including the three
// sub-optimizations behind the balanced mode.
type problem struct {
	origin  model.Coordinate
	stops   []Stop
	vehicle model.Vehicle
	// legs[i][j]: priced leg from point i to point j, where point 0 is the
	// origin and point k+1 is stops[k].
	legs [][]model.CostBreakdown
}

// Sequence orders stops from origin under mode, honoring vehicle capacity.
func (s *Sequencer) Sequence(origin model.Coordinate, stops []Stop, v model.Vehicle, mode string) (model.OptimizedRoute, error) {
	if len(stops) == 0 {
		return model.OptimizedRoute{}, fmt.Errorf("%w: empty stop set", ErrInvalidRequest)
	}
	if !ValidMode(mode) {
		return model.OptimizedRoute{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, mode)
	}
	seen := make(map[string]struct{}, len(stops))
	for _, st := range stops {
		if _, dup := seen[st.Premise.ID]; dup {
			return model.OptimizedRoute{}, fmt.Errorf("%w: duplicate premise %s", ErrInvalidRequest, st.Premise.ID)
		}
		seen[st.Premise.ID] = struct{}{}
	}

	// Default per-call demand to the premise's weekly demand, then gate on
	// aggregate capacity before any search work.
	resolved := make([]Stop, len(stops))
	copy(resolved, stops)
	aggregate := 0
	for i := range resolved {
		if resolved[i].Demand <= 0 {
			resolved[i].Demand = resolved[i].Premise.WeeklyDemand
		}
		aggregate += resolved[i].Demand
	}
	report, err := cost.ValidateCapacity(aggregate, v)
	if err != nil {
		return model.OptimizedRoute{}, err
	}

	// Stops sorted by premise id so permutation search visits orderings in
	// lexicographic id order, which makes the tie-break (lowest id at the
	// first differing position) fall out of first-strictly-better wins.
	sort.Slice(resolved, func(i, j int) bool { return resolved[i].Premise.ID < resolved[j].Premise.ID })

	p, err := s.buildProblem(origin, resolved, v)
	if err != nil {
		return model.OptimizedRoute{}, err
	}

	var order []int
	var baselines *model.ModeBaselines
	if mode == ModeBalanced {
		order, baselines, err = s.searchBalanced(p)
	} else {
		order, err = s.search(p, objectiveFor(mode))
	}
	if err != nil {
		return model.OptimizedRoute{}, err
	}

	rt := assemble(p, order, mode)
	rt.Capacity = report
	rt.Baselines = baselines
	return rt, nil
}

// buildProblem prices every leg once; all candidate orderings share the matrix.
func (s *Sequencer) buildProblem(origin model.Coordinate, stops []Stop, v model.Vehicle) (*problem, error) {
	n := len(stops)
	point := func(i int) model.Coordinate {
		if i == 0 {
			return origin
		}
		return stops[i-1].Premise.Location
	}
	legs := make([][]model.CostBreakdown, n+1)
	for i := 0; i <= n; i++ {
		legs[i] = make([]model.CostBreakdown, n+1)
		for j := 0; j <= n; j++ {
			if i == j {
				continue
			}
			est := s.est.Estimate(point(i), point(j))
			demand := 0
			if j > 0 {
				demand = stops[j-1].Demand
			}
			bd, err := s.costs.Price(est.DistanceKm, est.DurationHours, demand, v, est.IsAlpine)
			if err != nil {
				return nil, err
			}
			legs[i][j] = bd
		}
	}
	return &problem{origin: origin, stops: stops, vehicle: v, legs: legs}, nil
}

// objective maps route totals to the scalar being minimized.
type objective func(totals model.CostBreakdown) float64

func objectiveFor(mode string) objective {
	switch mode {
	case ModeFastest:
		return func(t model.CostBreakdown) float64 { return t.DurationHours }
	case ModeGreenest:
		return func(t model.CostBreakdown) float64 { return t.CO2Emissions }
	default: // cheapest
		return func(t model.CostBreakdown) float64 { return t.TotalCost }
	}
}

// totalsOf sums the legs of an ordering (indices into p.stops).
func totalsOf(p *problem, order []int) model.CostBreakdown {
	var agg model.CostBreakdown
	prev := 0
	for _, idx := range order {
		agg.Add(p.legs[prev][idx+1])
		prev = idx + 1
	}
	return agg
}

// search picks the ordering minimizing obj: exact below the stop-count
// threshold, greedy construction plus bounded 2-opt above it.
func (s *Sequencer) search(p *problem, obj objective) ([]int, error) {
	if len(p.stops) <= s.exactMaxStops {
		return exactSearch(p, obj), nil
	}
	order := greedyOrder(p, obj)
	return s.improve2Opt(p, order, obj), nil
}

// searchBalanced normalizes each metric against its own single-objective
// optimum, then minimizes the weighted sum. The three sub-optimizations reuse
// the problem's leg matrix, so no distance or cost is recomputed.
func (s *Sequencer) searchBalanced(p *problem) ([]int, *model.ModeBaselines, error) {
	fastest, err := s.search(p, objectiveFor(ModeFastest))
	if err != nil {
		return nil, nil, err
	}
	cheapest, err := s.search(p, objectiveFor(ModeCheapest))
	if err != nil {
		return nil, nil, err
	}
	greenest, err := s.search(p, objectiveFor(ModeGreenest))
	if err != nil {
		return nil, nil, err
	}
	base := &model.ModeBaselines{
		BestDurationHours: totalsOf(p, fastest).DurationHours,
		BestTotalCost:     totalsOf(p, cheapest).TotalCost,
		BestCO2Kg:         totalsOf(p, greenest).CO2Emissions,
	}
	norm := func(v, baseline float64) float64 {
		if baseline <= 0 {
			return 0
		}
		return v / baseline
	}
	balanced := func(t model.CostBreakdown) float64 {
		return s.wDuration*norm(t.DurationHours, base.BestDurationHours) +
			s.wCost*norm(t.TotalCost, base.BestTotalCost) +
			s.wCO2*norm(t.CO2Emissions, base.BestCO2Kg)
	}
	order, err := s.search(p, balanced)
	if err != nil {
		return nil, nil, err
	}
	return order, base, nil
}

// exactSearch evaluates every permutation. Candidates are generated in
// lexicographic premise-id order (stops are pre-sorted), and only a strictly
// better objective replaces the incumbent, so ties resolve to the ordering
// with the lowest id at the first differing position.
func exactSearch(p *problem, obj objective) []int {
	n := len(p.stops)
	best := make([]int, 0, n)
	bestVal := 0.0
	first := true
	cur := make([]int, 0, n)
	used := make([]bool, n)

	var walk func()
	walk = func() {
		if len(cur) == n {
			v := obj(totalsOf(p, cur))
			if first || v < bestVal {
				best = append(best[:0], cur...)
				bestVal = v
				first = false
			}
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, i)
			walk()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	walk()
	return best
}

// greedyOrder builds an initial ordering by repeatedly appending the
// unvisited stop whose arriving leg scores lowest under obj, ties broken by
// premise id (the pre-sort makes lower ids win on equal scores).
func greedyOrder(p *problem, obj objective) []int {
	n := len(p.stops)
	order := make([]int, 0, n)
	visited := make([]bool, n)
	prev := 0
	for len(order) < n {
		next := -1
		var nextVal float64
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			v := obj(p.legs[prev][i+1])
			if next == -1 || v < nextVal {
				next = i
				nextVal = v
			}
		}
		visited[next] = true
		order = append(order, next)
		prev = next + 1
	}
	return order
}

// improve2Opt reverses segments while the objective strictly improves, up to
// the configured sweep cap. Open path: position 0 may move, only the origin
// stays fixed.
func (s *Sequencer) improve2Opt(p *problem, order []int, obj objective) []int {
	best := append([]int(nil), order...)
	bestVal := obj(totalsOf(p, best))
	n := len(best)
	for it := 0; it < s.twoOptMaxIters; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				v := obj(totalsOf(p, cand))
				if v+1e-9 < bestVal {
					best = cand
					bestVal = v
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

// assemble materializes the winning ordering into an OptimizedRoute.
func assemble(p *problem, order []int, mode string) model.OptimizedRoute {
	rt := model.OptimizedRoute{
		Mode:      mode,
		VehicleID: p.vehicle.ID,
		Stops:     make([]model.RouteStop, 0, len(order)),
	}
	prev := 0
	for seq, idx := range order {
		st := p.stops[idx]
		leg := p.legs[prev][idx+1]
		rt.Stops = append(rt.Stops, model.RouteStop{
			Seq:       seq,
			PremiseID: st.Premise.ID,
			Name:      st.Premise.Name,
			Demand:    st.Demand,
			Leg:       leg,
		})
		rt.Totals.Add(leg)
		prev = idx + 1
	}
	return rt
}
