package optimize

import (
	"sort"

	"dispatch/pkg/logger"
)

// AssignPersonnel distributes personnel across vehicles to maximize skill
// diversity per vehicle: multi-skilled personnel are placed
// first, and a cursor advances through the vehicle list round-robin so a
// rare skill does not end up clustered on one vehicle.
//
// vehicleCapacities gives each vehicle's personnel-carrying capacity, keyed
// by vehicle id. Vehicles are considered in ascending id order whatever
// the order of vehicleIDs; the result is keyed by vehicle id.
func AssignPersonnel(personnel []CandidatePersonnel, vehicleIDs []int64, vehicleCapacities map[int64]int) map[int64][]CandidatePersonnel {
	ranked := make([]CandidatePersonnel, len(personnel))
	copy(ranked, personnel)
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := len(ranked[i].Skills), len(ranked[j].Skills)
		if si != sj {
			return si > sj
		}
		return ranked[i].PersonnelID < ranked[j].PersonnelID
	})

	vehicles := make([]int64, len(vehicleIDs))
	copy(vehicles, vehicleIDs)
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i] < vehicles[j] })

	assigned := make(map[int64][]CandidatePersonnel, len(vehicles))
	for _, id := range vehicles {
		assigned[id] = nil
	}

	if len(vehicles) == 0 {
		return assigned
	}

	cursor := 0
	for _, p := range ranked {
		placed := false
		for attempts := 0; attempts < len(vehicles); attempts++ {
			candidate := vehicles[cursor%len(vehicles)]
			if len(assigned[candidate]) < vehicleCapacities[candidate] {
				assigned[candidate] = append(assigned[candidate], p)
				cursor++
				placed = true
				break
			}
			cursor++
		}
		if !placed {
			logger.Log.Warn("personnel dropped from assignment, no vehicle capacity remaining",
				"personnel_id", p.PersonnelID)
		}
	}

	return assigned
}
