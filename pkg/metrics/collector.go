package metrics

// EnvironmentSnapshot is the subset of a loaded environment the collector
// needs in order to publish gauge metrics. It is a plain struct the caller
// fills in, so this package does not import pkg/types.
type EnvironmentSnapshot struct {
	// ShipStatuses maps ship name to a reachability label ("reachable",
	// "unreachable", "unknown").
	ShipStatuses map[string]string
	// ContainerStates maps container instance name to an observed state
	// label ("absent", "created", "running", "stopped").
	ContainerStates map[string]string
	ServiceCount    int
}

// RecordEnvironment publishes gauge metrics describing the environment a
// play is about to act on. Each call sets the gauges once from snap; it
// does not poll. Nothing in cmd/shipyard calls it.
func RecordEnvironment(snap EnvironmentSnapshot) {
	shipCounts := make(map[string]int)
	for _, status := range snap.ShipStatuses {
		shipCounts[status]++
	}
	for _, status := range []string{"reachable", "unreachable", "unknown"} {
		ShipsTotal.WithLabelValues(status).Set(float64(shipCounts[status]))
	}

	containerCounts := make(map[string]int)
	for _, state := range snap.ContainerStates {
		containerCounts[state]++
	}
	for state, count := range containerCounts {
		ContainersTotal.WithLabelValues(state).Set(float64(count))
	}

	ServicesTotal.Set(float64(snap.ServiceCount))
}
