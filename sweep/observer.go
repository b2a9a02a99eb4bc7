package sweep

// Observer receives every sample and every finished sweep. Implementations
// must be goroutine-safe when a campaign runs sweeps in parallel.
type Observer interface {
	OnSample(key SweepKey, cfg RunConfig, sample Sample)
	OnResult(result *Result)
}

// Observers fans notifications out to each non-nil observer in order.
type Observers []Observer

func (obs Observers) OnSample(key SweepKey, cfg RunConfig, sample Sample) {
	for _, o := range obs {
		if o != nil {
			o.OnSample(key, cfg, sample)
		}
	}
}

func (obs Observers) OnResult(result *Result) {
	for _, o := range obs {
		if o != nil {
			o.OnResult(result)
		}
	}
}
