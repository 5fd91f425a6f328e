package core

// EngineSet bundles the billing engines the jobs are built against. The
// engines carry the business math (charge generation, batch file formats,
// provider integrations) and are injected at process wiring time; the job
// layer never constructs them itself.
type EngineSet struct {
	Anchor    AnchorEngine
	Batch     BatchEngine
	Fallback  FallbackEngine
	Rollout   RolloutResolver
	Directory AgencyDirectory
}
