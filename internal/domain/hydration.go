package domain

// HydrationState is a stage of the hydration state machine.
type HydrationState string

const (
	HydrationUninitialized  HydrationState = "UNINITIALIZED"
	HydrationAuthValidating HydrationState = "AUTH_VALIDATING"
	HydrationSeeding        HydrationState = "SEEDING"
	HydrationFetching       HydrationState = "FETCHING"
	HydrationPersisting     HydrationState = "PERSISTING"
	HydrationVerifying      HydrationState = "VERIFYING"
	HydrationReady          HydrationState = "READY"
	HydrationError          HydrationState = "ERROR"
)
