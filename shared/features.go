// Package shared holds cross-cutting gateway-wide configuration that
// doesn't belong to any single subsystem: runtime, safety, and
// observability feature flags.
package shared

// FeatureFlags configures optional, gateway-wide behavior.
type FeatureFlags struct {
	Runtime       RuntimeFlags
	Safety        SafetyFlags
	Observability ObservabilityFlags
}

// RuntimeFlags groups flags that change what the gateway actually talks
// to at startup.
type RuntimeFlags struct {
	// DryRun replaces all backend adapters with simulated, in-memory
	// implementations; no real hardware I/O occurs.
	DryRun bool

	// AutoStartServices starts every supervised service definition on
	// gateway startup, in dependency order.
	AutoStartServices bool

	// NoServiceManager disables the supervisor entirely; backend
	// processes are assumed to already be running externally.
	NoServiceManager bool
}

// SafetyFlags groups flags that change how strictly the envelope and the
// auto-rewind monitor react to violations.
type SafetyFlags struct {
	// AutoRewindEnabled runs the auto-rewind monitor, which polls the
	// aggregator's snapshot and triggers a rewind on an envelope
	// violation.
	AutoRewindEnabled bool

	// StrictVelocityLimits rejects out-of-bounds velocity commands
	// instead of clamping them.
	StrictVelocityLimits bool
}

// ObservabilityFlags groups flags affecting how the gateway reports on
// itself.
type ObservabilityFlags struct {
	// EnableMetrics is reported in the gateway's startup log; the
	// gateway serves no metrics endpoint.
	EnableMetrics bool

	// StructuredLogging selects JSON-formatted logs over text.
	StructuredLogging bool
}

// DefaultFeatureFlags returns the gateway's default flag configuration:
// real hardware, manual service start, clamp-don't-reject, metrics on.
func DefaultFeatureFlags() *FeatureFlags {
	return &FeatureFlags{
		Safety: SafetyFlags{
			AutoRewindEnabled: true,
		},
		Observability: ObservabilityFlags{
			EnableMetrics: true,
		},
	}
}

// FeatureFlagOption customizes a FeatureFlags value.
type FeatureFlagOption func(*FeatureFlags)

// WithDryRun sets the dry-run flag.
func WithDryRun(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Runtime.DryRun = enabled }
}

// WithAutoStartServices sets the auto-start-services flag.
func WithAutoStartServices(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Runtime.AutoStartServices = enabled }
}

// WithNoServiceManager sets the no-service-manager flag.
func WithNoServiceManager(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Runtime.NoServiceManager = enabled }
}

// WithAutoRewind sets the auto-rewind-enabled flag.
func WithAutoRewind(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Safety.AutoRewindEnabled = enabled }
}

// WithStrictVelocityLimits sets the reject-vs-clamp strictness flag.
func WithStrictVelocityLimits(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Safety.StrictVelocityLimits = enabled }
}

// WithMetrics sets the metrics flag.
func WithMetrics(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Observability.EnableMetrics = enabled }
}

// WithStructuredLogging sets the structured-logging flag.
func WithStructuredLogging(enabled bool) FeatureFlagOption {
	return func(f *FeatureFlags) { f.Observability.StructuredLogging = enabled }
}

// NewFeatureFlags returns a copy of base with the given options applied.
func NewFeatureFlags(base *FeatureFlags, options ...FeatureFlagOption) *FeatureFlags {
	flags := *base
	for _, option := range options {
		option(&flags)
	}
	return &flags
}
