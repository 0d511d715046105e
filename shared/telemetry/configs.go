package telemetry

// Predefined service configurations
var (
	// OrchestratorServiceConfig is the telemetry configuration for the saga coordinator
	OrchestratorServiceConfig = Config{
		ServiceName:    "saga-orchestrator",
		ServiceVersion: "1.0.0",
	}

	// ParticipantsServiceConfig is the telemetry configuration for the payment and inventory participants
	ParticipantsServiceConfig = Config{
		ServiceName:    "saga-participants",
		ServiceVersion: "1.0.0",
	}
)

// WithOTLPEndpoint sets the OTLP endpoint for a config
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

// WithVersion sets the service version for a config
func (c Config) WithVersion(version string) Config {
	c.ServiceVersion = version
	return c
}
