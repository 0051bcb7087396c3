package domain

const (
	DefaultBackendURL                   = "http://localhost:8000/mcp"
	DefaultBackendTimeoutSeconds        = 30
	DefaultServerHost                   = "0.0.0.0"
	DefaultServerPort                   = 8080
	DefaultServerShutdownTimeoutSeconds = 5
	DefaultCatalogTTLSeconds            = 300
	DefaultCatalogStaleOnError          = true
	DefaultHeartbeatSeconds             = 30
	DefaultMCPEnabled                   = true
	DefaultMCPPath                      = "/mcp"
	DefaultObservabilityListenAddress   = "0.0.0.0:9090"
	DefaultObservabilityMetrics         = true
	DefaultObservabilityHealthz         = true
	DefaultLogLevel                     = "info"
	DefaultLogFormat                    = "json"
)

const (
	// EnvBackendURL names the backend base URL variable.
	EnvBackendURL = "LARAVEL_MCP_URL"
	// EnvServerPort names the listen port variable.
	EnvServerPort = "MCP_SERVER_PORT"
)

const (
	// PathSSE is the primary stream and invocation endpoint.
	PathSSE = "/sse"
	// PathMCPSSE aliases PathSSE.
	PathMCPSSE = "/mcp/sse"
)

// DefaultTools lists the backend tools the gateway forwards to when no
// registry is configured.
var DefaultTools = []string{
	"get_orders",
	"get_products",
	"get_order_analytics",
	"get_customer_stats",
	"send_excel_email",
}
