package cli

const (
	FlagHome     = "home"
	FlagSchema   = "schema"
	FlagOut      = "out"
	FlagUDPPort  = "udp-port"
	FlagEndpoint = "endpoint"
	FlagStatic   = "static"
	FlagVerbose  = "verbose"
)
