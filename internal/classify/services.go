package classify

import (
	"fmt"
	"strings"
)

// GameServerLabel marks a connection as carrying game traffic. The selector
// keys on it, so tunnel hops are relabeled to exactly this value.
const GameServerLabel = "Game Server"

// servicePorts maps well-known remote ports to display names. The game ports
// are the fixed set the monitored client is known to use.
var servicePorts = map[int]string{
	8888: "Game Server (XignCode)",
	8889: "Game Server",
	8884: "Game Server",
	8885: "Game Server",
	443:  "Web/Auth",
	80:   "HTTP",
	53:   "DNS",
}

// ServiceName returns a human-readable service name for a remote port.
func ServiceName(port int) string {
	if name, ok := servicePorts[port]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", port)
}

// IsGameService reports whether a service name denotes game-server traffic,
// including variants like "Game Server (XignCode)".
func IsGameService(name string) bool {
	return strings.Contains(name, GameServerLabel)
}
