package realtime

import "time"

const (
	// Max bytes per inbound frame. The feed is server-to-client only, so anything
	// larger than a control frame is a misbehaving peer.
	maxFrameBytes = 4 << 10

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second
)
