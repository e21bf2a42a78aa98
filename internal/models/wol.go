package models

// WOLResult holds the result of a Wake-on-LAN send.
type WOLResult struct {
	PacketSent  bool
	BroadcastIP string // broadcast address actually used
	Error       error
}
