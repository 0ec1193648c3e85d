package mqtt

import "fmt"

// Topic prefixes for the Wagonloader MQTT namespace.
const (
	// TopicPrefixEvent is the base for loading event topics.
	TopicPrefixEvent = "wagonloader/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "wagonloader/system"
)

// Topics provides builders for Wagonloader MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// LoadingEvent returns the per-siding loading event topic.
//
// Example: wagonloader/event/loading/S1
func (Topics) LoadingEvent(siding string) string {
	return fmt.Sprintf("%s/loading/%s", TopicPrefixEvent, siding)
}

// SystemStatus returns the system status topic.
//
// Example: wagonloader/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
