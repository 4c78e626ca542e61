package events

import (
	"crypto/sha256"
	"fmt"
)

// PrivacyFilter masks sensitive fields before an event payload leaves the
// process over the network. The zero value is a no-op filter. Every
// payload topic carries an AgentID field, so that is the one field a
// filter here can mask; none of the five event payloads carry a raw
// working directory (the Collector/Registry pairing keeps that mapping
// internal), so there is no path-masking counterpart to the teacher's
// session.PrivacyFilter.MaskWorkingDirs.
type PrivacyFilter struct {
	MaskAgentIDs bool
}

// MaskAgentID reduces an agent id to a short opaque hash when
// MaskAgentIDs is set, otherwise returns it unchanged.
func (f PrivacyFilter) MaskAgentID(id string) string {
	if !f.MaskAgentIDs || id == "" {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return fmt.Sprintf("%x", sum[:6])
}

// IsNoop reports whether the filter would change anything.
func (f PrivacyFilter) IsNoop() bool {
	return !f.MaskAgentIDs
}
