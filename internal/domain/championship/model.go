package championship

import "strings"

type SyncMode string

const (
	SyncModeManual SyncMode = "manual"
	SyncModeHybrid SyncMode = "hybrid"
	SyncModeAuto   SyncMode = "auto"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

type Championship struct {
	ID       string
	Name     string
	APICode  string
	SyncMode SyncMode
	Status   string
}

func NormalizeSyncMode(value string) SyncMode {
	switch SyncMode(strings.ToLower(strings.TrimSpace(value))) {
	case SyncModeManual:
		return SyncModeManual
	case SyncModeAuto:
		return SyncModeAuto
	default:
		return SyncModeHybrid
	}
}

// AllowsAutomaticSync reports whether unattended triggers may touch the championship.
func (c Championship) AllowsAutomaticSync() bool {
	return c.SyncMode != SyncModeManual && c.Status != StatusArchived
}
