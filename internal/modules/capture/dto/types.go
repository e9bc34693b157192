package dto

import "time"

type CaptureInput struct {
	// Source overrides the configured source when set.
	Source string
	Device string
}

type CaptureOutput struct {
	Source     string
	Payload    string
	MediaType  string
	Width      int
	Height     int
	CapturedAt time.Time
}

type PluginInfo struct {
	Name    string
	Version string
	Enabled bool
	Binary  string
	Devices []string
}

type DoctorResult struct {
	Name            string
	BinaryReachable bool
	ChecksumValid   bool
	LifecycleOK     bool
	Error           string
}
