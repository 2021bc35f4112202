package xpipe

import "context"

// DaemonVersion describes the running daemon.
type DaemonVersion struct {
	Version          string `json:"version" yaml:"version"`
	CanonicalVersion string `json:"canonicalVersion" yaml:"canonical_version"`
	BuildVersion     string `json:"buildVersion" yaml:"build_version"`
	JavaVersion      string `json:"jvmVersion" yaml:"jvm_version"`
	Pro              bool   `json:"pro" yaml:"pro"`
}

// DaemonVersion returns the daemon's version information.
func (c *Client) DaemonVersion(ctx context.Context) (DaemonVersion, error) {
	var v DaemonVersion
	if err := c.call(ctx, request{endpoint: "/daemon/version"}, &v); err != nil {
		return DaemonVersion{}, err
	}
	return v, nil
}
