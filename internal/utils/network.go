package utils

import (
	"path/filepath"
	"strings"
)

// IsVirtualInterface checks if the interface is virtual/non-physical
func IsVirtualInterface(name string) bool {
	virtualPrefixes := []string{
		"docker", "veth", "br-", "vmbr", "virbr",
		"vnet", "tun", "tap", "bond", "team",
		"vmnet", "wg", "ham", "vxlan", "overlay",
		"utun", "llw", "awdl", "anpi",
	}

	name = strings.ToLower(name)
	for _, prefix := range virtualPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether name matches one of the shell patterns.
// Malformed patterns never match.
func MatchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
