package vault

import (
	"fmt"
	"strings"
)

// checkSnapshotName rejects names that could escape the vault's namespace.
func checkSnapshotName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}
