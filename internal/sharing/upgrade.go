package sharing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	// AppID is the application id under which settings are stored.
	AppID = "files_sharing"

	// InstalledVersionKey holds the last version whose upgrade completed.
	InstalledVersionKey = "installed_version"

	// AppVersion is the version of the share schema this binary maintains.
	AppVersion = "0.3.6"

	// RepairBeforeVersion is the first version whose installations cannot
	// carry orphan shares left by earlier releases.
	RepairBeforeVersion = "0.3.5.6"
)

// Snapshotter takes a restorable copy of the database before destructive
// maintenance and returns where it was stored.
type Snapshotter interface {
	Snapshot(ctx context.Context, label string) (string, error)
}

// UpgradeResult reports what OnAppUpgrade did.
type UpgradeResult struct {
	From     string
	To       string
	Repaired bool
	Removed  int64
	Snapshot string
}

// CompareVersions compares two dotted numeric versions, returning -1, 0 or 1.
// Missing components compare as zero, so "1.2" equals "1.2.0". An empty
// version is treated as "0".
func CompareVersions(a, b string) (int, error) {
	pa, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	pb, err := parseVersion(b)
	if err != nil {
		return 0, err
	}

	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
	}
	return 0, nil
}

func parseVersion(v string) ([]int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return []int{0}, nil
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version %q", v)
		}
		out[i] = n
	}
	return out, nil
}

// OnAppUpgrade brings the share table up to AppVersion. Installations older
// than RepairBeforeVersion get a snapshot followed by an orphan repair sweep.
// The new version is recorded only after the repair succeeds, so a failed
// repair is retried on the next upgrade.
func (u *Updater) OnAppUpgrade(ctx context.Context) (*UpgradeResult, error) {
	installed, err := u.database.GetAppValue(ctx, AppID, InstalledVersionKey)
	if err != nil {
		return nil, fmt.Errorf("reading installed version: %w", err)
	}
	if installed == "" {
		installed = "0"
	}
	result := &UpgradeResult{From: installed, To: AppVersion}

	cmp, err := CompareVersions(installed, AppVersion)
	if err != nil {
		return nil, fmt.Errorf("comparing installed version: %w", err)
	}
	if cmp > 0 {
		return nil, fmt.Errorf("installed version %s is newer than %s (binary needs update)", installed, AppVersion)
	}

	needsRepair, err := CompareVersions(installed, RepairBeforeVersion)
	if err != nil {
		return nil, fmt.Errorf("comparing installed version: %w", err)
	}
	if needsRepair < 0 {
		if u.snapshotter != nil {
			location, err := u.snapshotter.Snapshot(ctx, "pre-repair-"+installed)
			if err != nil {
				return nil, fmt.Errorf("snapshotting database before repair: %w", err)
			}
			result.Snapshot = location
			u.logger.Info("snapshotted database before repair", "location", location)
		}

		removed, err := RepairOrphanShares(ctx, u.database)
		if err != nil {
			u.logger.Error("orphan share repair failed", "from", installed, "error", err)
			return nil, fmt.Errorf("repairing orphan shares: %w", err)
		}
		result.Repaired = true
		result.Removed = removed
		u.logger.Info("repaired orphan shares", "from", installed, "removed", removed)
	}

	if err := u.database.SetAppValue(ctx, AppID, InstalledVersionKey, AppVersion); err != nil {
		return nil, fmt.Errorf("recording installed version: %w", err)
	}
	if cmp < 0 {
		u.logger.Info("upgraded share schema", "from", installed, "to", AppVersion)
	}
	return result, nil
}
