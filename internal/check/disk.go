package check

import (
	"context"
	"fmt"
	"syscall"
)

// CheckDisk reports filesystem usage for a mount point. Parameters:
//
//	path          (string, default "/")
//	warn_percent  (number, default 80)
//	error_percent (number, default 90)
func CheckDisk(ctx context.Context, params Params) (Report, error) {
	path := params.StringOr("path", "/")
	warnPct := params.Float("warn_percent", 80)
	errorPct := params.Float("error_percent", 90)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return Report{}, fmt.Errorf("statfs %s: %w", path, err)
	}

	total := stat.Blocks * uint64(stat.Bsize)
	if total == 0 {
		return Errorf("filesystem at %s reports zero size", path), nil
	}
	free := stat.Bavail * uint64(stat.Bsize)
	usedPct := float64(total-free) / float64(total) * 100

	meta := map[string]string{
		"path":         path,
		"used_percent": fmt.Sprintf("%.1f", usedPct),
	}
	msg := fmt.Sprintf("%s is %.1f%% full", path, usedPct)

	switch {
	case usedPct >= errorPct:
		return Report{Status: StatusError, Message: msg, Meta: meta}, nil
	case usedPct >= warnPct:
		return Report{Status: StatusWarning, Message: msg, Meta: meta}, nil
	}
	return Report{Status: StatusHealthy, Message: msg, Meta: meta}, nil
}
