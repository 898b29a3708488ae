package check

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

// CommandExecutor abstracts os/exec for testability.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

var rttRegex = regexp.MustCompile(`time=(\d+\.?\d*)\s*ms`)

// CheckPing probes a host with a single ICMP echo via the system ping binary.
var CheckPing = NewPingCheck(&osExecutor{})

// NewPingCheck builds a ping check around the given executor. Parameters:
//
//	host    (string, required)
//	timeout (duration string, default 5s; rounded up to whole seconds)
func NewPingCheck(executor CommandExecutor) Func {
	return func(ctx context.Context, params Params) (Report, error) {
		host := params.String("host")
		if host == "" {
			return Report{}, fmt.Errorf("ping check: host parameter is required")
		}

		timeout := params.Duration("timeout", 5*time.Second)
		timeoutSec := int(math.Ceil(timeout.Seconds()))
		if timeoutSec < 1 {
			timeoutSec = 1
		}

		var args []string
		if runtime.GOOS == "darwin" {
			args = []string{"-c", "1", "-t", strconv.Itoa(timeoutSec), host}
		} else {
			args = []string{"-c", "1", "-W", strconv.Itoa(timeoutSec), host}
		}

		stdout, _, err := executor.Run(ctx, "ping", args...)
		if err != nil {
			return Report{}, fmt.Errorf("ping %s: %w", host, err)
		}

		matches := rttRegex.FindSubmatch(stdout)
		if matches == nil {
			return Errorf("could not parse RTT from ping output"), nil
		}

		ms, _ := strconv.ParseFloat(string(matches[1]), 64)
		return Report{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("rtt %.1fms", ms),
			Meta:    map[string]string{"rtt_ms": string(matches[1])},
		}, nil
	}
}
