package check

import (
	"context"
	"fmt"
	"net"
	"time"
)

// CheckTCP probes a TCP endpoint by establishing a connection. Parameters:
//
//	address (string, required, host:port)
func CheckTCP(ctx context.Context, params Params) (Report, error) {
	address := params.String("address")
	if address == "" {
		return Report{}, fmt.Errorf("tcp check: address parameter is required")
	}

	start := time.Now()
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Report{}, fmt.Errorf("dial tcp %s: %w", address, err)
	}
	conn.Close()

	return Report{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("connected in %s", time.Since(start).Round(time.Millisecond)),
	}, nil
}
