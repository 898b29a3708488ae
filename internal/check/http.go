package check

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// CheckHTTP probes an HTTP endpoint. Parameters:
//
//	url             (string, required)
//	expected_status (int, default 200)
//	headers         (map of string to string)
//	warn_latency    (duration string; responses slower than this degrade to warning)
func CheckHTTP(ctx context.Context, params Params) (Report, error) {
	url := params.String("url")
	if url == "" {
		return Report{}, fmt.Errorf("http check: url parameter is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Report{}, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range params.StringMap("headers") {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Report{}, err
	}
	resp.Body.Close()

	meta := map[string]string{
		"status_code": strconv.Itoa(resp.StatusCode),
		"latency":     elapsed.Round(time.Millisecond).String(),
	}

	expected := params.Int("expected_status", http.StatusOK)
	if resp.StatusCode != expected {
		return Report{
			Status:  StatusError,
			Message: fmt.Sprintf("expected status %d, got %d", expected, resp.StatusCode),
			Meta:    meta,
		}, nil
	}

	if warn := params.Duration("warn_latency", 0); warn > 0 && elapsed > warn {
		return Report{
			Status:  StatusWarning,
			Message: fmt.Sprintf("response took %s (warn threshold %s)", elapsed.Round(time.Millisecond), warn),
			Meta:    meta,
		}, nil
	}

	return Report{Status: StatusHealthy, Message: fmt.Sprintf("%d in %s", resp.StatusCode, elapsed.Round(time.Millisecond)), Meta: meta}, nil
}
