package reports

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/estate_console/config"
	"github.com/sirupsen/logrus"
)

func pipelineSlowMs() int64 {
	// Env: PIPELINE_SLOW_MS (default 200ms)
	ms := int64(200)
	if v := strings.TrimSpace(os.Getenv("PIPELINE_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowPipeline(started time.Time, fetched, matched int) {
	d := time.Since(started)
	if d.Milliseconds() < pipelineSlowMs() {
		return
	}
	config.GetLogger().WithFields(logrus.Fields{
		"module":  "reports",
		"ms":      d.Milliseconds(),
		"fetched": fetched,
		"matched": matched,
	}).Warn("slow view pipeline")
}
