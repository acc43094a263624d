package runtime

import (
	"context"
	"log/slog"
	"os"
	"time"

	_ "github.com/shirou/gopsutil"
	"github.com/shirou/gopsutil/process"
)

// HealthWorker periodically logs the server process's own CPU and
// memory footprint. Observability only; it never touches the store.
type HealthWorker struct {
	log      *slog.Logger
	interval time.Duration
}

func NewHealthWorker(log *slog.Logger, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, interval: interval}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cpu, err := self.CPUPercent()
			if err != nil {
				w.log.Debug("CPU probe failed", "error", err)
				continue
			}
			mem, err := self.MemoryInfo()
			if err != nil {
				w.log.Debug("Memory probe failed", "error", err)
				continue
			}
			w.log.Info("Health probe",
				"cpu_percent", cpu, "rss_mb", mem.RSS/(1024*1024))
		}
	}
}
