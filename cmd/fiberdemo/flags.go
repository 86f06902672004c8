package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/janneremes/fibersched/debugsrv"
	"github.com/janneremes/fibersched/sched"
)

// commonFlags holds the scheduler-shaping flags every subcommand exposes.
type commonFlags struct {
	workers   int
	poolSize  int
	stackSize int
	debugAddr string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.workers, "workers", 0, "worker thread count (default: runtime.NumCPU())")
	cmd.Flags().IntVar(&f.poolSize, "pool-size", 128, "fiber pool size")
	cmd.Flags().IntVar(&f.stackSize, "stack-size", 512*1024, "advisory per-fiber scratch buffer size in bytes")
	cmd.Flags().StringVar(&f.debugAddr, "debug-addr", "", "if set, serve /debug/scheduler and /metrics on this address")
}

func (f *commonFlags) options() sched.Options {
	logger, _ := zap.NewDevelopment()
	return sched.Options{
		FiberPoolSize:     f.poolSize,
		FiberStackSize:    f.stackSize,
		WorkerThreadCount: f.workers,
		IdleBackoff:       50 * time.Microsecond,
		Logger:            logger,
	}
}

// maybeStartDebugServer starts a debugsrv.Server when debugAddr is set and
// returns a stop function that is always safe to call.
func (f *commonFlags) maybeStartDebugServer(s *sched.Scheduler) (func(), error) {
	if f.debugAddr == "" {
		return func() {}, nil
	}
	srv := debugsrv.New(f.debugAddr, s)
	if err := srv.Start(); err != nil {
		return func() {}, err
	}
	return func() { _ = srv.Stop() }, nil
}
