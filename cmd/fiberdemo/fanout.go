package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/janneremes/fibersched/sched"
)

func newFanoutCommand() *cobra.Command {
	flags := &commonFlags{}
	var n int

	cmd := &cobra.Command{
		Use:   "fanout",
		Short: "Fan out N independent tasks incrementing a shared counter, then fan back in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFanout(flags, n)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&n, "n", 10000, "number of fanned-out tasks")

	return cmd
}

func runFanout(flags *commonFlags, n int) error {
	s := sched.New(flags.options())
	stop, err := flags.maybeStartDebugServer(s)
	if err != nil {
		return err
	}
	defer stop()

	var shared int64
	err = s.Run(context.Background(), sched.Task{Name: "fanout-main", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) {
		counter := sc.NewCounter()
		tasks := make([]sched.Task, n)
		for i := range tasks {
			tasks[i] = sched.Task{Name: "fanout-leaf", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) {
				atomic.AddInt64(&shared, 1)
			}}
		}
		sc.AddTasks(tasks, counter)
		_ = sc.WaitForCounter(ctx, counter, 0)
	}})
	if err != nil {
		return err
	}

	fmt.Printf("fanned out %d tasks, shared counter = %d\n", n, atomic.LoadInt64(&shared))
	fmt.Printf("scheduler stats: %+v\n", s.Stats())
	return nil
}
