package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janneremes/fibersched/sched"
)

func newTriangleCommand() *cobra.Command {
	flags := &commonFlags{}
	var n, chunk int

	cmd := &cobra.Command{
		Use:   "triangle",
		Short: "Sum 1..N by fanning the range out across chunk-sized tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriangle(flags, n, chunk)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&n, "n", 47_593_243, "upper bound of the sum")
	cmd.Flags().IntVar(&chunk, "chunk", 10000, "numbers summed per task")

	return cmd
}

func runTriangle(flags *commonFlags, n, chunk int) error {
	s := sched.New(flags.options())
	stop, err := flags.maybeStartDebugServer(s)
	if err != nil {
		return err
	}
	defer stop()

	var total int64
	err = s.Run(context.Background(), sched.Task{Name: "triangle-main", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) {
		numTasks := (n + chunk - 1) / chunk
		counter := sc.NewCounter()
		partials := make([]int64, numTasks)

		tasks := make([]sched.Task, numTasks)
		for i := 0; i < numTasks; i++ {
			i := i
			lo := i*chunk + 1
			hi := lo + chunk - 1
			if hi > n {
				hi = n
			}
			tasks[i] = sched.Task{Name: "triangle-chunk", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) {
				var sum int64
				for v := lo; v <= hi; v++ {
					sum += int64(v)
				}
				partials[i] = sum
			}}
		}

		sc.AddTasks(tasks, counter)
		if waitErr := sc.WaitForCounter(ctx, counter, 0); waitErr != nil {
			return
		}

		var sum int64
		for _, p := range partials {
			sum += p
		}
		total = sum
	}})
	if err != nil {
		return err
	}

	fmt.Printf("sum(1..%d) = %d\n", n, total)
	fmt.Printf("scheduler stats: %+v\n", s.Stats())
	return nil
}
