package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janneremes/fibersched/sched"
)

func newChainCommand() *cobra.Command {
	flags := &commonFlags{}
	var stages int

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Run a chain of dependent stages, each waiting on the next",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(flags, stages)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&stages, "stages", 100, "number of chained stages")

	return cmd
}

func runChain(flags *commonFlags, stages int) error {
	s := sched.New(flags.options())
	stop, err := flags.maybeStartDebugServer(s)
	if err != nil {
		return err
	}
	defer stop()

	var runStage func(ctx context.Context, sc *sched.Scheduler, i int)
	runStage = func(ctx context.Context, sc *sched.Scheduler, i int) {
		if i+1 >= stages {
			return
		}
		c := sc.NewCounter()
		next := i + 1
		sc.AddTasks([]sched.Task{{Name: "chain-stage", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) {
			runStage(ctx, sc, next)
		}}}, c)
		_ = sc.WaitForCounter(ctx, c, 0)
	}

	err = s.Run(context.Background(), sched.Task{Name: "chain-main", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) {
		runStage(ctx, sc, 0)
	}})
	if err != nil {
		return err
	}

	fmt.Printf("ran %d chained stages\n", stages)
	fmt.Printf("scheduler stats: %+v\n", s.Stats())
	return nil
}
