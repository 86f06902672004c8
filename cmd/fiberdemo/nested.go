package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/janneremes/fibersched/sched"
)

func newNestedCommand() *cobra.Command {
	flags := &commonFlags{}

	cmd := &cobra.Command{
		Use:   "nested",
		Short: "Run nested WaitForCounter: two branches, each with two leaves",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNested(flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func runNested(flags *commonFlags) error {
	s := sched.New(flags.options())
	stop, err := flags.maybeStartDebugServer(s)
	if err != nil {
		return err
	}
	defer stop()

	var mu sync.Mutex
	var order []string
	mark := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	branch := func(ctx context.Context, sc *sched.Scheduler, name string) {
		c := sc.NewCounter()
		sc.AddTasks([]sched.Task{
			{Name: name + "-leaf-1", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) { mark(name + "1") }},
			{Name: name + "-leaf-2", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) { mark(name + "2") }},
		}, c)
		_ = sc.WaitForCounter(ctx, c, 0)
		mark(name)
	}

	err = s.Run(context.Background(), sched.Task{Name: "nested-main", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) {
		c := sc.NewCounter()
		sc.AddTasks([]sched.Task{
			{Name: "branch-a", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) { branch(ctx, sc, "A") }},
			{Name: "branch-b", Fn: func(ctx context.Context, sc *sched.Scheduler, arg interface{}) { branch(ctx, sc, "B") }},
		}, c)
		_ = sc.WaitForCounter(ctx, c, 0)
		mark("parent")
	}})
	if err != nil {
		return err
	}

	fmt.Printf("completion order: %v\n", order)
	fmt.Printf("scheduler stats: %+v\n", s.Stats())
	return nil
}
