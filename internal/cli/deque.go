package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/redistruct"
	"github.com/unkn0wn-root/redistruct/codec"
	"github.com/unkn0wn-root/redistruct/rx"
)

func newDequeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deque",
		Short: "Operate on a blocking deque",
	}

	push := &cobra.Command{
		Use:   "push [name] [value...]",
		Short: "Appends values at the tail, or at the head with --first",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			first, _ := cmd.Flags().GetBool("first")
			d, err := openDeque(a, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd, 0)
			defer cancel()
			for _, v := range args[1:] {
				m := d.PutLast(v)
				if first {
					m = d.PutFirst(v)
				}
				if _, _, err := m.Block(ctx); err != nil {
					return err
				}
			}
			n, err := rx.Sync(ctx, d.Size())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	push.Flags().Bool("first", false, wrapString("insert at the head instead of the tail"))

	pop := &cobra.Command{
		Use:   "pop [name]",
		Short: "Removes the head, or the tail with --last, without waiting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			last, _ := cmd.Flags().GetBool("last")
			d, err := openDeque(a, args[0])
			if err != nil {
				return err
			}
			m := d.PollFirst()
			if last {
				m = d.PollLast()
			}
			return printPopped(a, cmd, m, 0)
		},
	}
	pop.Flags().Bool("last", false, wrapString("take from the tail"))

	bpop := &cobra.Command{
		Use:   "bpop [name] [timeout]",
		Short: "Waits up to timeout (0 = forever) for an element",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("timeout must be a duration: %w", err)
			}
			last, _ := cmd.Flags().GetBool("last")
			from, _ := cmd.Flags().GetStringSlice("from")
			d, err := openDeque(a, args[0])
			if err != nil {
				return err
			}
			m := d.PollFirstFromAny(timeout, from...)
			if last {
				m = d.PollLastFromAny(timeout, from...)
			}
			if timeout == 0 {
				return printPopped(a, cmd, m, -1)
			}
			return printPopped(a, cmd, m, timeout)
		},
	}
	bpop.Flags().Bool("last", false, wrapString("take from the tail"))
	bpop.Flags().StringSlice("from", nil, wrapString("other deques to wait on, checked after this one"))

	cmd.AddCommand(push, pop, bpop)
	return cmd
}

func openDeque(a *app, name string) (*redistruct.BlockingDeque[string], error) {
	return redistruct.GetBlockingDequeWithCodec[string](a.cl, name, codec.String{})
}

// printPopped prints the element or "(empty)". wait < 0 drops the deadline.
func printPopped(a *app, cmd *cobra.Command, m rx.Mono[string], wait time.Duration) error {
	ctx, cancel := a.ctx(cmd, wait)
	defer cancel()
	v, ok, err := m.Block(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "(empty)")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}
