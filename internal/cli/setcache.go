package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/redistruct"
	"github.com/unkn0wn-root/redistruct/codec"
	"github.com/unkn0wn-root/redistruct/rx"
)

func newSetCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "setcache",
		Aliases: []string{"set"},
		Short:   "Operate on a set cache with per-member expiration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add [name] [value...]",
			Short: "Adds eternal members and prints how many were new",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSet(a, cmd, args[0], func(s *redistruct.SetCache[string]) rx.Mono[int64] {
					return s.AddAll(args[1:])
				})
			},
		},
		&cobra.Command{
			Use:   "add-ttl [name] [ttl] [value]",
			Short: "Adds a member that expires after ttl (e.g. 30s, 5m)",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				ttl, err := time.ParseDuration(args[1])
				if err != nil {
					return fmt.Errorf("ttl must be a duration: %w", err)
				}
				return runSet(a, cmd, args[0], func(s *redistruct.SetCache[string]) rx.Mono[bool] {
					return s.AddTTL(args[2], ttl)
				})
			},
		},
		&cobra.Command{
			Use:   "remove [name] [value...]",
			Short: "Removes members and prints whether any live member was removed",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSet(a, cmd, args[0], func(s *redistruct.SetCache[string]) rx.Mono[bool] {
					return s.RemoveAll(args[1:])
				})
			},
		},
		&cobra.Command{
			Use:   "contains [name] [value...]",
			Short: "Prints whether every value is a live member",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSet(a, cmd, args[0], func(s *redistruct.SetCache[string]) rx.Mono[bool] {
					return s.ContainsAll(args[1:])
				})
			},
		},
		&cobra.Command{
			Use:   "size [name]",
			Short: "Prints the number of live members",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSet(a, cmd, args[0], (*redistruct.SetCache[string]).Size)
			},
		},
		&cobra.Command{
			Use:   "members [name]",
			Short: "Prints every live member, one per line",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := redistruct.GetSetCacheWithCodec[string](a.cl, args[0], codec.String{})
				if err != nil {
					return err
				}
				ctx, cancel := a.ctx(cmd, 0)
				defer cancel()
				for v, err := range s.Iterator(ctx) {
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "retain [name] [value...]",
			Short: "Keeps only the given values; with none, clears the set",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSet(a, cmd, args[0], func(s *redistruct.SetCache[string]) rx.Mono[bool] {
					return s.RetainAll(args[1:])
				})
			},
		},
		&cobra.Command{
			Use:   "expire [name] [ttl]",
			Short: "Expires the whole set after ttl",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ttl, err := time.ParseDuration(args[1])
				if err != nil {
					return fmt.Errorf("ttl must be a duration: %w", err)
				}
				return runSet(a, cmd, args[0], func(s *redistruct.SetCache[string]) rx.Mono[bool] {
					return s.Expire(ttl)
				})
			},
		},
		&cobra.Command{
			Use:   "persist [name]",
			Short: "Cancels a pending whole-set expiration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSet(a, cmd, args[0], (*redistruct.SetCache[string]).ClearExpire)
			},
		},
		&cobra.Command{
			Use:   "ttl [name]",
			Short: "Prints the time left before the whole set expires",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSet(a, cmd, args[0], func(s *redistruct.SetCache[string]) rx.Mono[string] {
					return rx.Map(s.RemainTimeToLive(), formatTTL)
				})
			},
		},
	)
	return cmd
}

// runSet opens a string handle, runs op and prints its result.
func runSet[T any](a *app, cmd *cobra.Command, name string, op func(*redistruct.SetCache[string]) rx.Mono[T]) error {
	s, err := redistruct.GetSetCacheWithCodec[string](a.cl, name, codec.String{})
	if err != nil {
		return err
	}
	ctx, cancel := a.ctx(cmd, 0)
	defer cancel()
	v, err := rx.Sync(ctx, op(s))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func formatTTL(d time.Duration) (string, error) {
	switch d {
	case -2:
		return "missing", nil
	case -1:
		return "none", nil
	}
	return d.String(), nil
}
