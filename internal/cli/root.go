// Package cli implements the redistruct command line tool: a thin shell over
// SetCache and BlockingDeque handles with the string codec.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/redistruct"
	zaplog "github.com/unkn0wn-root/redistruct/log/zap"
)

const (
	// Version of the command line tool.
	Version = "0.1.0"

	envPrefix = "redistruct"
	wrap      = 50
)

// app carries the per-invocation state shared by subcommands.
type app struct {
	v       *viper.Viper
	cl      *redistruct.Client
	timeout time.Duration
}

// NewRootCmd builds a fresh command tree. Each call has its own viper
// instance so trees do not share configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "redistruct",
		Short: "Redis-backed set cache and blocking deque",
		Long: fmt.Sprintf(`redistruct (v%s)

Inspect and modify expiring set caches and blocking deques stored in Redis.
Every flag can also be set through a REDISTRUCT_* environment variable or
a .env / .env.local file in the working directory.`, Version),
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	key := "redis-addr"
	root.PersistentFlags().String(key, "localhost:6379", wrapString("address of the Redis server"))
	key = "redis-password"
	root.PersistentFlags().String(key, "", wrapString("password of the Redis server"))
	key = "redis-db"
	root.PersistentFlags().Int(key, 0, wrapString("Redis database number"))
	key = "timeout"
	root.PersistentFlags().Duration(key, 10*time.Second, wrapString("deadline for a single command, blocking pops excluded"))
	key = "verbose"
	root.PersistentFlags().Bool(key, false, wrapString("log client internals to stderr"))

	root.AddCommand(newSetCacheCmd(a), newDequeCmd(a), newVersionCmd())
	return root
}

// setup loads env files, binds flags to viper and connects.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     a.v.GetString("redis-addr"),
		Password: a.v.GetString("redis-password"),
		DB:       a.v.GetInt("redis-db"),
	})
	a.timeout = a.v.GetDuration("timeout")

	opts := redistruct.Options{
		Client:          rdb,
		CloseClient:     true,
		DisableEviction: true, // short-lived process
	}
	if a.v.GetBool("verbose") {
		zl, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		opts.Logger = zaplog.New(zl)
	}

	cl, err := redistruct.New(opts)
	if err != nil {
		return err
	}
	a.cl = cl
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.cl == nil {
		return nil
	}
	return a.cl.Close(context.Background())
}

// ctx bounds one command with the configured timeout. Blocking pops pass
// extra so the server-side wait is not cut short; extra < 0 means no deadline.
func (a *app) ctx(cmd *cobra.Command, extra time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	if a.timeout <= 0 || extra < 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.timeout+extra)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of redistruct",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "redistruct v%s\n", Version)
		},
	}
}

// wrapString wraps help text at wrap characters.
func wrapString(text string) string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > wrap {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return strings.Join(lines, "\n")
}
