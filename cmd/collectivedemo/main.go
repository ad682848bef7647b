// Command collectivedemo drives all eight collective algorithms
// (broadcast/scatter/gather/reduce x binary/binomial) against the in-memory
// fabric cluster, for manual inspection — the teacher (go-mcast) is a pure
// library with no cmd/ of its own, but SPEC_FULL's "test harness hooks"
// component calls for a runnable driver, styled after Synnergy's
// cmd/cli Cobra tree.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jabolina/collectives/collective"
	"github.com/jabolina/collectives/internal/fabric"
	"github.com/jabolina/collectives/internal/obslog"
)

var (
	cfgFile    string
	flagRanks  int
	flagRoot   int
	flagTopo   string
	flagVerb   bool
	resolvedRC runConfig
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "collectivedemo",
		Short: "Exercise broadcast/scatter/gather/reduce over an in-process cluster",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rc, err := loadRunConfig(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ranks") {
				rc.Ranks = flagRanks
			}
			if cmd.Flags().Changed("root") {
				rc.Root = flagRoot
			}
			if cmd.Flags().Changed("topology") {
				rc.Topology = flagTopo
			}
			if rc.Ranks < 1 {
				return fmt.Errorf("collectivedemo: ranks must be >= 1, got %d", rc.Ranks)
			}
			if rc.Root < 0 || rc.Root >= rc.Ranks {
				return fmt.Errorf("collectivedemo: root %d out of range for %d ranks", rc.Root, rc.Ranks)
			}
			resolvedRC = rc
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML file with ranks/root/topology")
	root.PersistentFlags().IntVar(&flagRanks, "ranks", 4, "number of participants")
	root.PersistentFlags().IntVar(&flagRoot, "root", 0, "rotated-coordinates root rank")
	root.PersistentFlags().StringVar(&flagTopo, "topology", "binary", "binary or binomial")
	root.PersistentFlags().BoolVar(&flagVerb, "verbose", false, "enable debug-level logging")

	root.AddCommand(newBroadcastCmd(), newScatterCmd(), newGatherCmd(), newReduceCmd())
	return root
}

func demoLogger() obslog.Logger {
	if flagVerb {
		return obslog.NewDefault()
	}
	return obslog.Noop{}
}

func newBroadcastCmd() *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Broadcast a value from the root to every rank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcast(resolvedRC, payload)
		},
	}
	cmd.Flags().StringVar(&payload, "value", "hello-collective", "value the root broadcasts")
	return cmd
}

func runBroadcast(rc runConfig, payload string) error {
	topo, err := rc.topologyOption()
	if err != nil {
		return err
	}
	errs := runOnCluster(rc.Ranks, func(rt fabric.Runtime) error {
		ctx := context.Background()
		bc, err := collective.NewBroadcast(ctx, rt, "demo-broadcast", rc.Root, topo, collective.WithLogger(demoLogger()))
		if err != nil {
			return err
		}
		defer bc.Close()
		var value []byte
		if rt.Rank() == rc.Root {
			value = []byte(payload)
		}
		if err := bc.Invoke(ctx, &value); err != nil {
			return err
		}
		fmt.Printf("rank %d holds %q\n", rt.Rank(), string(value))
		return nil
	})
	return firstError(errs)
}

func newScatterCmd() *cobra.Command {
	var blockSize int
	cmd := &cobra.Command{
		Use:   "scatter",
		Short: "Scatter the root's input range across every rank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScatter(resolvedRC, blockSize)
		},
	}
	cmd.Flags().IntVar(&blockSize, "block-size", 2, "elements delivered to each rank")
	return cmd
}

func runScatter(rc runConfig, blockSize int) error {
	topo, err := rc.topologyOption()
	if err != nil {
		return err
	}
	errs := runOnCluster(rc.Ranks, func(rt fabric.Runtime) error {
		ctx := context.Background()
		sc, err := collective.NewScatter(ctx, rt, "demo-scatter", rc.Root, topo, collective.WithLogger(demoLogger()))
		if err != nil {
			return err
		}
		defer sc.Close()
		var in [][]byte
		if rt.Rank() == rc.Root {
			for i := 0; i < rc.Ranks*blockSize; i++ {
				in = append(in, []byte(strconv.Itoa(i)))
			}
		}
		var out [][]byte
		if err := sc.Invoke(ctx, in, blockSize, &out); err != nil {
			return err
		}
		fmt.Printf("rank %d received %s\n", rt.Rank(), joinBytes(out))
		return nil
	})
	return firstError(errs)
}

func newGatherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gather",
		Short: "Gather one block per rank back to the root, in rank order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGather(resolvedRC)
		},
	}
	return cmd
}

func runGather(rc runConfig) error {
	topo, err := rc.topologyOption()
	if err != nil {
		return err
	}
	errs := runOnCluster(rc.Ranks, func(rt fabric.Runtime) error {
		ctx := context.Background()
		g, err := collective.NewGather(ctx, rt, "demo-gather", rc.Root, topo, collective.WithLogger(demoLogger()))
		if err != nil {
			return err
		}
		defer g.Close()
		in := [][]byte{[]byte(fmt.Sprintf("r%d", rt.Rank()))}
		var out [][]byte
		if err := g.Invoke(ctx, in, &out); err != nil {
			return err
		}
		if rt.Rank() == rc.Root {
			fmt.Printf("root gathered %s\n", joinBytes(out))
		}
		return nil
	})
	return firstError(errs)
}

func newReduceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Sum each rank's index and deliver the total to the root",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReduce(resolvedRC)
		},
	}
	return cmd
}

func runReduce(rc runConfig) error {
	topo, err := rc.topologyOption()
	if err != nil {
		return err
	}
	sumOp := func(a, b []byte) ([]byte, error) {
		av, err := strconv.Atoi(string(a))
		if err != nil {
			return nil, err
		}
		bv, err := strconv.Atoi(string(b))
		if err != nil {
			return nil, err
		}
		return []byte(strconv.Itoa(av + bv)), nil
	}
	errs := runOnCluster(rc.Ranks, func(rt fabric.Runtime) error {
		ctx := context.Background()
		r, err := collective.NewReduce(ctx, rt, "demo-reduce", rc.Root, sumOp, topo, collective.WithLogger(demoLogger()))
		if err != nil {
			return err
		}
		defer r.Close()
		in := [][]byte{[]byte(strconv.Itoa(rt.Rank()))}
		var out []byte
		if err := r.Invoke(ctx, in, []byte("0"), &out); err != nil {
			return err
		}
		if rt.Rank() == rc.Root {
			fmt.Printf("root reduced total %s\n", string(out))
		}
		return nil
	})
	return firstError(errs)
}

func joinBytes(elements [][]byte) string {
	parts := make([]string, len(elements))
	for i, e := range elements {
		parts[i] = string(e)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
