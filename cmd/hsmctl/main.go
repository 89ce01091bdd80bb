// Command hsmctl drives the demo machines of spec.md §8 (traffic light,
// guarded multi-target, parallel with done-state, history, delayed event
// with cancel, error recovery) for interactive inspection, and can
// describe a demo's compiled tree as YAML or render it as a DOT diagram.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	hsm "github.com/comalice/hsm"
	"github.com/comalice/hsm/diagram"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hsmctl",
		Short: "Inspect and drive the statechart engine's reference demo machines",
	}
	root.AddCommand(newRunCmd(), newDescribeCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:       "run [traffic|guarded|parallel|history|delayed|error]",
		Short:     "Build and drive one of the spec.md §8 demo machines",
		Args:      cobra.ExactArgs(1),
		ValidArgs: demoNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := demos[args[0]]
			if !ok {
				return fmt.Errorf("unknown demo %q", args[0])
			}
			return d.run(cmd.OutOrStdout(), steps)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of cycle events the traffic demo sends (default 3; other demos ignore it)")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:       "describe [traffic|guarded|parallel|history|delayed|error]",
		Short:     "Print a demo machine's compiled tree as YAML, JSON or DOT",
		Args:      cobra.ExactArgs(1),
		ValidArgs: demoNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := demos[args[0]]
			if !ok {
				return fmt.Errorf("unknown demo %q", args[0])
			}
			def, err := d.build()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "dot":
				fmt.Fprint(out, diagram.ExportDOT(def.Root(), nil))
			case "json":
				data, err := diagram.ExportJSON(def.Root())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "yaml":
				data, err := diagram.ExportJSON(def.Root())
				if err != nil {
					return err
				}
				var generic any
				if err := yaml.Unmarshal(data, &generic); err != nil {
					return err
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(generic)
			default:
				return fmt.Errorf("unknown format %q (want yaml, json or dot)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml, json or dot")
	return cmd
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	return names
}

// demo pairs a demo machine's builder with a canned driving script so `run`
// produces deterministic, illustrative output.
type demo struct {
	build func() (*hsm.Definition, error)
	run   func(out io.Writer, steps int) error
}

var demos = map[string]demo{
	"traffic":  {build: buildTrafficLight, run: runTrafficLight},
	"guarded":  {build: buildGuardedMultiTarget, run: runGuardedMultiTarget},
	"parallel": {build: buildParallelWar, run: runParallelWar},
	"history":  {build: buildHistory, run: runHistory},
	"delayed":  {build: buildDelayedCancel, run: runDelayedCancel},
	"error":    {build: buildErrorRecovery, run: runErrorRecovery},
}

func printConfig(out io.Writer, label string, m *hsm.Machine) {
	fmt.Fprintf(out, "%s -> %v\n", label, m.Configuration())
}

// 1. Traffic light: green(initial) -> yellow -> red -> green on "cycle".
func buildTrafficLight() (*hsm.Definition, error) {
	b := hsm.NewBuilder("traffic")
	root := b.Root().WithInitial("green")
	root.Child("green", hsm.Atomic).AddTransition([]string{"cycle"}, "yellow")
	root.Child("yellow", hsm.Atomic).AddTransition([]string{"cycle"}, "red")
	root.Child("red", hsm.Atomic).AddTransition([]string{"cycle"}, "green")
	return b.Build(false)
}

func runTrafficLight(out io.Writer, steps int) error {
	def, err := buildTrafficLight()
	if err != nil {
		return err
	}
	m, err := hsm.New(def)
	if err != nil {
		return err
	}
	printConfig(out, "start", m)
	if steps <= 0 {
		steps = 3
	}
	for i := 0; i < steps; i++ {
		if _, err := m.Send("cycle"); err != nil {
			return err
		}
		printConfig(out, fmt.Sprintf("cycle #%d", i+1), m)
	}
	return nil
}

// 2. Guarded multi-target: requested(initial) -> accepted|rejected on "validate".
func buildGuardedMultiTarget() (*hsm.Definition, error) {
	b := hsm.NewBuilder("workflow")
	root := b.Root().WithInitial("requested")
	root.Child("requested", hsm.Atomic).
		AddTransition([]string{"validate"}, "accepted", hsm.WithGuard("is_ok")).
		AddTransition([]string{"validate"}, "rejected")
	root.Child("accepted", hsm.Atomic)
	root.Child("rejected", hsm.Atomic)
	return b.Build(false)
}

type guardModel struct{ ok bool }

func (g *guardModel) IsOk() bool { return g.ok }

func runGuardedMultiTarget(out io.Writer, steps int) error {
	for _, ok := range []bool{false, true} {
		def, err := buildGuardedMultiTarget()
		if err != nil {
			return err
		}
		m, err := hsm.New(def, hsm.WithModel(&guardModel{ok: ok}))
		if err != nil {
			return err
		}
		if _, err := m.Send("validate"); err != nil {
			return err
		}
		printConfig(out, fmt.Sprintf("is_ok=%v", ok), m)
	}
	return nil
}

// 3. Parallel with done-state: war{ regionA{fighting_a->done_a}, regionB{fighting_b->done_b} },
// done.state.war -> aftermath.
func buildParallelWar() (*hsm.Definition, error) {
	b := hsm.NewBuilder("root")
	root := b.Root().WithInitial("war")

	war := root.Child("war", hsm.Parallel)
	regionA := war.Child("region_a", hsm.Compound).WithInitial("fighting_a")
	regionA.Child("fighting_a", hsm.Atomic).AddTransition([]string{"finish_a"}, "done_a")
	regionA.Child("done_a", hsm.Final)
	regionB := war.Child("region_b", hsm.Compound).WithInitial("fighting_b")
	regionB.Child("fighting_b", hsm.Atomic).AddTransition([]string{"finish_b"}, "done_b")
	regionB.Child("done_b", hsm.Final)

	war.AddTransition([]string{"done.state.war"}, "aftermath")
	root.Child("aftermath", hsm.Atomic)

	return b.Build(false)
}

func runParallelWar(out io.Writer, steps int) error {
	def, err := buildParallelWar()
	if err != nil {
		return err
	}
	m, err := hsm.New(def)
	if err != nil {
		return err
	}
	printConfig(out, "start", m)
	if _, err := m.Send("finish_a"); err != nil {
		return err
	}
	printConfig(out, "finish_a", m)
	if _, err := m.Send("finish_b"); err != nil {
		return err
	}
	printConfig(out, "finish_b", m)
	return nil
}

// 4. History: outer{a(initial), b, history h} / outside; go: a->b,
// leave: outer->outside, return: outside->h.
func buildHistory() (*hsm.Definition, error) {
	b := hsm.NewBuilder("root")
	root := b.Root().WithInitial("outer")

	outer := root.Child("outer", hsm.Compound).WithInitial("a")
	outer.Child("a", hsm.Atomic).AddTransition([]string{"go"}, "b")
	outer.Child("b", hsm.Atomic)
	outer.AddHistory("h", hsm.Shallow, "a")
	outer.AddTransition([]string{"leave"}, "outside")

	root.Child("outside", hsm.Atomic).AddTransition([]string{"return"}, "h")

	return b.Build(false)
}

func runHistory(out io.Writer, steps int) error {
	def, err := buildHistory()
	if err != nil {
		return err
	}
	m, err := hsm.New(def)
	if err != nil {
		return err
	}
	printConfig(out, "start", m)
	for _, ev := range []string{"go", "leave", "return"} {
		if _, err := m.Send(ev); err != nil {
			return err
		}
		printConfig(out, ev, m)
	}
	return nil
}

// 5. Delayed event with cancel: send("fire", delay=50ms, send_id) then
// cancel immediately; after 100ms no transition has occurred.
func buildDelayedCancel() (*hsm.Definition, error) {
	b := hsm.NewBuilder("root")
	root := b.Root().WithInitial("idle")
	root.Child("idle", hsm.Atomic).AddTransition([]string{"fire"}, "fired")
	root.Child("fired", hsm.Atomic)
	return b.Build(false)
}

func runDelayedCancel(out io.Writer, steps int) error {
	def, err := buildDelayedCancel()
	if err != nil {
		return err
	}
	m, err := hsm.New(def)
	if err != nil {
		return err
	}
	sendID := uuid.NewString()
	if _, err := m.Send("fire", hsm.WithDelay(50*time.Millisecond), hsm.WithSendID(sendID)); err != nil {
		return err
	}
	m.Cancel(sendID)
	time.Sleep(100 * time.Millisecond)
	printConfig(out, fmt.Sprintf("after cancel(%s) + 100ms", sendID), m)
	return nil
}

// 6. Error recovery: s1 -> s2 on: raise, error.execution: s1 -> error_state.
func buildErrorRecovery() (*hsm.Definition, error) {
	b := hsm.NewBuilder("root")
	root := b.Root().WithInitial("s1")
	root.Child("s1", hsm.Atomic).
		AddTransition([]string{"go"}, "s2", hsm.WithOn(func() error { return fmt.Errorf("boom") })).
		AddTransition([]string{"error.execution"}, "error_state")
	root.Child("s2", hsm.Atomic)
	root.Child("error_state", hsm.Atomic)
	return b.Build(false)
}

func runErrorRecovery(out io.Writer, steps int) error {
	def, err := buildErrorRecovery()
	if err != nil {
		return err
	}
	m, err := hsm.New(def, hsm.WithErrorResilient(true))
	if err != nil {
		return err
	}
	if _, err := m.Send("go"); err != nil {
		return err
	}
	printConfig(out, "go", m)
	return nil
}
