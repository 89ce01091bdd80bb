package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hsm/internal/tree"
)

func buildTrafficLight(t *testing.T) *tree.State {
	t.Helper()
	b := tree.NewBuilder("root")
	root := b.Root()
	root.Child("green", tree.Atomic).AddTransition([]string{"cycle"}, "yellow")
	root.Child("yellow", tree.Atomic).AddTransition([]string{"cycle"}, "red")
	root.Child("red", tree.Atomic).AddTransition([]string{"cycle"}, "green")
	root.WithInitial("green")
	r, err := b.Build(false)
	require.NoError(t, err)
	return r
}

func configIDs(m *Machine) []string {
	var out []string
	for _, s := range m.Configuration() {
		out = append(out, string(s.ID))
	}
	return out
}

func TestTrafficLightCyclesThroughAllThreeColors(t *testing.T) {
	m, err := New(buildTrafficLight(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"green"}, configIDs(m))

	_, err = m.Send("cycle")
	require.NoError(t, err)
	assert.Equal(t, []string{"yellow"}, configIDs(m))

	_, err = m.Send("cycle")
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, configIDs(m))

	_, err = m.Send("cycle")
	require.NoError(t, err)
	assert.Equal(t, []string{"green"}, configIDs(m))
}

func TestUnmatchedEventFailsByDefault(t *testing.T) {
	m, err := New(buildTrafficLight(t))
	require.NoError(t, err)
	_, err = m.Send("nonexistent")
	var tnae *TransitionNotAllowedError
	assert.ErrorAs(t, err, &tnae)
}

func TestAllowEventWithoutTransitionDropsInstead(t *testing.T) {
	m, err := New(buildTrafficLight(t), WithAllowEventWithoutTransition(true))
	require.NoError(t, err)
	_, err = m.Send("nonexistent")
	assert.NoError(t, err)
	assert.Equal(t, []string{"green"}, configIDs(m))
}

// --- scenario 2: guarded multi-target ---

type guardModel struct{ ok bool }

func (g *guardModel) IsOk() bool { return g.ok }

func buildGuardedWorkflow(t *testing.T) *tree.State {
	t.Helper()
	b := tree.NewBuilder("root")
	root := b.Root()
	root.Child("requested", tree.Atomic).
		AddTransition([]string{"validate"}, "accepted", tree.WithGuard("is_ok")).
		AddTransition([]string{"validate"}, "rejected")
	root.Child("accepted", tree.Atomic)
	root.Child("rejected", tree.Atomic)
	root.WithInitial("requested")
	r, err := b.Build(false)
	require.NoError(t, err)
	return r
}

func TestGuardedTransitionPicksFirstPassingCandidate(t *testing.T) {
	m, err := New(buildGuardedWorkflow(t), WithModel(&guardModel{ok: true}))
	require.NoError(t, err)
	_, err = m.Send("validate")
	require.NoError(t, err)
	assert.Equal(t, []string{"accepted"}, configIDs(m))
}

func TestGuardedTransitionFallsBackWhenGuardFails(t *testing.T) {
	m, err := New(buildGuardedWorkflow(t), WithModel(&guardModel{ok: false}))
	require.NoError(t, err)
	_, err = m.Send("validate")
	require.NoError(t, err)
	assert.Equal(t, []string{"rejected"}, configIDs(m))
}

// --- scenario 3: parallel with done-state ---

func buildParallelWar(t *testing.T) *tree.State {
	t.Helper()
	b := tree.NewBuilder("root")
	root := b.Root()
	war := root.Child("war", tree.Parallel)

	regionA := war.Child("region_a", tree.Compound)
	regionA.Child("fighting_a", tree.Atomic).AddTransition([]string{"finish_a"}, "done_a")
	regionA.Child("done_a", tree.Final)
	regionA.WithInitial("fighting_a")

	regionB := war.Child("region_b", tree.Compound)
	regionB.Child("fighting_b", tree.Atomic).AddTransition([]string{"finish_b"}, "done_b")
	regionB.Child("done_b", tree.Final)
	regionB.WithInitial("fighting_b")

	war.AddTransition([]string{"done.state.war"}, "aftermath")
	root.Child("aftermath", tree.Atomic)
	root.WithInitial("war")

	r, err := b.Build(false)
	require.NoError(t, err)
	return r
}

func TestParallelRegionsMustBothReachFinalBeforeDoneEvent(t *testing.T) {
	m, err := New(buildParallelWar(t))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fighting_a", "fighting_b"}, leafSuffixes(m))

	_, err = m.Send("finish_a")
	require.NoError(t, err)
	// only one region finished: no done.state.war yet, still inside war
	assert.Contains(t, configIDs(m), "done_a")
	assert.NotContains(t, configIDs(m), "aftermath")

	_, err = m.Send("finish_b")
	require.NoError(t, err)
	// both regions finished: done.state.war fires as an internal event and
	// is drained within the same Send's run-to-completion loop
	assert.Equal(t, []string{"aftermath"}, configIDs(m))
}

func leafSuffixes(m *Machine) []string {
	var out []string
	for _, s := range m.Configuration() {
		if len(s.Children) == 0 {
			out = append(out, string(s.ID))
		}
	}
	return out
}

// --- scenario 4: shallow history ---

func buildHistoryMachine(t *testing.T) *tree.State {
	t.Helper()
	b := tree.NewBuilder("root")
	root := b.Root()
	outer := root.Child("outer", tree.Compound)
	outer.Child("a", tree.Atomic).AddTransition([]string{"go"}, "b")
	outer.Child("b", tree.Atomic)
	outer.AddHistory("h", tree.Shallow, "a")
	outer.AddTransition([]string{"leave"}, "outside")
	outer.WithInitial("a")
	root.Child("outside", tree.Atomic).AddTransition([]string{"return"}, "h")
	root.WithInitial("outer")
	r, err := b.Build(false)
	require.NoError(t, err)
	return r
}

func TestShallowHistoryRestoresLastActiveChild(t *testing.T) {
	m, err := New(buildHistoryMachine(t))
	require.NoError(t, err)

	_, err = m.Send("go")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "b"}, configIDs(m))

	_, err = m.Send("leave")
	require.NoError(t, err)
	assert.Equal(t, []string{"outside"}, configIDs(m))

	_, err = m.Send("return")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "b"}, configIDs(m))
}

func TestHistoryRestoresInitialChildWhenLeftFromIt(t *testing.T) {
	m, err := New(buildHistoryMachine(t))
	require.NoError(t, err)

	_, err = m.Send("leave")
	require.NoError(t, err)
	_, err = m.Send("return")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "a"}, configIDs(m))
}

// --- scenario 6: error recovery ---

func buildErrorRecoveryMachine(t *testing.T, onErr error) *tree.State {
	t.Helper()
	b := tree.NewBuilder("root")
	root := b.Root()
	root.Child("s1", tree.Atomic).
		AddTransition([]string{"go"}, "s2", tree.WithOn(func() error { return onErr })).
		AddTransition([]string{"error.execution"}, "error_state")
	root.Child("s2", tree.Atomic)
	root.Child("error_state", tree.Atomic)
	root.WithInitial("s1")
	r, err := b.Build(false)
	require.NoError(t, err)
	return r
}

func TestErrorResilientRecoversViaErrorExecutionEvent(t *testing.T) {
	boom := assert.AnError
	m, err := New(buildErrorRecoveryMachine(t, boom), WithErrorResilient(true))
	require.NoError(t, err)

	_, err = m.Send("go")
	require.NoError(t, err)
	assert.Equal(t, []string{"error_state"}, configIDs(m))
}

func TestNonResilientPropagatesOnCallbackError(t *testing.T) {
	boom := assert.AnError
	m, err := New(buildErrorRecoveryMachine(t, boom))
	require.NoError(t, err)

	_, err = m.Send("go")
	require.Error(t, err)
	// rollback: still in s1, the pre-transition configuration
	assert.Equal(t, []string{"s1"}, configIDs(m))
}

// --- delayed event + cancel ---

func buildDelayedMachine(t *testing.T) *tree.State {
	t.Helper()
	b := tree.NewBuilder("root")
	root := b.Root()
	root.Child("idle", tree.Atomic).AddTransition([]string{"fire"}, "fired")
	root.Child("fired", tree.Atomic)
	root.WithInitial("idle")
	r, err := b.Build(false)
	require.NoError(t, err)
	return r
}

func TestCancelRemovesDelayedEventBeforeItFires(t *testing.T) {
	m, err := New(buildDelayedMachine(t))
	require.NoError(t, err)

	_, err = m.Send("fire", WithSendID("x"), WithDelay(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"idle"}, configIDs(m), "delayed event not yet due")

	m.Cancel("x")
	assert.True(t, m.external.IsEmpty())
}

// --- queue backpressure ---

func TestWithQueueSizeRejectsOnceFull(t *testing.T) {
	m, err := New(buildDelayedMachine(t), WithQueueSize(1))
	require.NoError(t, err)

	_, err = m.Send("fire", WithDelay(time.Hour))
	require.NoError(t, err)
	_, err = m.Send("fire", WithDelay(time.Hour))
	assert.ErrorIs(t, err, ErrQueueFull)
}

// --- prepare callback ---

type prepareModel struct{ prepared, ok bool }

func (p *prepareModel) Prepare() { p.prepared = true; p.ok = true }
func (p *prepareModel) IsOk() bool { return p.ok }

func TestPrepareRunsBeforeGuardEvaluation(t *testing.T) {
	model := &prepareModel{}
	m, err := New(buildGuardedWorkflow(t), WithModel(model), WithPrepare("prepare"))
	require.NoError(t, err)

	_, err = m.Send("validate")
	require.NoError(t, err)
	assert.True(t, model.prepared)
	assert.Equal(t, []string{"accepted"}, configIDs(m))
}

// --- initial activation idempotence / eventless draining ---

func TestInitialActivationEntersDefaultChainOnce(t *testing.T) {
	m, err := New(buildHistoryMachine(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "a"}, configIDs(m))
	assert.True(t, m.initialActivated)
}

func buildEventlessChain(t *testing.T) *tree.State {
	t.Helper()
	b := tree.NewBuilder("root")
	root := b.Root()
	root.Child("s1", tree.Atomic).AddTransition(nil, "s2")
	root.Child("s2", tree.Atomic).AddTransition(nil, "s3")
	root.Child("s3", tree.Atomic)
	root.WithInitial("s1")
	r, err := b.Build(false)
	require.NoError(t, err)
	return r
}

func TestEventlessChainDrainsFullyDuringInitialActivation(t *testing.T) {
	m, err := New(buildEventlessChain(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"s3"}, configIDs(m))
}
