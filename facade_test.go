package hsm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTrafficLightDefinition(t *testing.T) *Definition {
	t.Helper()
	b := NewBuilder("root")
	root := b.Root().WithInitial("green")
	root.Child("green", Atomic).AddTransition([]string{"cycle"}, "yellow")
	root.Child("yellow", Atomic).AddTransition([]string{"cycle"}, "red")
	root.Child("red", Atomic).AddTransition([]string{"cycle"}, "green")
	def, err := b.Build(false)
	require.NoError(t, err)
	return def
}

func TestNewAndSendDriveConfiguration(t *testing.T) {
	m, err := New(buildTrafficLightDefinition(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"green"}, m.Configuration())

	_, err = m.Send("cycle")
	require.NoError(t, err)
	assert.Equal(t, []string{"yellow"}, m.Configuration())
}

func TestUnmatchedEventReturnsTransitionNotAllowedError(t *testing.T) {
	m, err := New(buildTrafficLightDefinition(t))
	require.NoError(t, err)
	_, err = m.Send("nope")
	var tnae *TransitionNotAllowedError
	assert.ErrorAs(t, err, &tnae)
}

func TestNewTranslatesUnresolvedCallbackToAttrNotFoundError(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root().WithInitial("a")
	root.Child("a", Atomic).AddTransition([]string{"go"}, "b", WithOn("does_not_exist_anywhere"))
	root.Child("b", Atomic)
	def, err := b.Build(false)
	require.NoError(t, err)

	_, err = New(def)
	require.Error(t, err)
	var ide *InvalidDefinitionError
	require.ErrorAs(t, err, &ide)
	var anfe *AttrNotFoundError
	assert.True(t, errors.As(err, &anfe))
}

func TestCancelPreventsDelayedSendFromLaterFiring(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root().WithInitial("idle")
	root.Child("idle", Atomic).AddTransition([]string{"fire"}, "fired")
	root.Child("fired", Atomic)
	def, err := b.Build(false)
	require.NoError(t, err)

	m, err := New(def)
	require.NoError(t, err)

	_, err = m.Send("fire", WithSendID("x"), WithDelay(time.Hour))
	require.NoError(t, err)
	m.Cancel("x")
	assert.Equal(t, []string{"idle"}, m.Configuration())
}

type guardModel struct{ ok bool }

func (g guardModel) IsOk() bool { return g.ok }

func TestGuardResolvesAgainstModelRegisteredAtConstruction(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root().WithInitial("requested")
	root.Child("requested", Atomic).
		AddTransition([]string{"validate"}, "accepted", WithGuard("is_ok")).
		AddTransition([]string{"validate"}, "rejected")
	root.Child("accepted", Atomic)
	root.Child("rejected", Atomic)
	def, err := b.Build(false)
	require.NoError(t, err)

	m, err := New(def, WithModel(guardModel{ok: true}))
	require.NoError(t, err)
	_, err = m.Send("validate")
	require.NoError(t, err)
	assert.Equal(t, []string{"accepted"}, m.Configuration())
}

type enterBListener struct{ entered bool }

func (l *enterBListener) OnEnterB() { l.entered = true }

func TestAddListenerResolvesNamingConventionCallbackAfterConstruction(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root().WithInitial("a")
	root.Child("a", Atomic).AddTransition([]string{"go"}, "b")
	root.Child("b", Atomic)
	def, err := b.Build(false)
	require.NoError(t, err)

	m, err := New(def)
	require.NoError(t, err)

	listener := &enterBListener{}
	require.NoError(t, m.AddListener(listener))

	_, err = m.Send("go")
	require.NoError(t, err)
	assert.True(t, listener.entered)
}
