package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renamePlan struct{ Name string }

func (renamePlan) Key() string { return "test.rename" }

type archivePlan struct{}

func (archivePlan) Key() string { return "test.archive" }

type renameHandler struct{}

func (renameHandler) Handle(ctx context.Context, cmd renamePlan) (string, error) {
	return "renamed to " + cmd.Name, nil
}

func TestDispatchRoutesByKey(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, renamePlan{}.Key(), renameHandler{})

	got, err := Dispatch[renamePlan, string](context.Background(), bus, renamePlan{Name: "Weekly"})
	require.NoError(t, err)
	assert.Equal(t, "renamed to Weekly", got)
	assert.Equal(t, []string{"test.rename"}, bus.Keys())

	_, err = bus.Dispatch(context.Background(), archivePlan{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[renamePlan, int](context.Background(), bus, renamePlan{})
	assert.ErrorIs(t, err, ErrResultType)
	assert.Contains(t, err.Error(), "test.rename returned string")

	_, err = Dispatch[renamePlan, string](context.Background(), nil, renamePlan{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterHandlerRejectsWiringMistakes(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, "test.rename", renameHandler{})

	assert.Panics(t, func() { RegisterHandler(bus, "test.rename", renameHandler{}) })
	assert.Panics(t, func() { RegisterHandler(bus, "", renameHandler{}) })
	assert.Panics(t, func() { RegisterHandler(nil, "test.other", renameHandler{}) })
}

func TestHandlerReceivesOnlyItsCommandType(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, archivePlan{}.Key(), renameHandler{})

	_, err := bus.Dispatch(context.Background(), archivePlan{})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}
