package engine

import (
	"errors"
	"testing"

	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	name   string
	closed *[]string
}

func (s *stubEngine) Name() string { return s.name }
func (s *stubEngine) Codec(f table.Format) (Codec, error) {
	return nil, Unsupported(s.name, f)
}
func (s *stubEngine) Close() error {
	*s.closed = append(*s.closed, s.name)
	return nil
}

func stubFactory(name string, closed *[]string) Factory {
	return func(Deps) (Engine, error) {
		return &stubEngine{name: name, closed: closed}, nil
	}
}

func TestRegistry_OpenInOrder(t *testing.T) {
	var closed []string
	r := NewRegistry()
	r.Register("One", stubFactory("One", &closed))
	r.Register("two", stubFactory("Two", &closed))

	assert.Equal(t, []string{"one", "two"}, r.Names())

	engines, err := r.Open([]string{"two", "ONE"}, Deps{})
	require.NoError(t, err)
	require.Len(t, engines, 2)
	assert.Equal(t, "Two", engines[0].Name())
	assert.Equal(t, "One", engines[1].Name())

	require.NoError(t, CloseAll(engines))
	assert.Equal(t, []string{"One", "Two"}, closed)
}

func TestRegistry_UnknownClosesOpened(t *testing.T) {
	var closed []string
	r := NewRegistry()
	r.Register("one", stubFactory("One", &closed))

	_, err := r.Open([]string{"one", "polars"}, Deps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.Equal(t, []string{"One"}, closed)
}

func TestRegistry_FactoryError(t *testing.T) {
	var closed []string
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register("one", stubFactory("One", &closed))
	r.Register("bad", func(Deps) (Engine, error) { return nil, boom })

	_, err := r.Open([]string{"one", "bad"}, Deps{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"One"}, closed)
}

func TestErrorHelpers(t *testing.T) {
	assert.ErrorIs(t, Unsupported("X", table.Format("orc")), ErrUnsupportedFormat)
	assert.ErrorIs(t, Foreign("X", nil), ErrForeignTable)
}
