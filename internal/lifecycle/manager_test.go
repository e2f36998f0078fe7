package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComponent struct {
	name     string
	startErr error
	log      *[]string
}

func (c *fakeComponent) Start(ctx context.Context) error {
	*c.log = append(*c.log, "start:"+c.name)
	return c.startErr
}

func (c *fakeComponent) Stop(ctx context.Context) error {
	*c.log = append(*c.log, "stop:"+c.name)
	return nil
}

func (c *fakeComponent) Name() string { return c.name }

func TestStartRespectsDependencyOrder(t *testing.T) {
	var log []string
	storage := &fakeComponent{name: "storage", log: &log}
	cache := &fakeComponent{name: "cache", log: &log}
	server := &fakeComponent{name: "server", log: &log}

	m := NewManager()
	require.NoError(t, m.Register(storage))
	require.NoError(t, m.Register(cache, storage))
	require.NoError(t, m.Register(server, cache, storage))

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, []string{"start:storage", "start:cache", "start:server"}, log)

	log = nil
	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, []string{"stop:server", "stop:cache", "stop:storage"}, log)
}

func TestStartFailureRollsBack(t *testing.T) {
	var log []string
	a := &fakeComponent{name: "a", log: &log}
	b := &fakeComponent{name: "b", log: &log, startErr: errors.New("boom")}

	m := NewManager()
	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(b, a))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"start:a", "start:b", "stop:a"}, log)
}

func TestRegisterRejectsUnknownDependency(t *testing.T) {
	var log []string
	a := &fakeComponent{name: "a", log: &log}
	b := &fakeComponent{name: "b", log: &log}

	m := NewManager()
	err := m.Register(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	var log []string
	a := &fakeComponent{name: "a", log: &log}

	m := NewManager()
	require.NoError(t, m.Register(a))
	require.Error(t, m.Register(a))
}
