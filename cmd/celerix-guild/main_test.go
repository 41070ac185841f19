package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-guild/internal/engine"
	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

func seed(t *testing.T) (string, schema.Application, schema.Ticket) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	p, err := engine.NewPersistence(path)
	require.NoError(t, err)
	store := engine.NewStore(p, nil)
	_, err = store.Initialize()
	require.NoError(t, err)

	app, err := store.AddApplication(engine.NewApplication{Name: "Ada"})
	require.NoError(t, err)
	ticket, err := store.AddTicket(engine.NewTicket{Title: "Help"})
	require.NoError(t, err)
	return path, app, ticket
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestApps(t *testing.T) {
	path, app, _ := seed(t)

	out, err := run(t, "--data", path, "apps")
	require.NoError(t, err)

	var apps []schema.Application
	require.NoError(t, json.Unmarshal([]byte(out), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, app.ID, apps[0].ID)

	out, err = run(t, "--data", path, "apps", "--status", "Approved")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestShow(t *testing.T) {
	path, app, ticket := seed(t)

	out, err := run(t, "--data", path, "show", app.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Ada"`)

	out, err = run(t, "--data", path, "show", ticket.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Help"`)

	_, err = run(t, "--data", path, "show", "missing")
	assert.Error(t, err)
}

func TestTicketsFilter(t *testing.T) {
	path, _, ticket := seed(t)

	out, err := run(t, "--data", path, "tickets", "--status", "open")
	require.NoError(t, err)
	assert.Contains(t, out, ticket.ID)

	out, err = run(t, "--data", path, "tickets", "--status", "closed")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestSettings(t *testing.T) {
	path, _, _ := seed(t)

	out, err := run(t, "--data", path, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, `"prefix": "!"`)
	assert.Contains(t, out, `"welcome"`)

	_, err = run(t, "--data", path, "settings", "--prefix", "?")
	assert.Error(t, err)
}

func TestCommandsNeverWriteTheDataFile(t *testing.T) {
	path, app, ticket := seed(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)

	for _, args := range [][]string{
		{"apps"},
		{"tickets"},
		{"show", app.ID},
		{"show", ticket.ID},
		{"settings"},
	} {
		_, err := run(t, append([]string{"--data", path}, args...)...)
		require.NoError(t, err, args)
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), info2.ModTime())
}

func TestMutatingCommandsAreNotAvailable(t *testing.T) {
	path, app, ticket := seed(t)

	for _, args := range [][]string{
		{"decide", app.ID, "Approved"},
		{"close", ticket.ID},
	} {
		_, err := run(t, append([]string{"--data", path}, args...)...)
		assert.Error(t, err, args)
	}

	out, err := run(t, "--data", path, "show", app.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "Pending"`)
}

func TestMissingDataFile(t *testing.T) {
	_, err := run(t, "--data", filepath.Join(t.TempDir(), "none.json"), "apps")
	assert.Error(t, err)
}
