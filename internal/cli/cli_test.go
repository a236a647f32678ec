package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roster/internal/proxy"
	"github.com/mesh-intelligence/roster/internal/sqlite"
	"github.com/mesh-intelligence/roster/internal/upstream"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// testEnv is a config directory pointing at an in-process proxy and
// reference upstream.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

type result struct {
	stdout string
	stderr string
	err    error
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dataDir := t.TempDir()
	store := sqlite.NewStore()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}))
	t.Cleanup(func() { store.Detach() })
	up := httptest.NewServer(upstream.NewRouter(store, upstream.DefaultPrefix))
	t.Cleanup(up.Close)

	p, err := proxy.New(proxy.Options{UpstreamURL: up.URL + upstream.DefaultPrefix, Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	px := httptest.NewServer(p.Router())
	t.Cleanup(px.Close)

	configDir := t.TempDir()
	yaml := fmt.Sprintf("proxy_url: %s/api\nupstream_url: %s%s\ntheme: light\n", px.URL, up.URL, upstream.DefaultPrefix)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(yaml), 0o644))
	return &testEnv{t: t, configDir: configDir, dataDir: t.TempDir()}
}

func (e *testEnv) run(stdin string, args ...string) result {
	e.t.Helper()
	root := NewRootCmd()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir, "--no-color"}, args...))
	err := root.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (e *testEnv) list() []types.Person {
	e.t.Helper()
	r := e.run("", "list", "--json")
	require.NoError(e.t, r.err, r.stderr)
	var persons []types.Person
	require.NoError(e.t, json.Unmarshal([]byte(r.stdout), &persons))
	return persons
}

func TestVersion(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "roster v")
	assert.Contains(t, out.String(), modulePath)
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)
	r := env.run("", "list")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "No persons yet")
	assert.Empty(t, env.list())
}

func TestAddEditDelete(t *testing.T) {
	env := newTestEnv(t)

	r := env.run("", "add", "--name", "Ada Lovelace", "--email", "ada@example.com", "--age", "36")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stdout, "Person added successfully")

	r = env.run("", "add", "--name", "Grace Hopper", "--email", "grace@navy.mil", "--age", "abc")
	require.NoError(t, r.err, r.stderr)

	persons := env.list()
	require.Len(t, persons, 2)
	assert.Nil(t, persons[1].Age)

	r = env.run("", "list", "--search", "GRACE")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "grace@navy.mil")
	assert.NotContains(t, r.stdout, "ada@example.com")

	ada := persons[0]
	r = env.run("", "edit", ada.ID.String(), "--email", "ada@analytical.org")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stdout, "Person updated")

	persons = env.list()
	require.Len(t, persons, 2)
	assert.Equal(t, ada.ID, persons[0].ID)
	assert.Equal(t, "ada@analytical.org", persons[0].Email)
	assert.Equal(t, "Ada Lovelace", persons[0].Name)
	require.NotNil(t, persons[0].Age)
	assert.Equal(t, 36, *persons[0].Age)

	r = env.run("n\n", "delete", ada.ID.String())
	require.Error(t, r.err)
	assert.Equal(t, exitUserError, exitCode(r.err))
	assert.Contains(t, r.stdout, "Are you sure you want to delete Ada Lovelace?")
	assert.Len(t, env.list(), 2)

	r = env.run("y\n", "delete", ada.ID.String())
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stdout, "Person deleted successfully")

	persons = env.list()
	require.Len(t, persons, 1)
	assert.Equal(t, "Grace Hopper", persons[0].Name)

	r = env.run("", "delete", "--yes", persons[0].ID.String())
	require.NoError(t, r.err, r.stderr)
	assert.Empty(t, env.list())
}

func TestCommandErrors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"add without name", []string{"add", "--email", "a@b.co"}, exitUserError, types.MsgNameEmailRequired},
		{"add with bad email", []string{"add", "--name", "A", "--email", "not-an-email"}, exitUserError, types.MsgInvalidEmail},
		{"edit unknown id", []string{"edit", "nope", "--name", "X"}, exitUserError, "Person nope not found"},
		{"delete unknown id", []string{"delete", "--yes", "nope"}, exitUserError, "Person nope not found"},
		{"edit needs an id", []string{"edit"}, exitUserError, ""},
		{"unknown theme", []string{"--theme", "neon", "list"}, exitUserError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := env.run("", tt.args...)
			require.Error(t, r.err)
			assert.Equal(t, tt.wantCode, exitCode(r.err))
			assert.Contains(t, r.stderr, tt.wantErr)
		})
	}
	assert.Empty(t, env.list())
}

func TestProxyDownIsSystemError(t *testing.T) {
	configDir := t.TempDir()
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("proxy_url: "+url+"/api\n"), 0o644))
	env := &testEnv{t: t, configDir: configDir, dataDir: t.TempDir()}

	r := env.run("", "list")
	require.Error(t, r.err)
	assert.Equal(t, exitSysError, exitCode(r.err))
	assert.Contains(t, r.stderr, types.MsgFetchFailed)

	r = env.run("", "add", "--name", "Ada", "--email", "ada@example.com")
	require.Error(t, r.err)
	assert.Equal(t, exitSysError, exitCode(r.err))
}

func TestShell(t *testing.T) {
	env := newTestEnv(t)
	script := strings.Join([]string{
		"help",
		"add",
		"Ada Lovelace",
		"ada@example.com",
		"36",
		"add",
		"Grace Hopper",
		"grace@navy.mil",
		"",
		"search hopper",
		"clear",
		"bogus",
		"quit",
	}, "\n") + "\n"

	r := env.run(script, "shell")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stdout, "Commands:")
	assert.Contains(t, r.stdout, "Add New Person")
	assert.Contains(t, r.stdout, "Person added successfully")
	assert.Contains(t, r.stdout, "Grace Hopper")
	assert.Contains(t, r.stdout, `unknown command "bogus"`)

	persons := env.list()
	require.Len(t, persons, 2)

	script = strings.Join([]string{
		"edit " + persons[1].ID.String(),
		"",
		"hopper@navy.mil",
		"85",
		"delete " + persons[0].ID.String(),
		"yes",
		"refresh",
	}, "\n") + "\n"
	r = env.run(script, "shell")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stdout, "Edit Person")
	assert.Contains(t, r.stdout, "Person updated")
	assert.Contains(t, r.stdout, "Are you sure you want to delete Ada Lovelace?")
	assert.Contains(t, r.stdout, "Person deleted successfully")

	persons = env.list()
	require.Len(t, persons, 1)
	assert.Equal(t, "Grace Hopper", persons[0].Name)
	assert.Equal(t, "hopper@navy.mil", persons[0].Email)
	require.NotNil(t, persons[0].Age)
	assert.Equal(t, 85, *persons[0].Age)
}

func TestShellKeepsDraftAfterFailedSubmit(t *testing.T) {
	env := newTestEnv(t)
	script := strings.Join([]string{
		"add",
		"Ada Lovelace",
		"not-an-email",
		"36",
		// Asked again with the draft as the default.
		"",
		"ada@example.com",
		"",
		"quit",
	}, "\n") + "\n"

	r := env.run(script, "shell")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stderr, types.MsgInvalidEmail)
	assert.Contains(t, r.stdout, "Name [Ada Lovelace]: ")
	assert.Contains(t, r.stdout, "Person added successfully")

	persons := env.list()
	require.Len(t, persons, 1)
	assert.Equal(t, "Ada Lovelace", persons[0].Name)
	assert.Equal(t, "ada@example.com", persons[0].Email)
	require.NotNil(t, persons[0].Age)
	assert.Equal(t, 36, *persons[0].Age)
}

func TestShellCancelDropsDraft(t *testing.T) {
	env := newTestEnv(t)
	script := strings.Join([]string{
		"add",
		"",
		"ada@example.com",
		"",
		"cancel",
		"add",
		"Grace Hopper",
		"grace@navy.mil",
		"",
		"quit",
	}, "\n") + "\n"

	r := env.run(script, "shell")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stderr, types.MsgNameEmailRequired)
	assert.Contains(t, r.stdout, "Cancelled")

	persons := env.list()
	require.Len(t, persons, 1)
	assert.Equal(t, "Grace Hopper", persons[0].Name)
}

func TestShellEditEchoesRow(t *testing.T) {
	env := newTestEnv(t)
	r := env.run("", "add", "--name", "Ada Lovelace", "--email", "ada@example.com")
	require.NoError(t, r.err, r.stderr)
	ada := env.list()[0]

	script := strings.Join([]string{"edit " + ada.ID.String(), "", "", "36", "quit"}, "\n") + "\n"
	r = env.run(script, "shell")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stdout, "Ada Lovelace <ada@example.com> Age: 36 id="+ada.ID.String())
}
