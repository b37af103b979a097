package commands_test

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"whisper/cmd/whisper/commands"
	"whisper/internal/relay/server"
)

const pass = "Correct-Horse-42"

func run(t *testing.T, home, relayURL string, args ...string) (string, error) {
	t.Helper()
	root := commands.NewRootCmd(io.Discard)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--home", home, "--relay", relayURL, "-p", pass}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, home, relayURL string, args ...string) string {
	t.Helper()
	out, err := run(t, home, relayURL, args...)
	require.NoError(t, err)
	return out
}

func TestCLI_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(server.New(server.NewMemoryBackend(), nil).Handler())
	defer srv.Close()
	aliceHome, bobHome := t.TempDir(), t.TempDir()

	require.Contains(t, mustRun(t, aliceHome, srv.URL, "init"), "Fingerprint:")
	require.Contains(t, mustRun(t, bobHome, srv.URL, "init"), "Fingerprint:")

	require.Contains(t, mustRun(t, aliceHome, srv.URL, "register", "alice", "--prekeys", "2"), "Registered alice with 2")
	require.Contains(t, mustRun(t, bobHome, srv.URL, "register", "bob"), "Registered bob")

	require.Contains(t, mustRun(t, aliceHome, srv.URL, "start-session", "bob"), "Session created with bob.1")
	require.Equal(t, "sent\n", mustRun(t, aliceHome, srv.URL, "send", "bob", "hello bob"))

	out := mustRun(t, bobHome, srv.URL, "recv")
	require.Contains(t, out, "alice.1] hello bob")

	mustRun(t, bobHome, srv.URL, "send", "alice", "hi alice")
	require.Contains(t, mustRun(t, aliceHome, srv.URL, "recv"), "bob.1] hi alice")

	require.Contains(t, mustRun(t, aliceHome, srv.URL, "reset-session", "bob"), "removed")
	_, err := run(t, aliceHome, srv.URL, "send", "bob", "again")
	require.Error(t, err)
}

func TestCLI_FingerprintStable(t *testing.T) {
	home := t.TempDir()
	created := mustRun(t, home, "", "init")
	fp := mustRun(t, home, "", "fingerprint")
	require.Contains(t, created, fp)
}

func TestCLI_Errors(t *testing.T) {
	home := t.TempDir()

	_, err := run(t, home, "", "fingerprint")
	require.Error(t, err, "no identity yet")

	mustRun(t, home, "", "init")
	_, err = run(t, home, "", "send", "bob", "x")
	require.Error(t, err, "no relay configured")

	_, err = run(t, home, "", "--log-level", "loud", "fingerprint")
	require.Error(t, err)
}
