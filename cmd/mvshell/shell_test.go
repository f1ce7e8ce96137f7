package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiny_mvto/pkg/txn"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	engine := txn.NewEngine()
	engine.Start()
	out := &bytes.Buffer{}
	sh := newShell(engine, out)
	t.Cleanup(sh.close)
	return sh, out
}

func run(t *testing.T, sh *shell, lines ...string) {
	t.Helper()
	for _, line := range lines {
		quit, err := sh.exec(context.Background(), line)
		require.NoError(t, err, line)
		require.False(t, quit)
	}
}

func TestShellSession(t *testing.T) {
	sh, out := newTestShell(t)

	run(t, sh,
		"begin",
		"put 1 Hello World",
		"commit 1",
	)
	sh.commits.Wait()
	run(t, sh,
		"begin",
		"get 2 Hello",
		"stats",
	)

	text := out.String()
	assert.Contains(t, text, "txn 1\n")
	assert.Contains(t, text, "txn 1 committed")
	assert.Contains(t, text, `"World"`)
	assert.Contains(t, text, "pending=1")
}

func TestShellDeferredCommitResolvesLater(t *testing.T) {
	sh, out := newTestShell(t)

	run(t, sh, "begin", "begin", "put 1 k v", "get 2 k", "commit 2")
	assert.NotContains(t, out.String(), "txn 2 committed")

	run(t, sh, "commit 1")
	sh.commits.Wait()
	assert.Contains(t, out.String(), "txn 1 committed")
	assert.Contains(t, out.String(), "txn 2 committed")
}

func TestShellRejectsBadInput(t *testing.T) {
	sh, _ := newTestShell(t)
	ctx := context.Background()

	_, err := sh.exec(ctx, "frobnicate")
	assert.Equal(t, unknownCmdErr, err)

	_, err = sh.exec(ctx, "get 42 k")
	assert.Equal(t, unknownTxnErr, err)

	_, err = sh.exec(ctx, "put x k v")
	assert.Equal(t, usageErr, err)

	quit, err := sh.exec(ctx, "quit")
	assert.NoError(t, err)
	assert.True(t, quit)
}
