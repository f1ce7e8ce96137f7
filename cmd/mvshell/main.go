package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"tiny_mvto/pkg/logger"
	"tiny_mvto/pkg/txn"
)

func main() {
	var (
		policy   = flag.String("policy", "eager", "collection policy: eager or deferred")
		logLevel = flag.String("log-level", "warn", "log level")
		history  = flag.String("history", filepath.Join(os.TempDir(), "mvshell.history"), "history file")
	)
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", OutputFile: "stderr", Service: "mvshell"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	collectPolicy := txn.CollectEager
	if *policy == "deferred" {
		collectPolicy = txn.CollectDeferred
	}
	engine := txn.NewEngine(txn.WithLogger(log), txn.WithCollectPolicy(collectPolicy))
	engine.Start()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mvto> ",
		HistoryFile:     *history,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		log.Fatal("readline", zap.Error(err))
	}
	defer rl.Close()

	sh := newShell(engine, rl.Stdout())
	fmt.Fprintln(rl.Stdout(), "engine", engine.Name(), "ready; type help")

	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		quit, err := sh.exec(ctx, line)
		if err != nil {
			fmt.Fprintln(rl.Stdout(), "error:", err)
		}
		if quit {
			break
		}
	}

	sh.close()
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("begin"),
	readline.PcItem("get"),
	readline.PcItem("put"),
	readline.PcItem("commit"),
	readline.PcItem("abort"),
	readline.PcItem("collect"),
	readline.PcItem("stats"),
	readline.PcItem("help"),
	readline.PcItem("quit"),
)
