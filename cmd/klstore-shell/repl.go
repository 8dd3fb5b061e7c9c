/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/launix-de/klog/store"
)

const newPrompt = "\033[32mklstore>\033[0m "
const resultPrompt = "\033[31m=\033[0m "

type shell struct {
	writer *store.ObjectWriter
	reader *store.ObjectReader
}

func (s *shell) repl() {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       ".klstore-shell-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Println("type 'help' for a list of commands")
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		s.dispatch(line)
	}
}

func (s *shell) dispatch(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "help":
		printHelp()
		return
	case "create-keyspace":
		err = s.cmdCreateKeyspace(args)
	case "append":
		err = s.cmdAppend(args)
	case "read":
		err = s.cmdRead(args)
	case "read-next":
		err = s.cmdReadNext(args)
	case "flush":
		err = s.cmdFlush(args)
	case "flush-all":
		err = s.writer.FlushAll()
	case "stats":
		err = s.cmdStats(args)
	default:
		fmt.Printf("unknown command %q, type 'help'\n", cmd)
		return
	}
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(resultPrompt + "ok")
}

func printHelp() {
	fmt.Println(`commands:
  create-keyspace <keyspace>
  append <keyspace> <key> <value> [nonce] [timestamp]
  read <keyspace> <key> [forward|backward] [pageSize]
  read-next <keyspace> <key> <continuation> [pageSize]
  flush <keyspace> <key>
  flush-all
  stats <keyspace> <key>
  exit`)
}

func (s *shell) cmdCreateKeyspace(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: create-keyspace <keyspace>")
	}
	created, err := s.writer.CreateKeyspace(args[0])
	if err != nil {
		return err
	}
	fmt.Println("created keyspace", created.Keyspace)
	return nil
}

func (s *shell) cmdAppend(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: append <keyspace> <key> <value> [nonce] [timestamp]")
	}
	keyspace, key, value := args[0], args[1], args[2]
	insertion := store.Insertion{Value: []byte(value)}
	if len(args) >= 4 && args[3] != "-" {
		n, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("nonce: %v", err)
		}
		nonce := store.NewNonce(n)
		insertion.Nonce = &nonce
	}
	if len(args) >= 5 && args[4] != "-" {
		ts, err := strconv.ParseInt(args[4], 10, 64)
		if err != nil {
			return fmt.Errorf("timestamp: %v", err)
		}
		insertion.Timestamp = &ts
	}
	return s.writer.Append(keyspace, key, []store.Insertion{insertion})
}

func (s *shell) cmdRead(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: read <keyspace> <key> [forward|backward] [pageSize]")
	}
	keyspace, key := args[0], args[1]
	direction := store.Forward
	if len(args) >= 3 && args[2] == "backward" {
		direction = store.Backward
	}
	var pageSize *uint64
	if len(args) >= 4 {
		v, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("pageSize: %v", err)
		}
		pageSize = &v
	}
	page, err := s.reader.ReadFirstPage(keyspace, key, direction, store.StartFromFirst(), pageSize)
	if err != nil {
		return err
	}
	printPage(page)
	return nil
}

func (s *shell) cmdReadNext(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: read-next <keyspace> <key> <continuation> [pageSize]")
	}
	keyspace, key, continuation := args[0], args[1], args[2]
	var pageSize *uint64
	if len(args) >= 4 {
		v, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("pageSize: %v", err)
		}
		pageSize = &v
	}
	page, err := s.reader.ReadNextPage(keyspace, key, continuation, pageSize)
	if err != nil {
		return err
	}
	printPage(page)
	return nil
}

func printPage(page store.Page) {
	for _, r := range page.Records {
		nonce := "-"
		if r.Nonce != nil {
			nonce = fmt.Sprintf("%d:%d", r.Nonce.Hi, r.Nonce.Lo)
		}
		fmt.Printf("  offset=%d timestamp=%d nonce=%s value=%q\n", r.Offset, r.Timestamp, nonce, string(r.Value))
	}
	if page.Continuation != nil {
		fmt.Println("continuation:", *page.Continuation)
	} else {
		fmt.Println("continuation: (end of stream)")
	}
}

func (s *shell) cmdFlush(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: flush <keyspace> <key>")
	}
	return s.writer.FlushKey(args[0], args[1])
}

func (s *shell) cmdStats(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: stats <keyspace> <key>")
	}
	meta, err := s.reader.ReadKeyMetadata(args[0], args[1])
	if err != nil {
		return err
	}
	if meta == nil {
		fmt.Println("no records for this key yet")
		return nil
	}
	fmt.Printf("next_offset=%d next_nonce=%d:%d\n", meta.NextOffset, meta.NextNonce.Hi, meta.NextNonce.Lo)
	readStats := s.reader.Stats()
	fmt.Printf("reader stats: list_ops=%d read_ops=%d bytes_read=%d continuation_misses=%d\n",
		readStats.ListOperations, readStats.ReadOperations, readStats.ReadSizeTotal, readStats.ContinuationMisses)
	return nil
}
