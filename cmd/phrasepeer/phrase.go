// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/phrasepeer/phrasepeer/lib/secret"
)

// terminal describes stdin when it is an interactive terminal.
type terminal struct {
	fd          int
	interactive bool
}

func detectTerminal(stdin io.Reader) terminal {
	file, ok := stdin.(*os.File)
	if !ok {
		return terminal{}
	}
	fd := int(file.Fd())
	return terminal{fd: fd, interactive: term.IsTerminal(fd)}
}

// readPhrase returns the passphrase from --phrase-file, an echo-free
// terminal prompt, or the first line of piped stdin, in that order of
// preference.
func (a *app) readPhrase() (*secret.Buffer, error) {
	switch {
	case a.phraseFile == "-":
		return a.readPhraseLine()
	case a.phraseFile != "":
		buffer, err := secret.ReadFromPath(a.phraseFile)
		if err != nil {
			return nil, fmt.Errorf("reading passphrase from %s: %w", a.phraseFile, err)
		}
		return buffer, nil
	case a.terminal.interactive:
		fmt.Fprint(a.stderr, "Passphrase: ")
		phrase, err := term.ReadPassword(a.terminal.fd)
		fmt.Fprintln(a.stderr)
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		return trimmedSecret(phrase)
	default:
		return a.readPhraseLine()
	}
}

// readPhraseLine consumes one line from the shared stdin scanner.
func (a *app) readPhraseLine() (*secret.Buffer, error) {
	if !a.input.Scan() {
		if err := a.input.Err(); err != nil {
			return nil, fmt.Errorf("reading passphrase from stdin: %w", err)
		}
		return nil, errors.New("no passphrase on stdin")
	}
	return trimmedSecret(a.input.Bytes())
}

func trimmedSecret(data []byte) (*secret.Buffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		secret.Zero(data)
		return nil, errors.New("empty phrase")
	}
	buffer, err := secret.NewFromBytes(trimmed)
	secret.Zero(data)
	return buffer, err
}
