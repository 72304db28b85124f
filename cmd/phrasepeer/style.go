// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/phrasepeer/phrasepeer/negotiate"
)

// printer writes styled status and chat lines. Lines from the chat
// receive loop and the stdin loop interleave, so writes are serialized.
type printer struct {
	mu  sync.Mutex
	out io.Writer

	okStyle    lipgloss.Style
	warnStyle  lipgloss.Style
	mutedStyle lipgloss.Style
	selfStyle  lipgloss.Style
	peerStyle  lipgloss.Style
}

func newPrinter(out io.Writer) *printer {
	renderer := lipgloss.NewRenderer(out)
	return &printer{
		out:        out,
		okStyle:    renderer.NewStyle().Foreground(lipgloss.Color("2")),
		warnStyle:  renderer.NewStyle().Foreground(lipgloss.Color("3")),
		mutedStyle: renderer.NewStyle().Foreground(lipgloss.Color("8")),
		selfStyle:  renderer.NewStyle().Bold(true),
		peerStyle:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
	}
}

func (p *printer) line(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

func (p *printer) ok(format string, args ...any) {
	p.line(p.okStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) warn(format string, args ...any) {
	p.line(p.warnStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) muted(format string, args ...any) {
	p.line(p.mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// status renders a negotiation milestone. Only the advisory is a
// warning.
func (p *printer) status(status negotiate.Status) {
	if status == negotiate.StillWaitingForOffer {
		p.warn("%s", status)
		return
	}
	p.muted("%s", status)
}

func (p *printer) message(fromPeer bool, text string) {
	if fromPeer {
		p.line(p.peerStyle.Render("peer:") + " " + text)
		return
	}
	p.line(p.selfStyle.Render("me:") + " " + text)
}
