package text

import (
	"fmt"
	"strings"

	"ghosttext/logger"

	"github.com/neovim/go-client/nvim"
)

// HlGroup is the highlight group applied to ghost text. The plugin links it
// to Comment by default.
const HlGroup = "GhostTextSuggestion"

// BufferConfig holds rendering options for a Buffer
type BufferConfig struct {
	NsID int // extmark namespace, created on demand when zero
}

// Buffer mirrors the active nvim buffer and owns the ghost-text extmark.
// Cursor coordinates follow nvim conventions: Row is 1-indexed, Col is a
// 0-indexed byte offset.
type Buffer struct {
	Path  string
	Lines []string
	Row   int
	Col   int

	config BufferConfig
	buf    nvim.Buffer
	win    nvim.Window
	nsID   int
	shown  bool
}

// NewBuffer creates an empty Buffer with the given config
func NewBuffer(config BufferConfig) *Buffer {
	return &Buffer{config: config, nsID: config.NsID}
}

// SyncIn refreshes path, lines, and cursor from the current nvim buffer
func (b *Buffer) SyncIn(n *nvim.Nvim) error {
	defer logger.Trace("text.Buffer.SyncIn")()

	buf, err := n.CurrentBuffer()
	if err != nil {
		return fmt.Errorf("failed to get current buffer: %w", err)
	}
	win, err := n.CurrentWindow()
	if err != nil {
		return fmt.Errorf("failed to get current window: %w", err)
	}
	pos, err := n.WindowCursor(win)
	if err != nil {
		return fmt.Errorf("failed to get cursor position: %w", err)
	}
	name, err := n.BufferName(buf)
	if err != nil {
		return fmt.Errorf("failed to get buffer name: %w", err)
	}
	raw, err := n.BufferLines(buf, 0, -1, true)
	if err != nil {
		return fmt.Errorf("failed to get buffer lines: %w", err)
	}

	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}

	b.buf = buf
	b.win = win
	b.Path = name
	b.Row = pos[0]
	b.Col = pos[1]
	b.Lines = lines
	return nil
}

// PrefixSuffix splits the buffer content at the cursor
func (b *Buffer) PrefixSuffix() (string, string) {
	if b.Row < 1 || b.Row > len(b.Lines) {
		return "", ""
	}
	line := b.Lines[b.Row-1]
	col := b.Col
	if col > len(line) {
		col = len(line)
	}

	var sb strings.Builder
	for i := 0; i < b.Row-1; i++ {
		sb.WriteString(b.Lines[i])
		sb.WriteByte('\n')
	}
	sb.WriteString(line[:col])
	prefix := sb.String()

	sb.Reset()
	sb.WriteString(line[col:])
	for i := b.Row; i < len(b.Lines); i++ {
		sb.WriteByte('\n')
		sb.WriteString(b.Lines[i])
	}
	return prefix, sb.String()
}

// ShowGhost renders completion as ghost text at the cursor: the first line
// inline after the cursor, remaining lines as virtual lines below. Replaces
// any ghost text already shown.
func (b *Buffer) ShowGhost(n *nvim.Nvim, completion string) error {
	if completion == "" {
		return b.ClearGhost(n)
	}
	if err := b.ensureNamespace(n); err != nil {
		return err
	}

	lines := strings.Split(completion, "\n")
	opts := map[string]interface{}{
		"virt_text":     []interface{}{[]interface{}{lines[0], HlGroup}},
		"virt_text_pos": "inline",
	}
	if len(lines) > 1 {
		virtLines := make([]interface{}, 0, len(lines)-1)
		for _, line := range lines[1:] {
			virtLines = append(virtLines, []interface{}{[]interface{}{line, HlGroup}})
		}
		opts["virt_lines"] = virtLines
	}

	batch := n.NewBatch()
	batch.ClearBufferNamespace(b.buf, b.nsID, 0, -1)
	var markID int
	batch.SetBufferExtmark(b.buf, b.nsID, b.Row-1, b.Col, opts, &markID)
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("failed to render ghost text: %w", err)
	}
	b.shown = true
	return nil
}

// ClearGhost removes displayed ghost text. Safe when nothing is shown.
func (b *Buffer) ClearGhost(n *nvim.Nvim) error {
	if !b.shown || b.nsID == 0 {
		return nil
	}
	b.shown = false
	if err := n.ClearBufferNamespace(b.buf, b.nsID, 0, -1); err != nil {
		return fmt.Errorf("failed to clear ghost text: %w", err)
	}
	return nil
}

// PrepareAccept builds the batch that clears the ghost text, inserts
// completion at the cursor, and moves the cursor to its end. The caller
// executes it on accept.
func (b *Buffer) PrepareAccept(n *nvim.Nvim, completion string) *nvim.Batch {
	row := b.Row - 1
	col := b.Col

	lines := strings.Split(completion, "\n")
	replacement := make([][]byte, len(lines))
	for i, line := range lines {
		replacement[i] = []byte(line)
	}

	endRow := b.Row + len(lines) - 1
	endCol := len(lines[len(lines)-1])
	if len(lines) == 1 {
		endCol += col
	}

	batch := n.NewBatch()
	if b.nsID != 0 {
		batch.ClearBufferNamespace(b.buf, b.nsID, 0, -1)
	}
	batch.SetBufferText(b.buf, row, col, row, col, replacement)
	batch.SetWindowCursor(b.win, [2]int{endRow, endCol})
	b.shown = false
	return batch
}

func (b *Buffer) ensureNamespace(n *nvim.Nvim) error {
	if b.nsID != 0 {
		return nil
	}
	id, err := n.CreateNamespace("ghosttext")
	if err != nil {
		return fmt.Errorf("failed to create namespace: %w", err)
	}
	b.nsID = id
	return nil
}
