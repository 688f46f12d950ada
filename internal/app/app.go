// Package app wires the note store, media store, engine and controller
// to a tcell screen and runs the event loop. It has two screens: the
// note list and the editor, switched by opening or closing a note.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qnote/internal/config"
	"github.com/kobzarvs/qnote/internal/editor"
	"github.com/kobzarvs/qnote/internal/logger"
	"github.com/kobzarvs/qnote/internal/media"
	"github.com/kobzarvs/qnote/internal/note"
	"github.com/kobzarvs/qnote/internal/richtext"
	"github.com/kobzarvs/qnote/internal/transcribe"
)

type uiMode int

const (
	modeList uiMode = iota
	modeEdit
)

type promptKind int

const (
	promptNone promptKind = iota
	promptImagePath
	promptAudioPath
)

// listItem is one row of the note list screen.
type listItem struct {
	id     string
	title  string
	detail string
}

// App is the top-level runtime for qnote.
type App struct {
	args    []string
	cfg     config.Config
	screen  tcell.Screen
	db      *note.DB
	store   *media.Store
	scriber transcribe.Transcriber

	w, h   int
	viewH  int
	mode   uiMode
	status string

	// note list screen
	items    []listItem
	selected int
	query    []rune
	querying bool

	// editor screen
	sess        *note.Session
	view        *View
	ctrl        *editor.Controller
	prompt      promptKind
	promptInput []rune
}

func New(args []string) *App {
	return &App{args: args}
}

func (a *App) Run() error {
	runtime.LockOSThread()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	dataDir := cfg.Editor.DataDir
	if dataDir == "" {
		dataDir, err = config.DefaultDataDir()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	db, err := note.Open(filepath.Join(dataDir, "notes.db"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	a.db = db
	a.store, err = media.NewStore(filepath.Join(dataDir, "media"), cfg.Editor.ThumbnailWidth)
	if err != nil {
		return err
	}
	if cfg.Transcribe.Endpoint != "" {
		a.scriber = transcribe.NewHTTPClient(cfg.Transcribe.Endpoint)
	}

	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()
	a.screen = s
	a.resize(s.Size())

	if len(a.args) > 0 {
		if err := a.openNote(a.args[0]); err != nil {
			return err
		}
	} else {
		a.mode = modeList
		a.reloadList()
	}

	a.render()
	for {
		ev := s.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if a.handleKey(ev) {
				return a.shutdown()
			}
			a.render()
		case *tcell.EventResize:
			a.resize(s.Size())
			s.Sync()
			a.render()
		case *tcell.EventInterrupt:
			if fn, ok := ev.Data().(func()); ok && fn != nil {
				fn()
			}
			a.render()
		}
	}
}

func (a *App) resize(w, h int) {
	a.w, a.h = w, h
	a.viewH = h - 1 // last row is the status line
	if a.viewH < 1 {
		a.viewH = 1
	}
	if a.view != nil {
		a.view.Resize(w, a.viewH)
	}
}

func (a *App) shutdown() error {
	if err := a.closeNote(); err != nil {
		logger.Error("final save failed", "err", err)
	}
	return nil
}

// runOnUI marshals fn onto the event loop goroutine.
func (a *App) runOnUI(fn func()) {
	if a.screen == nil {
		fn()
		return
	}
	_ = a.screen.PostEvent(tcell.NewEventInterrupt(fn))
}

// openNote loads (or creates) a note and switches to the editor screen.
func (a *App) openNote(id string) error {
	sess, err := note.OpenSession(a.db, a.store, id, a.w)
	if err != nil {
		return err
	}
	a.sess = sess
	a.view = NewView(sess.Buffer(), a.cfg.Theme, a.w, a.viewH)
	engine := editor.New(sess.Buffer(), a.view, editor.Options{
		BodyFontSize:    a.cfg.Editor.BodyFontSize,
		HeaderFontSizes: a.cfg.Editor.HeaderFontSizes,
		ScrollMargin:    a.cfg.Editor.ScrollMargin,
	})
	a.ctrl = editor.NewController(engine, a.store, editor.ControllerOptions{
		Debounce: time.Duration(a.cfg.Editor.AutosaveMS) * time.Millisecond,
		Save:     sess.Save,
		RunOnUI:  a.runOnUI,
	})
	a.mode = modeEdit
	a.prompt = promptNone
	a.promptInput = nil
	a.status = "note " + sess.ID()
	return nil
}

// closeNote flushes and tears down the editor screen. No-op when no
// note is open.
func (a *App) closeNote() error {
	if a.sess == nil {
		return nil
	}
	err := a.ctrl.Flush()
	a.view.Teardown()
	a.sess, a.view, a.ctrl = nil, nil, nil
	a.prompt = promptNone
	a.promptInput = nil
	return err
}

// reloadList refreshes the list items from the store, honoring the
// current search query.
func (a *App) reloadList() {
	q := strings.TrimSpace(string(a.query))
	a.items = a.items[:0]
	if q == "" {
		sums, err := a.db.List()
		if err != nil {
			a.status = "list failed: " + err.Error()
			return
		}
		for _, s := range sums {
			a.items = append(a.items, listItem{
				id:     s.ID,
				title:  s.Title,
				detail: s.UpdatedAt.Format("2006-01-02 15:04"),
			})
		}
	} else {
		hits, err := a.db.Search(q, 100)
		if err != nil {
			a.status = "search failed: " + err.Error()
			return
		}
		for _, h := range hits {
			a.items = append(a.items, listItem{id: h.ID, title: h.Title, detail: h.Snippet})
		}
	}
	if a.selected >= len(a.items) {
		a.selected = len(a.items) - 1
	}
	if a.selected < 0 {
		a.selected = 0
	}
	a.status = fmt.Sprintf("%d notes", len(a.items))
}

func (a *App) moveSelection(delta int) {
	a.selected += delta
	if a.selected < 0 {
		a.selected = 0
	}
	if n := len(a.items); a.selected >= n && n > 0 {
		a.selected = n - 1
	}
}

func (a *App) openSelected() {
	if a.selected < 0 || a.selected >= len(a.items) {
		return
	}
	if err := a.openNote(a.items[a.selected].id); err != nil {
		a.status = "open failed: " + err.Error()
	}
}

// deleteSelected removes the selected note and its media.
func (a *App) deleteSelected() {
	if a.selected < 0 || a.selected >= len(a.items) {
		return
	}
	it := a.items[a.selected]
	if err := a.db.Delete(it.id); err != nil && !errors.Is(err, note.ErrNotFound) {
		a.status = "delete failed: " + err.Error()
		return
	}
	if err := a.store.DeleteAll(it.id); err != nil {
		logger.Warn("media cleanup failed", "note", it.id, "err", err)
	}
	a.reloadList()
	a.status = "deleted " + it.id
}

// handleKey routes a key event to the active screen. Returns true to
// quit.
func (a *App) handleKey(ev *tcell.EventKey) bool {
	if a.mode == modeList {
		return a.handleListKey(ev)
	}
	return a.handleEditorKey(ev)
}

func (a *App) handleListKey(ev *tcell.EventKey) bool {
	if a.querying {
		switch ev.Key() {
		case tcell.KeyEnter:
			a.querying = false
		case tcell.KeyEscape:
			a.querying = false
			a.query = nil
			a.reloadList()
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if len(a.query) > 0 {
				a.query = a.query[:len(a.query)-1]
				a.reloadList()
			}
		case tcell.KeyRune:
			a.query = append(a.query, ev.Rune())
			a.reloadList()
		}
		return false
	}
	switch ev.Key() {
	case tcell.KeyUp:
		a.moveSelection(-1)
	case tcell.KeyDown:
		a.moveSelection(1)
	case tcell.KeyEnter:
		a.openSelected()
	case tcell.KeyEscape:
		if len(a.query) > 0 {
			a.query = nil
			a.reloadList()
		}
	case tcell.KeyCtrlQ:
		return true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'j':
			a.moveSelection(1)
		case 'k':
			a.moveSelection(-1)
		case 'n':
			if err := a.openNote(""); err != nil {
				a.status = "new note failed: " + err.Error()
			}
		case 'd':
			a.deleteSelected()
		case '/':
			a.querying = true
			a.query = nil
		case 'q':
			return true
		}
	}
	return false
}

func (a *App) handleEditorKey(ev *tcell.EventKey) bool {
	if a.prompt != promptNone {
		a.handlePromptKey(ev)
		return false
	}
	// Backspace shares the ctrl+h key code; it always deletes and is
	// never dispatched through the keymap.
	if ev.Key() == tcell.KeyBackspace || ev.Key() == tcell.KeyBackspace2 {
		a.ctrl.Backspace()
		return false
	}
	if action, ok := a.cfg.Keymap.Edit[keyCombo(ev)]; ok {
		return a.dispatch(action)
	}
	a.handleEditKey(ev)
	return false
}

func (a *App) dispatch(action string) bool {
	switch action {
	case "toggle_bold":
		a.ctrl.ToggleBold()
	case "toggle_italic":
		a.ctrl.ToggleItalic()
	case "toggle_underline":
		a.ctrl.ToggleUnderline()
	case "cycle_header":
		a.ctrl.CycleHeader()
	case "insert_image":
		a.prompt = promptImagePath
		a.promptInput = nil
	case "transcribe_audio":
		a.prompt = promptAudioPath
		a.promptInput = nil
	case "undo":
		a.ctrl.Undo()
	case "redo":
		a.ctrl.Redo()
	case "save":
		if err := a.ctrl.Flush(); err != nil {
			a.status = "save failed: " + err.Error()
		} else {
			a.status = "saved"
		}
	case "note_list":
		if err := a.closeNote(); err != nil {
			logger.Error("note close failed", "err", err)
		}
		a.mode = modeList
		a.reloadList()
	case "quit":
		return true
	}
	return false
}

func (a *App) handlePromptKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEnter:
		a.submitPrompt()
	case tcell.KeyEscape:
		a.prompt = promptNone
		a.promptInput = nil
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(a.promptInput) > 0 {
			a.promptInput = a.promptInput[:len(a.promptInput)-1]
		}
	case tcell.KeyRune:
		a.promptInput = append(a.promptInput, ev.Rune())
	}
}

func (a *App) submitPrompt() {
	path := strings.TrimSpace(string(a.promptInput))
	kind := a.prompt
	a.prompt = promptNone
	a.promptInput = nil
	if path == "" {
		return
	}
	switch kind {
	case promptImagePath:
		data, err := os.ReadFile(path)
		if err != nil {
			a.status = "read failed: " + err.Error()
			return
		}
		a.status = "saving image..."
		a.ctrl.InsertImage(context.Background(), data, a.sess.ID(), func(orig, _ string, err error) {
			if err != nil {
				a.status = "image failed: " + err.Error()
				return
			}
			a.status = "inserted " + orig
		})
	case promptAudioPath:
		if a.scriber == nil {
			a.status = "no transcription endpoint configured"
			return
		}
		a.status = "transcribing..."
		go func() {
			text, err := a.scriber.Transcribe(context.Background(), path, a.cfg.Transcribe.Language, nil)
			a.runOnUI(func() {
				if err != nil {
					a.status = "transcription failed: " + err.Error()
					return
				}
				if a.ctrl == nil {
					a.status = "transcription dropped, note closed"
					return
				}
				a.ctrl.TypeText(text)
				a.status = "transcribed"
			})
		}()
	}
}

func (a *App) handleEditKey(ev *tcell.EventKey) {
	extend := ev.Modifiers()&tcell.ModShift != 0
	switch ev.Key() {
	case tcell.KeyRune:
		a.ctrl.TypeText(string(ev.Rune()))
	case tcell.KeyEnter:
		a.ctrl.TypeText("\n")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.ctrl.Backspace()
	case tcell.KeyLeft:
		a.view.MoveCaret(-1, extend)
	case tcell.KeyRight:
		a.view.MoveCaret(1, extend)
	case tcell.KeyUp:
		a.view.MoveCaretRow(-1)
	case tcell.KeyDown:
		a.view.MoveCaretRow(1)
	case tcell.KeyHome:
		a.view.SetSelection(richtext.Selection{})
	case tcell.KeyEnd:
		a.view.SetSelection(richtext.Selection{Loc: a.view.buf.Len()})
	}
}

func (a *App) render() {
	if a.mode == modeList {
		a.renderList()
		return
	}
	a.renderEdit()
}

func (a *App) renderEdit() {
	// Apply pending layout corrections before painting so the frame on
	// screen already reflects the stabilized scroll.
	a.view.drainAfterLayout()
	a.view.Render(a.screen, 0, 0)
	line := a.status
	if a.prompt != promptNone {
		label := "image path: "
		if a.prompt == promptAudioPath {
			label = "audio path: "
		}
		line = label + string(a.promptInput)
	}
	drawStatusLine(a.screen, 0, a.viewH, a.w, line, a.cfg.Theme)
	a.screen.Show()
}

func (a *App) renderList() {
	base := tcell.StyleDefault.
		Foreground(tcell.GetColor(a.cfg.Theme.Foreground)).
		Background(tcell.GetColor(a.cfg.Theme.Background))
	sel := base.Reverse(true)

	top := 0
	if a.selected >= a.viewH {
		top = a.selected - a.viewH + 1
	}
	for row := 0; row < a.viewH; row++ {
		i := top + row
		line := ""
		style := base
		if i >= 0 && i < len(a.items) {
			it := a.items[i]
			title := it.title
			if title == "" {
				title = "(untitled)"
			}
			line = title
			if it.detail != "" {
				line += "  " + it.detail
			}
			if i == a.selected {
				style = sel
			}
		}
		drawText(a.screen, 0, row, a.w, line, style)
	}
	line := a.status
	if a.querying || len(a.query) > 0 {
		line = "search: " + string(a.query)
	}
	drawStatusLine(a.screen, 0, a.viewH, a.w, line, a.cfg.Theme)
	a.screen.Show()
}

// keyCombo renders a key event as a keymap lookup string ("ctrl+b").
func keyCombo(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		if ev.Modifiers()&tcell.ModCtrl != 0 {
			return "ctrl+" + string(ev.Rune())
		}
		return ""
	}
	// Ctrl+letter arrives as a control key code.
	if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
		return "ctrl+" + string(rune('a'+ev.Key()-tcell.KeyCtrlA))
	}
	return ""
}

// drawText paints text at (x0, y) padded with spaces to width w.
func drawText(s tcell.Screen, x0, y, w int, text string, style tcell.Style) {
	runes := []rune(text)
	for x := 0; x < w; x++ {
		ch := ' '
		if x < len(runes) {
			ch = runes[x]
		}
		s.SetContent(x0+x, y, ch, nil, style)
	}
}

func drawStatusLine(s tcell.Screen, x0, y, w int, text string, theme config.Theme) {
	style := tcell.StyleDefault.
		Foreground(tcell.GetColor(theme.StatuslineForeground)).
		Background(tcell.GetColor(theme.StatuslineBackground))
	drawText(s, x0, y, w, text, style)
}
