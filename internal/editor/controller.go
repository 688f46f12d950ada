package editor

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/kobzarvs/qnote/internal/logger"
	"github.com/kobzarvs/qnote/internal/richtext"
)

// ChangeKind tells downstream observers what caused a buffer change so
// they can suppress reciprocal buffer reassignments (feedback loops).
type ChangeKind int

const (
	ChangeUserEdit ChangeKind = iota
	ChangeMediaInserted
	ChangeOther
)

// ErrSurfaceDetached is reported when an asynchronous insertion lands
// after the editing surface has been torn down.
var ErrSurfaceDetached = errors.New("editor: surface detached")

// MediaStore is the slice of the resource store the controller needs.
type MediaStore interface {
	// Save persists an encoded image and its thumbnail for ownerID and
	// returns the stored names.
	Save(ctx context.Context, data []byte, ownerID string) (originalName, thumbName string, err error)
	// LoadThumbnail resolves a stored original name to its decoded
	// thumbnail.
	LoadThumbnail(originalName string) (image.Image, error)
}

// ControllerOptions wire a Controller to its collaborators.
type ControllerOptions struct {
	// Debounce is the quiet period before an edit burst is persisted.
	Debounce time.Duration
	// Save persists the current buffer. Called on the UI goroutine.
	Save func(*richtext.Buffer) error
	// OnChange fires after every buffer change with its cause.
	OnChange func(*richtext.Buffer, ChangeKind)
	// RunOnUI marshals fn onto the UI goroutine. Background work must
	// never touch the buffer or the surface directly.
	RunOnUI func(func())
}

type snapshot struct {
	name    string
	content *richtext.Buffer
	sel     richtext.Selection
}

// Controller mediates between the UI layer and the engine: named undo
// groups, debounced persistence, and the asynchronous image-insertion
// pipeline. Each logical gesture maps to exactly one undo step; the
// group is flushed after every engine call.
type Controller struct {
	engine *Engine
	store  MediaStore
	opts   ControllerOptions

	undo []snapshot
	redo []snapshot

	mu           sync.Mutex
	timer        *time.Timer
	pendingMedia sync.WaitGroup
}

// NewController builds a controller over engine and store.
func NewController(engine *Engine, store MediaStore, opts ControllerOptions) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = 400 * time.Millisecond
	}
	if opts.RunOnUI == nil {
		opts.RunOnUI = func(fn func()) { fn() }
	}
	return &Controller{engine: engine, store: store, opts: opts}
}

// perform wraps one engine call in a named undo group and flushes it.
func (c *Controller) perform(name string, kind ChangeKind, fn func()) {
	buf := c.engine.Buffer()
	snap := snapshot{name: name, content: buf.Clone(), sel: c.currentSelection()}
	fn()
	c.undo = append(c.undo, snap)
	c.redo = nil
	c.noteChanged(kind)
}

func (c *Controller) currentSelection() richtext.Selection {
	if c.engine.surface != nil && c.engine.surface.Alive() {
		return c.engine.surface.Selection()
	}
	return richtext.Selection{}
}

// TypeText inserts typed text as one undo group.
func (c *Controller) TypeText(s string) {
	c.perform("Typing", ChangeUserEdit, func() { c.engine.InsertText(s) })
}

// Backspace deletes backward as one undo group.
func (c *Controller) Backspace() {
	c.perform("Delete", ChangeUserEdit, func() { c.engine.DeleteBackward() })
}

// ToggleBold flips the bold trait of the selection (or typing attributes).
func (c *Controller) ToggleBold() {
	want := !c.engine.SelectionHasTrait(richtext.TraitBold)
	c.perform("Bold", ChangeUserEdit, func() {
		c.engine.ApplyFormatting(Formatting{Bold: &want})
	})
}

// ToggleItalic flips the italic trait.
func (c *Controller) ToggleItalic() {
	want := !c.engine.SelectionHasTrait(richtext.TraitItalic)
	c.perform("Italic", ChangeUserEdit, func() {
		c.engine.ApplyFormatting(Formatting{Italic: &want})
	})
}

// ToggleUnderline flips underline.
func (c *Controller) ToggleUnderline() {
	want := !c.engine.SelectionUnderlined()
	c.perform("Underline", ChangeUserEdit, func() {
		c.engine.ApplyFormatting(Formatting{Underline: &want})
	})
}

// SetHeader applies header level 0-6.
func (c *Controller) SetHeader(level int) {
	if level < 0 || level > 6 {
		return
	}
	c.perform("Header", ChangeUserEdit, func() {
		c.engine.ApplyFormatting(Formatting{Header: &level})
	})
}

// CycleHeader steps body -> H1 -> ... -> H6 -> body.
func (c *Controller) CycleHeader() {
	next := c.engine.SelectionHeader() + 1
	if next > 6 {
		next = 0
	}
	c.SetHeader(next)
}

// InsertImage runs the image-insertion pipeline: persist original and
// thumbnail off the interactive path, then insert the attachment at the
// then-current selection and invoke done with the stored names. If the
// cursor moved while the save was in flight the image lands at the new
// position; that race is accepted by design. On store failure done
// receives empty names and the buffer is never touched.
func (c *Controller) InsertImage(ctx context.Context, data []byte, noteID string, done func(originalName, thumbName string, err error)) {
	if done == nil {
		done = func(string, string, error) {}
	}
	c.pendingMedia.Add(1)
	go func() {
		defer c.pendingMedia.Done()
		orig, thumb, err := c.store.Save(ctx, data, noteID)
		c.opts.RunOnUI(func() {
			if err != nil {
				logger.Error("image save failed", "note", noteID, "err", err)
				done("", "", err)
				return
			}
			if !c.engine.alive() {
				// The note closed while the save was in flight; the
				// files are stored but nothing can be inserted, and an
				// undo group for a no-op would corrupt the history.
				logger.Warn("image insert skipped, surface detached", "note", noteID, "name", orig)
				done("", "", ErrSurfaceDetached)
				return
			}
			img, lerr := c.store.LoadThumbnail(orig)
			if lerr != nil {
				logger.Error("thumbnail load failed", "name", orig, "err", lerr)
				done("", "", lerr)
				return
			}
			att := &richtext.Attachment{ResourceName: orig, Image: img}
			att.ResizeBoundsToContainerWidth(c.engine.ContainerWidth())
			c.perform("Insert Image", ChangeMediaInserted, func() {
				c.engine.InsertAttachment(att, richtext.LinkForResource(orig))
			})
			done(orig, thumb, nil)
		})
	}()
}

// Undo restores the state before the most recent undo group.
func (c *Controller) Undo() {
	n := len(c.undo)
	if n == 0 {
		return
	}
	snap := c.undo[n-1]
	c.undo = c.undo[:n-1]
	c.redo = append(c.redo, snapshot{
		name:    snap.name,
		content: c.engine.Buffer().Clone(),
		sel:     c.currentSelection(),
	})
	c.engine.RestoreSnapshot(snap.content, snap.sel)
	c.noteChanged(ChangeOther)
}

// Redo reapplies the most recently undone group.
func (c *Controller) Redo() {
	n := len(c.redo)
	if n == 0 {
		return
	}
	snap := c.redo[n-1]
	c.redo = c.redo[:n-1]
	c.undo = append(c.undo, snapshot{
		name:    snap.name,
		content: c.engine.Buffer().Clone(),
		sel:     c.currentSelection(),
	})
	c.engine.RestoreSnapshot(snap.content, snap.sel)
	c.noteChanged(ChangeOther)
}

// CanUndo reports whether an undo group is available.
func (c *Controller) CanUndo() bool { return len(c.undo) > 0 }

// CanRedo reports whether a redo group is available.
func (c *Controller) CanRedo() bool { return len(c.redo) > 0 }

// noteChanged fires the change callback and (re)schedules the debounced
// save. A newer edit always cancels and supersedes a pending save, so
// only the last state before a quiet period becomes durable.
func (c *Controller) noteChanged(kind ChangeKind) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(c.engine.Buffer(), kind)
	}
	if c.opts.Save == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.opts.Debounce, func() {
		c.opts.RunOnUI(func() {
			if err := c.opts.Save(c.engine.Buffer()); err != nil {
				logger.Error("debounced save failed", "err", err)
			}
		})
	})
}

// Flush cancels any pending debounced save, waits for in-flight media
// saves, and persists synchronously. Session teardown must call this
// before deleting resources so a closing note never races a write.
func (c *Controller) Flush() error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.pendingMedia.Wait()
	if c.opts.Save == nil {
		return nil
	}
	return c.opts.Save(c.engine.Buffer())
}
