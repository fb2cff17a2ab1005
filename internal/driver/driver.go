// Package driver is the typed client surface over the extension bridge.
package driver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/webdriver-bridge/internal/command"
	"github.com/user/webdriver-bridge/internal/drivererr"
	"github.com/user/webdriver-bridge/internal/wire"
)

// Locator strategies understood by the extension.
const (
	ByID              = "id"
	ByName            = "name"
	ByClassName       = "class name"
	ByCSSSelector     = "css selector"
	ByTagName         = "tag name"
	ByLinkText        = "link text"
	ByPartialLinkText = "partial link text"
	ByXPath           = "xpath"
)

const (
	elementKey    = "ELEMENT"
	w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"
	screenshotPNG = "data:image/png;base64,"
)

// Executor runs one command against the browser.
type Executor interface {
	Do(ctx context.Context, kind command.Kind, values ...command.Value) (*wire.Response, error)
}

// Restarter brings up a fresh browser after a fatal error.
type Restarter interface {
	Restart(ctx context.Context) error
}

// Driver issues WebDriver operations through an Executor.
type Driver struct {
	exec      Executor
	restarter Restarter
	logger    *zap.Logger
}

// Option customises a Driver.
type Option func(*Driver)

// WithRestarter retries a command once on a new browser after a fatal error.
func WithRestarter(r Restarter) Option {
	return func(d *Driver) { d.restarter = r }
}

// New creates a Driver.
func New(exec Executor, logger *zap.Logger, opts ...Option) *Driver {
	d := &Driver{exec: exec, logger: logger.Named("driver")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do executes kind with values. A FatalDriverError restarts the browser and
// retries the command once when a Restarter is configured.
func (d *Driver) Do(ctx context.Context, kind command.Kind, values ...command.Value) (*wire.Response, error) {
	resp, err := d.exec.Do(ctx, kind, values...)
	if err == nil || d.restarter == nil || !drivererr.IsFatal(err) {
		return resp, err
	}

	d.logger.Warn("fatal driver error, restarting browser", zap.Stringer("command", kind), zap.Error(err))
	if rerr := d.restarter.Restart(ctx); rerr != nil {
		return resp, fmt.Errorf("%w (restart failed: %v)", err, rerr)
	}
	return d.exec.Do(ctx, kind, values...)
}

func (d *Driver) decode(ctx context.Context, out any, kind command.Kind, values ...command.Value) error {
	resp, err := d.Do(ctx, kind, values...)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return drivererr.Wrap(drivererr.MalformedResponse, fmt.Sprintf("decode %s value", kind), err)
	}
	return nil
}

func (d *Driver) run(ctx context.Context, kind command.Kind, values ...command.Value) error {
	_, err := d.Do(ctx, kind, values...)
	return err
}

// Get navigates to url.
func (d *Driver) Get(ctx context.Context, url string) error {
	return d.run(ctx, command.Get, command.String(url))
}

// CurrentURL returns the URL of the current page.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var s string
	err := d.decode(ctx, &s, command.GetCurrentURL)
	return s, err
}

// Title returns the current page title.
func (d *Driver) Title(ctx context.Context) (string, error) {
	var s string
	err := d.decode(ctx, &s, command.GetTitle)
	return s, err
}

// PageSource returns the serialized DOM.
func (d *Driver) PageSource(ctx context.Context) (string, error) {
	var s string
	err := d.decode(ctx, &s, command.GetPageSource)
	return s, err
}

// Back goes one step back in the session history.
func (d *Driver) Back(ctx context.Context) error { return d.run(ctx, command.GoBack) }

// Forward goes one step forward in the session history.
func (d *Driver) Forward(ctx context.Context) error { return d.run(ctx, command.GoForward) }

// Refresh reloads the current page.
func (d *Driver) Refresh(ctx context.Context) error { return d.run(ctx, command.Refresh) }

// Close closes the current window.
func (d *Driver) Close(ctx context.Context) error { return d.run(ctx, command.Close) }

// WindowHandle returns the current window's handle.
func (d *Driver) WindowHandle(ctx context.Context) (string, error) {
	var s string
	err := d.decode(ctx, &s, command.GetWindowHandle)
	return s, err
}

// WindowHandles returns every open window handle.
func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	var s []string
	err := d.decode(ctx, &s, command.GetWindowHandles)
	return s, err
}

// SwitchToWindow focuses the window with the given name or handle.
func (d *Driver) SwitchToWindow(ctx context.Context, name string) error {
	return d.run(ctx, command.SwitchToWindow, command.String(name))
}

// SwitchToFrame focuses a frame by index, name or id; nil selects the top
// document.
func (d *Driver) SwitchToFrame(ctx context.Context, frame any) error {
	v, err := command.FromAny(frame)
	if err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	return d.run(ctx, command.SwitchToFrame, v)
}

// Quit closes every window of the session.
func (d *Driver) Quit(ctx context.Context) error { return d.run(ctx, command.Quit) }

// ActiveElement returns the element that has focus.
func (d *Driver) ActiveElement(ctx context.Context) (*Element, error) {
	resp, err := d.Do(ctx, command.GetActiveElement)
	if err != nil {
		return nil, err
	}
	els, err := d.elements(resp.Value)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, drivererr.New(drivererr.NoSuchElement, "no element has focus")
	}
	return els[0], nil
}

// FindElement returns the first element matching the locator.
func (d *Driver) FindElement(ctx context.Context, by, value string) (*Element, error) {
	resp, err := d.Do(ctx, command.FindElement, command.String(by), command.String(value))
	if err != nil {
		return nil, err
	}
	ids, err := elementIDs(resp.Value)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, noSuchElement(by, value)
	}
	return &Element{ID: ids[0], d: d}, nil
}

func noSuchElement(by, value string) error {
	return drivererr.New(drivererr.NoSuchElement, fmt.Sprintf("no element matches %s %q", by, value))
}

// FindElements returns every element matching the locator.
func (d *Driver) FindElements(ctx context.Context, by, value string) ([]*Element, error) {
	resp, err := d.Do(ctx, command.FindElements, command.String(by), command.String(value))
	if err != nil {
		return nil, err
	}
	return d.elements(resp.Value)
}

// ExecuteScript runs script in the page with args and returns its result.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	items := make([]command.Value, 0, len(args))
	for i, a := range args {
		if el, ok := a.(*Element); ok {
			a = map[string]string{elementKey: el.ID}
		}
		v, err := command.FromAny(a)
		if err != nil {
			return nil, fmt.Errorf("script argument %d: %w", i, err)
		}
		items = append(items, v)
	}
	resp, err := d.Do(ctx, command.ExecuteScript, command.String(script), command.List(items...))
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Screenshot returns the visible page as PNG bytes.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var s string
	if err := d.decode(ctx, &s, command.Screenshot); err != nil {
		return nil, err
	}
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, screenshotPNG))
	if err != nil {
		return nil, drivererr.Wrap(drivererr.MalformedResponse, "decode screenshot", err)
	}
	return png, nil
}

// Cookie is a browser cookie.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Path   string `json:"path,omitempty"`
	Domain string `json:"domain,omitempty"`
	Secure bool   `json:"secure,omitempty"`
	Expiry int64  `json:"expiry,omitempty"`
}

// Cookies returns the cookies visible to the current page.
func (d *Driver) Cookies(ctx context.Context) ([]Cookie, error) {
	var c []Cookie
	err := d.decode(ctx, &c, command.GetCookies)
	return c, err
}

// AddCookie sets a cookie on the current page.
func (d *Driver) AddCookie(ctx context.Context, c Cookie) error {
	fields := []command.Field{
		command.F("name", command.String(c.Name)),
		command.F("value", command.String(c.Value)),
	}
	if c.Path != "" {
		fields = append(fields, command.F("path", command.String(c.Path)))
	}
	if c.Domain != "" {
		fields = append(fields, command.F("domain", command.String(c.Domain)))
	}
	if c.Secure {
		fields = append(fields, command.F("secure", command.Bool(true)))
	}
	if c.Expiry != 0 {
		fields = append(fields, command.F("expiry", command.Int(c.Expiry)))
	}
	return d.run(ctx, command.AddCookie, command.Map(fields...))
}

// DeleteCookie removes the named cookie.
func (d *Driver) DeleteCookie(ctx context.Context, name string) error {
	return d.run(ctx, command.DeleteCookie, command.String(name))
}

// DeleteAllCookies removes every cookie visible to the current page.
func (d *Driver) DeleteAllCookies(ctx context.Context) error {
	return d.run(ctx, command.DeleteAllCookies)
}

func (d *Driver) elements(raw json.RawMessage) ([]*Element, error) {
	ids, err := elementIDs(raw)
	if err != nil {
		return nil, err
	}
	out := make([]*Element, 0, len(ids))
	for _, id := range ids {
		out = append(out, &Element{ID: id, d: d})
	}
	return out, nil
}

// elementIDs accepts a bare id, a reference object or a list of either.
func elementIDs(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var ids []string
		for _, item := range list {
			id, err := elementID(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	id, err := elementID(raw)
	if err != nil {
		return nil, err
	}
	return []string{id}, nil
}

func elementID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err == nil {
		for _, k := range []string{elementKey, w3cElementKey} {
			if id, ok := ref[k]; ok {
				return id, nil
			}
		}
	}
	return "", drivererr.New(drivererr.MalformedResponse, fmt.Sprintf("not an element reference: %s", raw))
}
