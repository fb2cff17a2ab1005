package command

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/user/webdriver-bridge/internal/drivererr"
)

// requestKey is the serialized field holding the wire name.
const requestKey = "request"

// Entry is one catalog row: the wire name and declared parameter names.
type Entry struct {
	Wire   string   `yaml:"wire"`
	Params []string `yaml:"params"`
}

// Catalog owns the kind → wire name and kind → parameter name tables.
type Catalog struct {
	wire   map[Kind]string
	params map[Kind][]string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		wire:   make(map[Kind]string),
		params: make(map[Kind][]string),
	}
}

// Register sets both table entries for kind.
func (c *Catalog) Register(kind Kind, wire string, params ...string) {
	c.wire[kind] = wire
	c.params[kind] = append([]string{}, params...)
}

// DefaultCatalog returns the command set understood by the Chrome extension.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register(Get, "get", "url")
	c.Register(GetCurrentURL, "getCurrentUrl")
	c.Register(GetTitle, "getTitle")
	c.Register(GetPageSource, "getPageSource")
	c.Register(GoBack, "goBack")
	c.Register(GoForward, "goForward")
	c.Register(Refresh, "refresh")
	c.Register(Close, "close")
	c.Register(Quit, "quit")
	c.Register(GetWindowHandle, "getWindowHandle")
	c.Register(GetWindowHandles, "getWindowHandles")
	c.Register(SwitchToWindow, "switchToWindow", "name")
	c.Register(SwitchToFrame, "switchToFrame", "id")
	c.Register(GetActiveElement, "getActiveElement")
	c.Register(FindElement, "findElement", "using", "value")
	c.Register(FindElements, "findElements", "using", "value")
	c.Register(FindChildElement, "findChildElement", "id", "using", "value")
	c.Register(FindChildElements, "findChildElements", "id", "using", "value")
	c.Register(ClickElement, "clickElement", "id")
	c.Register(ClearElement, "clearElement", "id")
	c.Register(SubmitElement, "submitElement", "id")
	c.Register(SendKeysToElement, "sendKeysToElement", "id", "value")
	c.Register(GetElementText, "getElementText", "id")
	c.Register(GetElementTagName, "getElementTagName", "id")
	c.Register(GetElementAttribute, "getElementAttribute", "id", "attribute")
	c.Register(GetElementValueOfCSSProperty, "getElementValueOfCssProperty", "id", "css")
	c.Register(IsElementSelected, "isElementSelected", "id")
	c.Register(IsElementEnabled, "isElementEnabled", "id")
	c.Register(IsElementDisplayed, "isElementDisplayed", "id")
	c.Register(GetElementLocation, "getElementLocation", "id")
	c.Register(GetElementSize, "getElementSize", "id")
	c.Register(SetElementSelected, "setElementSelected", "id")
	c.Register(ToggleElement, "toggleElement", "id")
	c.Register(HoverOverElement, "hoverOverElement", "id")
	c.Register(DragElement, "dragElement", "id", "x", "y")
	c.Register(ExecuteScript, "executeScript", "script", "args")
	c.Register(Screenshot, "screenshot")
	c.Register(GetCookies, "getCookies")
	c.Register(AddCookie, "addCookie", "cookie")
	c.Register(DeleteCookie, "deleteCookie", "name")
	c.Register(DeleteAllCookies, "deleteAllCookies")
	return c
}

// WireName returns the request name for kind.
func (c *Catalog) WireName(kind Kind) (string, error) {
	name, ok := c.wire[kind]
	if !ok {
		return "", drivererr.New(drivererr.KeyNotFound, fmt.Sprintf("no wire name registered for %s", kind))
	}
	return name, nil
}

// ParamNames returns a copy of the declared parameter names for kind.
func (c *Catalog) ParamNames(kind Kind) ([]string, error) {
	names, ok := c.params[kind]
	if !ok {
		return nil, drivererr.New(drivererr.UnknownCommand, fmt.Sprintf("no parameter names registered for %s", kind))
	}
	return append([]string{}, names...), nil
}

// Lookup resolves a wire name back to its kind.
func (c *Catalog) Lookup(wire string) (Kind, bool) {
	for k, w := range c.wire {
		if w == wire {
			return k, true
		}
	}
	return 0, false
}

// Entries returns a copy of the catalog rows.
func (c *Catalog) Entries() map[Kind]Entry {
	out := make(map[Kind]Entry, len(c.wire))
	for k, w := range c.wire {
		out[k] = Entry{Wire: w, Params: append([]string{}, c.params[k]...)}
	}
	return out
}

// Validate checks that every enumerated kind has both table entries, that
// wire names are unique and that no parameter shadows the request field.
// A failure here is a programming error and should stop startup.
func (c *Catalog) Validate() error {
	var errs []error
	seen := make(map[string]Kind)

	for _, k := range Kinds() {
		wire, err := c.WireName(k)
		if err != nil {
			errs = append(errs, err)
		} else if prev, dup := seen[wire]; dup {
			errs = append(errs, fmt.Errorf("wire name %q used by both %s and %s", wire, prev, k))
		} else {
			seen[wire] = k
		}

		names, err := c.ParamNames(k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		params := make(map[string]bool, len(names))
		for _, n := range names {
			if n == requestKey {
				errs = append(errs, fmt.Errorf("%s: parameter %q collides with the request field", k, n))
			}
			if params[n] {
				errs = append(errs, fmt.Errorf("%s: duplicate parameter %q", k, n))
			}
			params[n] = true
		}
	}
	return errors.Join(errs...)
}

// LoadCatalog reads a YAML document keyed by kind name and applies it over
// the default catalog:
//
//	FindElement:
//	  wire: findElement
//	  params: [using, value]
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc map[string]Entry
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	c := DefaultCatalog()
	for _, name := range names {
		kind, ok := ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("catalog: unknown command kind %q", name)
		}
		entry := doc[name]
		if entry.Wire == "" {
			return nil, fmt.Errorf("catalog: %s has an empty wire name", name)
		}
		c.Register(kind, entry.Wire, entry.Params...)
	}
	return c, nil
}
