package driver

import (
	"context"

	"github.com/user/webdriver-bridge/internal/command"
)

// Element is a reference to a DOM element held by the extension.
type Element struct {
	ID string
	d  *Driver
}

func (e *Element) id() command.Value { return command.String(e.ID) }

// Click clicks the element.
func (e *Element) Click(ctx context.Context) error {
	return e.d.run(ctx, command.ClickElement, e.id())
}

// Clear empties a text input.
func (e *Element) Clear(ctx context.Context) error {
	return e.d.run(ctx, command.ClearElement, e.id())
}

// Submit submits the form the element belongs to.
func (e *Element) Submit(ctx context.Context) error {
	return e.d.run(ctx, command.SubmitElement, e.id())
}

// SendKeys types keys into the element.
func (e *Element) SendKeys(ctx context.Context, keys ...string) error {
	return e.d.run(ctx, command.SendKeysToElement, e.id(), command.Strings(keys...))
}

// Text returns the element's visible text.
func (e *Element) Text(ctx context.Context) (string, error) {
	var s string
	err := e.d.decode(ctx, &s, command.GetElementText, e.id())
	return s, err
}

// TagName returns the element's lower-case tag name.
func (e *Element) TagName(ctx context.Context) (string, error) {
	var s string
	err := e.d.decode(ctx, &s, command.GetElementTagName, e.id())
	return s, err
}

// Attribute returns the named attribute, or nil when it is absent.
func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	var s *string
	err := e.d.decode(ctx, &s, command.GetElementAttribute, e.id(), command.String(name))
	return s, err
}

// CSSValue returns the computed value of a CSS property.
func (e *Element) CSSValue(ctx context.Context, property string) (string, error) {
	var s string
	err := e.d.decode(ctx, &s, command.GetElementValueOfCSSProperty, e.id(), command.String(property))
	return s, err
}

// Selected reports whether an option or checkbox is selected.
func (e *Element) Selected(ctx context.Context) (bool, error) {
	return e.flag(ctx, command.IsElementSelected)
}

// Enabled reports whether the element accepts input.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	return e.flag(ctx, command.IsElementEnabled)
}

// Displayed reports whether the element is visible on the page.
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	return e.flag(ctx, command.IsElementDisplayed)
}

// Select selects an option, checkbox or radio button.
func (e *Element) Select(ctx context.Context) error {
	return e.d.run(ctx, command.SetElementSelected, e.id())
}

// Toggle flips a checkbox and returns its new state.
func (e *Element) Toggle(ctx context.Context) (bool, error) {
	return e.flag(ctx, command.ToggleElement)
}

func (e *Element) flag(ctx context.Context, kind command.Kind) (bool, error) {
	var b bool
	err := e.d.decode(ctx, &b, kind, e.id())
	return b, err
}

// Point is a page position in CSS pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is an element's rendered size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Location returns the element's top-left corner on the page.
func (e *Element) Location(ctx context.Context) (Point, error) {
	var p Point
	err := e.d.decode(ctx, &p, command.GetElementLocation, e.id())
	return p, err
}

// Size returns the element's rendered size.
func (e *Element) Size(ctx context.Context) (Size, error) {
	var s Size
	err := e.d.decode(ctx, &s, command.GetElementSize, e.id())
	return s, err
}

// FindElement searches below this element.
func (e *Element) FindElement(ctx context.Context, by, value string) (*Element, error) {
	els, err := e.findChildren(ctx, command.FindChildElement, by, value)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, noSuchElement(by, value)
	}
	return els[0], nil
}

// FindElements returns every match below this element.
func (e *Element) FindElements(ctx context.Context, by, value string) ([]*Element, error) {
	return e.findChildren(ctx, command.FindChildElements, by, value)
}

func (e *Element) findChildren(ctx context.Context, kind command.Kind, by, value string) ([]*Element, error) {
	resp, err := e.d.Do(ctx, kind, e.id(), command.String(by), command.String(value))
	if err != nil {
		return nil, err
	}
	return e.d.elements(resp.Value)
}

// Hover moves the pointer over the element.
func (e *Element) Hover(ctx context.Context) error {
	return e.d.run(ctx, command.HoverOverElement, e.id())
}

// DragBy drags the element by the given offset.
func (e *Element) DragBy(ctx context.Context, dx, dy int) error {
	return e.d.run(ctx, command.DragElement, e.id(), command.Int(int64(dx)), command.Int(int64(dy)))
}
