package driver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/webdriver-bridge/internal/command"
	"github.com/user/webdriver-bridge/internal/drivererr"
	"github.com/user/webdriver-bridge/internal/wire"
)

type call struct {
	Kind   command.Kind
	Params string
}

type reply struct {
	value string
	err   error
}

// fakeExecutor records calls and answers from a script.
type fakeExecutor struct {
	calls   []call
	replies []reply
}

func (f *fakeExecutor) Do(_ context.Context, kind command.Kind, values ...command.Value) (*wire.Response, error) {
	params, err := json.Marshal(command.List(values...))
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, call{Kind: kind, Params: string(params)})

	if len(f.replies) == 0 {
		return &wire.Response{}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	resp := &wire.Response{}
	if r.value != "" {
		resp.Value = json.RawMessage(r.value)
	}
	return resp, r.err
}

type fakeRestarter struct {
	restarts int
	err      error
}

func (r *fakeRestarter) Restart(context.Context) error {
	r.restarts++
	return r.err
}

func newDriver(t *testing.T, replies ...reply) (*Driver, *fakeExecutor) {
	exec := &fakeExecutor{replies: replies}
	return New(exec, zaptest.NewLogger(t)), exec
}

func TestNavigation(t *testing.T) {
	d, exec := newDriver(t, reply{}, reply{value: `"http://example.com/"`}, reply{value: `"Example"`}, reply{}, reply{}, reply{})
	ctx := context.Background()

	require.NoError(t, d.Get(ctx, "http://example.com"))
	url, err := d.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/", url)
	title, err := d.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Example", title)
	require.NoError(t, d.Back(ctx))
	require.NoError(t, d.Forward(ctx))
	require.NoError(t, d.Refresh(ctx))

	want := []call{
		{command.Get, `["http://example.com"]`},
		{command.GetCurrentURL, `[]`},
		{command.GetTitle, `[]`},
		{command.GoBack, `[]`},
		{command.GoForward, `[]`},
		{command.Refresh, `[]`},
	}
	if diff := cmp.Diff(want, exec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFindElementShapes(t *testing.T) {
	for _, tc := range []struct {
		name  string
		value string
		want  string
	}{
		{"bare id", `"element/0"`, "element/0"},
		{"list", `["element/3","element/4"]`, "element/3"},
		{"reference", `{"ELEMENT":"7"}`, "7"},
		{"w3c reference", `{"element-6066-11e4-a52e-4f735466cecf":"abc"}`, "abc"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, exec := newDriver(t, reply{value: tc.value})
			el, err := d.FindElement(context.Background(), ByCSSSelector, "#foo")
			require.NoError(t, err)
			assert.Equal(t, tc.want, el.ID)
			assert.Equal(t, `["css selector","#foo"]`, exec.calls[0].Params)
		})
	}
}

func TestFindElementEmptyList(t *testing.T) {
	d, _ := newDriver(t, reply{value: `[]`})
	_, err := d.FindElement(context.Background(), ByID, "missing")
	assert.True(t, errors.Is(err, drivererr.NoSuchElement))
}

func TestFindElementMalformed(t *testing.T) {
	d, _ := newDriver(t, reply{value: `42`})
	_, err := d.FindElement(context.Background(), ByID, "x")
	assert.True(t, errors.Is(err, drivererr.MalformedResponse))
}

func TestFindElements(t *testing.T) {
	d, _ := newDriver(t, reply{value: `["element/1","element/2"]`})
	els, err := d.FindElements(context.Background(), ByTagName, "a")
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "element/2", els[1].ID)
}

func TestElementOperations(t *testing.T) {
	d, exec := newDriver(t,
		reply{value: `"element/0"`},
		reply{},
		reply{},
		reply{},
		reply{value: `"hello"`},
		reply{value: `null`},
		reply{value: `"text"`},
		reply{value: `true`},
		reply{value: `{"x":3,"y":4}`},
		reply{},
	)
	ctx := context.Background()

	el, err := d.FindElement(ctx, ByName, "q")
	require.NoError(t, err)
	require.NoError(t, el.Click(ctx))
	require.NoError(t, el.Clear(ctx))
	require.NoError(t, el.SendKeys(ctx, "abc", ""))

	text, err := el.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	missing, err := el.Attribute(ctx, "href")
	require.NoError(t, err)
	assert.Nil(t, missing)

	typ, err := el.Attribute(ctx, "type")
	require.NoError(t, err)
	require.NotNil(t, typ)
	assert.Equal(t, "text", *typ)

	shown, err := el.Displayed(ctx)
	require.NoError(t, err)
	assert.True(t, shown)

	loc, err := el.Location(ctx)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 3, Y: 4}, loc)

	require.NoError(t, el.DragBy(ctx, 10, -5))

	want := []call{
		{command.FindElement, `["name","q"]`},
		{command.ClickElement, `["element/0"]`},
		{command.ClearElement, `["element/0"]`},
		{command.SendKeysToElement, `["element/0",["abc",""]]`},
		{command.GetElementText, `["element/0"]`},
		{command.GetElementAttribute, `["element/0","href"]`},
		{command.GetElementAttribute, `["element/0","type"]`},
		{command.IsElementDisplayed, `["element/0"]`},
		{command.GetElementLocation, `["element/0"]`},
		{command.DragElement, `["element/0",10,-5]`},
	}
	if diff := cmp.Diff(want, exec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteScriptPassesElements(t *testing.T) {
	d, exec := newDriver(t, reply{value: `{"ok":true}`})
	el := &Element{ID: "element/9", d: d}

	out, err := d.ExecuteScript(context.Background(), "return arguments[0];", el, 1, "two")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(out))
	assert.Equal(t, `["return arguments[0];",[{"ELEMENT":"element/9"},1,"two"]]`, exec.calls[0].Params)
}

func TestExecuteScriptRejectsUnsupportedArgs(t *testing.T) {
	d, exec := newDriver(t)
	_, err := d.ExecuteScript(context.Background(), "x", struct{}{})
	assert.Error(t, err)
	assert.Empty(t, exec.calls)
}

func TestScreenshot(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	encoded := base64.StdEncoding.EncodeToString(png)

	d, _ := newDriver(t, reply{value: `"data:image/png;base64,` + encoded + `"`}, reply{value: `"` + encoded + `"`}, reply{value: `"%%%"`})
	ctx := context.Background()

	got, err := d.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, png, got)

	got, err = d.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, png, got)

	_, err = d.Screenshot(ctx)
	assert.True(t, errors.Is(err, drivererr.MalformedResponse))
}

func TestCookies(t *testing.T) {
	d, exec := newDriver(t, reply{}, reply{value: `[{"name":"a","value":"1","secure":true}]`})
	ctx := context.Background()

	require.NoError(t, d.AddCookie(ctx, Cookie{Name: "a", Value: "1", Path: "/"}))
	cookies, err := d.Cookies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Cookie{{Name: "a", Value: "1", Secure: true}}, cookies)
	assert.Equal(t, `[{"name":"a","value":"1","path":"/"}]`, exec.calls[0].Params)
}

func TestDriverErrorsPassThrough(t *testing.T) {
	d, _ := newDriver(t, reply{err: drivererr.New(drivererr.StaleElementReference, "gone")})
	el := &Element{ID: "element/1", d: d}
	err := el.Click(context.Background())
	assert.True(t, errors.Is(err, drivererr.StaleElementReference))
}

func TestFatalErrorRestartsAndRetriesOnce(t *testing.T) {
	fatal := drivererr.New(drivererr.FatalDriverError, drivererr.InternalBrowserMessage)
	exec := &fakeExecutor{replies: []reply{{err: fatal}, {value: `"after restart"`}}}
	restarter := &fakeRestarter{}
	d := New(exec, zaptest.NewLogger(t), WithRestarter(restarter))

	title, err := d.Title(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after restart", title)
	assert.Equal(t, 1, restarter.restarts)
	assert.Len(t, exec.calls, 2)
}

func TestFatalErrorRetriedOnlyOnce(t *testing.T) {
	fatal := drivererr.New(drivererr.FatalDriverError, drivererr.InternalBrowserMessage)
	exec := &fakeExecutor{replies: []reply{{err: fatal}, {err: fatal}}}
	restarter := &fakeRestarter{}
	d := New(exec, zaptest.NewLogger(t), WithRestarter(restarter))

	err := d.Refresh(context.Background())
	assert.True(t, drivererr.IsFatal(err))
	assert.Equal(t, 1, restarter.restarts)
	assert.Len(t, exec.calls, 2)
}

func TestFatalErrorRestartFailure(t *testing.T) {
	fatal := drivererr.New(drivererr.FatalDriverError, "crashed")
	exec := &fakeExecutor{replies: []reply{{err: fatal}}}
	d := New(exec, zaptest.NewLogger(t), WithRestarter(&fakeRestarter{err: errors.New("no binary")}))

	err := d.Refresh(context.Background())
	assert.True(t, drivererr.IsFatal(err))
	assert.Contains(t, err.Error(), "no binary")
	assert.Len(t, exec.calls, 1)
}

func TestFatalErrorWithoutRestarter(t *testing.T) {
	exec := &fakeExecutor{replies: []reply{{err: drivererr.New(drivererr.FatalDriverError, "crashed")}}}
	d := New(exec, zaptest.NewLogger(t))

	assert.True(t, drivererr.IsFatal(d.Refresh(context.Background())))
	assert.Len(t, exec.calls, 1)
}

func TestFramesAndFocus(t *testing.T) {
	d, exec := newDriver(t, reply{}, reply{}, reply{value: `{"ELEMENT":"element/5"}`}, reply{value: `true`}, reply{})
	ctx := context.Background()

	require.NoError(t, d.SwitchToFrame(ctx, 1))
	require.NoError(t, d.SwitchToFrame(ctx, nil))

	el, err := d.ActiveElement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "element/5", el.ID)

	on, err := el.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	require.NoError(t, d.Quit(ctx))

	want := []call{
		{command.SwitchToFrame, `[1]`},
		{command.SwitchToFrame, `[null]`},
		{command.GetActiveElement, `[]`},
		{command.ToggleElement, `["element/5"]`},
		{command.Quit, `[]`},
	}
	if diff := cmp.Diff(want, exec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestElementState(t *testing.T) {
	d, exec := newDriver(t, reply{value: `"input"`}, reply{value: `true`}, reply{value: `false`}, reply{value: `true`})
	el := &Element{ID: "element/2", d: d}
	ctx := context.Background()

	tag, err := el.TagName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "input", tag)

	selected, err := el.Selected(ctx)
	require.NoError(t, err)
	assert.True(t, selected)

	enabled, err := el.Enabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	shown, err := el.Displayed(ctx)
	require.NoError(t, err)
	assert.True(t, shown)

	want := []call{
		{command.GetElementTagName, `["element/2"]`},
		{command.IsElementSelected, `["element/2"]`},
		{command.IsElementEnabled, `["element/2"]`},
		{command.IsElementDisplayed, `["element/2"]`},
	}
	if diff := cmp.Diff(want, exec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}
