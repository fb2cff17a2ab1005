package command

import "fmt"

// Kind identifies a driver operation.
type Kind int

const (
	Get Kind = iota + 1
	GetCurrentURL
	GetTitle
	GetPageSource
	GoBack
	GoForward
	Refresh
	Close
	Quit
	GetWindowHandle
	GetWindowHandles
	SwitchToWindow
	SwitchToFrame
	GetActiveElement
	FindElement
	FindElements
	FindChildElement
	FindChildElements
	ClickElement
	ClearElement
	SubmitElement
	SendKeysToElement
	GetElementText
	GetElementTagName
	GetElementAttribute
	GetElementValueOfCSSProperty
	IsElementSelected
	IsElementEnabled
	IsElementDisplayed
	GetElementLocation
	GetElementSize
	SetElementSelected
	ToggleElement
	HoverOverElement
	DragElement
	ExecuteScript
	Screenshot
	GetCookies
	AddCookie
	DeleteCookie
	DeleteAllCookies

	lastKind
)

var kindNames = map[Kind]string{
	Get:                          "Get",
	GetCurrentURL:                "GetCurrentURL",
	GetTitle:                     "GetTitle",
	GetPageSource:                "GetPageSource",
	GoBack:                       "GoBack",
	GoForward:                    "GoForward",
	Refresh:                      "Refresh",
	Close:                        "Close",
	Quit:                         "Quit",
	GetWindowHandle:              "GetWindowHandle",
	GetWindowHandles:             "GetWindowHandles",
	SwitchToWindow:               "SwitchToWindow",
	SwitchToFrame:                "SwitchToFrame",
	GetActiveElement:             "GetActiveElement",
	FindElement:                  "FindElement",
	FindElements:                 "FindElements",
	FindChildElement:             "FindChildElement",
	FindChildElements:            "FindChildElements",
	ClickElement:                 "ClickElement",
	ClearElement:                 "ClearElement",
	SubmitElement:                "SubmitElement",
	SendKeysToElement:            "SendKeysToElement",
	GetElementText:               "GetElementText",
	GetElementTagName:            "GetElementTagName",
	GetElementAttribute:          "GetElementAttribute",
	GetElementValueOfCSSProperty: "GetElementValueOfCSSProperty",
	IsElementSelected:            "IsElementSelected",
	IsElementEnabled:             "IsElementEnabled",
	IsElementDisplayed:           "IsElementDisplayed",
	GetElementLocation:           "GetElementLocation",
	GetElementSize:               "GetElementSize",
	SetElementSelected:           "SetElementSelected",
	ToggleElement:                "ToggleElement",
	HoverOverElement:             "HoverOverElement",
	DragElement:                  "DragElement",
	ExecuteScript:                "ExecuteScript",
	Screenshot:                   "Screenshot",
	GetCookies:                   "GetCookies",
	AddCookie:                    "AddCookie",
	DeleteCookie:                 "DeleteCookie",
	DeleteAllCookies:             "DeleteAllCookies",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds returns every enumerated command kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, int(lastKind)-1)
	for k := Get; k < lastKind; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind resolves a kind by its Go name ("FindElement").
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
