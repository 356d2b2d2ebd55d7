package state

import (
	"fmt"
	"slices"
)

// Page identifies a screen.
type Page string

const (
	PageSearch          Page = "search"
	PageDetails         Page = "details"
	PageServices        Page = "services"
	PageHistory         Page = "history"
	PageReceipts        Page = "receipts"
	PagePayFees         Page = "pay-fees"
	PageAddServices     Page = "add-services"
	PageCheckout        Page = "checkout"
	PagePayment         Page = "payment"
	PageProcessing      Page = "processing"
	PageSuccess         Page = "success"
	PageFailed          Page = "failed"
	PageDownloadReceipt Page = "download-receipt"
)

// Pages lists every page in declaration order.
var Pages = []Page{
	PageSearch, PageDetails, PageServices, PageHistory, PageReceipts,
	PagePayFees, PageAddServices, PageCheckout, PagePayment, PageProcessing,
	PageSuccess, PageFailed, PageDownloadReceipt,
}

// ParsePage converts a page name to a Page.
func ParsePage(name string) (Page, error) {
	p := Page(name)
	if !slices.Contains(Pages, p) {
		return "", fmt.Errorf("unknown page %q", name)
	}
	return p, nil
}

// Direction hints which transition animation to use. It has no other meaning.
type Direction string

const (
	Forward Direction = "forward"
	Back    Direction = "back"
)

// Navigation tracks the current page and how the user got there.
// History always holds at least one entry, the last being the current page.
type Navigation struct {
	Page      Page
	Direction Direction
	History   []Page
}

func initialNavigation() Navigation {
	return Navigation{
		Page:      PageSearch,
		Direction: Forward,
		History:   []Page{PageSearch},
	}
}

// CanGoBack reports whether GoBack would change anything.
func (n Navigation) CanGoBack() bool {
	return len(n.History) > 1
}

// NavigateToPage pushes Page onto the history. An empty Direction means Forward.
type NavigateToPage struct {
	Page      Page
	Direction Direction
}

func (a NavigateToPage) Apply(s State) State {
	dir := a.Direction
	if dir == "" {
		dir = Forward
	}
	h := make([]Page, len(s.Navigation.History), len(s.Navigation.History)+1)
	copy(h, s.Navigation.History)
	s.Navigation = Navigation{
		Page:      a.Page,
		Direction: dir,
		History:   append(h, a.Page),
	}
	return s
}

// GoBack pops one history entry. With a single entry it does nothing.
type GoBack struct{}

func (GoBack) Apply(s State) State {
	h := s.Navigation.History
	if len(h) <= 1 {
		return s
	}
	h = slices.Clone(h[:len(h)-1])
	s.Navigation = Navigation{
		Page:      h[len(h)-1],
		Direction: Back,
		History:   h,
	}
	return s
}

// ClearHistory returns navigation to the search page.
type ClearHistory struct{}

func (ClearHistory) Apply(s State) State {
	s.Navigation = initialNavigation()
	return s
}
