package session_test

import (
	"context"

	"github.com/coba-dev/coba/internal/banktest"
	"github.com/coba-dev/coba/internal/browser"
	"github.com/coba-dev/coba/internal/page"
)

// findTransferForm reads the transfer form straight from the site, outside
// of any session.
func findTransferForm(site *banktest.Site) (browser.Form, error) {
	site.SetLoggedIn()
	p, err := site.Get(context.Background(), "/Secure/Transfer/Transfer/EnterDetails?fromId=1111&toId=2222")
	site.Expire()
	if err != nil {
		return browser.Form{}, err
	}
	form, err := page.FindFormWith(p.Body, "Amount")
	if err != nil {
		return browser.Form{}, err
	}
	return form.Set("Amount", "10.00"), nil
}
