package page

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/coba-dev/coba/internal/model"
)

var maskedName = regexp.MustCompile(`^(.*?)\s*\(\.\.\.(\w+)\)$`)

// splitMask separates "TOTAL CHECKING (...1234)" into name and mask.
func splitMask(label string) (name, mask string) {
	if m := maskedName.FindStringSubmatch(label); m != nil {
		return m[1], m[2]
	}
	return label, ""
}

// ParseAccounts reads the accounts page. The page holds a single table;
// each account starts with a one-cell row carrying the account id, lists its
// fields as label/value rows, and ends with a horizontal rule.
func ParseAccounts(html string) ([]model.Account, error) {
	doc, err := load(html, "accounts")
	if err != nil {
		return nil, err
	}

	tables := doc.Find("table")
	if tables.Length() != 1 {
		return nil, newParseError("accounts", doc.Find("body"), "expected 1 table, found %d", tables.Length())
	}

	var (
		accts []model.Account
		cur   *model.Account
		perr  error
	)
	tables.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		switch cells.Length() {
		case 1:
			if cur == nil {
				id, ok := cells.Attr("id")
				if !ok {
					// Rows after the last account carry no id.
					return false
				}
				link := cells.Find("a").First()
				href, _ := link.Attr("href")
				name, mask := splitMask(clean(link.Text()))
				if name == "" {
					perr = newParseError("accounts", row, "account %s has no name", id)
					return false
				}
				cur = &model.Account{
					ID:         id,
					Name:       name,
					Mask:       mask,
					DetailURL:  href,
					Properties: make(map[string]model.Property),
				}
				return true
			}

			text := clean(row.Text())
			href, _ := row.Find("a").First().Attr("href")
			switch {
			case strings.Contains(text, "Transfer Money"):
				cur.TransferURL = href
			case strings.Contains(text, "Pay Credit Card"):
				cur.PaymentURL = href
			case strings.Contains(text, "Activity"):
				cur.ActivityURL = href
			case strings.Contains(href, "CreditCardRewardDetails"):
				cur.Properties[model.KeyRewardsProgram] = model.TextProperty(text)
			case row.Find("hr").Length() > 0:
				acct, err := finishAccount(*cur, row)
				if err != nil {
					perr = err
					return false
				}
				accts = append(accts, acct)
				cur = nil
			}
		case 2:
			if cur == nil {
				perr = newParseError("accounts", row, "label row outside of an account")
				return false
			}
			prop, err := parseValue(cells.Eq(1).Text())
			if err != nil {
				perr = newParseError("accounts", row, "%v", err)
				return false
			}
			cur.Properties[Wordize(cells.Eq(0).Text())] = prop
		default:
			perr = newParseError("accounts", row, "unexpected row with %d cells", cells.Length())
			return false
		}
		return true
	})
	if perr != nil {
		return nil, perr
	}
	if cur != nil {
		return nil, newParseError("accounts", tables, "account %s is not terminated", cur)
	}
	return accts, nil
}

func finishAccount(a model.Account, row *goquery.Selection) (model.Account, error) {
	presentKey, availableKey := model.KeyPresentBalance, model.KeyAvailableBalance
	a.Category = model.CategoryDebit
	if _, ok := a.Properties[model.KeyAvailableCredit]; ok {
		a.Category = model.CategoryCredit
		presentKey, availableKey = model.KeyCurrentBalance, model.KeyAvailableCredit
	}

	present, ok := a.Money(presentKey)
	if !ok {
		return model.Account{}, newParseError("accounts", row.Parent(), "account %s has no %s", a, presentKey)
	}
	a.Present = present
	a.Available = present
	if available, ok := a.Money(availableKey); ok {
		a.Available = available
	}
	return a, nil
}

// ParseAccountDetail merges the label/value rows of an account's detail page
// into a copy of acct.
func ParseAccountDetail(html string, acct model.Account) (model.Account, error) {
	doc, err := load(html, "account detail")
	if err != nil {
		return model.Account{}, err
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return model.Account{}, newParseError("account detail", doc.Find("body"), "no table for %s", acct)
	}

	props, err := keyValueRows(tables, "account detail")
	if err != nil {
		return model.Account{}, err
	}
	if len(props) == 0 {
		return model.Account{}, newParseError("account detail", tables, "no detail rows for %s", acct)
	}
	return acct.WithProperties(props), nil
}
