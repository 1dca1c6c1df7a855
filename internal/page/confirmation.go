package page

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/model"
)

var stepMarker = regexp.MustCompile(`Step (\d+) of (\d+)`)

// Detail keys that hold the amount on confirmation pages.
var confirmationAmountKeys = []string{
	"amount",
	"transfer_amount",
	"payment_amount",
	"total_payment_amount",
}

// ParseConfirmation reads the page shown after a transfer or payment step.
// A coaching message on the page is returned as a *SiteError.
func ParseConfirmation(html string) (model.Confirmation, error) {
	doc, err := load(html, "confirmation")
	if err != nil {
		return model.Confirmation{}, err
	}
	if msg, ok := siteMessage(doc); ok {
		return model.Confirmation{}, &SiteError{Message: msg}
	}

	m := stepMarker.FindStringSubmatch(clean(doc.Find("body").Text()))
	if m == nil {
		return model.Confirmation{}, newParseError("confirmation", doc.Find("body"), "no step marker")
	}
	step, _ := strconv.Atoi(m[1])
	steps, _ := strconv.Atoi(m[2])

	details, err := keyValueRows(doc.Selection, "confirmation")
	if err != nil {
		return model.Confirmation{}, err
	}

	c := model.Confirmation{Step: step, Steps: steps, Details: details}
	if p, ok := details["confirmation_number"]; ok {
		c.Number = p.String()
	}
	for _, key := range confirmationAmountKeys {
		if p, ok := details[key]; ok && p.Kind == model.KindMoney {
			c.Amount = p.Money
			break
		}
	}

	var notes []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := clean(p.Text())
		if text != "" && !stepMarker.MatchString(text) {
			notes = append(notes, text)
		}
	})
	c.Message = strings.Join(notes, " ")
	return c, nil
}

// PaymentOption is one of the radio choices on the payment form.
type PaymentOption string

const (
	OptionStatement PaymentOption = "statement"
	OptionCurrent   PaymentOption = "current"
	OptionMinimum   PaymentOption = "minimum"
	OptionOther     PaymentOption = "other"
)

// PaymentOptionField is the radio group name on the payment form.
const PaymentOptionField = "PaymentOptionId"

// ParsePaymentOptions maps each payment choice to its radio value.
func ParsePaymentOptions(html string) (map[PaymentOption]string, error) {
	doc, err := load(html, "payment")
	if err != nil {
		return nil, err
	}

	inputs := doc.Find(`input[name="` + PaymentOptionField + `"]`)
	if inputs.Length() == 0 {
		return nil, newParseError("payment", doc.Find("body"), "no payment options")
	}

	options := make(map[PaymentOption]string)
	inputs.Each(func(_ int, in *goquery.Selection) {
		value, _ := in.Attr("value")
		container := in.Closest("tr")
		if container.Length() == 0 {
			container = in.Parent()
		}
		label := strings.ToLower(clean(container.Text()))
		switch {
		case strings.Contains(label, "statement balance"):
			options[OptionStatement] = value
		case strings.Contains(label, "current balance"):
			options[OptionCurrent] = value
		case strings.Contains(label, "minimum payment"):
			options[OptionMinimum] = value
		case strings.Contains(label, "other amount"):
			options[OptionOther] = value
		}
	})
	return options, nil
}

// ParseTotalPayment reads "Total payment amount:" from the payment review page.
func ParseTotalPayment(html string) (decimal.Decimal, error) {
	doc, err := load(html, "payment review")
	if err != nil {
		return decimal.Zero, err
	}

	var (
		total decimal.Decimal
		found bool
		perr  error
	)
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		text := clean(row.Text())
		if !strings.Contains(text, "Total payment amount:") {
			return true
		}
		fields := strings.Fields(text)
		total, perr = parseMoney(fields[len(fields)-1])
		found = perr == nil
		return false
	})
	if perr != nil {
		return decimal.Zero, &ParseError{Page: "payment review", Reason: perr.Error()}
	}
	if !found {
		return decimal.Zero, newParseError("payment review", doc.Find("body"), "no total payment amount")
	}
	return total, nil
}
