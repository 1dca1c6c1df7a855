package page

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coba-dev/coba/internal/banktest"
	"github.com/coba-dev/coba/internal/model"
)

func TestParseAccounts(t *testing.T) {
	accts, err := ParseAccounts(banktest.Fixture("accounts.html"))
	require.NoError(t, err)
	require.Len(t, accts, 3)

	checking := accts[0]
	assert.Equal(t, "1111", checking.ID)
	assert.Equal(t, "TOTAL CHECKING", checking.Name)
	assert.Equal(t, "1234", checking.Mask)
	assert.Equal(t, model.CategoryDebit, checking.Category)
	assert.Equal(t, "1000.00", checking.Present.StringFixed(2))
	assert.Equal(t, "950.00", checking.Available.StringFixed(2))
	assert.Equal(t, "/Secure/Accounts/Details?id=1111", checking.DetailURL)
	assert.Equal(t, "/Secure/Accounts/Activity?id=1111", checking.ActivityURL)
	assert.Equal(t, "/Secure/Transfer/From?fromId=1111", checking.TransferURL)
	assert.Empty(t, checking.PaymentURL)

	premier := accts[1]
	assert.Equal(t, "CHASE PREMIER CHECKING", premier.Name)
	assert.Equal(t, "2000.00", premier.Present.StringFixed(2))
	assert.Equal(t, "2000.00", premier.Available.StringFixed(2))

	card := accts[2]
	assert.Equal(t, "FREEDOM (...9012)", card.String())
	assert.Equal(t, model.CategoryCredit, card.Category)
	assert.Equal(t, "400.00", card.Present.StringFixed(2))
	assert.Equal(t, "4600.00", card.Available.StringFixed(2))
	assert.Equal(t, "/Secure/Payment/Pay?id=3333", card.PaymentURL)
	assert.Empty(t, card.TransferURL)

	limit, ok := card.Money(model.KeyCreditLimit)
	require.True(t, ok)
	assert.Equal(t, "5000.00", limit.StringFixed(2))

	due := card.Properties[model.KeyPaymentDueDate]
	assert.Equal(t, model.KindDate, due.Kind)
	assert.Equal(t, time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC), due.Date)

	assert.Equal(t, "Ultimate Rewards: 1,234 points", card.Properties[model.KeyRewardsProgram].Text)
}

func TestParseAccounts_Errors(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "no table",
			html: `<html><body><p>Nothing here</p></body></html>`,
			want: "expected 1 table, found 0",
		},
		{
			name: "two tables",
			html: `<html><body><table></table><table></table></body></html>`,
			want: "expected 1 table, found 2",
		},
		{
			name: "label before account",
			html: `<table><tr><td>Present Balance:</td><td>$1.00</td></tr></table>`,
			want: "label row outside of an account",
		},
		{
			name: "missing balance",
			html: `<table>
<tr><td id="9"><a href="/d">SAVINGS (...0001)</a></td></tr>
<tr><td>Nickname:</td><td>Rainy day</td></tr>
<tr><td><hr></td></tr>
</table>`,
			want: "has no present_balance",
		},
		{
			name: "unterminated",
			html: `<table>
<tr><td id="9"><a href="/d">SAVINGS (...0001)</a></td></tr>
<tr><td>Present Balance:</td><td>$1.00</td></tr>
</table>`,
			want: "is not terminated",
		},
		{
			name: "three cells",
			html: `<table><tr><td>a</td><td>b</td><td>c</td></tr></table>`,
			want: "unexpected row with 3 cells",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccounts(tt.html)
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "accounts", perr.Page)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseAccountDetail_Credit(t *testing.T) {
	accts, err := ParseAccounts(banktest.Fixture("accounts.html"))
	require.NoError(t, err)
	card := accts[2]

	detailed, err := ParseAccountDetail(banktest.CreditDetailPage("$35.00"), card)
	require.NoError(t, err)

	minimum, ok := detailed.Money(model.KeyMinimumPayment)
	require.True(t, ok)
	assert.Equal(t, "35.00", minimum.StringFixed(2))

	statement, ok := detailed.Money(model.KeyStatementBalance)
	require.True(t, ok)
	assert.Equal(t, "350.00", statement.StringFixed(2))

	assert.Equal(t, "15.24%", detailed.Properties["purchase_apr"].Text)
	assert.Equal(t, model.KindDate, detailed.Properties["last_payment_date"].Kind)

	// Properties from the accounts page survive the merge.
	assert.Contains(t, detailed.Properties, model.KeyRewardsProgram)
	// The original is untouched.
	assert.NotContains(t, card.Properties, model.KeyMinimumPayment)
}

func TestParseAccountDetail_Debit(t *testing.T) {
	acct := model.Account{ID: "1111", Name: "TOTAL CHECKING", Mask: "1234", Category: model.CategoryDebit}

	detailed, err := ParseAccountDetail(banktest.Fixture("detail_debit.html"), acct)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", detailed.Present.StringFixed(2))
	assert.Equal(t, "950.00", detailed.Available.StringFixed(2))
	assert.Equal(t, "CHASE PREMIER CHECKING", detailed.Properties["overdraft_protection"].Text)
	assert.Equal(t, time.Date(2009, 3, 9, 0, 0, 0, 0, time.UTC), detailed.Properties["account_opened"].Date)
}

func TestParseAccountDetail_NoTable(t *testing.T) {
	_, err := ParseAccountDetail(`<html><body><p>Service unavailable</p></body></html>`, model.Account{Name: "X"})
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Fragment, "Service unavailable")
}
