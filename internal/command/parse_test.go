package command

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coba-dev/coba/internal/banking"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseLine_Accounts(t *testing.T) {
	inv, err := ParseLine("accounts --pending premier")
	require.NoError(t, err)
	assert.Equal(t, KindAccounts, inv.Kind)
	assert.True(t, inv.Pending)
	assert.Equal(t, []string{"premier"}, inv.Qualifiers)

	inv, err = ParseLine("ACCOUNTS")
	require.NoError(t, err)
	assert.Equal(t, KindAccounts, inv.Kind)
	assert.Empty(t, inv.Qualifiers)
}

func TestParseLine_Details(t *testing.T) {
	inv, err := ParseLine(`details "total checking"`)
	require.NoError(t, err)
	assert.Equal(t, KindDetails, inv.Kind)
	assert.Equal(t, []string{"total checking"}, inv.Qualifiers)
}

func TestParseLine_Transactions(t *testing.T) {
	inv, err := ParseLine(`transactions freedom since:2014-01-03 through:1/7/2014 min:-$5 max:1,000 "contains:BEST BUY"`)
	require.NoError(t, err)
	assert.Equal(t, KindTransactions, inv.Kind)
	assert.Equal(t, []string{"freedom"}, inv.Qualifiers)
	assert.Equal(t, date(2014, 1, 3), inv.Filter.From)
	assert.Equal(t, date(2014, 1, 7), inv.Filter.Through)
	require.NotNil(t, inv.Filter.Min)
	assert.Equal(t, "-5.00", inv.Filter.Min.StringFixed(2))
	require.NotNil(t, inv.Filter.Max)
	assert.Equal(t, "1000.00", inv.Filter.Max.StringFixed(2))
	assert.Equal(t, "BEST BUY", inv.Filter.Contains)

	inv, err = ParseLine("transactions from:2014-01-01 to:2014-01-02")
	require.NoError(t, err)
	assert.Equal(t, date(2014, 1, 1), inv.Filter.From)
	assert.Equal(t, date(2014, 1, 2), inv.Filter.Through)
	assert.Empty(t, inv.Qualifiers)
}

func TestParseLine_Transfer(t *testing.T) {
	inv, err := ParseLine(`transfer $25 from total checking to premier "memo:rent money" date:2014-01-10`)
	require.NoError(t, err)
	assert.Equal(t, KindTransfer, inv.Kind)

	req := inv.Transfer
	assert.Equal(t, "25.00", req.Amount.StringFixed(2))
	assert.Equal(t, []string{"total", "checking"}, req.From)
	assert.Equal(t, []string{"premier"}, req.To)
	assert.Equal(t, "rent money", req.Memo)
	assert.Equal(t, date(2014, 1, 10), req.DeliverBy)
}

func TestParseLine_Pay(t *testing.T) {
	inv, err := ParseLine("pay minimum on freedom with total checking")
	require.NoError(t, err)
	assert.Equal(t, KindPay, inv.Kind)
	assert.Equal(t, banking.PayMinimum, inv.Payment.Amount.Kind)
	assert.Equal(t, []string{"freedom"}, inv.Payment.On)
	assert.Equal(t, []string{"total", "checking"}, inv.Payment.With)

	inv, err = ParseLine("pay 40.50 ON 9012 WITH 1234")
	require.NoError(t, err)
	assert.Equal(t, banking.PayLiteral, inv.Payment.Amount.Kind)
	assert.Equal(t, "40.50", inv.Payment.Amount.Value.StringFixed(2))
}

func TestParseLine_Errors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"", "no command given"},
		{"withdraw 20", `unknown command "withdraw"`},
		{`details "unterminated`, "splitting"},
		{"transactions since:yesterday", `invalid date "yesterday"`},
		{"transactions contains:", "contains: needs a value"},
		{"transactions min:ten", `min: invalid amount "ten"`},
		{"transactions since:2014-01-05 through:2014-01-01", "through date is before since date"},
		{"transactions min:10 max:5", "max is below min"},
		{"transfer", "missing amount"},
		{"transfer 25 total to premier", `expected "from"`},
		{"transfer 25 from total premier", `missing "to"`},
		{"transfer 25 from to premier", "both accounts need at least one qualifier"},
		{"transfer 25 from total to premier date:soon", `invalid date "soon"`},
		{"pay", "missing amount"},
		{"pay minimum freedom", `expected "on"`},
		{"pay minimum on freedom", `missing "with"`},
		{"pay minimum on with total", "both accounts need at least one qualifier"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			var serr *SyntaxError
			require.True(t, errors.As(err, &serr), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLine_BadAmounts(t *testing.T) {
	for _, line := range []string{"transfer 0 from a to b", "transfer lots from a to b", "pay -3 on a with b"} {
		_, err := ParseLine(line)
		var ierr *banking.InvalidAmountError
		assert.True(t, errors.As(err, &ierr), line)
	}
}

func TestSyntaxErrorUsage(t *testing.T) {
	_, err := ParseLine("pay minimum freedom")
	assert.Contains(t, err.Error(), "usage: "+Usage[KindPay])
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2014-01-03")
	require.NoError(t, err)
	assert.Equal(t, date(2014, 1, 3), d)

	d, err = ParseDate("12/30/2013")
	require.NoError(t, err)
	assert.Equal(t, date(2013, 12, 30), d)

	_, err = ParseDate("2014/01/03")
	assert.Error(t, err)
}
