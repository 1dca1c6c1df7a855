package banking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coba-dev/coba/internal/banking"
	"github.com/coba-dev/coba/internal/banktest"
)

func payRequest(amount string) banking.PaymentRequest {
	a, err := banking.ParsePaymentAmount(amount)
	if err != nil {
		panic(err)
	}
	return banking.PaymentRequest{Amount: a, On: []string{"freedom"}, With: []string{"total"}}
}

func TestPay_MinimumReadAfterResolution(t *testing.T) {
	f := setup(t)
	f.site.MinimumPayment = "$41.17"

	c, err := f.engine.Pay(context.Background(), payRequest("minimum"))
	require.NoError(t, err)
	assert.Equal(t, "41.17", c.Amount.StringFixed(2))
	assert.Equal(t, "PC-0000001", c.Number)

	assert.Equal(t, []string{
		"Pay $41.17 (minimum payment) to FREEDOM (...9012) from TOTAL CHECKING (...1234)",
	}, f.confirm.summaries)
	assert.Equal(t, []banktest.Payment{{CardID: "3333", FromID: "1111", Option: "M", Amount: "41.17"}}, f.site.Payments())

	// The detail page is read before confirmation.
	var order []string
	for _, c := range f.site.Calls() {
		order = append(order, c.String())
	}
	assert.Contains(t, order, "GET /Secure/Accounts/Details?id=3333")

	require.Len(t, f.rec.subs, 1)
	assert.Equal(t, "payment", f.rec.subs[0].Operation)
	assert.Equal(t, "3333", f.rec.subs[0].To.ID)
}

func TestPay_Symbolic(t *testing.T) {
	tests := []struct {
		amount string
		option string
		total  string
	}{
		{"statement", "T", "350.00"},
		{"current", "C", "400.00"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			f := setup(t)
			c, err := f.engine.Pay(context.Background(), payRequest(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.total, c.Amount.StringFixed(2))
			assert.Equal(t, tt.option, f.site.Payments()[0].Option)
		})
	}
}

func TestPay_Literal(t *testing.T) {
	f := setup(t)
	c, err := f.engine.Pay(context.Background(), payRequest("$50"))
	require.NoError(t, err)
	assert.Equal(t, "50.00", c.Amount.StringFixed(2))
	assert.Equal(t, []banktest.Payment{{CardID: "3333", FromID: "1111", Option: "O", Amount: "50.00"}}, f.site.Payments())
	assert.Equal(t, "Pay $50.00 to FREEDOM (...9012) from TOTAL CHECKING (...1234)", f.confirm.summaries[0])
}

func TestPay_FromPremier(t *testing.T) {
	f := setup(t)
	req := payRequest("10")
	req.With = []string{"premier"}

	_, err := f.engine.Pay(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "2222", f.site.Payments()[0].FromID)
}

func TestPay_AmountChanged(t *testing.T) {
	f := setup(t)
	f.site.TotalOverride = "$99.00"

	_, err := f.engine.Pay(context.Background(), payRequest("minimum"))
	var changed *banking.AmountChangedError
	require.True(t, errors.As(err, &changed))
	assert.Equal(t, "35.00", changed.Confirmed.StringFixed(2))
	assert.Equal(t, "99.00", changed.Shown.StringFixed(2))
	assert.Empty(t, f.site.Payments())
	assert.False(t, f.called("POST /Secure/Payment/Verify"))
}

func TestPay_Rejected(t *testing.T) {
	f := setup(t)
	f.site.RejectPayments = "Payment exceeds the current balance."

	_, err := f.engine.Pay(context.Background(), payRequest("5000"))
	var rej *banking.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "payment", rej.Operation)
	assert.Equal(t, "Payment exceeds the current balance.", rej.Reason)
	assert.Len(t, f.rec.subs, 1)
}

func TestPay_NoMinimumShown(t *testing.T) {
	f := setup(t)
	f.site.MinimumPayment = "--"

	_, err := f.engine.Pay(context.Background(), payRequest("minimum"))
	var ierr *banking.InvalidAmountError
	require.True(t, errors.As(err, &ierr))
	assert.Contains(t, ierr.Reason, "shows no minimum payment")
	assert.Empty(t, f.confirm.summaries)
}

func TestPay_MinimumPaymentDueLabel(t *testing.T) {
	f := setup(t)
	f.site.MinimumPaymentLabel = "Minimum Payment Due:"

	c, err := f.engine.Pay(context.Background(), payRequest("minimum"))
	require.NoError(t, err)
	assert.Equal(t, "35.00", c.Amount.StringFixed(2))
	assert.Equal(t, "M", f.site.Payments()[0].Option)
}

func TestPay_InvalidLiteral(t *testing.T) {
	tests := []struct {
		amount string
		reason string
	}{
		{"0", "must be greater than zero"},
		{"1.005", "more than two decimal places"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			f := setup(t)
			req := payRequest("10")
			req.Amount = banking.Literal(decimal.RequireFromString(tt.amount))

			_, err := f.engine.Pay(context.Background(), req)
			var ierr *banking.InvalidAmountError
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.reason, ierr.Reason)
			assert.Empty(t, f.site.Calls())
		})
	}
}

func TestPay_ConfirmationWithoutAmount(t *testing.T) {
	f := setup(t)
	f.site.OmitConfirmationAmount = true

	c, err := f.engine.Pay(context.Background(), payRequest("minimum"))
	require.NoError(t, err)
	assert.Equal(t, "35.00", c.Amount.StringFixed(2))
}

func TestPay_Categories(t *testing.T) {
	f := setup(t)
	req := payRequest("10")
	req.On = []string{"premier"}

	_, err := f.engine.Pay(context.Background(), req)
	var cerr *banking.CategoryError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "card to pay", cerr.Role)

	req = payRequest("10")
	req.With = []string{"9012"}
	_, err = f.engine.Pay(context.Background(), req)
	var same *banking.SameAccountError
	assert.True(t, errors.As(err, &same))
}

func TestPay_Declined(t *testing.T) {
	f := setup(t)
	f.confirm.answer = false

	_, err := f.engine.Pay(context.Background(), payRequest("minimum"))
	assert.ErrorIs(t, err, banking.ErrDeclined)
	assert.Empty(t, f.site.Payments())
}

func TestParsePaymentAmount(t *testing.T) {
	tests := []struct {
		in      string
		kind    banking.PaymentKind
		value   string
		wantErr bool
	}{
		{"statement", banking.PayStatement, "0", false},
		{"MINIMUM", banking.PayMinimum, "0", false},
		{"current", banking.PayCurrent, "0", false},
		{"$1,200.50", banking.PayLiteral, "1200.5", false},
		{"25", banking.PayLiteral, "25", false},
		{"0", "", "", true},
		{"-5", "", "", true},
		{"1.234", "", "", true},
		{"lots", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := banking.ParsePaymentAmount(tt.in)
			if tt.wantErr {
				var ierr *banking.InvalidAmountError
				assert.True(t, errors.As(err, &ierr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.True(t, decimal.RequireFromString(tt.value).Equal(got.Value))
		})
	}
}
