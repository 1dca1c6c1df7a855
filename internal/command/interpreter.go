package command

import (
	"context"
	"fmt"

	"github.com/coba-dev/coba/internal/banking"
	"github.com/coba-dev/coba/internal/model"
)

// Operations is what the interpreter runs commands against.
// *banking.Engine implements it.
type Operations interface {
	ListAccounts(ctx context.Context, qualifiers []string, adjustForPending bool) ([]model.Account, error)
	AccountDetails(ctx context.Context, qualifiers []string) ([]model.Account, error)
	ListTransactions(ctx context.Context, qualifiers []string, f banking.Filter) ([]banking.Statement, error)
	Transfer(ctx context.Context, req banking.TransferRequest) (model.Confirmation, error)
	Pay(ctx context.Context, req banking.PaymentRequest) (model.Confirmation, error)
}

// Interpreter maps invocations to operations.
type Interpreter struct {
	ops Operations
}

// NewInterpreter creates an Interpreter.
func NewInterpreter(ops Operations) *Interpreter {
	return &Interpreter{ops: ops}
}

// Result is the outcome of one successful command.
type Result struct {
	Kind         Kind
	Pending      bool
	Accounts     []model.Account
	Statements   []banking.Statement
	Confirmation *model.Confirmation
}

// Execute runs inv. Errors from the operation are returned unchanged so
// callers can inspect them with errors.As.
func (in *Interpreter) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	res := &Result{Kind: inv.Kind, Pending: inv.Pending}
	var err error
	switch inv.Kind {
	case KindAccounts:
		res.Accounts, err = in.ops.ListAccounts(ctx, inv.Qualifiers, inv.Pending)
	case KindDetails:
		res.Accounts, err = in.ops.AccountDetails(ctx, inv.Qualifiers)
	case KindTransactions:
		res.Statements, err = in.ops.ListTransactions(ctx, inv.Qualifiers, inv.Filter)
	case KindTransfer:
		var c model.Confirmation
		c, err = in.ops.Transfer(ctx, inv.Transfer)
		res.Confirmation = &c
	case KindPay:
		var c model.Confirmation
		c, err = in.ops.Pay(ctx, inv.Payment)
		res.Confirmation = &c
	default:
		return nil, &SyntaxError{Reason: fmt.Sprintf("unknown command %q", inv.Kind)}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Run parses and executes one command line.
func (in *Interpreter) Run(ctx context.Context, line string) (*Result, error) {
	inv, err := ParseLine(line)
	if err != nil {
		return nil, err
	}
	return in.Execute(ctx, inv)
}
