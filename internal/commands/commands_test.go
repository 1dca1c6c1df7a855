package commands_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coba-dev/coba/internal/auditlog"
	"github.com/coba-dev/coba/internal/banktest"
	"github.com/coba-dev/coba/internal/commands"
	"github.com/coba-dev/coba/internal/config"
	"github.com/coba-dev/coba/internal/session"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// project writes a coba.yaml for the scripted site and clears COBA_*
// variables that would override it.
func project(t *testing.T, withPassword bool) string {
	t.Helper()
	for _, key := range []string{"USERNAME", "PASSWORD", "COOKIE_FILE", "VERIFICATION", "USER_AGENT", "BASE_URL", "AUDIT_LOG", "LOG_LEVEL", "MAX_PAGES", "MAX_VERIFICATION_ATTEMPTS"} {
		t.Setenv("COBA_"+key, "")
	}

	dir := t.TempDir()
	cfg := config.Default(banktest.Username)
	if withPassword {
		cfg.Password = banktest.Password
	}
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, config.Save(path, cfg))
	return path
}

func runCoba(t *testing.T, site *banktest.Site, input string, args ...string) result {
	t.Helper()
	cmd := commands.NewRootCommand(
		commands.WithTransport(site),
		commands.WithInput(strings.NewReader(input)),
	)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestAccounts(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()

	res := runCoba(t, site, "", "accounts", "--config", cfg)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "TOTAL CHECKING (...1234)")
	assert.Contains(t, res.stdout, "FREEDOM (...9012)")
	assert.NotContains(t, res.stdout, "PENDING")
	assert.Equal(t, 1, site.Logins())
}

func TestAccounts_Pending(t *testing.T) {
	cfg := project(t, true)

	res := runCoba(t, banktest.NewSite(), "", "accounts", "-p", "freedom", "--config", cfg)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "PENDING")
	assert.Contains(t, res.stdout, "$4576.55")
	assert.NotContains(t, res.stdout, "TOTAL CHECKING")
}

func TestDetails(t *testing.T) {
	cfg := project(t, true)

	res := runCoba(t, banktest.NewSite(), "", "details", "freedom", "--config", cfg)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "minimum_payment")
	assert.Contains(t, res.stdout, "statement_balance")
}

func TestTransactions_CSV(t *testing.T) {
	cfg := project(t, true)

	res := runCoba(t, banktest.NewSite(), "", "transactions", "freedom", "contains:best", "--csv", "--config", cfg)
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Details,Posting Date"))
}

func TestTransactions_SyntaxError(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()

	res := runCoba(t, site, "", "transactions", "since:whenever", "--config", cfg)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `invalid date "whenever"`)
	assert.Empty(t, site.Calls(), "nothing is fetched for a malformed command")
}

func TestPasswordPrompt(t *testing.T) {
	cfg := project(t, false)
	site := banktest.NewSite()

	res := runCoba(t, site, banktest.Password+"\n", "accounts", "--config", cfg)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Password for jdoe: ")
	assert.Contains(t, res.stdout, "FREEDOM")
}

func TestPasswordFromEnv(t *testing.T) {
	cfg := project(t, false)
	t.Setenv("COBA_PASSWORD", banktest.Password)

	res := runCoba(t, banktest.NewSite(), "", "accounts", "--config", cfg)
	require.NoError(t, res.err)
	assert.NotContains(t, res.stderr, "Password for")
}

func TestVerificationPrompt(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()
	site.RequireVerification = true

	res := runCoba(t, site, banktest.Code+"\n", "accounts", "--config", cfg)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Enter the verification code sent by email: ")
	assert.Len(t, site.Deliveries(), 1)
}

func TestVerificationPrompt_NoInput(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()
	site.RequireVerification = true

	res := runCoba(t, site, "", "accounts", "--config", cfg)
	var verr *session.VerificationFailedError
	require.True(t, errors.As(res.err, &verr), "got %v", res.err)
	assert.Equal(t, "no code entered", verr.Message)
	assert.NotContains(t, res.err.Error(), "EOF")
	assert.Zero(t, site.Logins())
}

func TestNoUsername(t *testing.T) {
	project(t, true)
	cfg := filepath.Join(t.TempDir(), "missing.yaml")

	res := runCoba(t, banktest.NewSite(), "", "accounts", "--config", cfg)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no username configured")
}

func TestTransfer_Confirmed(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()

	res := runCoba(t, site, "y\n", "transfer", "25", "from", "total", "to", "premier", "memo:rent", "--config", cfg)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Proceed? [y/N]")
	assert.Contains(t, res.stdout, "Confirmation number: TR-0000001")
	require.Len(t, site.Transfers(), 1)
	assert.Equal(t, "rent", site.Transfers()[0].Memo)

	entries, err := auditlog.Read(filepath.Join(filepath.Dir(cfg), "audit.csv"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "TR-0000001", entries[0].Number)

	hist := runCoba(t, site, "", "history", "--config", cfg)
	require.NoError(t, hist.err)
	assert.Contains(t, hist.stdout, "OPERATION")
	assert.Contains(t, hist.stdout, "transfer")
	assert.Contains(t, hist.stdout, "$25.00")
	assert.Contains(t, hist.stdout, "TR-0000001")
}

func TestTransfer_Declined(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()

	res := runCoba(t, site, "n\n", "transfer", "25", "from", "total", "to", "premier", "--config", cfg)
	require.NoError(t, res.err)
	assert.Equal(t, "Cancelled.\n", res.stdout)
	assert.Empty(t, site.Transfers())

	_, err := os.Stat(filepath.Join(filepath.Dir(cfg), "audit.csv"))
	assert.True(t, os.IsNotExist(err), "declined transfers are not recorded")
}

func TestTransfer_SameAccount(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()

	res := runCoba(t, site, "", "transfer", "25", "from", "1234", "to", "1234", "--config", cfg)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "same account")
	assert.Contains(t, res.stderr, "Error:")
	assert.Empty(t, site.Transfers())
}

func TestPay_AssumeYes(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()

	res := runCoba(t, site, "", "pay", "minimum", "on", "freedom", "with", "total", "--yes", "--config", cfg)
	require.NoError(t, res.err)
	assert.NotContains(t, res.stderr, "Proceed?")
	assert.Contains(t, res.stdout, "Payment of $35.00 submitted")
	require.Len(t, site.Payments(), 1)
	assert.Equal(t, "M", site.Payments()[0].Option)
}

func TestShell(t *testing.T) {
	cfg := project(t, true)
	site := banktest.NewSite()

	input := strings.Join([]string{
		"accounts",
		"",
		"withdraw 20",
		`details "freedom"`,
		"help",
		"exit",
		"accounts",
	}, "\n") + "\n"
	res := runCoba(t, site, input, "shell", "--config", cfg)
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "TOTAL CHECKING (...1234)")
	assert.Contains(t, res.stdout, "minimum_payment")
	assert.Contains(t, res.stdout, "transfer AMOUNT from QUALIFIER...")
	assert.Contains(t, res.stderr, `error: unknown command "withdraw"`)
	assert.Equal(t, 1, site.Logins(), "one login serves the whole shell")
	assert.Equal(t, 1, strings.Count(res.stdout, "ACCOUNT  "), "lines after exit are not run")
}

func TestShell_EOF(t *testing.T) {
	cfg := project(t, true)

	res := runCoba(t, banktest.NewSite(), "accounts", "shell", "--config", cfg)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "FREEDOM")
}

func TestHistory_Empty(t *testing.T) {
	cfg := project(t, true)

	res := runCoba(t, banktest.NewSite(), "", "history", "--config", cfg)
	require.NoError(t, res.err)
	assert.Equal(t, "No submissions recorded.\n", res.stdout)
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bank")

	res := runCoba(t, banktest.NewSite(), "", "init", dir, "--username", "jdoe", "--verification", "sms")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Wrote "+filepath.Join(dir, config.FileName))

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "jdoe", cfg.Username)
	assert.Equal(t, "sms", cfg.Verification)

	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), "cookies.json")

	res = runCoba(t, banktest.NewSite(), "", "init", dir, "--username", "other")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "already exists")

	res = runCoba(t, banktest.NewSite(), "", "init", dir, "--username", "other", "--force")
	require.NoError(t, res.err)
	cfg, err = config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.Username)
}

func TestInit_BadVerification(t *testing.T) {
	res := runCoba(t, banktest.NewSite(), "", "init", t.TempDir(), "--username", "jdoe", "--verification", "fax")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "verification")
}

func TestInit_RequiresUsername(t *testing.T) {
	res := runCoba(t, banktest.NewSite(), "", "init", t.TempDir())
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `"username" not set`)
}
